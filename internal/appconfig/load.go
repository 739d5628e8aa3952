package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty,
// uses DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("service.start_url", cfg.Service.StartURL)
	v.SetDefault("service.default_timeout_seconds", cfg.Service.DefaultTimeoutSeconds)
	v.SetDefault("service.max_timeout_seconds", cfg.Service.MaxTimeoutSeconds)
	v.SetDefault("service.queue_depth", cfg.Service.QueueDepth)
	v.SetDefault("service.transcript_max_messages", cfg.Service.TranscriptMaxMessages)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.exec_path", cfg.Browser.ExecPath)
	v.SetDefault("shell.shell", cfg.Shell.Shell)
	v.SetDefault("shell.use_pty", cfg.Shell.UsePTY)
	v.SetDefault("shell.env", cfg.Shell.Env)
	v.SetDefault("chat.backends", cfg.Chat.Backends)
	v.SetDefault("chat.timeout_seconds", cfg.Chat.TimeoutSeconds)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.auth_token", cfg.HTTP.AuthToken)
	v.SetDefault("http.stream_replay", cfg.HTTP.StreamReplay)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Service.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("service.default_timeout_seconds must be positive")
	}
	if cfg.Service.MaxTimeoutSeconds < cfg.Service.DefaultTimeoutSeconds {
		return fmt.Errorf("service.max_timeout_seconds must be at least service.default_timeout_seconds")
	}
	if cfg.Service.QueueDepth <= 0 {
		return fmt.Errorf("service.queue_depth must be positive")
	}
	for i, backend := range cfg.Chat.Backends {
		if backend.Name == "" {
			return fmt.Errorf("chat.backends[%d].name is required", i)
		}
		if backend.URL == "" {
			return fmt.Errorf("chat.backends[%d].url is required", i)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Service.StartURL = expandEnv(cfg.Service.StartURL)
	cfg.Browser.ExecPath = expandEnv(cfg.Browser.ExecPath)
	cfg.Shell.Shell = expandEnv(cfg.Shell.Shell)
	cfg.HTTP.AuthToken = expandEnv(cfg.HTTP.AuthToken)
	for i := range cfg.Chat.Backends {
		cfg.Chat.Backends[i].URL = expandEnv(cfg.Chat.Backends[i].URL)
		cfg.Chat.Backends[i].Token = expandEnv(cfg.Chat.Backends[i].Token)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
