package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/quarterdeck/internal/chat"
	"pkt.systems/quarterdeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Service       ServiceConfig `mapstructure:"service" yaml:"service"`
	Browser       BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Shell         ShellConfig   `mapstructure:"shell" yaml:"shell"`
	Chat          ChatConfig    `mapstructure:"chat" yaml:"chat"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ServiceConfig controls the dispatcher core.
type ServiceConfig struct {
	StartURL              string `mapstructure:"start_url" yaml:"start_url"`
	DefaultTimeoutSeconds int    `mapstructure:"default_timeout_seconds" yaml:"default_timeout_seconds"`
	MaxTimeoutSeconds     int    `mapstructure:"max_timeout_seconds" yaml:"max_timeout_seconds"`
	QueueDepth            int    `mapstructure:"queue_depth" yaml:"queue_depth"`
	TranscriptMaxMessages int    `mapstructure:"transcript_max_messages" yaml:"transcript_max_messages"`
}

// BrowserConfig controls the Chrome backend.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless" yaml:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	ExecPath  string `mapstructure:"exec_path" yaml:"exec_path"`
}

// ShellConfig controls the terminal backend.
type ShellConfig struct {
	Shell  string   `mapstructure:"shell" yaml:"shell"`
	UsePTY bool     `mapstructure:"use_pty" yaml:"use_pty"`
	Env    []string `mapstructure:"env" yaml:"env"`
}

// ChatConfig controls the assistant backends.
type ChatConfig struct {
	Backends       []chat.BackendConfig `mapstructure:"backends" yaml:"backends"`
	TimeoutSeconds int                  `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPConfig configures the HTTP bridge.
type HTTPConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	AuthToken    string `mapstructure:"auth_token" yaml:"auth_token"`
	StreamReplay int    `mapstructure:"stream_replay" yaml:"stream_replay"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Service: ServiceConfig{
			StartURL:              schema.DefaultStartURL,
			DefaultTimeoutSeconds: int(schema.DefaultCommandTimeout / time.Second),
			MaxTimeoutSeconds:     int(schema.DefaultMaxTimeout / time.Second),
			QueueDepth:            schema.DefaultQueueDepth,
			TranscriptMaxMessages: schema.DefaultTranscriptMax,
		},
		Browser: BrowserConfig{
			Headless:  true,
			NoSandbox: false,
			ExecPath:  "",
		},
		Shell: ShellConfig{
			Shell:  "",
			UsePTY: false,
			Env:    []string{},
		},
		Chat: ChatConfig{
			Backends:       []chat.BackendConfig{},
			TimeoutSeconds: 60,
		},
		HTTP: HTTPConfig{
			Addr:         ":27590",
			AuthToken:    "",
			StreamReplay: 64,
		},
	}
}

// ServiceSettings converts the service section into the dispatcher's config.
func (c Config) ServiceSettings() schema.ServiceConfig {
	return schema.ServiceConfig{
		StartURL:              c.Service.StartURL,
		DefaultTimeout:        time.Duration(c.Service.DefaultTimeoutSeconds) * time.Second,
		MaxTimeout:            time.Duration(c.Service.MaxTimeoutSeconds) * time.Second,
		QueueDepth:            c.Service.QueueDepth,
		TranscriptMaxMessages: c.Service.TranscriptMaxMessages,
	}
}

// ChatSettings converts the chat section into the client's config.
func (c Config) ChatSettings() chat.Config {
	return chat.Config{
		Backends: c.Chat.Backends,
		Timeout:  time.Duration(c.Chat.TimeoutSeconds) * time.Second,
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".quarterdeck", "config.yaml"), nil
}
