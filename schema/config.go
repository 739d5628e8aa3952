package schema

import (
	"errors"
	"time"
)

// ServiceConfig defines defaults and limits for the dispatcher core.
type ServiceConfig struct {
	// StartURL is loaded into the browser tab created at startup.
	StartURL string
	// DefaultTimeout bounds a command's wait for adapter completion.
	DefaultTimeout time.Duration
	// MaxTimeout caps per-command timeout overrides.
	MaxTimeout time.Duration
	// QueueDepth bounds pending operations per tab; overflow is TabBusy.
	QueueDepth int
	// TranscriptMaxMessages caps a chat tab's retained transcript.
	TranscriptMaxMessages int
}

const (
	// DefaultCommandTimeout is applied when no timeout is configured.
	DefaultCommandTimeout = 30 * time.Second
	// DefaultMaxTimeout caps per-command overrides when unconfigured.
	DefaultMaxTimeout = 5 * time.Minute
	// DefaultQueueDepth is the per-tab pending queue bound.
	DefaultQueueDepth = 16
	// DefaultTranscriptMax is the chat transcript retention bound.
	DefaultTranscriptMax = 500
	// DefaultStartURL is loaded when no start URL is configured.
	DefaultStartURL = "about:blank"
)

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.StartURL == "" {
		cfg.StartURL = DefaultStartURL
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultCommandTimeout
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = DefaultMaxTimeout
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.TranscriptMaxMessages <= 0 {
		cfg.TranscriptMaxMessages = DefaultTranscriptMax
	}
	if cfg.MaxTimeout < cfg.DefaultTimeout {
		return ServiceConfig{}, errors.New("max timeout must be at least the default timeout")
	}
	return cfg, nil
}
