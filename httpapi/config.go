package httpapi

import "time"

// Config defines HTTP bridge settings.
type Config struct {
	Addr string
	// AuthToken guards the API when set. Callers present it as a
	// bearer token.
	AuthToken string
	// StreamReplay caps how many missed events a reconnecting stream
	// consumer may ask for.
	StreamReplay int
	// ShutdownGrace bounds how long in-flight requests may drain on
	// shutdown. Zero means the default.
	ShutdownGrace time.Duration
}

const defaultShutdownGrace = 5 * time.Second

func (c Config) shutdownGrace() time.Duration {
	if c.ShutdownGrace > 0 {
		return c.ShutdownGrace
	}
	return defaultShutdownGrace
}
