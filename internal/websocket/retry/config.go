// Package retry provides the reconnection policy for the Socket.IO transport
package retry

import (
	"time"
)

// Config holds the reconnection policy
type Config struct {
	// Initial delay before the first reconnection attempt
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`

	// Maximum delay between attempts
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// Factor to multiply delay by for each attempt
	BackoffFactor float64 `json:"backoff_factor" yaml:"backoff_factor"`

	// Maximum number of reconnection attempts (0 = unlimited)
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Maximum total time to spend reconnecting (0 = unlimited)
	MaxTotalTime time.Duration `json:"max_total_time" yaml:"max_total_time"`

	// Randomization applied to each delay, as a fraction of it (0.0-1.0)
	JitterFactor float64 `json:"jitter_factor" yaml:"jitter_factor"`

	// Whether reconnection is enabled at all
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// DefaultConfig returns the reconnection policy used by the client: three
// attempts starting at one second, capped at five, with 0.5 randomization.
func DefaultConfig() *Config {
	return &Config{
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		MaxAttempts:   3,
		MaxTotalTime:  0,
		JitterFactor:  0.5,
		Enabled:       true,
	}
}

// DisabledConfig returns a configuration with reconnection disabled
func DisabledConfig() *Config {
	return &Config{
		Enabled: false,
	}
}

// Validate normalizes out-of-range values
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.InitialDelay <= 0 {
		c.InitialDelay = 1 * time.Second
	}

	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}

	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}

	if c.BackoffFactor < 1.0 {
		c.BackoffFactor = 2.0
	}

	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	} else if c.JitterFactor > 1.0 {
		c.JitterFactor = 1.0
	}

	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}

	return nil
}
