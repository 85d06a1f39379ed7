package session

import (
	"fmt"
	"time"

	"github.com/cardlink/cardlink/pkg/protocol"
)

// Default tunables.
const (
	DefaultLivenessThreshold = 5 * time.Second
	DefaultMonitorInterval   = time.Second
	DefaultRetryDelay        = 2 * time.Second
	DefaultMaxAttempts       = 10
	DefaultEventBuffer       = 64
)

// Config holds the configuration for a Session.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// Address is the server host:port.
	Address string

	// Username identifies the player in every outbound frame and on re-entry.
	Username string

	// LivenessThreshold is the longest tolerated silence while connected.
	LivenessThreshold time.Duration

	// MonitorInterval is how often the liveness check runs.
	MonitorInterval time.Duration

	// HeartbeatCountsAsLiveness makes echoed heartB frames reset the silence
	// clock. Server HEARTBEAT messages always do.
	HeartbeatCountsAsLiveness bool

	// AutoHeartbeat answers every server HEARTBEAT with a heartbeat frame.
	AutoHeartbeat bool

	// RetryDelay is the wait before each reconnection attempt.
	RetryDelay time.Duration

	// RetryMaxDelay caps the delay when RetryMultiplier is above 1.
	RetryMaxDelay time.Duration

	// RetryMultiplier grows the delay after each failed attempt. 1 keeps it fixed.
	RetryMultiplier float64

	// MaxAttempts bounds the reconnection attempts before PermanentlyFailed.
	MaxAttempts int

	// DialTimeout bounds each dial. Zero leaves it to the OS.
	DialTimeout time.Duration

	// ReentryAction is sent first on every reconnected transport.
	// Empty sends nothing.
	ReentryAction protocol.Action
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig(address, username string) Config {
	return Config{
		Address:           address,
		Username:          username,
		LivenessThreshold: DefaultLivenessThreshold,
		MonitorInterval:   DefaultMonitorInterval,
		AutoHeartbeat:     true,
		RetryDelay:        DefaultRetryDelay,
		RetryMaxDelay:     DefaultRetryDelay,
		RetryMultiplier:   1,
		MaxAttempts:       DefaultMaxAttempts,
		ReentryAction:     protocol.ActionReconnect,
	}
}

// SetDefaults fills zero-valued tunables. Booleans and ReentryAction are left
// alone since their zero values are meaningful.
func (c *Config) SetDefaults() {
	if c.LivenessThreshold == 0 {
		c.LivenessThreshold = DefaultLivenessThreshold
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = c.RetryDelay
	}
	if c.RetryMultiplier == 0 {
		c.RetryMultiplier = 1
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidConfig)
	}
	if _, err := protocol.Encode(protocol.ActionEnter, c.Username); err != nil {
		return fmt.Errorf("%w: username: %v", ErrInvalidConfig, err)
	}
	if c.LivenessThreshold <= 0 {
		return fmt.Errorf("%w: liveness threshold must be positive", ErrInvalidConfig)
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("%w: monitor interval must be positive", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	if c.RetryMultiplier < 1 {
		return fmt.Errorf("%w: retry multiplier must be at least 1", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("%w: dial timeout must not be negative", ErrInvalidConfig)
	}
	switch c.ReentryAction {
	case "", protocol.ActionEnter, protocol.ActionReconnect:
	default:
		return fmt.Errorf("%w: reentry action %q must be enter, reconnect or empty", ErrInvalidConfig, c.ReentryAction)
	}
	return nil
}

// Tuning holds the values that can change on a live session.
// Zero fields are left unchanged.
type Tuning struct {
	LivenessThreshold time.Duration
	RetryDelay        time.Duration
	MaxAttempts       int
}
