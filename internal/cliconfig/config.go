package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cardlink/cardlink/pkg/protocol"
	"github.com/cardlink/cardlink/pkg/session"
)

// Reentry values accepted by the reentry_action key.
const (
	ReentryReconnect = "reconnect"
	ReentryEnter     = "enter"
	ReentryNone      = "none"
)

// Config holds CLI configuration for cardlink.
type Config struct {
	Server   string
	Username string

	LivenessThreshold         time.Duration
	MonitorInterval           time.Duration
	HeartbeatCountsAsLiveness bool
	AutoHeartbeat             bool

	RetryDelay      time.Duration
	RetryMaxDelay   time.Duration
	RetryMultiplier float64
	MaxAttempts     int
	DialTimeout     time.Duration
	ReentryAction   string

	LogLevel  string
	LogFormat string
	LogFile   string

	MetricsAddr string
	WatchConfig bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LivenessThreshold: session.DefaultLivenessThreshold,
		MonitorInterval:   session.DefaultMonitorInterval,
		AutoHeartbeat:     true,
		RetryDelay:        session.DefaultRetryDelay,
		RetryMaxDelay:     session.DefaultRetryDelay,
		RetryMultiplier:   1,
		MaxAttempts:       session.DefaultMaxAttempts,
		ReentryAction:     ReentryReconnect,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if _, err := c.reentry(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format %q must be console or json", c.LogFormat)
	}
	if c.RetryMaxDelay < c.RetryDelay {
		c.RetryMaxDelay = c.RetryDelay
	}

	sc := c.SessionConfig()
	return sc.Validate()
}

func (c *Config) reentry() (protocol.Action, error) {
	switch strings.ToLower(c.ReentryAction) {
	case "", ReentryReconnect:
		return protocol.ActionReconnect, nil
	case ReentryEnter:
		return protocol.ActionEnter, nil
	case ReentryNone:
		return "", nil
	default:
		return "", fmt.Errorf("reentry action %q must be reconnect, enter or none", c.ReentryAction)
	}
}

// SessionConfig converts the CLI configuration into a session configuration.
func (c *Config) SessionConfig() session.Config {
	reentry, _ := c.reentry()
	return session.Config{
		Address:                   c.Server,
		Username:                  c.Username,
		LivenessThreshold:         c.LivenessThreshold,
		MonitorInterval:           c.MonitorInterval,
		HeartbeatCountsAsLiveness: c.HeartbeatCountsAsLiveness,
		AutoHeartbeat:             c.AutoHeartbeat,
		RetryDelay:                c.RetryDelay,
		RetryMaxDelay:             c.RetryMaxDelay,
		RetryMultiplier:           c.RetryMultiplier,
		MaxAttempts:               c.MaxAttempts,
		DialTimeout:               c.DialTimeout,
		ReentryAction:             reentry,
	}
}

// Tuning returns the values a live session can pick up without reconnecting.
func (c *Config) Tuning() session.Tuning {
	return session.Tuning{
		LivenessThreshold: c.LivenessThreshold,
		RetryDelay:        c.RetryDelay,
		MaxAttempts:       c.MaxAttempts,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
