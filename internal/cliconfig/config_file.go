package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Server                    string  `toml:"server"`
	Username                  string  `toml:"username"`
	LivenessThreshold         string  `toml:"liveness_threshold"`
	MonitorInterval           string  `toml:"monitor_interval"`
	RetryDelay                string  `toml:"retry_delay"`
	RetryMaxDelay             string  `toml:"retry_max_delay"`
	RetryMultiplier           float64 `toml:"retry_multiplier"`
	MaxAttempts               int     `toml:"max_attempts"`
	DialTimeout               string  `toml:"dial_timeout"`
	HeartbeatCountsAsLiveness *bool   `toml:"heartbeat_counts_as_liveness"`
	AutoHeartbeat             *bool   `toml:"auto_heartbeat"`
	ReentryAction             string  `toml:"reentry_action"`
	LogLevel                  string  `toml:"log_level"`
	LogFormat                 string  `toml:"log_format"`
	LogFile                   string  `toml:"log_file"`
	MetricsAddr               string  `toml:"metrics_addr"`
	WatchConfig               *bool   `toml:"watch_config"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.cardlink/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".cardlink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("server", fc.Server, &cfg.Server)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("reentry", fc.ReentryAction, &cfg.ReentryAction)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("liveness-threshold", fc.LivenessThreshold, &cfg.LivenessThreshold); err != nil {
		return err
	}
	if err := s.setDuration("monitor-interval", fc.MonitorInterval, &cfg.MonitorInterval); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}

	s.setFloat("retry-multiplier", fc.RetryMultiplier, &cfg.RetryMultiplier)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)

	s.setBool("heartbeat-liveness", fc.HeartbeatCountsAsLiveness, &cfg.HeartbeatCountsAsLiveness)
	s.setBool("auto-heartbeat", fc.AutoHeartbeat, &cfg.AutoHeartbeat)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
