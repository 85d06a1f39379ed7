package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (CARDLINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("server", os.Getenv("CARDLINK_SERVER"), &cfg.Server)
	s.setString("username", os.Getenv("CARDLINK_USERNAME"), &cfg.Username)
	s.setString("reentry", os.Getenv("CARDLINK_REENTRY_ACTION"), &cfg.ReentryAction)
	s.setString("log-level", os.Getenv("CARDLINK_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("CARDLINK_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("log-file", os.Getenv("CARDLINK_LOG_FILE"), &cfg.LogFile)
	s.setString("metrics-addr", os.Getenv("CARDLINK_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("liveness-threshold", os.Getenv("CARDLINK_LIVENESS_THRESHOLD"), &cfg.LivenessThreshold); err != nil {
		return err
	}
	if err := s.setDuration("monitor-interval", os.Getenv("CARDLINK_MONITOR_INTERVAL"), &cfg.MonitorInterval); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", os.Getenv("CARDLINK_RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", os.Getenv("CARDLINK_RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", os.Getenv("CARDLINK_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}

	if err := s.setFloatFromString("retry-multiplier", os.Getenv("CARDLINK_RETRY_MULTIPLIER"), &cfg.RetryMultiplier); err != nil {
		return err
	}
	if err := s.setIntFromString("max-attempts", os.Getenv("CARDLINK_MAX_ATTEMPTS"), &cfg.MaxAttempts); err != nil {
		return err
	}

	s.setBoolFromString("heartbeat-liveness", os.Getenv("CARDLINK_HEARTBEAT_COUNTS_AS_LIVENESS"), &cfg.HeartbeatCountsAsLiveness)
	s.setBoolFromString("auto-heartbeat", os.Getenv("CARDLINK_AUTO_HEARTBEAT"), &cfg.AutoHeartbeat)
	s.setBoolFromString("watch-config", os.Getenv("CARDLINK_WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
