package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyConnectionDefaults(&cfg.Connection)
	applyPassiveDefaults(&cfg.Passive)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyUsersDefaults(&cfg.Users)
	applyShutdownTimeoutDefaults(cfg)
}

// applyConnectionDefaults sets control channel defaults.
func applyConnectionDefaults(cfg *ConnectionConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 21
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 100
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.DataTimeout == 0 {
		cfg.DataTimeout = 10 * time.Second
	}
	if cfg.Banner == "" {
		cfg.Banner = "FTP server ready"
	}
	// RootDir has no default - it's required and must be configured by user
}

// applyPassiveDefaults sets passive data channel defaults.
// The default range is the IANA dynamic/ephemeral port range.
func applyPassiveDefaults(cfg *PassiveConfig) {
	if cfg.PortRangeStart == 0 {
		cfg.PortRangeStart = 49152
	}
	if cfg.PortRangeEnd == 0 {
		cfg.PortRangeEnd = 65534
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyUsersDefaults sets the users file default when no inline users are
// configured.
func applyUsersDefaults(cfg *UsersConfig) {
	if cfg.File == "" && len(cfg.Inline) == 0 {
		cfg.File = GetDefaultUsersPath()
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Connection: ConnectionConfig{
			RootDir: "/srv/ftp",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
