// Package config loads and validates the ftpd server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/ftpd/pkg/identity"
)

// Config represents the ftpd configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FTPD_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Connection controls the control channel listener and per-session limits
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`

	// Security controls TLS, anonymous access, IP access control, and
	// privilege dropping
	Security SecurityConfig `mapstructure:"security" yaml:"security"`

	// Passive controls the passive-mode data port range and the address
	// advertised in PASV replies
	Passive PassiveConfig `mapstructure:"passive" yaml:"passive"`

	// RateLimit controls connection and command rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Users configures where user accounts come from
	Users UsersConfig `mapstructure:"users" yaml:"users"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// ConnectionConfig controls the control channel listener.
type ConnectionConfig struct {
	// Host is the address to bind the control listener to.
	// Default: "0.0.0.0"
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the control channel port.
	// Default: 21
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// RootDir is the server-wide sandbox root for users without a home
	// directory of their own (required).
	RootDir string `mapstructure:"root_dir" validate:"required" yaml:"root_dir"`

	// MaxConnections caps concurrent sessions. New connections beyond the
	// cap are closed immediately, without a greeting.
	// Default: 100
	MaxConnections int `mapstructure:"max_connections" validate:"required,gt=0" yaml:"max_connections"`

	// IdleTimeout is how long a session may sit without commands or an
	// active transfer before being reaped.
	// Default: 5m
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0" yaml:"idle_timeout"`

	// DataTimeout bounds the dial/accept of data connections.
	// Default: 10s
	DataTimeout time.Duration `mapstructure:"data_timeout" validate:"required,gt=0" yaml:"data_timeout"`

	// Banner is the text after "220 " in the greeting.
	// Default: "FTP server ready"
	Banner string `mapstructure:"banner" yaml:"banner"`
}

// SecurityConfig controls TLS, anonymous access, and IP access control.
type SecurityConfig struct {
	// TLS configures explicit FTPS (AUTH TLS). When the certificate fails
	// to load the server still starts; AUTH is answered with 534.
	TLS TLSConfig `mapstructure:"tls" yaml:"tls"`

	// AllowAnonymous permits "anonymous"/"ftp" logins with any password,
	// granted a read-only view of AnonymousRoot.
	AllowAnonymous bool `mapstructure:"allow_anonymous" yaml:"allow_anonymous"`

	// AnonymousRoot is the sandbox root for anonymous sessions.
	// Defaults to the server root when empty.
	AnonymousRoot string `mapstructure:"anonymous_root" yaml:"anonymous_root,omitempty"`

	// AllowedIPs restricts connections to matching addresses or CIDRs.
	// Empty allows every address not denied.
	AllowedIPs []string `mapstructure:"allowed_ips" yaml:"allowed_ips,omitempty"`

	// DeniedIPs rejects matching addresses or CIDRs. Checked before the
	// allow list.
	DeniedIPs []string `mapstructure:"denied_ips" yaml:"denied_ips,omitempty"`

	// RunAsUser drops privileges to this user after binding the listener.
	// Requires starting as root. Empty disables the drop.
	RunAsUser string `mapstructure:"run_as_user" yaml:"run_as_user,omitempty"`

	// RunAsGroup drops to this group alongside RunAsUser.
	RunAsGroup string `mapstructure:"run_as_group" yaml:"run_as_group,omitempty"`
}

// TLSConfig holds the certificate material for explicit FTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM server certificate.
	CertFile string `mapstructure:"cert_file" yaml:"cert_file,omitempty"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `mapstructure:"key_file" yaml:"key_file,omitempty"`

	// CAFile optionally enables client certificate verification against
	// this CA bundle.
	CAFile string `mapstructure:"ca_file" yaml:"ca_file,omitempty"`
}

// PassiveConfig controls passive-mode data connections.
type PassiveConfig struct {
	// PortRangeStart is the first port used for passive listeners.
	// Default: 49152
	PortRangeStart int `mapstructure:"port_range_start" validate:"required,min=1,max=65535" yaml:"port_range_start"`

	// PortRangeEnd is the last port used for passive listeners.
	// Default: 65534
	PortRangeEnd int `mapstructure:"port_range_end" validate:"required,min=1,max=65535,gtefield=PortRangeStart" yaml:"port_range_end"`

	// ExternalIP overrides the IPv4 address advertised in PASV replies.
	// Needed behind NAT. Defaults to the control connection's local address.
	ExternalIP string `mapstructure:"external_ip" validate:"omitempty,ip4_addr" yaml:"external_ip,omitempty"`
}

// RateLimitConfig controls the sliding-window rate limiter.
// Zero values disable the corresponding check.
type RateLimitConfig struct {
	// MaxConnectionsPerMinute caps new control connections per client IP.
	MaxConnectionsPerMinute int `mapstructure:"max_connections_per_minute" validate:"gte=0" yaml:"max_connections_per_minute"`

	// MaxCommandsPerMinute caps commands per session.
	MaxCommandsPerMinute int `mapstructure:"max_commands_per_minute" validate:"gte=0" yaml:"max_commands_per_minute"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// UsersConfig configures where user accounts come from.
//
// When File is set (the default), accounts live in a YAML users file managed
// by `ftpd user` and reloaded on change. Inline users are an alternative for
// small static deployments; the two are mutually exclusive.
type UsersConfig struct {
	// File is the path to the users YAML file.
	// Default: $XDG_CONFIG_HOME/ftpd/users.yaml
	File string `mapstructure:"file" yaml:"file,omitempty"`

	// Inline defines users directly in the config file.
	Inline []*identity.User `mapstructure:"inline" yaml:"inline,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FTPD_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  ftpd init\n\n"+
				"Or specify a custom config file:\n"+
				"  ftpd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  ftpd init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600 because the config may carry password hashes via inline users.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FTPD_ prefix and underscores
	// Example: FTPD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FTPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/ftpd/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		permissionDecodeHook(),
	)
}

// durationDecodeHook converts strings to time.Duration so config files can
// use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// permissionDecodeHook converts strings to identity.Permission for inline
// user definitions.
func permissionDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(identity.Permission("")) {
			return data, nil
		}
		if s, ok := data.(string); ok {
			return identity.Permission(s), nil
		}
		return data, nil
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ftpd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "ftpd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetDefaultUsersPath returns the default users file path.
func GetDefaultUsersPath() string {
	return filepath.Join(getConfigDir(), "users.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
