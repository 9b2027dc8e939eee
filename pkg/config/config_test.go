package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ftpd/pkg/identity"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Connection.Host)
	assert.Equal(t, 21, cfg.Connection.Port)
	assert.Equal(t, 100, cfg.Connection.MaxConnections)
	assert.Equal(t, 5*time.Minute, cfg.Connection.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Connection.DataTimeout)
	assert.Equal(t, 49152, cfg.Passive.PortRangeStart)
	assert.Equal(t, 65534, cfg.Passive.PortRangeEnd)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
connection:
  host: 127.0.0.1
  port: 2121
  root_dir: /srv/ftp
  max_connections: 5
  idle_timeout: 90s
passive:
  port_range_start: 50000
  port_range_end: 50100
  external_ip: 203.0.113.7
security:
  allow_anonymous: true
  anonymous_root: /srv/ftp/pub
rate_limit:
  max_connections_per_minute: 30
  max_commands_per_minute: 120
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Connection.Host)
	assert.Equal(t, 2121, cfg.Connection.Port)
	assert.Equal(t, "/srv/ftp", cfg.Connection.RootDir)
	assert.Equal(t, 5, cfg.Connection.MaxConnections)
	assert.Equal(t, 90*time.Second, cfg.Connection.IdleTimeout)
	assert.Equal(t, 50000, cfg.Passive.PortRangeStart)
	assert.Equal(t, 50100, cfg.Passive.PortRangeEnd)
	assert.Equal(t, "203.0.113.7", cfg.Passive.ExternalIP)
	assert.True(t, cfg.Security.AllowAnonymous)
	assert.Equal(t, "/srv/ftp/pub", cfg.Security.AnonymousRoot)
	assert.Equal(t, 30, cfg.RateLimit.MaxConnectionsPerMinute)
	assert.Equal(t, 120, cfg.RateLimit.MaxCommandsPerMinute)
	// Level is normalized to uppercase
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Unspecified values are defaulted
	assert.Equal(t, 10*time.Second, cfg.Connection.DataTimeout)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
connection:
  root_dir: /srv/ftp
  port: 2121
`)

	t.Setenv("FTPD_CONNECTION_PORT", "2222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2222, cfg.Connection.Port)
}

func TestLoadInlineUsers(t *testing.T) {
	path := writeConfig(t, `
connection:
  root_dir: /srv/ftp
users:
  inline:
    - username: alice
      password_hash: "$2a$10$abcdefghijklmnopqrstuv"
      home_dir: /srv/ftp/alice
      permissions: [download, list]
      enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Users.Inline, 1)
	u := cfg.Users.Inline[0]
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, []identity.Permission{identity.PermDownload, identity.PermList}, u.Permissions)
	// Inline users disable the file store default
	assert.Empty(t, cfg.Users.File)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing root dir", "connection:\n  port: 2121\n"},
		{"bad port", "connection:\n  root_dir: /srv/ftp\n  port: 70000\n"},
		{"bad log level", "connection:\n  root_dir: /srv/ftp\nlogging:\n  level: verbose\n"},
		{"inverted passive range", "connection:\n  root_dir: /srv/ftp\npassive:\n  port_range_start: 51000\n  port_range_end: 50000\n"},
		{"bad external ip", "connection:\n  root_dir: /srv/ftp\npassive:\n  external_ip: not-an-ip\n"},
		{"cert without key", "connection:\n  root_dir: /srv/ftp\nsecurity:\n  tls:\n    cert_file: /etc/ftpd/cert.pem\n"},
		{"group without user", "connection:\n  root_dir: /srv/ftp\nsecurity:\n  run_as_group: ftp\n"},
		{"invalid inline permission", "connection:\n  root_dir: /srv/ftp\nusers:\n  inline:\n    - username: alice\n      permissions: [fly]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestValidateDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, Validate(cfg))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Connection.Port = 2121
	cfg.Connection.RootDir = "/srv/ftp"
	cfg.Security.AllowAnonymous = true

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Connection.Port, loaded.Connection.Port)
	assert.Equal(t, cfg.Connection.RootDir, loaded.Connection.RootDir)
	assert.True(t, loaded.Security.AllowAnonymous)
}

func TestMustLoadMissingExplicitPath(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}
