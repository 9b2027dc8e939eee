package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/ftpd/internal/cli/output"
	"github.com/marmos91/ftpd/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"test-config"},
	Short:   "Validate the configuration file",
	Long: `Load and validate the configuration without starting the server.

Exits non-zero when the configuration does not load or fails validation,
which makes the command usable as a pre-flight check in deploy scripts.

Examples:
  # Validate the default config
  ftpd validate

  # Validate a specific file
  ftpd validate --config /etc/ftpd/config.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	tlsEnabled := "no"
	if cfg.Security.TLS.CertFile != "" {
		tlsEnabled = "yes"
	}
	usersSource := cfg.Users.File
	if len(cfg.Users.Inline) > 0 {
		usersSource = fmt.Sprintf("%d inline users", len(cfg.Users.Inline))
	} else if usersSource == "" {
		usersSource = config.GetDefaultUsersPath()
	}

	fmt.Printf("✓ Configuration is valid: %s\n\n", getConfigSource(GetConfigFile()))
	return output.SimpleTable(os.Stdout, [][2]string{
		{"Listen address", fmt.Sprintf("%s:%d", cfg.Connection.Host, cfg.Connection.Port)},
		{"Root directory", cfg.Connection.RootDir},
		{"Max connections", strconv.Itoa(cfg.Connection.MaxConnections)},
		{"Idle timeout", cfg.Connection.IdleTimeout.String()},
		{"Passive ports", fmt.Sprintf("%d-%d", cfg.Passive.PortRangeStart, cfg.Passive.PortRangeEnd)},
		{"TLS", tlsEnabled},
		{"Anonymous access", strconv.FormatBool(cfg.Security.AllowAnonymous)},
		{"Users", usersSource},
	})
}
