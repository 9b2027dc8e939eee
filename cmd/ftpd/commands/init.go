package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/ftpd/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Write a configuration file with default values.

The file goes to $XDG_CONFIG_HOME/ftpd/config.yaml unless --config points
somewhere else. Existing files are preserved unless --force is given.

Examples:
  # Initialize config at the default location
  ftpd init

  # Overwrite an existing config
  ftpd init --force

  # Initialize at a custom path
  ftpd init --config /etc/ftpd/config.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}

	fmt.Printf("✓ Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Add a user with: ftpd user add <username>")
	fmt.Println("  3. Start the server with: ftpd start")
	return nil
}
