package commands

import (
	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the FTP server",
	Long: `Stop the running server and start it again in daemon mode.

Equivalent to 'ftpd stop' followed by 'ftpd start'. A server that is not
running is simply started.

Examples:
  ftpd restart`,
	RunE: runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, args []string) error {
	// Ignore "not running": restart should work from either state.
	if err := runStop(cmd, args); err != nil {
		cmd.Printf("%v\n", err)
	}

	foreground = false
	return runStart(cmd, args)
}
