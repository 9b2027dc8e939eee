package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
)

var reloadPidFile string

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the user store of a running server",
	Long: `Send SIGHUP to a running server, which re-reads the user store.

Other configuration changes (ports, TLS certificates, timeouts) require a
restart.

Examples:
  ftpd reload`,
	RunE: runReload,
}

func init() {
	reloadCmd.Flags().StringVar(&reloadPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ftpd/ftpd.pid)")
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	pidPath := reloadPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pid, err := readPidFile(pidPath)
	if err != nil {
		return fmt.Errorf("ftpd does not appear to be running (no PID file at %s)", pidPath)
	}
	if !processAlive(pid) {
		return fmt.Errorf("ftpd is not running (stale PID file at %s)", pidPath)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("failed to signal PID %d: %w", pid, err)
	}

	fmt.Printf("✓ Reload signal sent to ftpd (PID %d)\n", pid)
	return nil
}
