package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var stopPidFile string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running FTP server",
	Long: `Stop a server started in daemon mode by sending it SIGTERM and
waiting for it to exit.

Examples:
  # Stop the server
  ftpd stop

  # Stop a server with a custom PID file
  ftpd stop --pid-file /var/run/ftpd.pid`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ftpd/ftpd.pid)")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pid, err := readPidFile(pidPath)
	if err != nil {
		return fmt.Errorf("ftpd does not appear to be running (no PID file at %s)", pidPath)
	}

	if !processAlive(pid) {
		_ = os.Remove(pidPath)
		return fmt.Errorf("ftpd is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal PID %d: %w", pid, err)
	}

	fmt.Printf("Stopping ftpd (PID %d)...\n", pid)

	// The server removes its own PID file on clean exit.
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			fmt.Println("ftpd stopped")
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("ftpd (PID %d) did not stop within 30s", pid)
}

// readPidFile reads and parses a PID file.
func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", path, err)
	}
	return pid, nil
}

// processAlive reports whether a process with the given PID exists.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
