package commands

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/ftpd/internal/cli/output"
	"github.com/marmos91/ftpd/internal/cli/timeutil"
	"github.com/marmos91/ftpd/pkg/config"
)

var (
	statusOutput  string
	statusPidFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the FTP server.

The command checks the PID file and probes the control port for the 220
greeting to verify the server actually accepts connections.

Examples:
  # Check status (uses default settings)
  ftpd status

  # Output as JSON
  ftpd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ftpd/ftpd.pid)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	Banner    string `json:"banner,omitempty" yaml:"banner,omitempty"`
	Reachable bool   `json:"reachable" yaml:"reachable"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Message   string `json:"message" yaml:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{
		Message: "Server is not running",
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if pid, err := readPidFile(pidPath); err == nil && processAlive(pid) {
		status.Running = true
		status.PID = pid
		if info, err := os.Stat(pidPath); err == nil {
			started := info.ModTime()
			status.StartedAt = started.Format(time.RFC3339)
			status.Uptime = time.Since(started).Round(time.Second).String()
		}
	}

	// Probe the control port regardless of the PID file: a foreground
	// instance has no PID file but still answers.
	cfg, err := config.Load(GetConfigFile())
	if err == nil {
		host := cfg.Connection.Host
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Connection.Port))
		status.Address = addr

		if banner, err := probeControlPort(addr); err == nil {
			status.Running = true
			status.Reachable = true
			status.Banner = banner
			status.Message = "Server is running and accepting connections"
		} else if status.Running {
			status.Message = "Server process exists but the control port did not answer"
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}
	return nil
}

// probeControlPort connects and reads the greeting line.
func probeControlPort(addr string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "220") {
		return "", fmt.Errorf("unexpected greeting %q", line)
	}
	return line, nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("ftpd Server Status")
	fmt.Println("==================")
	fmt.Println()

	if status.Running {
		if status.Reachable {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (not reachable)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		if status.Address != "" {
			fmt.Printf("  Address:    %s\n", status.Address)
		}
		if status.StartedAt != "" {
			fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
