package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/ftpd/internal/acl"
	"github.com/marmos91/ftpd/internal/adapter/ftp"
	"github.com/marmos91/ftpd/internal/logger"
	"github.com/marmos91/ftpd/internal/ratelimit"
	"github.com/marmos91/ftpd/pkg/config"
	"github.com/marmos91/ftpd/pkg/ftptls"
	"github.com/marmos91/ftpd/pkg/identity"
	"github.com/marmos91/ftpd/pkg/metrics"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/ftpd/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FTP server",
	Long: `Start the FTP server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Examples:
  # Start in background (default)
  ftpd start

  # Start in foreground
  ftpd start --foreground

  # Start with custom config file
  ftpd start --config /etc/ftpd/config.yaml

  # Start with environment variable overrides
  FTPD_LOGGING_LEVEL=DEBUG ftpd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ftpd/ftpd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/ftpd/ftpd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Metrics endpoint, when enabled.
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsSrv = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	directory, userStore, err := buildDirectory(cfg)
	if err != nil {
		return err
	}
	if userStore != nil {
		defer userStore.Close()
		logger.Info("User store loaded", "path", userStore.Path())
	}

	access, err := acl.New(cfg.Security.AllowedIPs, cfg.Security.DeniedIPs)
	if err != nil {
		return fmt.Errorf("invalid IP access rules: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		MaxConnectionsPerMinute: cfg.RateLimit.MaxConnectionsPerMinute,
		MaxCommandsPerMinute:    cfg.RateLimit.MaxCommandsPerMinute,
	})

	// A broken certificate setup disables TLS support but not the server:
	// clients asking for AUTH TLS get 534 until it is fixed.
	tlsConf, err := ftptls.Load(ftptls.Options{
		CertFile: cfg.Security.TLS.CertFile,
		KeyFile:  cfg.Security.TLS.KeyFile,
		CAFile:   cfg.Security.TLS.CAFile,
	})
	if err != nil {
		logger.Error("TLS disabled: certificate setup failed", "error", err)
		tlsConf = nil
	}

	srv := ftp.NewServer(ftp.Options{
		Host:              cfg.Connection.Host,
		Port:              cfg.Connection.Port,
		RootDir:           cfg.Connection.RootDir,
		Banner:            cfg.Connection.Banner,
		MaxConnections:    cfg.Connection.MaxConnections,
		IdleTimeout:       cfg.Connection.IdleTimeout,
		DataTimeout:       cfg.Connection.DataTimeout,
		PassivePortStart:  cfg.Passive.PortRangeStart,
		PassivePortEnd:    cfg.Passive.PortRangeEnd,
		PassiveExternalIP: cfg.Passive.ExternalIP,
		AllowAnonymous:    cfg.Security.AllowAnonymous,
		AnonymousRoot:     cfg.Security.AnonymousRoot,
		RunAsUser:         cfg.Security.RunAsUser,
		RunAsGroup:        cfg.Security.RunAsGroup,
	}, directory, access, limiter, tlsConf)

	if err := srv.Listen(); err != nil {
		return fmt.Errorf("failed to bind control port: %w", err)
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if userStore == nil {
					logger.Info("SIGHUP received but users are inline; nothing to reload")
					continue
				}
				if err := userStore.Reload(); err != nil {
					logger.Error("user store reload failed", "error", err)
				} else {
					logger.Info("user store reloaded", "path", userStore.Path())
				}
				continue
			}

			signal.Stop(sigChan)
			logger.Info("Shutdown signal received, initiating graceful shutdown")

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			err := srv.Shutdown(ctx)
			cancel()
			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
			if err != nil {
				logger.Error("Server shutdown error", "error", err)
				return err
			}
			<-serverDone
			logger.Info("Server stopped gracefully")
			return nil

		case err := <-serverDone:
			signal.Stop(sigChan)
			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
			if err != nil {
				logger.Error("Server error", "error", err)
				return err
			}
			logger.Info("Server stopped")
			return nil
		}
	}
}

// buildDirectory constructs the user directory from configuration: inline
// users give a static directory, otherwise a file-backed store that reloads
// on change.
func buildDirectory(cfg *config.Config) (identity.Directory, *identity.FileStore, error) {
	if len(cfg.Users.Inline) > 0 {
		dir, err := identity.NewStaticDirectory(cfg.Users.Inline)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid inline users: %w", err)
		}
		return dir, nil, nil
	}

	path := cfg.Users.File
	if path == "" {
		path = config.GetDefaultUsersPath()
	}
	store, err := identity.NewFileStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open user store: %w", err)
	}
	return store, store, nil
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Refuse to double-start; clean up a stale PID file.
	if pid, err := readPidFile(pidPath); err == nil {
		if processAlive(pid) {
			return fmt.Errorf("ftpd is already running (PID %d)\nUse 'ftpd stop' to stop the running instance", pid)
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	// Detach from the controlling terminal.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = logFileHandle.Close()

	fmt.Printf("ftpd started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", filepath.Clean(logPath))
	fmt.Println("\nUse 'ftpd stop' to stop the server")
	fmt.Println("Use 'ftpd status' to check server status")

	return nil
}
