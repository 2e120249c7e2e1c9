package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/dopejs/varman/internal/config"
	"github.com/dopejs/varman/internal/daemon"
	"github.com/dopejs/varman/internal/events"
	"github.com/dopejs/varman/internal/web"
	"github.com/spf13/cobra"
)

var serveDaemonFlag bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the variables backend",
	Long:  "Serve /api/variables on 127.0.0.1, backed by the configured data file.",
	RunE:  runServe,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		files := daemon.Default()
		if _, running := files.IsRunning(); !running {
			fmt.Fprintln(stdout, "Server is not running.")
			return nil
		}
		if err := files.Stop(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Server stopped.")
		return nil
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show background server status",
	Run: func(cmd *cobra.Command, args []string) {
		pid, running := daemon.Default().IsRunning()
		if running {
			fmt.Fprintf(stdout, "Server is running (PID %d) on http://127.0.0.1:%d\n", pid, config.ListenPort())
		} else {
			fmt.Fprintln(stdout, "Server is not running.")
		}
	},
}

func init() {
	serveCmd.Flags().BoolVarP(&serveDaemonFlag, "daemon", "d", false, "run in background daemon mode")
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	files := daemon.Default()
	if !daemon.IsDaemon() {
		if pid, running := files.IsRunning(); running {
			fmt.Fprintf(stdout, "Server already running (PID %d).\n", pid)
			return nil
		}
	}
	if serveDaemonFlag && !daemon.IsDaemon() {
		return startDaemon(files)
	}
	if !daemon.IsDaemon() {
		fmt.Fprintf(stdout, "Serving variables on http://127.0.0.1:%d\n", config.ListenPort())
	}
	return runServer(files)
}

func runServer(files daemon.Files) error {
	logFile, logger := setupServeLogger(files)
	if logFile != nil {
		defer logFile.Close()
	}
	settings := config.Current()

	store, err := web.NewVariableStore(config.DataFile())
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	audit, err := web.NewAuditLog(config.AuditLogPath(), 0)
	if err != nil {
		logger.Printf("Warning: audit log disabled: %v", err)
	} else {
		defer audit.Close()
	}
	publisher, err := events.Open(settings.NATSURL)
	if err != nil {
		logger.Printf("Warning: event publishing disabled: %v", err)
		publisher = events.Nop{}
	}

	srv := web.NewServer(web.Options{
		Version:      Version,
		Port:         settings.ListenPort,
		DefaultOrgID: settings.OrgID,
		Logger:       logger,
		Store:        store,
		Publisher:    publisher,
		Audit:        audit,
	})

	if err := files.WritePid(os.Getpid()); err != nil {
		logger.Printf("Warning: %v", err)
	}
	defer files.RemovePid()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Watch(ctx); err != nil {
			logger.Printf("Watch stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func startDaemon(files daemon.Files) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot determine executable path: %w", err)
	}

	logFile, err := files.OpenLog()
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, "serve")
	child.Env = append(os.Environ(), daemon.EnvDaemon+"=1")
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = daemon.SysProcAttr()

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	files.WritePid(child.Process.Pid)

	port := config.ListenPort()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := web.WaitForReady(ctx, port); err != nil {
		return fmt.Errorf("daemon started but server did not become ready: %w", err)
	}

	fmt.Fprintf(stdout, "Server started in background (PID %d) on http://127.0.0.1:%d\n", child.Process.Pid, port)
	return nil
}

func setupServeLogger(files daemon.Files) (*os.File, *log.Logger) {
	logFile, err := files.OpenLog()
	if err != nil {
		return nil, log.New(os.Stderr, "[serve] ", log.LstdFlags)
	}
	return logFile, log.New(logFile, "[serve] ", log.LstdFlags)
}
