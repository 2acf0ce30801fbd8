// Command reclaimd owns a reclaim engine and serves it to CLI clients over a
// unix socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/daemon"
	"github.com/jamesainslie/reclaim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/reclaim/pkg/daemon/watcher"
	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/summarize"
)

// Set by go build -ldflags.
var version = "dev"

var (
	cfgFile    string
	foreground bool
)

var rootCmd = &cobra.Command{
	Use:           "reclaimd",
	Short:         "Serve the reclaim engine over a unix socket",
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/reclaim/config.yaml)")
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "also log to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reclaimd: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return err
	}
	if foreground {
		logCfg.ConsoleLevel = cfg.Logging.Level
	}
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()
	log := logging.Get("daemon")

	socketPath := cfg.SocketPath()
	pidPath := cfg.PIDPath()
	statusPath := daemon.StatusPath(socketPath)

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, cfg.IndexPath()); err != nil {
		if errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
			return errors.New("reclaimd is already running")
		}
		return err
	}

	// Report startup failures where StartDaemon is polling for them.
	fail := func(err error) error {
		log.Error("startup failed", "error", err)
		_ = daemon.WriteStatusError(statusPath, err)
		return err
	}

	e, err := engine.Open(cfg, summarize.FromConfig(cfg.Summarize))
	if err != nil {
		return fail(fmt.Errorf("open engine: %w", err))
	}
	defer func() {
		if err := e.Close(); err != nil {
			log.Warn("error closing engine", "error", err)
		}
	}()

	b := broadcaster.New()
	w, err := watcher.New()
	if err != nil {
		return fail(fmt.Errorf("create watcher: %w", err))
	}
	defer func() { _ = w.Close() }()
	w.SetBroadcaster(b)
	// Quarantine and manifest writes must not invalidate the cache.
	w.SetSkip(daemon.SkipUnder(cfg.DataDir, cfg.Quarantine.Path, cfg.Manifest.Path))

	svc := daemon.NewService(e, cfg.Daemon.CacheTTL)
	svc.SetWatcher(w)
	svc.SetBroadcaster(b)

	srv, err := daemon.NewServer(daemon.Config{SocketPath: socketPath, DataDir: cfg.DataDir}, svc)
	if err != nil {
		return fail(fmt.Errorf("create server: %w", err))
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		_ = srv.Close()
		return fail(fmt.Errorf("write PID file: %w", err))
	}
	defer func() {
		if err := daemon.RemovePIDFile(pidPath); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
		_ = daemon.RemoveStatus(statusPath)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Watch streams end when the broadcaster closes, which lets
	// GracefulStop return.
	stop := sync.OnceFunc(func() {
		log.Info("shutting down")
		b.Close()
		if err := srv.Close(); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	})
	svc.SetShutdown(stop)

	go func() {
		<-ctx.Done()
		stop()
	}()
	go w.Run(ctx, svc.OnChange)

	if err := daemon.WriteStatusReady(statusPath); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	log.Info("reclaimd starting", "socket", socketPath, "pid", os.Getpid())

	if err := srv.Serve(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	// Serve can return before GracefulStop has drained in-flight calls.
	stop()
	return nil
}
