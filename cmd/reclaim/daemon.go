package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/client"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the reclaimd daemon",
	Long: `Manage the reclaimd daemon.

The daemon owns one engine for every client, so concurrent cleans and
restores share a single lock registry. It also caches triage results and
drops them as soon as the tree changes. While it runs, reclaim commands
use it automatically unless --no-daemon is given.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the reclaimd daemon",
	Long:  `Start the reclaimd daemon in the background.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the reclaimd daemon",
	Long:  `Stop the reclaimd daemon gracefully.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the reclaimd daemon",
	Long:  `Stop and start the reclaimd daemon.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the reclaimd daemon.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonBinary string

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)

	daemonCmd.PersistentFlags().StringVar(&daemonBinary, "binary", "", "path to the reclaimd binary (default: next to reclaim, then GOBIN, then PATH)")
}

// daemonPaths describes the daemon this CLI's configuration points at.
func daemonPaths() client.DaemonPaths {
	paths := client.DaemonPaths{
		Binary: daemonBinary,
		Socket: appCfg.SocketPath(),
		PID:    appCfg.PIDPath(),
	}
	if cfgFile != "" {
		paths.Args = []string{"--config", cfgFile}
	}
	return paths
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths := daemonPaths()
	if client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon already running")
		return nil
	}

	printVerbose("starting daemon, socket %s", paths.Socket)
	if err := client.StartDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths := daemonPaths()
	if !client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon is not running")
		return nil
	}

	printVerbose("sending shutdown to %s", paths.Socket)
	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	if err := client.RestartDaemon(daemonPaths()); err != nil {
		return err
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths := daemonPaths()

	if !client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer daemonClient.Close()

	status, err := daemonClient.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: running")
	printInfo("  PID: %d", status.PID)
	printInfo("  Uptime: %s", formatDuration(status.Uptime))
	printInfo("  Cached triage results: %d", status.CachedRoots)
	printInfo("  Watch subscribers: %d", status.Subscribers)

	if len(status.WatchedRoots) > 0 {
		printInfo("  Watched roots:")
		for _, p := range status.WatchedRoots {
			printInfo("    - %s", p)
		}
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
