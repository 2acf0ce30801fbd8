package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failed")

var (
	cfgFile string
	appCfg  *config.Config

	rootCmd = &cobra.Command{
		Use:   "reclaim",
		Short: "Triage a directory and reversibly clean what is safe to remove",
		Long: `Reclaim classifies every file under a directory as auto_safe,
needs_review or do_not_touch. A clean moves the auto_safe files into a
quarantine and records them in a manifest, so every clean can be undone
with restore.

Examples:
  reclaim triage ~/Downloads        # Classify files
  reclaim clean --dry-run ~/Downloads
  reclaim clean ~/Downloads         # Quarantine auto_safe files
  reclaim list                      # Show manifests
  reclaim restore latest            # Undo the last clean
  reclaim verify                    # Check quarantined data
  reclaim summarize ~/Downloads     # Describe files that need review`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/reclaim/config.yaml)")
	flags.StringP("output", "o", "pretty", "output format ("+strings.Join(formatNames(), ", ")+")")
	flags.String("template", "", "Go template for output (implies -o template)")
	flags.Bool("no-daemon", false, "run the engine in-process even when reclaimd is running")
	flags.BoolP("quiet", "q", false, "minimal output")
	flags.BoolP("verbose", "v", false, "debug output")

	bindFlags()
}

// bindFlags connects the persistent flags to viper keys.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("template", flags.Lookup("template"))
	_ = viper.BindPFlag("no_daemon", flags.Lookup("no-daemon"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// setup loads configuration and starts logging before any subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgFile != "" {
		appCfg, err = config.LoadFile(cfgFile)
	} else {
		appCfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logCfg, err := logging.FromConfig(appCfg.Logging)
	if err != nil {
		return err
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	logCfg.Quiet = getQuiet()
	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.Get("cli").Debug("command started", "command", cmd.CommandPath(), "config", cfgFile)
	return nil
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()

	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errReported) {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// pathArg returns the first argument or the configured default path.
func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if appCfg != nil && appCfg.DefaultPath != "" {
		return appCfg.DefaultPath
	}
	return config.DefaultPath
}
