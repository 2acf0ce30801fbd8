package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage reclaim configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/reclaim/config.yaml (if set)
  2. ~/.config/reclaim/config.yaml

Environment variables can override config file settings using the RECLAIM_ prefix:
  RECLAIM_WORKERS=4
  RECLAIM_DATA_DIR=/srv/reclaim
  RECLAIM_CLASSIFIER_REVIEW_SIZE=500M`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

// configEnvVars are the environment overrides reported by config show.
var configEnvVars = []string{
	"RECLAIM_DEFAULT_PATH",
	"RECLAIM_DATA_DIR",
	"RECLAIM_ALLOWED_ROOTS",
	"RECLAIM_EXCLUDE",
	"RECLAIM_QUARANTINE_PATH",
	"RECLAIM_MANIFEST_PATH",
	"RECLAIM_WORKERS",
	"RECLAIM_WALK_WORKERS",
	"RECLAIM_FS_TIMEOUT",
	"RECLAIM_CLASSIFIER_INSTALLER_MIN_AGE",
	"RECLAIM_CLASSIFIER_REVIEW_SIZE",
	"RECLAIM_SUMMARIZE_MODEL",
	"RECLAIM_SUMMARIZE_BASE_URL",
	"RECLAIM_LOGGING_LEVEL",
	"RECLAIM_DAEMON_SOCKET_PATH",
	"RECLAIM_DAEMON_CACHE_TTL",
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configFilePath returns --config or the default config file location.
func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// runConfigShow displays the configuration loaded by setup.
func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	path, err := configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config file: %s\n\n", path)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("default_path:                  %s\n", cfg.DefaultPath)
	fmt.Printf("data_dir:                      %s\n", cfg.DataDir)
	fmt.Printf("allowed_roots:                 %v\n", cfg.AllowedRoots)
	fmt.Printf("exclude:                       %v\n", cfg.Exclude)
	fmt.Printf("quarantine.path:               %s\n", cfg.Quarantine.Path)
	fmt.Printf("manifest.path:                 %s\n", cfg.Manifest.Path)
	fmt.Printf("workers:                       %s\n", autoCount(cfg.Workers))
	fmt.Printf("walk_workers:                  %s\n", autoCount(cfg.WalkWorkers))
	fmt.Printf("fs_timeout:                    %s\n", cfg.FSTimeout)
	fmt.Printf("classifier.installer_min_age:  %s\n", cfg.Classifier.InstallerMinAge)
	fmt.Printf("classifier.review_size:        %s\n", cfg.Classifier.ReviewSize)
	fmt.Printf("classifier.protected:          %v\n", cfg.Classifier.Protected)
	fmt.Printf("summarize.model:               %s\n", cfg.Summarize.Model)
	fmt.Printf("summarize.base_url:            %s\n", cfg.Summarize.BaseURL)
	fmt.Printf("logging.level:                 %s\n", cfg.Logging.Level)
	fmt.Printf("daemon.socket_path:            %s\n", cfg.SocketPath())
	fmt.Printf("daemon.pid_path:               %s\n", cfg.PIDPath())
	fmt.Printf("daemon.cache_ttl:              %s\n", cfg.Daemon.CacheTTL)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, name := range configEnvVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

func autoCount(n int) string {
	if n == 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configPath, err := configFilePath()
	if err != nil {
		return err
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath) //nolint:gosec // editor comes from the user's environment
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'reclaim config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(_ *cobra.Command, _ []string) error {
	configPath, err := configFilePath()
	if err != nil {
		return err
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
