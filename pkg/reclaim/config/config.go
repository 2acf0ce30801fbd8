package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// DaemonConfig configures the reclaimd daemon.
type DaemonConfig struct {
	SocketPath string `mapstructure:"socket_path"`
	PIDPath    string `mapstructure:"pid_path"`

	// CacheTTL bounds how long a cached triage result is served. The
	// installer rule depends on the clock, so results go stale on their own.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ClassifierConfig tunes the triage rules.
type ClassifierConfig struct {
	InstallerMinAge time.Duration `mapstructure:"installer_min_age"`
	ReviewSize      string        `mapstructure:"review_size"`
	Protected       []string      `mapstructure:"protected"`
}

// SummarizeConfig configures the external summarizer.
type SummarizeConfig struct {
	Model string `mapstructure:"model"`

	// BaseURL is the API root; requests go to <base_url>v1/messages.
	BaseURL string `mapstructure:"base_url"`
}

// Config represents the application configuration.
type Config struct {
	DefaultPath  string   `mapstructure:"default_path"`
	DataDir      string   `mapstructure:"data_dir"`
	AllowedRoots []string `mapstructure:"allowed_roots"`
	Exclude      []string `mapstructure:"exclude"`
	Quarantine   struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"quarantine"`
	Manifest struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"manifest"`
	Workers     int              `mapstructure:"workers"`
	WalkWorkers int              `mapstructure:"walk_workers"`
	FSTimeout   time.Duration    `mapstructure:"fs_timeout"`
	Classifier  ClassifierConfig `mapstructure:"classifier"`
	Summarize   SummarizeConfig  `mapstructure:"summarize"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Daemon      DaemonConfig     `mapstructure:"daemon"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default_path", DefaultPath)
	v.SetDefault("data_dir", DataDir())
	v.SetDefault("allowed_roots", []string{})
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("quarantine.path", "") // Empty means <data_dir>/quarantine
	v.SetDefault("manifest.path", "")   // Empty means <data_dir>/manifests
	v.SetDefault("workers", 0)          // Zero means sized from CPU count
	v.SetDefault("walk_workers", 0)     // Zero means sized from CPU count
	v.SetDefault("fs_timeout", DefaultFSTimeout)

	v.SetDefault("classifier.installer_min_age", DefaultInstallerMinAge)
	v.SetDefault("classifier.review_size", DefaultReviewSize)
	v.SetDefault("classifier.protected", DefaultProtected)

	v.SetDefault("summarize.model", DefaultSummarizeModel)
	v.SetDefault("summarize.base_url", DefaultSummarizeBaseURL)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"engine":     "info",
		"triage":     "info",
		"quarantine": "info",
		"manifest":   "info",
		"daemon":     "info",
	})

	v.SetDefault("daemon.socket_path", "") // Empty means use default XDG path
	v.SetDefault("daemon.pid_path", "")    // Empty means use default XDG path
	v.SetDefault("daemon.cache_ttl", DefaultCacheTTL)
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/reclaim/config.yaml
//   - $HOME/.config/reclaim/config.yaml
//
// Environment variables are prefixed with RECLAIM_ (e.g., RECLAIM_WORKERS).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))

	return load(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

// FromViper decodes a configuration from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	return FromViper(v)
}

// normalize expands ~ in every path and fills derived defaults.
func (c *Config) normalize() error {
	var err error
	if c.DataDir, err = ExpandPath(c.DataDir); err != nil {
		return err
	}
	if c.DataDir == "" {
		c.DataDir = DataDir()
	}

	if c.Quarantine.Path == "" {
		c.Quarantine.Path = filepath.Join(c.DataDir, "quarantine")
	}
	if c.Quarantine.Path, err = ExpandPath(c.Quarantine.Path); err != nil {
		return err
	}

	if c.Manifest.Path == "" {
		c.Manifest.Path = filepath.Join(c.DataDir, "manifests")
	}
	if c.Manifest.Path, err = ExpandPath(c.Manifest.Path); err != nil {
		return err
	}

	for i, root := range c.AllowedRoots {
		if c.AllowedRoots[i], err = ExpandPath(root); err != nil {
			return err
		}
	}

	c.Workers = max(c.Workers, 0)
	c.WalkWorkers = max(c.WalkWorkers, 0)
	if c.FSTimeout <= 0 {
		c.FSTimeout = DefaultFSTimeout
	}
	if c.Daemon.CacheTTL <= 0 {
		c.Daemon.CacheTTL = DefaultCacheTTL
	}
	return nil
}

// IndexPath returns the directory of the manifest index database.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "index")
}

// LockDir returns the directory holding per-root lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.DataDir, "locks")
}

// SocketPath returns the configured or default daemon socket path.
func (c *Config) SocketPath() string {
	if c.Daemon.SocketPath != "" {
		return c.Daemon.SocketPath
	}
	return DefaultSocketPath()
}

// PIDPath returns the configured or default daemon PID file path.
func (c *Config) PIDPath() string {
	if c.Daemon.PIDPath != "" {
		return c.Daemon.PIDPath
	}
	return DefaultPIDPath()
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Reclaim Configuration

# Default path to triage when none is specified
default_path: %s

# Root of quarantine, manifests, index and locks
data_dir: %s

# Only directories under these roots may be triaged or cleaned (empty = any)
allowed_roots: []

# Paths that are never walked
exclude:
  - /proc
  - /sys
  - /dev

# Parallel per-file workers in a clean or restore batch (0 = twice the CPU count)
workers: 0

# Triage traversal goroutines (0 = CPU count)
walk_workers: 0

# Upper bound for every individual filesystem operation
fs_timeout: %s

classifier:
  # Installer packages younger than this need review
  installer_min_age: %s
  # Unknown files above this size are flagged as large
  review_size: %s
  # Base-name glob patterns that are never touched
  protected:
    - "*.app"
    - "*.lock"
    - "Library"
    - "System"

summarize:
  model: %s
  base_url: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/reclaim/reclaim.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    engine: info
    triage: info
    quarantine: info
    manifest: info
    daemon: info

daemon:
  # Unix socket path (empty means use default: $XDG_DATA_HOME/reclaim/reclaim.sock)
  socket_path: ""
  # PID file path (empty means use default: $XDG_DATA_HOME/reclaim/reclaim.pid)
  pid_path: ""
  # How long a cached triage result is served before the tree is walked again
  cache_ttl: %s
`, DefaultPath, DataDir(), DefaultFSTimeout, DefaultInstallerMinAge,
		DefaultReviewSize, DefaultSummarizeModel, DefaultSummarizeBaseURL, DefaultCacheTTL)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands a leading ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/reclaim/ for quarantine, manifests and the socket.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/reclaim/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), AppName+".sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), AppName+".pid")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}
