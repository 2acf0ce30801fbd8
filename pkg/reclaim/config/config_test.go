package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultPath != DefaultPath {
		t.Errorf("DefaultPath = %q, want %q", cfg.DefaultPath, DefaultPath)
	}

	if cfg.Workers != 0 || cfg.WalkWorkers != 0 {
		t.Errorf("Workers = %d, WalkWorkers = %d, want 0 (auto)", cfg.Workers, cfg.WalkWorkers)
	}

	if cfg.FSTimeout != DefaultFSTimeout {
		t.Errorf("FSTimeout = %v, want %v", cfg.FSTimeout, DefaultFSTimeout)
	}

	if cfg.Classifier.InstallerMinAge != DefaultInstallerMinAge {
		t.Errorf("InstallerMinAge = %v, want %v", cfg.Classifier.InstallerMinAge, DefaultInstallerMinAge)
	}

	if cfg.Daemon.CacheTTL != DefaultCacheTTL {
		t.Errorf("Daemon.CacheTTL = %v, want %v", cfg.Daemon.CacheTTL, DefaultCacheTTL)
	}

	if len(cfg.Classifier.Protected) != len(DefaultProtected) {
		t.Errorf("len(Protected) = %d, want %d", len(cfg.Classifier.Protected), len(DefaultProtected))
	}

	if len(cfg.Exclude) != len(DefaultExclusions) {
		t.Errorf("len(Exclude) = %d, want %d", len(cfg.Exclude), len(DefaultExclusions))
	}

	if cfg.Quarantine.Path != filepath.Join(cfg.DataDir, "quarantine") {
		t.Errorf("Quarantine.Path = %q, want it under %q", cfg.Quarantine.Path, cfg.DataDir)
	}

	if cfg.Manifest.Path != filepath.Join(cfg.DataDir, "manifests") {
		t.Errorf("Manifest.Path = %q, want it under %q", cfg.Manifest.Path, cfg.DataDir)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "reclaim")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
data_dir: ~/reclaim-data
allowed_roots:
  - ~/Downloads
workers: 3
fs_timeout: 5s
quarantine:
  path: /custom/quarantine
classifier:
  installer_min_age: 48h
  review_size: 10MB
  protected:
    - "*.keep"
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(tempDir, "reclaim-data"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}

	if len(cfg.AllowedRoots) != 1 || cfg.AllowedRoots[0] != filepath.Join(tempDir, "Downloads") {
		t.Errorf("AllowedRoots = %v, want [%s]", cfg.AllowedRoots, filepath.Join(tempDir, "Downloads"))
	}

	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}

	if cfg.FSTimeout != 5*time.Second {
		t.Errorf("FSTimeout = %v, want 5s", cfg.FSTimeout)
	}

	if cfg.Quarantine.Path != "/custom/quarantine" {
		t.Errorf("Quarantine.Path = %q, want /custom/quarantine", cfg.Quarantine.Path)
	}

	if want := filepath.Join(tempDir, "reclaim-data", "manifests"); cfg.Manifest.Path != want {
		t.Errorf("Manifest.Path = %q, want %q", cfg.Manifest.Path, want)
	}

	if cfg.Classifier.InstallerMinAge != 48*time.Hour {
		t.Errorf("InstallerMinAge = %v, want 48h", cfg.Classifier.InstallerMinAge)
	}

	if cfg.Classifier.ReviewSize != "10MB" {
		t.Errorf("ReviewSize = %q, want 10MB", cfg.Classifier.ReviewSize)
	}

	if len(cfg.Classifier.Protected) != 1 || cfg.Classifier.Protected[0] != "*.keep" {
		t.Errorf("Protected = %v, want [*.keep]", cfg.Classifier.Protected)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("RECLAIM_WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
}

func TestLoadFile_InvalidWorkersFallsBack(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(path, []byte("workers: -3\nwalk_workers: -1\nfs_timeout: 0s\ndaemon:\n  cache_ttl: -1m\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Workers != 0 || cfg.WalkWorkers != 0 {
		t.Errorf("Workers = %d, WalkWorkers = %d, want 0 (auto)", cfg.Workers, cfg.WalkWorkers)
	}
	if cfg.FSTimeout != DefaultFSTimeout {
		t.Errorf("FSTimeout = %v, want %v", cfg.FSTimeout, DefaultFSTimeout)
	}
	if cfg.Daemon.CacheTTL != DefaultCacheTTL {
		t.Errorf("Daemon.CacheTTL = %v, want %v", cfg.Daemon.CacheTTL, DefaultCacheTTL)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		if dir != "/custom/config/reclaim" {
			t.Errorf("ConfigDir() = %q, want /custom/config/reclaim", dir)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		tempDir := t.TempDir()
		t.Setenv("HOME", tempDir)
		t.Setenv("XDG_CONFIG_HOME", "")

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}

		if want := filepath.Join(tempDir, ".config", "reclaim"); dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, ".config", "reclaim", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// The written file must load cleanly.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault error = %v", err)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}

	// A second call must not overwrite the file.
	if err := os.WriteFile(configPath, []byte("workers: 1\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != "workers: 1\n" {
		t.Errorf("WriteDefault overwrote existing config")
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	tests := []struct {
		input string
		want  string
	}{
		{"~", tempDir},
		{"~/Downloads", filepath.Join(tempDir, "Downloads")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~user/x", "~user/x"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.input)
		if err != nil {
			t.Fatalf("ExpandPath(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
