package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
)

func TestPathArg(t *testing.T) {
	saved := appCfg
	defer func() { appCfg = saved }()

	appCfg = nil
	if got := pathArg(nil); got != config.DefaultPath {
		t.Errorf("pathArg(nil) = %q, want %q", got, config.DefaultPath)
	}

	appCfg = &config.Config{DefaultPath: "/srv/downloads"}
	if got := pathArg(nil); got != "/srv/downloads" {
		t.Errorf("pathArg(nil) = %q, want configured default", got)
	}
	if got := pathArg([]string{"/tmp"}); got != "/tmp" {
		t.Errorf("pathArg = %q, want /tmp", got)
	}
}

func TestRefArg(t *testing.T) {
	if got := refArg(nil); got != engine.LatestRef {
		t.Errorf("refArg(nil) = %q, want %q", got, engine.LatestRef)
	}
	if got := refArg([]string{""}); got != engine.LatestRef {
		t.Errorf("refArg(empty) = %q, want %q", got, engine.LatestRef)
	}
	if got := refArg([]string{"0192"}); got != "0192" {
		t.Errorf("refArg = %q, want 0192", got)
	}
}

// resetViper clears viper state and rebinds the persistent flags.
func resetViper() {
	viper.Reset()
	bindFlags()
}

func TestFormatter(t *testing.T) {
	defer resetViper()

	tests := []struct {
		name     string
		output   string
		template string
		wantErr  bool
	}{
		{name: "default", output: ""},
		{name: "json", output: "json"},
		{name: "yaml", output: "yaml"},
		{name: "template wins", output: "bogus", template: "{{.Kind}}"},
		{name: "unknown", output: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("output", tt.output)
			viper.Set("template", tt.template)

			f, err := formatter()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f == nil {
				t.Error("expected a formatter")
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 10*time.Minute, "2h 10m"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDaemonPaths(t *testing.T) {
	savedCfg, savedFile := appCfg, cfgFile
	defer func() { appCfg, cfgFile = savedCfg, savedFile }()

	appCfg = &config.Config{}
	appCfg.Daemon.SocketPath = "/run/r.sock"
	appCfg.Daemon.PIDPath = "/run/r.pid"
	cfgFile = "/etc/reclaim.yaml"

	p := daemonPaths()
	if p.Socket != "/run/r.sock" || p.PID != "/run/r.pid" {
		t.Errorf("unexpected paths: %+v", p)
	}
	if len(p.Args) != 2 || p.Args[0] != "--config" || p.Args[1] != cfgFile {
		t.Errorf("expected --config to be forwarded, got %v", p.Args)
	}
}

// writeTestConfig points every data, log and daemon path into dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	data := filepath.Join(dir, "data")
	cfg := fmt.Sprintf(`data_dir: %s
logging:
  path: %s
daemon:
  socket_path: %s
  pid_path: %s
`, data, filepath.Join(dir, "reclaim.log"), filepath.Join(dir, "r.sock"), filepath.Join(dir, "r.pid"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCleanAndRestoreEndToEnd(t *testing.T) {

	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	tree := filepath.Join(dir, "tree")
	if err := os.MkdirAll(tree, 0o755); err != nil {
		t.Fatal(err)
	}
	tmpFile := filepath.Join(tree, "a.tmp")
	notes := filepath.Join(tree, "notes.txt")
	if err := os.WriteFile(tmpFile, []byte("scratch"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(notes, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	common := []string{"--config", cfgPath, "--no-daemon", "-o", "json"}

	if err := execute(t, append([]string{"clean", "--dry-run"}, append(common, tree)...)...); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if _, err := os.Stat(tmpFile); err != nil {
		t.Fatalf("dry run moved a file: %v", err)
	}

	cleanYes = false
	cleanDryRun = false
	if err := execute(t, append([]string{"clean", "--yes"}, append(common, tree)...)...); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if _, err := os.Stat(tmpFile); !os.IsNotExist(err) {
		t.Fatalf("expected a.tmp to be quarantined, stat err = %v", err)
	}
	if _, err := os.Stat(notes); err != nil {
		t.Fatalf("notes.txt must stay in place: %v", err)
	}

	if err := execute(t, append([]string{"verify"}, common...)...); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := execute(t, append([]string{"restore", "latest"}, common...)...); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("a.tmp not restored: %v", err)
	}
	if string(got) != "scratch" {
		t.Errorf("restored content = %q", got)
	}
}

func TestRestoreWithoutManifests(t *testing.T) {

	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	err := execute(t, "restore", "--config", cfgPath, "--no-daemon", "-o", "json")
	if err == nil {
		t.Fatal("expected restore with no manifests to fail")
	}
}
