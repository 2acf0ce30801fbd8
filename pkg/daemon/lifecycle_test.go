package daemon_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/reclaim/pkg/daemon"
)

func TestWriteAndReadPID(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "reclaim.pid")

	// Write PID
	err := daemon.WritePIDFile(pidPath)
	if err != nil {
		t.Fatalf("WritePIDFile failed: %v", err)
	}

	// Read and verify
	pid, err := daemon.ReadPIDFile(pidPath)
	if err != nil {
		t.Fatalf("ReadPIDFile failed: %v", err)
	}

	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}
}

func TestIsDaemonRunning(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "reclaim.pid")

	// No PID file = not running
	if daemon.IsDaemonRunning(pidPath) {
		t.Error("Expected false when PID file doesn't exist")
	}

	// Write current PID = running
	if err := daemon.WritePIDFile(pidPath); err != nil {
		t.Fatal(err)
	}

	if !daemon.IsDaemonRunning(pidPath) {
		t.Error("Expected true when PID file has current process")
	}

	// Write invalid PID = not running
	if err := os.WriteFile(pidPath, []byte("999999999"), 0o644); err != nil {
		t.Fatal(err)
	}
	if daemon.IsDaemonRunning(pidPath) {
		t.Error("Expected false when PID is invalid")
	}
}

func TestRemovePIDFile(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "reclaim.pid")

	// Write PID file
	if err := daemon.WritePIDFile(pidPath); err != nil {
		t.Fatalf("WritePIDFile failed: %v", err)
	}

	// Verify it exists
	if _, err := os.Stat(pidPath); os.IsNotExist(err) {
		t.Fatal("PID file should exist")
	}

	// Remove it
	if err := daemon.RemovePIDFile(pidPath); err != nil {
		t.Fatalf("RemovePIDFile failed: %v", err)
	}

	// Verify it's gone
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should have been removed")
	}
}

func TestReadPIDFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	for name, content := range map[string]string{
		"garbage":  "not-a-pid",
		"zero":     "0",
		"negative": "-12",
	} {
		pidPath := filepath.Join(dir, name+".pid")
		if err := os.WriteFile(pidPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := daemon.ReadPIDFile(pidPath); err == nil {
			t.Errorf("ReadPIDFile(%q) should fail", content)
		}
	}
}

func TestRemovePIDFile_KeepsOtherDaemon(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "reclaim.pid")

	// A replacement daemon already wrote its own PID.
	if err := os.WriteFile(pidPath, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := daemon.RemovePIDFile(pidPath); err != nil {
		t.Fatalf("RemovePIDFile failed: %v", err)
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Error("PID file of another daemon should be kept")
	}

	// Missing and unreadable files are not errors for a shutting-down daemon.
	if err := daemon.RemovePIDFile(filepath.Join(dir, "missing.pid")); err != nil {
		t.Errorf("RemovePIDFile(missing) = %v, want nil", err)
	}
	garbled := filepath.Join(dir, "garbled.pid")
	if err := os.WriteFile(garbled, []byte("reclaimd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := daemon.RemovePIDFile(garbled); err != nil {
		t.Errorf("RemovePIDFile(garbled) = %v, want nil", err)
	}
	if _, err := os.Stat(garbled); !os.IsNotExist(err) {
		t.Error("garbled PID file should have been removed")
	}
}

func TestWritePIDFile_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "reclaim.pid")

	for range 3 {
		if err := daemon.WritePIDFile(pidPath); err != nil {
			t.Fatalf("WritePIDFile failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "reclaim.pid" {
		t.Errorf("expected only reclaim.pid, got %v", entries)
	}
}
