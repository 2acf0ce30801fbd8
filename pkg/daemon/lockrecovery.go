package daemon

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
)

// RecoverFromStaleDaemon checks for and cleans up the artifacts a crashed
// daemon leaves behind: its PID file, its socket and the manifest index
// directory lock.
// Returns nil if cleanup succeeded or wasn't needed.
// Returns ErrDaemonAlreadyRunning if a daemon is actually running.
func RecoverFromStaleDaemon(pidPath, socketPath, indexDir string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		// No PID file or invalid PID means nothing to recover
		return nil //nolint:nilerr // missing/invalid PID file is not an error condition
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	log := logging.Get("daemon")
	log.Warn("cleaning up stale daemon files", "stale_pid", pid)

	// Files may already be gone.
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	_ = os.Remove(filepath.Join(indexDir, "LOCK"))

	return nil
}

// IsProcessRunning checks if a process with the given PID is running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	// EPERM means the process exists but belongs to someone else.
	return err == nil || errors.Is(err, unix.EPERM)
}
