package daemon

import (
	"encoding/json"
	"os"
	"strings"
)

// Startup states written to the status file.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// StatusFile represents the daemon startup status. The client polls it
// after spawning reclaimd to learn whether startup succeeded.
type StatusFile struct {
	Status string `json:"status"`          // StatusReady or StatusError
	PID    int    `json:"pid,omitempty"`   // Process ID (only for ready status)
	Error  string `json:"error,omitempty"` // Error message (only for error status)
}

// WriteStatusReady writes a ready status file.
func WriteStatusReady(path string) error {
	return writeStatus(path, &StatusFile{Status: StatusReady, PID: os.Getpid()})
}

// WriteStatusError writes an error status file.
func WriteStatusError(path string, err error) error {
	return writeStatus(path, &StatusFile{Status: StatusError, Error: err.Error()})
}

func writeStatus(path string, status *StatusFile) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ReadStatus reads a status file.
func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status StatusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RemoveStatus removes the status file.
func RemoveStatus(path string) error {
	return os.Remove(path)
}

// StatusPath returns the status file kept beside a daemon socket:
// reclaim.sock pairs with reclaim.status. A socket without the .sock
// suffix gets .status appended.
func StatusPath(socketPath string) string {
	return strings.TrimSuffix(socketPath, ".sock") + ".status"
}
