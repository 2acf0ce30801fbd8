// Package manifest records clean operations durably so they can be undone.
//
// Each manifest is a JSON record file replaced atomically on every change,
// plus an entry in an ordered badger index used for listing.
package manifest

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one manifest entry.
type Status string

const (
	// StatusMoved means the file sits in quarantine.
	StatusMoved Status = "moved"
	// StatusFailed means the file could not be quarantined and was left in place.
	StatusFailed Status = "failed"
	// StatusRestored means the file was moved back to its original path.
	StatusRestored Status = "restored"
)

// Entry records what happened to one file.
type Entry struct {
	OriginalPath    string `json:"original_path" yaml:"original_path"`
	QuarantinePath  string `json:"quarantine_path" yaml:"quarantine_path"`
	SizeBytes       int64  `json:"size_bytes" yaml:"size_bytes"`
	ContentChecksum string `json:"content_checksum" yaml:"content_checksum"`
	Status          Status `json:"status" yaml:"status"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Manifest records one clean batch.
type Manifest struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	SourceRoot string    `json:"source_root" yaml:"source_root"`
	Entries    []Entry   `json:"entries" yaml:"entries"`
	Completed  bool      `json:"completed" yaml:"completed"`

	// Version increases with every rewrite of the record.
	Version int `json:"version" yaml:"version"`

	// UpdatedAt is the time of the latest rewrite.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Counts tallies entries by status.
type Counts struct {
	Moved    int   `json:"moved" yaml:"moved"`
	Failed   int   `json:"failed" yaml:"failed"`
	Restored int   `json:"restored" yaml:"restored"`
	Bytes    int64 `json:"bytes" yaml:"bytes"`
}

// Counts returns per-status totals. Bytes covers entries still in quarantine.
func (m *Manifest) Counts() Counts {
	var c Counts
	for _, e := range m.Entries {
		switch e.Status {
		case StatusMoved:
			c.Moved++
			c.Bytes += e.SizeBytes
		case StatusFailed:
			c.Failed++
		case StatusRestored:
			c.Restored++
		}
	}
	return c
}

// Summary is the index value kept for each manifest.
type Summary struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	SourceRoot string    `json:"source_root" yaml:"source_root"`
	Completed  bool      `json:"completed" yaml:"completed"`
	Version    int       `json:"version" yaml:"version"`
	Counts     Counts    `json:"counts" yaml:"counts"`
}

// Summary returns the index view of m.
func (m *Manifest) Summary() Summary {
	return Summary{
		ID:         m.ID,
		CreatedAt:  m.CreatedAt,
		SourceRoot: m.SourceRoot,
		Completed:  m.Completed,
		Version:    m.Version,
		Counts:     m.Counts(),
	}
}

// NewID returns a UUIDv7 string. Ids sort lexically in creation order.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidID reports whether s is a well-formed manifest id.
func ValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
