// Package types provides core data types for the reclaim engine.
// It includes the triage verdicts and buckets shared by the classifier,
// the walker and the clean executor, along with utility functions for
// parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Verdict is the deletion-safety classification of one filesystem entry.
type Verdict int

const (
	// DoNotTouch entries are never moved.
	DoNotTouch Verdict = iota
	// NeedsReview entries require a human decision.
	NeedsReview
	// AutoSafe entries are moved to quarantine by a clean.
	AutoSafe
)

// String returns the wire name of the verdict.
func (v Verdict) String() string {
	switch v {
	case AutoSafe:
		return "auto_safe"
	case NeedsReview:
		return "needs_review"
	case DoNotTouch:
		return "do_not_touch"
	default:
		return "unknown"
	}
}

// FileItem is the classification of a single scanned entry.
type FileItem struct {
	// Path is the absolute, cleaned path of the entry.
	Path string `json:"path" yaml:"path"`

	// Verdict is the classification outcome.
	Verdict Verdict `json:"-" yaml:"-"`

	// Reason explains which rule produced the verdict. Empty means none.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Size is the entry size in bytes (0 for directories).
	Size int64 `json:"size" yaml:"size"`
}

// TriageResult partitions the entries of one walk by verdict.
// Each bucket is sorted by path.
type TriageResult struct {
	// Root is the resolved directory that was walked.
	Root string `json:"root" yaml:"root"`

	AutoSafe    []FileItem `json:"auto_safe" yaml:"auto_safe"`
	NeedsReview []FileItem `json:"needs_review" yaml:"needs_review"`
	DoNotTouch  []FileItem `json:"do_not_touch" yaml:"do_not_touch"`
}

// Add appends item to the bucket matching its verdict.
func (r *TriageResult) Add(item FileItem) {
	switch item.Verdict {
	case AutoSafe:
		r.AutoSafe = append(r.AutoSafe, item)
	case NeedsReview:
		r.NeedsReview = append(r.NeedsReview, item)
	default:
		r.DoNotTouch = append(r.DoNotTouch, item)
	}
}

// Total returns the number of entries across all buckets.
func (r *TriageResult) Total() int {
	return len(r.AutoSafe) + len(r.NeedsReview) + len(r.DoNotTouch)
}

// ReclaimableBytes returns the combined size of the AutoSafe bucket.
func (r *TriageResult) ReclaimableBytes() int64 {
	var total int64
	for _, item := range r.AutoSafe {
		total += item.Size
	}
	return total
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports the following formats:
//   - Plain bytes: "1024", "0"
//   - With byte suffix: "512B", "512b"
//   - Kilobytes: "100K", "100k", "100KB", "100KiB"
//   - Megabytes: "50M", "50m", "50MB", "50MiB"
//   - Gigabytes: "2G", "2g", "2GB", "2GiB"
//   - Terabytes: "1T", "1t", "1TB", "1TiB"
//
// Units are binary. Decimal values are truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
