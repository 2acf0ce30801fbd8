// Package output provides formatters for displaying reclaim results
// in various output formats (pretty, plain, json, yaml, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.ForTriage(result)); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Kind identifies which payload a Report carries.
type Kind int

const (
	KindTriage Kind = iota
	KindAction
	KindList
	KindManifest
	KindVerify
	KindSummary
)

// Report is one command result ready for formatting. Exactly one payload
// field, selected by Kind, is set.
type Report struct {
	Kind Kind

	Triage    *types.TriageResult
	Action    *engine.Result
	Manifests []manifest.Summary
	Manifest  *manifest.Manifest
	Verify    *engine.VerifyReport

	// Summary and SummaryError carry a summarize outcome.
	Summary      string
	SummaryError string

	// DryRun marks a triage shown in place of a clean.
	DryRun bool

	// DaemonUp reports whether the result came from reclaimd.
	DaemonUp bool

	// FreeBytes is the free space on the triaged filesystem. Zero means
	// unknown and is not shown.
	FreeBytes int64

	// Duration is how long the operation took.
	Duration time.Duration

	// Warnings contains any warning messages generated along the way.
	Warnings []string
}

// ForTriage wraps a triage result.
func ForTriage(r *types.TriageResult) *Report {
	return &Report{Kind: KindTriage, Triage: r}
}

// ForAction wraps a clean or restore result.
func ForAction(r *engine.Result) *Report {
	return &Report{Kind: KindAction, Action: r}
}

// ForList wraps manifest summaries in creation order.
func ForList(s []manifest.Summary) *Report {
	return &Report{Kind: KindList, Manifests: s}
}

// ForManifest wraps a single manifest.
func ForManifest(m *manifest.Manifest) *Report {
	return &Report{Kind: KindManifest, Manifest: m}
}

// ForVerify wraps a verification report.
func ForVerify(v *engine.VerifyReport) *Report {
	return &Report{Kind: KindVerify, Verify: v}
}

// ForSummary wraps a summarize outcome. A non-nil err marks it failed.
func ForSummary(summary string, err error) *Report {
	r := &Report{Kind: KindSummary, Summary: summary}
	if err != nil {
		r.SummaryError = err.Error()
	}
	return r
}

// Paths returns the paths a Report lists: the AutoSafe bucket of a triage,
// the original paths of a manifest, problem paths of a verify and the ids
// of a list.
func (r *Report) Paths() []string {
	var paths []string
	switch r.Kind {
	case KindTriage:
		for _, item := range r.Triage.AutoSafe {
			paths = append(paths, item.Path)
		}
	case KindManifest:
		for _, e := range r.Manifest.Entries {
			paths = append(paths, e.OriginalPath)
		}
	case KindVerify:
		paths = append(paths, r.Verify.Missing...)
		paths = append(paths, r.Verify.Corrupt...)
		paths = append(paths, r.Verify.Orphans...)
	case KindList:
		for _, s := range r.Manifests {
			paths = append(paths, s.ID)
		}
	}
	return paths
}

// Rows returns a header and data rows for tabular formatters.
func (r *Report) Rows() (header []string, rows [][]string) {
	switch r.Kind {
	case KindTriage:
		header = []string{"VERDICT", "SIZE", "PATH", "REASON"}
		for _, bucket := range r.buckets() {
			for _, item := range bucket.items {
				rows = append(rows, []string{bucket.verdict.String(), types.FormatSize(item.Size), item.Path, item.Reason})
			}
		}
	case KindAction:
		a := r.Action
		header = []string{"SUCCESS", "MANIFEST", "MESSAGE"}
		rows = append(rows, []string{fmt.Sprint(a.Success), a.ManifestID, a.Message})
	case KindList:
		header = []string{"ID", "CREATED", "ROOT", "MOVED", "RESTORED", "FAILED", "SIZE"}
		for _, s := range r.Manifests {
			rows = append(rows, []string{
				s.ID,
				s.CreatedAt.Local().Format(time.DateTime),
				s.SourceRoot,
				fmt.Sprint(s.Counts.Moved),
				fmt.Sprint(s.Counts.Restored),
				fmt.Sprint(s.Counts.Failed),
				types.FormatSize(s.Counts.Bytes),
			})
		}
	case KindManifest:
		header = []string{"STATUS", "SIZE", "PATH", "QUARANTINE"}
		for _, e := range r.Manifest.Entries {
			rows = append(rows, []string{string(e.Status), types.FormatSize(e.SizeBytes), e.OriginalPath, e.QuarantinePath})
		}
	case KindVerify:
		header = []string{"PROBLEM", "PATH"}
		for _, p := range r.Verify.Missing {
			rows = append(rows, []string{"missing", p})
		}
		for _, p := range r.Verify.Corrupt {
			rows = append(rows, []string{"corrupt", p})
		}
		for _, p := range r.Verify.Orphans {
			rows = append(rows, []string{"orphan", p})
		}
		for _, p := range r.Verify.Errors {
			rows = append(rows, []string{"error", p})
		}
	case KindSummary:
		header = []string{"SUMMARY"}
		text := r.Summary
		if r.SummaryError != "" {
			text = "error: " + r.SummaryError
		}
		rows = append(rows, []string{text})
	}
	return header, rows
}

type bucket struct {
	verdict types.Verdict
	items   []types.FileItem
}

func (r *Report) buckets() []bucket {
	return []bucket{
		{types.AutoSafe, r.Triage.AutoSafe},
		{types.NeedsReview, r.Triage.NeedsReview},
		{types.DoNotTouch, r.Triage.DoNotTouch},
	}
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
