package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/quarantine"
)

// VerifyReport describes the integrity of quarantined data.
type VerifyReport struct {
	// Manifests lists the manifest ids that were checked.
	Manifests []string `json:"manifests" yaml:"manifests"`
	// Checked counts Moved entries whose quarantined bytes were hashed.
	Checked int `json:"checked" yaml:"checked"`
	// Missing lists quarantine paths that no longer exist.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	// Corrupt lists quarantine paths whose checksum changed.
	Corrupt []string `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
	// Errors lists other failures as "path: reason".
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	// Orphans lists quarantined files no manifest accounts for, such as
	// moves that finished after their timeout or an interrupted clean.
	Orphans []string `json:"orphans,omitempty" yaml:"orphans,omitempty"`
}

// OK reports whether nothing is missing, corrupt or orphaned.
func (r *VerifyReport) OK() bool {
	return len(r.Missing) == 0 && len(r.Corrupt) == 0 && len(r.Errors) == 0 && len(r.Orphans) == 0
}

// Verify checks the manifest named by ref, or every manifest when ref is
// empty. Orphan detection only runs for a full check.
func (e *Engine) Verify(ctx context.Context, ref string) (*VerifyReport, error) {
	var ids []string
	if ref == "" {
		all, err := e.manifests.List()
		if err != nil {
			return nil, err
		}
		ids = all
	} else {
		id, err := e.resolveRef(ref)
		if err != nil {
			return nil, err
		}
		ids = []string{id}
	}

	report := &VerifyReport{Manifests: ids}
	accounted := make(map[string]bool)

	for _, id := range ids {
		m, err := e.manifests.Get(id)
		if err != nil {
			return nil, err
		}
		for _, entry := range m.Entries {
			if entry.QuarantinePath != "" && entry.Status == manifest.StatusMoved {
				accounted[entry.QuarantinePath] = true
			}
			if entry.Status != manifest.StatusMoved {
				continue
			}
			report.Checked++
			err := e.quarantine.Verify(ctx, entry.QuarantinePath, entry.ContentChecksum)
			switch {
			case err == nil:
			case errors.Is(err, quarantine.ErrMissing):
				report.Missing = append(report.Missing, entry.QuarantinePath)
			case errors.Is(err, quarantine.ErrCorrupt):
				report.Corrupt = append(report.Corrupt, entry.QuarantinePath)
			default:
				report.Errors = append(report.Errors, entry.QuarantinePath+": "+err.Error())
			}
		}
	}

	if ref == "" {
		orphans, err := e.orphans(accounted)
		if err != nil {
			return nil, err
		}
		report.Orphans = orphans
	}

	return report, nil
}

func (e *Engine) orphans(accounted map[string]bool) ([]string, error) {
	batches, err := e.quarantine.Batches()
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, batch := range batches {
		files, err := e.quarantine.BatchFiles(batch)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !accounted[f] {
				orphans = append(orphans, f)
			}
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}
