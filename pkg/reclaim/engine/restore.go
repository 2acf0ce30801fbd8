package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// restoreOutcome is the result of moving one entry back.
type restoreOutcome struct {
	index    int
	err      error
	conflict bool
}

// Restore moves every Moved entry of the manifest named by ref back to its
// original path. ref may be empty or LatestRef for the newest manifest.
//
// Restored entries are skipped, so restoring twice changes nothing.
// Entries that conflict or fail stay Moved and are listed in Problems.
func (e *Engine) Restore(ctx context.Context, ref string) (Result, error) {
	log := logging.Get("engine")

	id, err := e.resolveRef(ref)
	if err != nil {
		return failure(err), err
	}

	m, err := e.manifests.Get(id)
	if err != nil {
		return failure(err), err
	}

	release, err := e.locks.Acquire(m.SourceRoot)
	if err != nil {
		log.Info("restore rejected", "root", m.SourceRoot, "id", id, "error", err)
		res := failure(err)
		res.ManifestID = id
		return res, err
	}
	defer release()

	// Re-read under the lock: a restore that held it may have finished
	// since the first read.
	if m, err = e.manifests.Get(id); err != nil {
		return failure(err), err
	}

	var pending []int
	res := Result{ManifestID: id}
	for i, entry := range m.Entries {
		switch entry.Status {
		case manifest.StatusMoved:
			pending = append(pending, i)
		case manifest.StatusRestored:
			res.AlreadyRestored++
		}
	}

	if len(pending) == 0 {
		res.Success = true
		if res.AlreadyRestored > 0 {
			res.Message = fmt.Sprintf("already restored (%d files)", res.AlreadyRestored)
		} else {
			res.Message = "nothing to restore"
		}
		return res, nil
	}

	log.Info("restore started", "id", id, "root", m.SourceRoot, "files", len(pending))

	outcomes := e.restoreAll(ctx, m, pending)

	// One rewrite records every outcome. Entries that did not come back
	// stay Moved with the reason attached.
	changes := make([]manifest.StatusChange, len(outcomes))
	for n, o := range outcomes {
		changes[n] = manifest.StatusChange{OriginalPath: m.Entries[o.index].OriginalPath, Status: manifest.StatusRestored}
		if o.err != nil {
			changes[n].Status = manifest.StatusMoved
			changes[n].Error = o.err.Error()
		}
	}
	updated, err := e.manifests.UpdateEntryStatuses(id, changes)
	if err != nil {
		// The files are back but the manifest still says Moved. A later
		// restore finds them in place and completes the bookkeeping.
		err = fmt.Errorf("update manifest: %w", err)
		log.Error("restore bookkeeping failed", "id", id, "error", err)
		return failure(err), err
	}

	for _, o := range outcomes {
		entry := updated.Entries[o.index]
		switch {
		case o.err == nil:
			res.Restored++
			res.Bytes += entry.SizeBytes
		case o.conflict:
			res.Conflicts++
			res.Problems = append(res.Problems, entry.OriginalPath+": restore conflict")
		default:
			res.Failed++
			res.Problems = append(res.Problems, entry.OriginalPath+": "+o.err.Error())
		}
	}

	res.Success = res.Restored > 0
	res.Message = restoreMessage(res)

	log.Info("restore finished", "id", id, "restored", res.Restored,
		"conflicts", res.Conflicts, "failed", res.Failed)
	return res, nil
}

func (e *Engine) restoreAll(ctx context.Context, m *manifest.Manifest, pending []int) []restoreOutcome {
	outcomes := make([]restoreOutcome, len(pending))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for n, idx := range pending {
		entry := m.Entries[idx]
		g.Go(func() error {
			err := e.quarantine.Restore(ctx, entry.QuarantinePath, entry.OriginalPath, entry.ContentChecksum)
			outcomes[n] = restoreOutcome{
				index:    idx,
				err:      err,
				conflict: errors.Is(err, types.ErrRestoreConflict),
			}
			return nil
		})
	}
	_ = g.Wait() // Per-file errors are recorded in outcomes.

	return outcomes
}

func restoreMessage(r Result) string {
	parts := []string{fmt.Sprintf("restored %d files (%s)", r.Restored, types.FormatSize(r.Bytes))}
	if r.AlreadyRestored > 0 {
		parts = append(parts, fmt.Sprintf("%d already restored", r.AlreadyRestored))
	}
	if r.Conflicts > 0 {
		parts = append(parts, fmt.Sprintf("%d conflicts", r.Conflicts))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	return strings.Join(parts, ", ")
}
