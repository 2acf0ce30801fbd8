package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Clean triages path and moves every AutoSafe file into quarantine,
// recording the batch in one manifest. Per-file failures are recorded
// as Failed entries and never stop the rest of the batch.
//
// The returned error is non-nil only when the clean could not run; the
// Result then carries the same failure.
func (e *Engine) Clean(ctx context.Context, path string) (Result, error) {
	log := logging.Get("engine")

	root, err := e.resolver.Resolve(path)
	if err != nil {
		return failure(err), err
	}

	release, err := e.locks.Acquire(root)
	if err != nil {
		log.Info("clean rejected", "root", root, "error", err)
		return failure(err), err
	}
	defer release()

	triaged, err := e.walker.Triage(ctx, root)
	if err != nil {
		return failure(err), err
	}

	if len(triaged.AutoSafe) == 0 {
		return Result{Success: true, Message: "nothing to clean"}, nil
	}

	id, err := manifest.NewID()
	if err != nil {
		return failure(err), err
	}

	log.Info("clean started", "root", root, "id", id, "files", len(triaged.AutoSafe))

	entries := e.quarantineAll(ctx, id, root, triaged.AutoSafe)

	m := &manifest.Manifest{
		ID:         id,
		SourceRoot: root,
		Entries:    entries,
		Completed:  true,
	}
	if err := e.manifests.Create(m); err != nil {
		// Without a manifest the batch cannot be undone later, so undo it now.
		e.rollback(ctx, entries)
		err = fmt.Errorf("commit manifest: %w", err)
		log.Error("clean rolled back", "root", root, "id", id, "error", err)
		return failure(err), err
	}

	counts := m.Counts()
	res := Result{
		Success:    true,
		ManifestID: id,
		Moved:      counts.Moved,
		Failed:     counts.Failed,
		Bytes:      counts.Bytes,
		Message: fmt.Sprintf("quarantined %d of %d files (%s)",
			counts.Moved, len(entries), types.FormatSize(counts.Bytes)),
	}
	for _, entry := range entries {
		if entry.Status == manifest.StatusFailed {
			res.Problems = append(res.Problems, entry.OriginalPath+": "+entry.Error)
		}
	}

	log.Info("clean finished", "id", id, "moved", counts.Moved, "failed", counts.Failed, "bytes", counts.Bytes)
	return res, nil
}

// quarantineAll moves items in parallel and returns one entry per item in
// input order.
func (e *Engine) quarantineAll(ctx context.Context, id, root string, items []types.FileItem) []manifest.Entry {
	entries := make([]manifest.Entry, len(items))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, item := range items {
		g.Go(func() error {
			moved, err := e.quarantine.Quarantine(ctx, id, root, item.Path)
			if err != nil {
				entries[i] = manifest.Entry{
					OriginalPath: item.Path,
					SizeBytes:    item.Size,
					Status:       manifest.StatusFailed,
					Error:        err.Error(),
				}
				return nil
			}
			entries[i] = manifest.Entry{
				OriginalPath:    item.Path,
				QuarantinePath:  moved.QuarantinePath,
				SizeBytes:       moved.Size,
				ContentChecksum: moved.Checksum,
				Status:          manifest.StatusMoved,
			}
			return nil
		})
	}
	_ = g.Wait() // Per-file errors are recorded in entries.

	return entries
}

// rollback returns moved files to their original paths after a failed commit.
// It runs detached from ctx so a cancelled clean still restores.
func (e *Engine) rollback(ctx context.Context, entries []manifest.Entry) {
	log := logging.Get("engine")
	ctx = context.WithoutCancel(ctx)
	for _, entry := range entries {
		if entry.Status != manifest.StatusMoved {
			continue
		}
		if err := e.quarantine.Restore(ctx, entry.QuarantinePath, entry.OriginalPath, entry.ContentChecksum); err != nil {
			log.Error("rollback failed", "path", entry.OriginalPath, "quarantine", entry.QuarantinePath, "error", err)
		}
	}
}
