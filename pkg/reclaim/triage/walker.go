// Package triage walks a directory tree and partitions its entries by
// deletion-safety verdict.
package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/jamesainslie/reclaim/pkg/reclaim/classify"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Options configures a Walker.
type Options struct {
	// Classifier assigns verdicts. Required.
	Classifier *classify.Classifier

	// Exclude lists absolute path prefixes or globs that are never walked.
	// Globs are matched against the base name and the full path.
	Exclude []string

	// Workers is the number of traversal goroutines. Zero uses the
	// fastwalk default.
	Workers int
}

// Walker performs lock-free triage walks. It is safe for concurrent use.
type Walker struct {
	classifier *classify.Classifier
	exclude    []exclusion
	workers    int
}

type exclusion struct {
	raw  string
	glob glob.Glob
}

// New creates a Walker.
func New(opts Options) (*Walker, error) {
	if opts.Classifier == nil {
		return nil, errors.New("triage: classifier is required")
	}

	w := &Walker{classifier: opts.Classifier, workers: opts.Workers}
	for _, pattern := range opts.Exclude {
		if pattern == "" {
			continue
		}
		ex := exclusion{raw: filepath.Clean(pattern)}
		if g, err := glob.Compile(pattern, filepath.Separator); err == nil {
			ex.glob = g
		}
		w.exclude = append(w.exclude, ex)
	}
	return w, nil
}

// Stats summarizes one walk.
type Stats struct {
	Entries    int64
	Duplicates int64
	Unreadable int64
}

// Triage walks root, which must be an absolute clean directory path, and
// classifies every entry beneath it. The root itself is not classified.
// Each physical entry is reported once even when hard-linked under several
// names; the lexically smallest name wins. Buckets are sorted by path.
func (w *Walker) Triage(ctx context.Context, root string) (*types.TriageResult, error) {
	result, _, err := w.TriageWithStats(ctx, root)
	return result, err
}

// TriageWithStats is Triage that also reports walk counters.
func (w *Walker) TriageWithStats(ctx context.Context, root string) (*types.TriageResult, Stats, error) {
	log := logging.Get("triage")

	if err := checkReadable(root); err != nil {
		return nil, Stats{}, err
	}

	s := &walkState{
		walker: w,
		root:   root,
		ctx:    ctx,
		items:  make(map[string]types.FileItem),
		seen:   make(map[fileID]string),
	}

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.workers,
	}

	if err := fastwalk.Walk(&conf, root, s.visit); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, Stats{}, ctxErr
		}
		var opErr *types.OpError
		if errors.As(err, &opErr) {
			return nil, Stats{}, err
		}
		return nil, Stats{}, fmt.Errorf("walking %s: %w", root, err)
	}

	result := &types.TriageResult{Root: root}
	for _, item := range s.items {
		result.Add(item)
	}
	sortBucket(result.AutoSafe)
	sortBucket(result.NeedsReview)
	sortBucket(result.DoNotTouch)

	stats := Stats{
		Entries:    int64(result.Total()),
		Duplicates: s.duplicates.Load(),
		Unreadable: s.unreadable.Load(),
	}

	log.Debug("triage complete",
		"root", root,
		"auto_safe", len(result.AutoSafe),
		"needs_review", len(result.NeedsReview),
		"do_not_touch", len(result.DoNotTouch),
		"duplicates", stats.Duplicates,
		"unreadable", stats.Unreadable,
	)

	return result, stats, nil
}

// checkReadable reports PathNotReadable when root cannot be listed.
func checkReadable(root string) error {
	f, err := os.Open(root)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return types.NewOpError(types.KindPathNotReadable, root, err)
		}
		return types.NewOpError(types.KindInvalidPath, root, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return types.NewOpError(types.KindPathNotReadable, root, err)
	}
	return nil
}

func sortBucket(items []types.FileItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
}

type walkState struct {
	walker *Walker
	root   string
	ctx    context.Context

	mu    sync.Mutex
	items map[string]types.FileItem
	seen  map[fileID]string

	duplicates atomic.Int64
	unreadable atomic.Int64
}

// visit is the fastwalk callback. It runs on many goroutines at once.
func (s *walkState) visit(path string, d fs.DirEntry, err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if path == s.root {
		if err != nil {
			return types.NewOpError(types.KindPathNotReadable, path, err)
		}
		return nil
	}

	if err != nil {
		// Second callback for a directory whose listing failed.
		s.markUnreadable(path)
		return nil
	}

	if s.walker.isExcluded(path) {
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	}

	info, err := d.Info()
	if err != nil {
		s.markUnreadable(path)
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	}

	entry := classify.Entry{
		Path:    path,
		Name:    d.Name(),
		Mode:    info.Mode(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if entry.IsSymlink() {
		entry.LinkTarget = linkTarget(path)
	}

	item := s.walker.classifier.Classify(s.root, entry)

	if id, ok := idOf(info); ok {
		if !s.claim(id, path, item) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
	} else {
		s.put(path, item)
	}

	if d.IsDir() && s.walker.classifier.Prune(s.root, entry) {
		return fastwalk.SkipDir
	}
	return nil
}

// claim records item unless the same physical entry is already recorded
// under a smaller path. It reports whether path should be walked further.
func (s *walkState) claim(id fileID, path string, item types.FileItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.seen[id]; ok {
		s.duplicates.Add(1)
		if item.Verdict == types.DoNotTouch && item.Reason == classify.ReasonDirectory {
			return false
		}
		if path > prev {
			return false
		}
		delete(s.items, prev)
	}
	s.seen[id] = path
	s.items[path] = item
	return true
}

func (s *walkState) put(path string, item types.FileItem) {
	s.mu.Lock()
	s.items[path] = item
	s.mu.Unlock()
}

func (s *walkState) markUnreadable(path string) {
	s.unreadable.Add(1)
	s.put(path, types.FileItem{
		Path:    path,
		Verdict: types.DoNotTouch,
		Reason:  classify.ReasonUnreadable,
	})
}

func (w *Walker) isExcluded(path string) bool {
	for _, ex := range w.exclude {
		if path == ex.raw || (len(path) > len(ex.raw) && path[:len(ex.raw)+1] == ex.raw+string(filepath.Separator)) {
			return true
		}
		if ex.glob != nil && (ex.glob.Match(filepath.Base(path)) || ex.glob.Match(path)) {
			return true
		}
	}
	return false
}

// linkTarget resolves a symlink fully when possible and falls back to the
// raw link text for dangling links.
func linkTarget(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	if raw, err := os.Readlink(path); err == nil {
		return raw
	}
	return ""
}
