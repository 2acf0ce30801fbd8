// Package engine coordinates triage, clean, restore and verification.
//
// The Engine owns the root-lock registry: Clean and Restore take an
// exclusive lock on their source root and fail fast with
// OperationInProgress when it is held. Triage takes no lock.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamesainslie/reclaim/pkg/reclaim/classify"
	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/quarantine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/resolve"
	"github.com/jamesainslie/reclaim/pkg/reclaim/triage"
	"github.com/jamesainslie/reclaim/pkg/reclaim/tuner"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// LatestRef selects the newest manifest wherever an id is accepted.
const LatestRef = "latest"

// Summarizer produces a prose summary of a triage result.
type Summarizer interface {
	Summarize(ctx context.Context, result *types.TriageResult) (string, error)
}

// Options wires an Engine from its parts.
type Options struct {
	Resolver   *resolve.Resolver
	Walker     *triage.Walker
	Quarantine *quarantine.Store
	Manifests  *manifest.Store
	Locks      *LockRegistry

	// Workers bounds parallel per-file moves in one batch.
	Workers int

	// Summarizer is optional; Summarize fails without one.
	Summarizer Summarizer
}

// Engine is safe for concurrent use.
type Engine struct {
	resolver   *resolve.Resolver
	walker     *triage.Walker
	quarantine *quarantine.Store
	manifests  *manifest.Store
	locks      *LockRegistry
	workers    int
	summarizer Summarizer
}

// New returns an Engine using the given parts.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Resolver == nil:
		return nil, errors.New("engine: resolver is required")
	case opts.Walker == nil:
		return nil, errors.New("engine: walker is required")
	case opts.Quarantine == nil:
		return nil, errors.New("engine: quarantine store is required")
	case opts.Manifests == nil:
		return nil, errors.New("engine: manifest store is required")
	}

	locks := opts.Locks
	if locks == nil {
		var err error
		if locks, err = NewLockRegistry(""); err != nil {
			return nil, err
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = config.DefaultWorkers
	}

	return &Engine{
		resolver:   opts.Resolver,
		walker:     opts.Walker,
		quarantine: opts.Quarantine,
		manifests:  opts.Manifests,
		locks:      locks,
		workers:    workers,
		summarizer: opts.Summarizer,
	}, nil
}

// Open builds an Engine from configuration. The engine's own data
// directories are always excluded from walks.
func Open(cfg *config.Config, summarizer Summarizer) (*Engine, error) {
	resolver, err := resolve.New(cfg.AllowedRoots)
	if err != nil {
		return nil, err
	}

	var reviewSize int64
	if cfg.Classifier.ReviewSize != "" {
		if reviewSize, err = types.ParseSize(cfg.Classifier.ReviewSize); err != nil {
			return nil, fmt.Errorf("classifier.review_size: %w", err)
		}
	}

	classifier, err := classify.New(classify.Options{
		Protected:       cfg.Classifier.Protected,
		InstallerMinAge: cfg.Classifier.InstallerMinAge,
		ReviewSize:      reviewSize,
	})
	if err != nil {
		return nil, err
	}

	plan := tuner.CalculateWithOverrides(tuner.Detect(), cfg.WalkWorkers, cfg.Workers)
	logging.Get("engine").Debug("worker plan", "walk", plan.WalkWorkers, "batch", plan.BatchWorkers)

	exclude := append([]string{}, cfg.Exclude...)
	exclude = append(exclude, cfg.DataDir, cfg.Quarantine.Path, cfg.Manifest.Path)

	walker, err := triage.New(triage.Options{
		Classifier: classifier,
		Exclude:    exclude,
		Workers:    plan.WalkWorkers,
	})
	if err != nil {
		return nil, err
	}

	store, err := quarantine.New(cfg.Quarantine.Path, cfg.FSTimeout)
	if err != nil {
		return nil, err
	}

	manifests, err := manifest.Open(cfg.Manifest.Path, cfg.IndexPath())
	if err != nil {
		return nil, err
	}

	locks, err := NewLockRegistry(cfg.LockDir())
	if err != nil {
		_ = manifests.Close()
		return nil, err
	}

	return New(Options{
		Resolver:   resolver,
		Walker:     walker,
		Quarantine: store,
		Manifests:  manifests,
		Locks:      locks,
		Workers:    plan.BatchWorkers,
		Summarizer: summarizer,
	})
}

// Close releases the manifest index.
func (e *Engine) Close() error {
	return e.manifests.Close()
}

// Resolve canonicalizes a user path under the engine's root policy.
func (e *Engine) Resolve(path string) (string, error) {
	return e.resolver.Resolve(path)
}

// Triage resolves path and classifies every entry beneath it.
func (e *Engine) Triage(ctx context.Context, path string) (*types.TriageResult, error) {
	root, err := e.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	return e.walker.Triage(ctx, root)
}

// List returns manifest ids in creation order.
func (e *Engine) List() ([]string, error) {
	return e.manifests.List()
}

// Summaries returns manifest summaries in creation order.
func (e *Engine) Summaries() ([]manifest.Summary, error) {
	return e.manifests.Summaries()
}

// Show returns the manifest named by ref, which may be LatestRef.
func (e *Engine) Show(ref string) (*manifest.Manifest, error) {
	id, err := e.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	return e.manifests.Get(id)
}

// Summarize triages path and asks the summarizer to describe the files
// that need review.
func (e *Engine) Summarize(ctx context.Context, path string) (string, error) {
	if e.summarizer == nil {
		return "", errors.New("no summarizer configured")
	}
	result, err := e.Triage(ctx, path)
	if err != nil {
		return "", err
	}
	return e.summarizer.Summarize(ctx, result)
}

// resolveRef maps "" and LatestRef to the newest manifest id.
func (e *Engine) resolveRef(ref string) (string, error) {
	if ref != "" && ref != LatestRef {
		return ref, nil
	}
	id, ok, err := e.manifests.Latest()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", types.NewOpError(types.KindNoManifests, "", nil)
	}
	return id, nil
}
