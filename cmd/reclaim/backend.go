package main

import (
	"context"

	"github.com/spf13/viper"

	"github.com/jamesainslie/reclaim/pkg/client"
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/summarize"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// backend runs engine operations either in-process or through reclaimd.
type backend interface {
	Triage(ctx context.Context, path string, fresh bool) (*types.TriageResult, error)
	Clean(ctx context.Context, path string) (engine.Result, error)
	Restore(ctx context.Context, ref string) (engine.Result, error)
	Summaries(ctx context.Context) ([]manifest.Summary, error)
	Show(ctx context.Context, ref string) (*manifest.Manifest, error)
	Verify(ctx context.Context, ref string) (*engine.VerifyReport, error)
	Summarize(ctx context.Context, path string) (string, error)
	Daemon() bool
	Close() error
}

// openBackend connects to a running reclaimd unless --no-daemon is set,
// and otherwise opens the engine in-process.
func openBackend(ctx context.Context) (backend, error) {
	log := logging.Get("cli")

	if !viper.GetBool("no_daemon") && client.IsDaemonRunning(appCfg.PIDPath()) {
		c, err := client.ConnectWithContext(ctx, appCfg.SocketPath())
		if err == nil {
			printVerbose("using daemon at %s", appCfg.SocketPath())
			return &daemonBackend{c: c}, nil
		}
		log.Warn("daemon unreachable, running in-process", "error", err)
		printVerbose("daemon unreachable: %v", err)
	}

	e, err := engine.Open(appCfg, summarize.FromConfig(appCfg.Summarize))
	if err != nil {
		return nil, err
	}
	return &localBackend{e: e}, nil
}

type localBackend struct {
	e *engine.Engine
}

func (b *localBackend) Triage(ctx context.Context, path string, _ bool) (*types.TriageResult, error) {
	return b.e.Triage(ctx, path)
}

func (b *localBackend) Clean(ctx context.Context, path string) (engine.Result, error) {
	return b.e.Clean(ctx, path)
}

func (b *localBackend) Restore(ctx context.Context, ref string) (engine.Result, error) {
	return b.e.Restore(ctx, ref)
}

func (b *localBackend) Summaries(context.Context) ([]manifest.Summary, error) {
	return b.e.Summaries()
}

func (b *localBackend) Show(_ context.Context, ref string) (*manifest.Manifest, error) {
	return b.e.Show(ref)
}

func (b *localBackend) Verify(ctx context.Context, ref string) (*engine.VerifyReport, error) {
	return b.e.Verify(ctx, ref)
}

func (b *localBackend) Summarize(ctx context.Context, path string) (string, error) {
	return b.e.Summarize(ctx, path)
}

func (b *localBackend) Daemon() bool { return false }

func (b *localBackend) Close() error { return b.e.Close() }

type daemonBackend struct {
	c *client.Client
}

func (b *daemonBackend) Triage(ctx context.Context, path string, fresh bool) (*types.TriageResult, error) {
	result, cached, err := b.c.Triage(ctx, path, fresh)
	if err == nil && cached {
		printVerbose("triage served from daemon cache")
	}
	return result, err
}

func (b *daemonBackend) Clean(ctx context.Context, path string) (engine.Result, error) {
	return b.c.Clean(ctx, path)
}

func (b *daemonBackend) Restore(ctx context.Context, ref string) (engine.Result, error) {
	return b.c.Restore(ctx, ref)
}

func (b *daemonBackend) Summaries(ctx context.Context) ([]manifest.Summary, error) {
	return b.c.Summaries(ctx)
}

func (b *daemonBackend) Show(ctx context.Context, ref string) (*manifest.Manifest, error) {
	return b.c.Show(ctx, ref)
}

func (b *daemonBackend) Verify(ctx context.Context, ref string) (*engine.VerifyReport, error) {
	return b.c.Verify(ctx, ref)
}

func (b *daemonBackend) Summarize(ctx context.Context, path string) (string, error) {
	return b.c.Summarize(ctx, path)
}

func (b *daemonBackend) Daemon() bool { return true }

func (b *daemonBackend) Close() error { return b.c.Close() }
