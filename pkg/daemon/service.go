package daemon

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	reclaimv1 "github.com/jamesainslie/reclaim/pkg/api/reclaim/v1"
	"github.com/jamesainslie/reclaim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/reclaim/pkg/daemon/watcher"
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
)

// Service implements the ReclaimDaemon gRPC service over one engine, so
// every client shares the engine's root-lock registry.
type Service struct {
	reclaimv1.UnimplementedReclaimDaemonServer

	engine      *engine.Engine
	cache       *triageCache
	watcher     *watcher.Watcher
	broadcaster *broadcaster.Broadcaster
	startTime   time.Time
	shutdown    func()
}

// NewService creates a service backed by e. Cached triage results are
// served for at most cacheTTL; zero disables expiry.
func NewService(e *engine.Engine, cacheTTL time.Duration) *Service {
	return &Service{
		engine:    e,
		cache:     newTriageCache(cacheTTL),
		startTime: time.Now(),
	}
}

// SetWatcher enables triage caching. Without a watcher every triage walks
// the tree.
func (s *Service) SetWatcher(w *watcher.Watcher) {
	s.watcher = w
}

// SetBroadcaster enables the Watch stream.
func (s *Service) SetBroadcaster(b *broadcaster.Broadcaster) {
	s.broadcaster = b
}

// SetShutdown registers the function a Shutdown request runs.
func (s *Service) SetShutdown(fn func()) {
	s.shutdown = fn
}

// OnChange is the watcher callback; it drops cached triage results the
// change may affect.
func (s *Service) OnChange(path string, op fsnotify.Op) {
	if n := s.cache.invalidate(path); n > 0 {
		logging.Get("daemon").Debug("triage cache invalidated", "path", path, "op", op.String(), "roots", n)
	}
}

// Triage classifies the tree under the requested path, serving a cached
// result when the tree is watched and unchanged.
func (s *Service) Triage(ctx context.Context, req *reclaimv1.TriageRequest) (*reclaimv1.TriageResponse, error) {
	root, err := s.engine.Resolve(req.Path)
	if err != nil {
		return nil, reclaimv1.ToStatus(err)
	}

	if !req.Fresh {
		if cached, ok := s.cache.get(root); ok {
			resp := reclaimv1.FromTriage(cached)
			resp.Cached = true
			return resp, nil
		}
	}

	// Watch before walking so changes made during the walk are seen.
	watched := s.watch(root)
	gen := s.cache.generation()

	result, err := s.engine.Triage(ctx, root)
	if err != nil {
		return nil, reclaimv1.ToStatus(err)
	}
	if watched {
		s.cache.put(root, result, gen)
	}
	return reclaimv1.FromTriage(result), nil
}

// watch starts watching root and reports whether results under it may be
// cached.
func (s *Service) watch(root string) bool {
	if s.watcher == nil {
		return false
	}
	if err := s.watcher.Watch(root); err != nil {
		logging.Get("daemon").Warn("cannot watch root, triage will not be cached", "root", root, "error", err)
		return false
	}
	return true
}

// Clean quarantines the AutoSafe files under the requested path.
// Precondition failures are reported in the response body, as the
// engine reports them.
func (s *Service) Clean(ctx context.Context, req *reclaimv1.CleanRequest) (*reclaimv1.ActionResponse, error) {
	res, err := s.engine.Clean(ctx, req.Path)
	if root, rerr := s.engine.Resolve(req.Path); rerr == nil {
		s.cache.invalidate(root)
	}
	return actionResponse(res, err)
}

// Restore undoes the manifest named by the request, or the newest one.
func (s *Service) Restore(ctx context.Context, req *reclaimv1.RestoreRequest) (*reclaimv1.ActionResponse, error) {
	res, err := s.engine.Restore(ctx, req.ID)
	if res.ManifestID != "" {
		if m, merr := s.engine.Show(res.ManifestID); merr == nil {
			s.cache.invalidate(m.SourceRoot)
		}
	}
	return actionResponse(res, err)
}

// actionResponse keeps kinded failures in the body and turns everything
// else, such as cancellation, into a status error.
func actionResponse(res engine.Result, err error) (*reclaimv1.ActionResponse, error) {
	if err != nil && res.Kind == "" {
		return nil, reclaimv1.ToStatus(err)
	}
	return reclaimv1.FromResult(res), nil
}

// List returns manifest ids in creation order with their summaries.
func (s *Service) List(_ context.Context, _ *reclaimv1.ListRequest) (*reclaimv1.ListResponse, error) {
	summaries, err := s.engine.Summaries()
	if err != nil {
		return nil, reclaimv1.ToStatus(err)
	}
	resp := &reclaimv1.ListResponse{
		Manifests: make([]string, len(summaries)),
		Details:   summaries,
	}
	for i, sum := range summaries {
		resp.Manifests[i] = sum.ID
	}
	return resp, nil
}

// Show returns one manifest.
func (s *Service) Show(_ context.Context, req *reclaimv1.ShowRequest) (*reclaimv1.ShowResponse, error) {
	m, err := s.engine.Show(req.ID)
	if err != nil {
		return nil, reclaimv1.ToStatus(err)
	}
	return &reclaimv1.ShowResponse{Manifest: m}, nil
}

// Verify checks quarantined data against its manifests.
func (s *Service) Verify(ctx context.Context, req *reclaimv1.VerifyRequest) (*reclaimv1.VerifyResponse, error) {
	report, err := s.engine.Verify(ctx, req.ID)
	if err != nil {
		return nil, reclaimv1.ToStatus(err)
	}
	return &reclaimv1.VerifyResponse{Report: report}, nil
}

// Summarize reports summarizer failures in the response body.
func (s *Service) Summarize(ctx context.Context, req *reclaimv1.SummarizeRequest) (*reclaimv1.SummarizeResponse, error) {
	summary, err := s.engine.Summarize(ctx, req.Path)
	if err != nil {
		logging.Get("daemon").Warn("summarize failed", "path", req.Path, "error", err)
		return &reclaimv1.SummarizeResponse{Success: false, Error: err.Error()}, nil
	}
	return &reclaimv1.SummarizeResponse{Success: true, Summary: summary}, nil
}

// Status returns daemon health information.
func (s *Service) Status(_ context.Context, _ *reclaimv1.StatusRequest) (*reclaimv1.StatusResponse, error) {
	resp := &reclaimv1.StatusResponse{
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		WatchedRoots:  []string{},
		CachedRoots:   s.cache.len(),
	}
	if s.watcher != nil {
		resp.WatchedRoots = s.watcher.Roots()
		sort.Strings(resp.WatchedRoots)
	}
	if s.broadcaster != nil {
		resp.Subscribers = s.broadcaster.SubscriberCount()
	}
	return resp, nil
}

// Shutdown stops the daemon after the response is sent.
func (s *Service) Shutdown(_ context.Context, _ *reclaimv1.ShutdownRequest) (*reclaimv1.ShutdownResponse, error) {
	logging.Get("daemon").Info("shutdown requested")
	if s.shutdown != nil {
		go s.shutdown()
	}
	return &reclaimv1.ShutdownResponse{}, nil
}

// Watch streams filesystem changes under the requested root until the
// client goes away or the daemon stops.
func (s *Service) Watch(req *reclaimv1.WatchRequest, stream grpc.ServerStreamingServer[reclaimv1.ChangeEvent]) error {
	if s.broadcaster == nil || s.watcher == nil {
		return status.Error(codes.Unavailable, "file watching not available")
	}

	root, err := s.engine.Resolve(req.Root)
	if err != nil {
		return reclaimv1.ToStatus(err)
	}
	if err := s.watcher.Watch(root); err != nil {
		return status.Errorf(codes.Internal, "watch %s: %v", root, err)
	}

	sub, err := s.broadcaster.Subscribe(root, nil)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer s.broadcaster.Unsubscribe(sub.ID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := stream.Send(&reclaimv1.ChangeEvent{
				Type: event.Type.String(),
				Path: event.Path,
			}); err != nil {
				return err
			}
		}
	}
}
