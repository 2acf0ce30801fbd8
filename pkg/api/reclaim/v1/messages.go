// Package reclaimv1 defines the reclaimd gRPC service and its messages.
//
// Messages are plain Go structs carried by a JSON codec registered under
// the "json" content subtype, so the wire format matches the command-line
// JSON output.
package reclaimv1

import (
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// FileItem is one classified entry. A nil Reason means none.
type FileItem struct {
	Path   string  `json:"path"`
	Reason *string `json:"reason"`
	Size   int64   `json:"size,omitempty"`
}

type TriageRequest struct {
	Path string `json:"path"`
	// Fresh bypasses the daemon's triage cache.
	Fresh bool `json:"fresh,omitempty"`
}

type TriageResponse struct {
	Root        string     `json:"root"`
	AutoSafe    []FileItem `json:"auto_safe"`
	NeedsReview []FileItem `json:"needs_review"`
	DoNotTouch  []FileItem `json:"do_not_touch"`
	// Cached reports whether the result was served from the cache.
	Cached bool `json:"cached,omitempty"`
}

type CleanRequest struct {
	Path string `json:"path"`
}

// ActionResponse is the outcome of a clean or restore.
type ActionResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	ManifestID *string `json:"manifest_id"`

	Kind            string   `json:"kind,omitempty"`
	Moved           int      `json:"moved,omitempty"`
	Failed          int      `json:"failed,omitempty"`
	Restored        int      `json:"restored,omitempty"`
	AlreadyRestored int      `json:"already_restored,omitempty"`
	Conflicts       int      `json:"conflicts,omitempty"`
	Bytes           int64    `json:"bytes,omitempty"`
	Problems        []string `json:"problems,omitempty"`
}

type ListRequest struct{}

type ListResponse struct {
	Manifests []string           `json:"manifests"`
	Details   []manifest.Summary `json:"details,omitempty"`
}

// RestoreRequest names a manifest id or "latest".
type RestoreRequest struct {
	ID string `json:"id"`
}

type ShowRequest struct {
	ID string `json:"id"`
}

type ShowResponse struct {
	Manifest *manifest.Manifest `json:"manifest"`
}

// VerifyRequest checks one manifest, or every manifest when ID is empty.
type VerifyRequest struct {
	ID string `json:"id,omitempty"`
}

type VerifyResponse struct {
	Report *engine.VerifyReport `json:"report"`
}

type SummarizeRequest struct {
	Path string `json:"path"`
}

type SummarizeResponse struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

type StatusRequest struct{}

type StatusResponse struct {
	PID           int      `json:"pid"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	WatchedRoots  []string `json:"watched_roots"`
	CachedRoots   int      `json:"cached_roots"`
	Subscribers   int      `json:"subscribers"`
}

type ShutdownRequest struct{}

type ShutdownResponse struct{}

// WatchRequest subscribes to changes under Root.
type WatchRequest struct {
	Root string `json:"root"`
}

// ChangeEvent reports a filesystem change under a watched root.
type ChangeEvent struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// FromTriage converts a triage result to its wire form.
func FromTriage(r *types.TriageResult) *TriageResponse {
	return &TriageResponse{
		Root:        r.Root,
		AutoSafe:    fromItems(r.AutoSafe),
		NeedsReview: fromItems(r.NeedsReview),
		DoNotTouch:  fromItems(r.DoNotTouch),
	}
}

// ToTriage converts a wire triage result back, restoring each verdict
// from its bucket.
func (r *TriageResponse) ToTriage() *types.TriageResult {
	return &types.TriageResult{
		Root:        r.Root,
		AutoSafe:    toItems(r.AutoSafe, types.AutoSafe),
		NeedsReview: toItems(r.NeedsReview, types.NeedsReview),
		DoNotTouch:  toItems(r.DoNotTouch, types.DoNotTouch),
	}
}

func fromItems(in []types.FileItem) []FileItem {
	out := make([]FileItem, len(in))
	for i, item := range in {
		out[i] = FileItem{Path: item.Path, Size: item.Size}
		if item.Reason != "" {
			reason := item.Reason
			out[i].Reason = &reason
		}
	}
	return out
}

func toItems(in []FileItem, v types.Verdict) []types.FileItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.FileItem, len(in))
	for i, item := range in {
		out[i] = types.FileItem{Path: item.Path, Verdict: v, Size: item.Size}
		if item.Reason != nil {
			out[i].Reason = *item.Reason
		}
	}
	return out
}

// FromResult converts an engine result to its wire form.
func FromResult(r engine.Result) *ActionResponse {
	resp := &ActionResponse{
		Success:         r.Success,
		Message:         r.Message,
		Kind:            r.Kind,
		Moved:           r.Moved,
		Failed:          r.Failed,
		Restored:        r.Restored,
		AlreadyRestored: r.AlreadyRestored,
		Conflicts:       r.Conflicts,
		Bytes:           r.Bytes,
		Problems:        r.Problems,
	}
	if r.ManifestID != "" {
		id := r.ManifestID
		resp.ManifestID = &id
	}
	return resp
}

// ToResult converts a wire action response back to an engine result.
func (r *ActionResponse) ToResult() engine.Result {
	res := engine.Result{
		Success:         r.Success,
		Message:         r.Message,
		Kind:            r.Kind,
		Moved:           r.Moved,
		Failed:          r.Failed,
		Restored:        r.Restored,
		AlreadyRestored: r.AlreadyRestored,
		Conflicts:       r.Conflicts,
		Bytes:           r.Bytes,
		Problems:        r.Problems,
	}
	if r.ManifestID != nil {
		res.ManifestID = *r.ManifestID
	}
	return res
}
