package output

import (
	"github.com/jamesainslie/reclaim/pkg/reclaim/manifest"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// The view types fix the structured shapes shared by the json and yaml
// formatters. A missing reason or manifest id encodes as null.

type itemView struct {
	Path   string  `json:"path" yaml:"path"`
	Reason *string `json:"reason" yaml:"reason"`
	Size   int64   `json:"size" yaml:"size"`
}

type triageView struct {
	Root        string     `json:"root,omitempty" yaml:"root,omitempty"`
	DryRun      bool       `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	AutoSafe    []itemView `json:"auto_safe" yaml:"auto_safe"`
	NeedsReview []itemView `json:"needs_review" yaml:"needs_review"`
	DoNotTouch  []itemView `json:"do_not_touch" yaml:"do_not_touch"`
}

type actionView struct {
	Success    bool    `json:"success" yaml:"success"`
	Message    string  `json:"message" yaml:"message"`
	ManifestID *string `json:"manifest_id" yaml:"manifest_id"`

	Kind            string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Moved           int      `json:"moved,omitempty" yaml:"moved,omitempty"`
	Failed          int      `json:"failed,omitempty" yaml:"failed,omitempty"`
	Restored        int      `json:"restored,omitempty" yaml:"restored,omitempty"`
	AlreadyRestored int      `json:"already_restored,omitempty" yaml:"already_restored,omitempty"`
	Conflicts       int      `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Bytes           int64    `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Problems        []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

type listView struct {
	Manifests []string           `json:"manifests" yaml:"manifests"`
	Details   []manifest.Summary `json:"details,omitempty" yaml:"details,omitempty"`
}

type verifyView struct {
	OK        bool     `json:"ok" yaml:"ok"`
	Manifests []string `json:"manifests" yaml:"manifests"`
	Checked   int      `json:"checked" yaml:"checked"`
	Missing   []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	Corrupt   []string `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
	Errors    []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Orphans   []string `json:"orphans,omitempty" yaml:"orphans,omitempty"`
}

type summaryView struct {
	Success bool   `json:"success" yaml:"success"`
	Summary string `json:"summary" yaml:"summary"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// view returns the structured value encoded for r.
func view(r *Report) any {
	switch r.Kind {
	case KindTriage:
		return triageView{
			Root:        r.Triage.Root,
			DryRun:      r.DryRun,
			AutoSafe:    items(r.Triage.AutoSafe),
			NeedsReview: items(r.Triage.NeedsReview),
			DoNotTouch:  items(r.Triage.DoNotTouch),
		}
	case KindAction:
		a := r.Action
		v := actionView{
			Success:         a.Success,
			Message:         a.Message,
			Kind:            a.Kind,
			Moved:           a.Moved,
			Failed:          a.Failed,
			Restored:        a.Restored,
			AlreadyRestored: a.AlreadyRestored,
			Conflicts:       a.Conflicts,
			Bytes:           a.Bytes,
			Problems:        a.Problems,
		}
		if a.ManifestID != "" {
			id := a.ManifestID
			v.ManifestID = &id
		}
		return v
	case KindList:
		v := listView{Manifests: make([]string, 0, len(r.Manifests)), Details: r.Manifests}
		for _, s := range r.Manifests {
			v.Manifests = append(v.Manifests, s.ID)
		}
		return v
	case KindManifest:
		return r.Manifest
	case KindVerify:
		v := r.Verify
		return verifyView{
			OK:        v.OK(),
			Manifests: v.Manifests,
			Checked:   v.Checked,
			Missing:   v.Missing,
			Corrupt:   v.Corrupt,
			Errors:    v.Errors,
			Orphans:   v.Orphans,
		}
	case KindSummary:
		return summaryView{Success: r.SummaryError == "", Summary: r.Summary, Error: r.SummaryError}
	}
	return nil
}

func items(in []types.FileItem) []itemView {
	out := make([]itemView, len(in))
	for i, item := range in {
		out[i] = itemView{Path: item.Path, Size: item.Size}
		if item.Reason != "" {
			reason := item.Reason
			out[i].Reason = &reason
		}
	}
	return out
}
