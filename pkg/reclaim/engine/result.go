package engine

import (
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Result is the outcome of a clean or restore. Success is false only when
// the operation could not run at all or, for a restore, when every
// restorable entry failed.
type Result struct {
	Success    bool   `json:"success" yaml:"success"`
	Message    string `json:"message" yaml:"message"`
	ManifestID string `json:"manifest_id,omitempty" yaml:"manifest_id,omitempty"`

	// Kind names the error kind when Success is false because of one.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	Moved           int   `json:"moved,omitempty" yaml:"moved,omitempty"`
	Failed          int   `json:"failed,omitempty" yaml:"failed,omitempty"`
	Restored        int   `json:"restored,omitempty" yaml:"restored,omitempty"`
	AlreadyRestored int   `json:"already_restored,omitempty" yaml:"already_restored,omitempty"`
	Conflicts       int   `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Bytes           int64 `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// Problems lists per-file failures as "path: reason".
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// failure converts a precondition error into an unsuccessful Result.
func failure(err error) Result {
	r := Result{Success: false, Message: err.Error()}
	if kind := types.KindOf(err); kind != types.KindUnknown {
		r.Kind = kind.String()
	}
	return r
}
