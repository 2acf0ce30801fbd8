// Package resolve turns user-supplied paths into canonical directory roots.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/reclaim/pkg/reclaim/config"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// Resolver canonicalizes paths and enforces the allowed-root policy.
// A zero Resolver allows any existing directory.
type Resolver struct {
	allowed []string
}

// New returns a Resolver limited to the given roots. An empty list allows
// every directory. Roots are expanded and cleaned but need not exist.
func New(allowedRoots []string) (*Resolver, error) {
	r := &Resolver{}
	for _, root := range allowedRoots {
		abs, err := absClean(root)
		if err != nil {
			return nil, fmt.Errorf("allowed root %q: %w", root, err)
		}
		r.allowed = append(r.allowed, abs)
	}
	return r, nil
}

// Resolve expands a leading ~, makes p absolute and cleans it, then checks
// that it names an existing directory inside an allowed root. Symlinks in p
// are resolved so two spellings of one directory map to the same root.
// Failures are *types.OpError values of kind InvalidPath.
func (r *Resolver) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", types.NewOpError(types.KindInvalidPath, p, fmt.Errorf("path is empty"))
	}

	abs, err := absClean(p)
	if err != nil {
		return "", types.NewOpError(types.KindInvalidPath, p, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", types.NewOpError(types.KindInvalidPath, abs, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", types.NewOpError(types.KindInvalidPath, abs, err)
	}
	if !info.IsDir() {
		return "", types.NewOpError(types.KindInvalidPath, abs, fmt.Errorf("not a directory"))
	}

	if !r.allows(resolved) {
		return "", types.NewOpError(types.KindInvalidPath, abs, fmt.Errorf("outside allowed roots"))
	}

	return resolved, nil
}

// Allowed returns the configured allowed roots.
func (r *Resolver) Allowed() []string {
	return append([]string(nil), r.allowed...)
}

func (r *Resolver) allows(p string) bool {
	if len(r.allowed) == 0 {
		return true
	}
	for _, root := range r.allowed {
		candidates := []string{root}
		if resolved, err := filepath.EvalSymlinks(root); err == nil && resolved != root {
			candidates = append(candidates, resolved)
		}
		for _, c := range candidates {
			if Within(c, p) {
				return true
			}
		}
	}
	return false
}

// Within reports whether candidate is root or lies beneath it.
// Both paths must be absolute and clean.
func Within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absClean(p string) (string, error) {
	expanded, err := config.ExpandPath(p)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return filepath.Clean(abs), nil
}
