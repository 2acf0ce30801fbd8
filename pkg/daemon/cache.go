package daemon

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// triageCache holds the last triage result per resolved root. Results
// are dropped when the watcher reports a change beneath their root, when
// a clean or restore touches it, or once they are older than ttl.
//
// gen advances on every invalidation; a result computed across an
// invalidation is discarded instead of cached.
type triageCache struct {
	mu      sync.RWMutex
	results map[string]cachedTriage
	gen     uint64
	ttl     time.Duration
	now     func() time.Time
}

type cachedTriage struct {
	result *types.TriageResult
	at     time.Time
}

// newTriageCache returns a cache whose entries expire after ttl. A zero
// ttl keeps them until invalidated.
func newTriageCache(ttl time.Duration) *triageCache {
	return &triageCache{
		results: make(map[string]cachedTriage),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *triageCache) get(root string) (*types.TriageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.results[root]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.at) >= c.ttl {
		delete(c.results, root)
		return nil, false
	}
	return entry.result, true
}

func (c *triageCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// put stores r unless an invalidation happened since gen was read.
func (c *triageCache) put(root string, r *types.TriageResult, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.results[root] = cachedTriage{result: r, at: c.now()}
	return true
}

// invalidate drops every cached root that contains path or lies beneath
// it, and returns how many were dropped.
func (c *triageCache) invalidate(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	dropped := 0
	for root := range c.results {
		if within(path, root) || within(root, path) {
			delete(c.results, root)
			dropped++
		}
	}
	return dropped
}

func (c *triageCache) roots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.results))
	for root := range c.results {
		out = append(out, root)
	}
	return out
}

func (c *triageCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// within reports whether path equals dir or lies beneath it.
func within(path, dir string) bool {
	if path == dir {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SkipUnder returns a predicate matching dirs and everything beneath them.
// Empty entries are ignored.
func SkipUnder(dirs ...string) func(string) bool {
	var keep []string
	for _, d := range dirs {
		if d != "" {
			keep = append(keep, filepath.Clean(d))
		}
	}
	return func(path string) bool {
		for _, d := range keep {
			if within(path, d) {
				return true
			}
		}
		return false
	}
}
