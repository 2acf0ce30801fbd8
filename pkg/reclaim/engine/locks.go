package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/jamesainslie/reclaim/pkg/reclaim/resolve"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// LockRegistry grants exclusive, non-blocking ownership of source roots.
// A root conflicts with itself and with every ancestor and descendant, so
// operations on overlapping trees never run together.
//
// Ownership is tracked in process and, when a lock directory is set, with
// flocks so separate processes exclude each other too: an exclusive flock
// on the root's lock file and a shared flock on each ancestor's.
type LockRegistry struct {
	dir string

	mu   sync.Mutex
	held map[string][]*os.File
}

// NewLockRegistry returns a registry. An empty dir disables cross-process
// locking.
func NewLockRegistry(dir string) (*LockRegistry, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}
	return &LockRegistry{dir: dir, held: make(map[string][]*os.File)}, nil
}

// Acquire takes the lock for root or fails immediately with
// OperationInProgress. The returned func releases it and is safe to call
// more than once.
func (r *LockRegistry) Acquire(root string) (release func(), err error) {
	root = filepath.Clean(root)

	r.mu.Lock()
	defer r.mu.Unlock()

	for h := range r.held {
		if resolve.Within(h, root) || resolve.Within(root, h) {
			return nil, types.NewOpError(types.KindOperationInProgress, root, nil)
		}
	}

	var files []*os.File
	if r.dir != "" {
		files, err = r.flockTree(root)
		if err != nil {
			return nil, err
		}
	}
	r.held[root] = files

	var once sync.Once
	return func() { once.Do(func() { r.release(root) }) }, nil
}

// Held reports whether root itself is locked by this registry.
func (r *LockRegistry) Held(root string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[filepath.Clean(root)]
	return ok
}

func (r *LockRegistry) release(root string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	files, ok := r.held[root]
	if !ok {
		return
	}
	delete(r.held, root)
	unlockAll(files)
}

// flockTree locks root exclusively and its ancestors shared. Any held
// overlapping root makes one of those flocks fail.
func (r *LockRegistry) flockTree(root string) ([]*os.File, error) {
	f, err := r.flock(root, unix.LOCK_EX)
	if err != nil {
		return nil, err
	}
	files := []*os.File{f}

	for dir := root; ; {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent

		f, err := r.flock(dir, unix.LOCK_SH)
		if err != nil {
			unlockAll(files)
			if types.KindOf(err) == types.KindOperationInProgress {
				return nil, types.NewOpError(types.KindOperationInProgress, root, nil)
			}
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (r *LockRegistry) flock(root string, how int) (*os.File, error) {
	sum := sha256.Sum256([]byte(root))
	path := filepath.Join(r.dir, hex.EncodeToString(sum[:8])+".lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, types.NewOpError(types.KindOperationInProgress, root, nil)
		}
		return nil, fmt.Errorf("lock %s: %w", root, err)
	}

	if how == unix.LOCK_EX {
		// Record the owner for humans inspecting the lock dir.
		_ = f.Truncate(0)
		_, _ = fmt.Fprintf(f, "%d %s\n", os.Getpid(), root)
	}
	return f, nil
}

func unlockAll(files []*os.File) {
	for _, f := range files {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}
}
