// Package quarantine relocates files into a holding area and moves them back.
//
// Files are never deleted. A quarantined file lives at
// <dir>/<manifest id>/<path relative to the source root>, so batches never
// collide and a whole batch can be inspected with ordinary tools.
package quarantine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/resolve"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// DefaultTimeout bounds each filesystem operation when none is configured.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is returned when a filesystem operation exceeds its bound.
	// A timed-out quarantine never leaves the file moved: either the move
	// had not started, or it is undone once it finishes.
	ErrTimeout = errors.New("filesystem operation timed out")

	// ErrMissing is returned when a quarantined file no longer exists.
	ErrMissing = errors.New("quarantined file missing")

	// ErrCorrupt is returned when quarantined bytes no longer match the
	// recorded checksum.
	ErrCorrupt = errors.New("quarantined file checksum mismatch")

	// ErrUnsupported is returned for entries that cannot be quarantined,
	// such as directories and devices.
	ErrUnsupported = errors.New("unsupported file type")
)

// Moved describes a successful quarantine.
type Moved struct {
	QuarantinePath string
	Checksum       string
	Size           int64
	CrossDevice    bool
}

// Store owns the quarantine directory.
type Store struct {
	dir     string
	timeout time.Duration
}

// New creates the quarantine directory if needed.
func New(dir string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve quarantine dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create quarantine dir: %w", err)
	}
	return &Store{dir: abs, timeout: timeout}, nil
}

// Dir returns the quarantine directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns where original, found under sourceRoot, is stored for
// the given manifest.
func (s *Store) PathFor(manifestID, sourceRoot, original string) (string, error) {
	if manifestID == "" || strings.ContainsRune(manifestID, filepath.Separator) || manifestID == "." || manifestID == ".." {
		return "", fmt.Errorf("invalid manifest id %q", manifestID)
	}
	rel, err := filepath.Rel(sourceRoot, original)
	if err != nil || rel == "." || !resolve.Within(sourceRoot, original) {
		return "", fmt.Errorf("%s is not under %s", original, sourceRoot)
	}
	return filepath.Join(s.dir, manifestID, rel), nil
}

// Quarantine moves original into the batch directory of manifestID.
// A same-device move is a rename. Across devices the file is copied,
// synced and verified before the original is removed.
func (s *Store) Quarantine(ctx context.Context, manifestID, sourceRoot, original string) (Moved, error) {
	log := logging.Get("quarantine")

	dest, err := s.PathFor(manifestID, sourceRoot, original)
	if err != nil {
		return Moved{}, err
	}

	var moved Moved
	err = s.bounded(ctx, func(g *commitGate) error {
		info, err := os.Lstat(original)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && info.Mode()&fs.ModeSymlink == 0 {
			return fmt.Errorf("%w: %s", ErrUnsupported, info.Mode().Type())
		}

		sum, err := Checksum(original)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			return fmt.Errorf("create batch dir: %w", err)
		}
		if _, err := os.Lstat(dest); err == nil {
			return fmt.Errorf("quarantine slot already used: %s", dest)
		}

		if !g.begin() {
			s.pruneEmpty(filepath.Dir(dest))
			return ErrTimeout
		}
		cross, err := move(original, dest, sum)
		if g.finish() {
			if err == nil {
				s.undoLate(original, dest, sum)
			}
			return ErrTimeout
		}
		if err != nil {
			return err
		}

		moved = Moved{QuarantinePath: dest, Checksum: sum, Size: info.Size(), CrossDevice: cross}
		return nil
	})
	if err != nil {
		log.Warn("quarantine failed", "path", original, "error", err)
		return Moved{}, err
	}

	log.Debug("quarantined", "path", original, "dest", dest, "cross_device", moved.CrossDevice)
	return moved, nil
}

// Restore moves a quarantined file back to originalPath.
//
// When originalPath is occupied by a file whose checksum equals checksum,
// the quarantined copy is redundant: it is removed and Restore succeeds.
// Any other occupant yields a RestoreConflict and both copies stay intact.
func (s *Store) Restore(ctx context.Context, quarantinePath, originalPath, checksum string) error {
	log := logging.Get("quarantine")

	if !resolve.Within(s.dir, quarantinePath) {
		return fmt.Errorf("%s is outside the quarantine directory", quarantinePath)
	}

	err := s.bounded(ctx, func(g *commitGate) error {
		if _, err := os.Lstat(quarantinePath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			// Already back in place from an earlier, unrecorded restore.
			if sum, cerr := Checksum(originalPath); cerr == nil && sum == checksum {
				return nil
			}
			return fmt.Errorf("%w: %s", ErrMissing, quarantinePath)
		}

		if _, err := os.Lstat(originalPath); err == nil {
			occupant, err := Checksum(originalPath)
			if err != nil || occupant != checksum {
				return types.NewOpError(types.KindRestoreConflict, originalPath, err)
			}
			if !g.begin() {
				return ErrTimeout
			}
			defer g.finish()
			if err := os.Remove(quarantinePath); err != nil {
				return fmt.Errorf("remove redundant copy: %w", err)
			}
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(originalPath), 0o755); err != nil {
			return fmt.Errorf("recreate parent: %w", err)
		}

		if !g.begin() {
			return ErrTimeout
		}
		// A restore that lands after the caller gave up is not undone. The
		// entry stays Moved and the next restore finds the file in place.
		defer g.finish()
		_, err := move(quarantinePath, originalPath, checksum)
		return err
	})
	if err != nil {
		log.Warn("restore failed", "path", originalPath, "error", err)
		return err
	}

	s.pruneEmpty(filepath.Dir(quarantinePath))
	log.Debug("restored", "path", originalPath)
	return nil
}

// Verify checks that quarantinePath still holds the bytes recorded by checksum.
func (s *Store) Verify(ctx context.Context, quarantinePath, checksum string) error {
	return s.bounded(ctx, func(*commitGate) error {
		sum, err := Checksum(quarantinePath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrMissing, quarantinePath)
			}
			return err
		}
		if sum != checksum {
			return fmt.Errorf("%w: %s", ErrCorrupt, quarantinePath)
		}
		return nil
	})
}

// Batches lists the manifest ids that have a batch directory.
func (s *Store) Batches() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read quarantine dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// BatchFiles lists every file quarantined under manifestID.
func (s *Store) BatchFiles(manifestID string) ([]string, error) {
	var files []string
	root := filepath.Join(s.dir, manifestID)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Commit states of a bounded operation.
const (
	opRunning int32 = iota
	opCommitting
	opDone
	opAbandoned
	opLate
)

// commitGate settles whether a bounded operation's side effect counts.
// The operation calls begin before changing anything and finish after;
// the waiting caller calls abandon when it stops waiting.
type commitGate struct {
	state atomic.Int32
}

// begin reports whether the operation may make its change.
func (g *commitGate) begin() bool {
	return g.state.CompareAndSwap(opRunning, opCommitting)
}

// finish reports whether the caller gave up while the change was in
// progress. A late change must be undone by the operation itself.
func (g *commitGate) finish() (late bool) {
	return !g.state.CompareAndSwap(opCommitting, opDone)
}

// abandon gives up on the operation. It returns false when the change
// already finished, in which case the operation's result stands.
func (g *commitGate) abandon() bool {
	if g.state.CompareAndSwap(opRunning, opAbandoned) {
		return true
	}
	return g.state.CompareAndSwap(opCommitting, opLate)
}

// bounded runs fn with the store's timeout. A call that outlives the bound
// is abandoned and reported as ErrTimeout, unless its change completed
// first.
func (s *Store) bounded(ctx context.Context, fn func(*commitGate) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return err
	}

	g := &commitGate{}
	done := make(chan error, 1)
	go func() { done <- fn(g) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if !g.abandon() {
			return <-done
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// undoLate moves a file back after a quarantine that finished past its
// deadline. The caller has already recorded the file as Failed.
func (s *Store) undoLate(original, dest, checksum string) {
	log := logging.Get("quarantine")

	if _, err := os.Lstat(original); err == nil {
		log.Error("late quarantine not undone, original path reused", "path", original, "quarantine", dest)
		return
	}
	if _, err := move(dest, original, checksum); err != nil {
		log.Error("late quarantine not undone", "path", original, "quarantine", dest, "error", err)
		return
	}
	s.pruneEmpty(filepath.Dir(dest))
	log.Warn("late quarantine undone", "path", original)
}

// pruneEmpty removes empty batch subdirectories up to the quarantine dir.
func (s *Store) pruneEmpty(dir string) {
	for dir != s.dir && resolve.Within(s.dir, dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// move renames src to dst, falling back to copy, verify and remove when
// they are on different devices. It reports whether the fallback was used.
func move(src, dst, checksum string) (bool, error) {
	err := os.Rename(src, dst)
	if err == nil {
		syncDir(filepath.Dir(dst))
		return false, nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return false, err
	}

	if err := copyVerified(src, dst, checksum); err != nil {
		return true, err
	}
	if err := os.Remove(src); err != nil {
		return true, fmt.Errorf("remove source after copy: %w", err)
	}
	return true, nil
}

// syncDir flushes a directory entry change. Errors are ignored because
// some filesystems do not support fsync on directories.
func syncDir(dir string) {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return
	}
	_ = unix.Fsync(fd)
	_ = unix.Close(fd)
}
