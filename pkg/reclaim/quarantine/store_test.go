package quarantine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

const testID = "0190f5a2-7c1e-7000-8000-000000000001"

func setupStore(t *testing.T) (*Store, string) {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	s, err := New(filepath.Join(base, "quarantine"), time.Second)
	require.NoError(t, err)

	src := filepath.Join(base, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	return s, src
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestQuarantineRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	original := filepath.Join(src, "nested", "a.tmp")
	writeFile(t, original, "payload")
	before, err := Checksum(original)
	require.NoError(t, err)

	moved, err := s.Quarantine(context.Background(), testID, src, original)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(s.Dir(), testID, "nested", "a.tmp"), moved.QuarantinePath)
	assert.Equal(t, before, moved.Checksum)
	assert.Equal(t, int64(7), moved.Size)
	assert.False(t, moved.CrossDevice)
	assert.NoFileExists(t, original)
	assert.FileExists(t, moved.QuarantinePath)

	require.NoError(t, s.Verify(context.Background(), moved.QuarantinePath, moved.Checksum))

	// The parent is recreated on restore.
	require.NoError(t, os.Remove(filepath.Join(src, "nested")))
	require.NoError(t, s.Restore(context.Background(), moved.QuarantinePath, original, moved.Checksum))

	after, err := Checksum(original)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, moved.QuarantinePath)

	// Empty batch directories are pruned.
	_, err = os.Stat(filepath.Join(s.Dir(), testID))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestQuarantine_Symlink(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	writeFile(t, filepath.Join(src, "target.txt"), "t")
	link := filepath.Join(src, "link.tmp")
	require.NoError(t, os.Symlink("target.txt", link))

	moved, err := s.Quarantine(context.Background(), testID, src, link)
	require.NoError(t, err)

	got, err := os.Readlink(moved.QuarantinePath)
	require.NoError(t, err)
	assert.Equal(t, "target.txt", got)
	assert.FileExists(t, filepath.Join(src, "target.txt"))
}

func TestQuarantine_Rejects(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	dir := filepath.Join(src, "dir")
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := s.Quarantine(context.Background(), testID, src, dir)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = s.Quarantine(context.Background(), testID, src, filepath.Join(src, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Quarantine(context.Background(), testID, src, "/etc/hosts")
	assert.Error(t, err)

	_, err = s.Quarantine(context.Background(), "../escape", src, filepath.Join(src, "x"))
	assert.Error(t, err)
}

func TestRestore_Conflict(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	original := filepath.Join(src, "a.tmp")
	writeFile(t, original, "old")

	moved, err := s.Quarantine(context.Background(), testID, src, original)
	require.NoError(t, err)

	writeFile(t, original, "new occupant")

	err = s.Restore(context.Background(), moved.QuarantinePath, original, moved.Checksum)
	assert.ErrorIs(t, err, types.ErrRestoreConflict)

	// Both copies are untouched.
	data, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "new occupant", string(data))
	data, err = os.ReadFile(moved.QuarantinePath)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestRestore_IdenticalOccupant(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	original := filepath.Join(src, "a.tmp")
	writeFile(t, original, "same")

	moved, err := s.Quarantine(context.Background(), testID, src, original)
	require.NoError(t, err)
	writeFile(t, original, "same")

	require.NoError(t, s.Restore(context.Background(), moved.QuarantinePath, original, moved.Checksum))
	assert.NoFileExists(t, moved.QuarantinePath)
	assert.FileExists(t, original)
}

func TestRestore_Missing(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	qpath := filepath.Join(s.Dir(), testID, "gone.tmp")

	err := s.Restore(context.Background(), qpath, filepath.Join(src, "gone.tmp"), "abc")
	assert.ErrorIs(t, err, ErrMissing)

	err = s.Restore(context.Background(), "/etc/hosts", filepath.Join(src, "hosts"), "abc")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	original := filepath.Join(src, "a.tmp")
	writeFile(t, original, "data")

	moved, err := s.Quarantine(context.Background(), testID, src, original)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(moved.QuarantinePath, []byte("tampered"), 0o644))
	assert.ErrorIs(t, s.Verify(context.Background(), moved.QuarantinePath, moved.Checksum), ErrCorrupt)

	require.NoError(t, os.Remove(moved.QuarantinePath))
	assert.ErrorIs(t, s.Verify(context.Background(), moved.QuarantinePath, moved.Checksum), ErrMissing)
}

func TestBatches(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	writeFile(t, filepath.Join(src, "a.tmp"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.tmp"), "b")

	_, err := s.Quarantine(context.Background(), "m2", src, filepath.Join(src, "a.tmp"))
	require.NoError(t, err)
	_, err = s.Quarantine(context.Background(), "m1", src, filepath.Join(src, "sub", "b.tmp"))
	require.NoError(t, err)

	ids, err := s.Batches()
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)

	files, err := s.BatchFiles("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(s.Dir(), "m1", "sub", "b.tmp")}, files)

	files, err = s.BatchFiles("nope")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestBounded_Timeout(t *testing.T) {
	t.Parallel()

	s := &Store{dir: t.TempDir(), timeout: 20 * time.Millisecond}
	release := make(chan struct{})
	defer close(release)

	err := s.bounded(context.Background(), func(*commitGate) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.bounded(ctx, func(*commitGate) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBounded_AbandonedBeforeCommit(t *testing.T) {
	t.Parallel()

	s := &Store{dir: t.TempDir(), timeout: 20 * time.Millisecond}
	release := make(chan struct{})
	allowed := make(chan bool, 1)

	err := s.bounded(context.Background(), func(g *commitGate) error {
		<-release
		allowed <- g.begin()
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)

	close(release)
	assert.False(t, <-allowed, "a timed-out operation must not start its change")
}

func TestBounded_LateCommit(t *testing.T) {
	t.Parallel()

	s := &Store{dir: t.TempDir(), timeout: 20 * time.Millisecond}
	release := make(chan struct{})
	late := make(chan bool, 1)

	err := s.bounded(context.Background(), func(g *commitGate) error {
		began := g.begin()
		<-release
		late <- began && g.finish()
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)

	close(release)
	assert.True(t, <-late, "a change finishing after the deadline must be reported late")
}

func TestCommitGate_FinishedChangeStands(t *testing.T) {
	t.Parallel()

	var g commitGate
	require.True(t, g.begin())
	assert.False(t, g.finish())
	assert.False(t, g.abandon())
}

func TestUndoLate(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	original := filepath.Join(src, "big.log")
	writeFile(t, original, "log lines")
	sum, err := Checksum(original)
	require.NoError(t, err)

	dest, err := s.PathFor(testID, src, original)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o700))
	require.NoError(t, os.Rename(original, dest))

	s.undoLate(original, dest, sum)

	assert.FileExists(t, original)
	assert.NoFileExists(t, dest)
	_, err = os.Stat(filepath.Join(s.Dir(), testID))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// An original path taken by a new file keeps the quarantined copy.
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o700))
	require.NoError(t, os.Rename(original, dest))
	writeFile(t, original, "new file")

	s.undoLate(original, dest, sum)

	assert.FileExists(t, dest)
	got, err := os.ReadFile(original)
	require.NoError(t, err)
	assert.Equal(t, "new file", string(got))
}

func TestCopyVerified(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	writeFile(t, src, "copy me")
	sum, err := Checksum(src)
	require.NoError(t, err)

	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, copyVerified(src, dst, sum))
	got, err := Checksum(dst)
	require.NoError(t, err)
	assert.Equal(t, sum, got)

	// A checksum mismatch removes the bad copy.
	bad := filepath.Join(dir, "bad.bin")
	assert.ErrorIs(t, copyVerified(src, bad, "deadbeef"), ErrCorrupt)
	assert.NoFileExists(t, bad)

	// The destination is never overwritten.
	assert.Error(t, copyVerified(src, dst, sum))
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	writeFile(t, p, "")

	sum, err := Checksum(p)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)

	_, err = Checksum(dir)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRestore_AlreadyInPlace(t *testing.T) {
	t.Parallel()

	s, src := setupStore(t)
	original := filepath.Join(src, "a.tmp")
	writeFile(t, original, "content")

	moved, err := s.Quarantine(context.Background(), testID, src, original)
	require.NoError(t, err)
	require.NoError(t, s.Restore(context.Background(), moved.QuarantinePath, original, moved.Checksum))

	// A second restore of the same entry is a no-op.
	require.NoError(t, s.Restore(context.Background(), moved.QuarantinePath, original, moved.Checksum))
	assert.FileExists(t, original)
}
