package triage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reclaim/pkg/reclaim/classify"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

func newTestWalker(t *testing.T, exclude ...string) *Walker {
	t.Helper()
	c, err := classify.New(classify.Options{
		Protected:       []string{"*.kdbx"},
		InstallerMinAge: 24 * time.Hour,
	})
	require.NoError(t, err)
	w, err := New(Options{Classifier: c, Exclude: exclude, Workers: 4})
	require.NoError(t, err)
	return w
}

func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func paths(items []types.FileItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Path)
	}
	return out
}

func TestTriage_Example(t *testing.T) {
	t.Parallel()

	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.tmp"), "temp")
	writeFile(t, filepath.Join(root, "notes.txt"), "notes")
	writeFile(t, filepath.Join(root, ".config"), "secret")

	result, err := newTestWalker(t).Triage(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, root, result.Root)
	assert.Equal(t, []string{filepath.Join(root, "a.tmp")}, paths(result.AutoSafe))
	assert.Equal(t, []string{filepath.Join(root, "notes.txt")}, paths(result.NeedsReview))
	assert.Equal(t, []string{filepath.Join(root, ".config")}, paths(result.DoNotTouch))
	assert.Equal(t, "disposable: *.tmp", result.AutoSafe[0].Reason)
	assert.Equal(t, int64(4), result.AutoSafe[0].Size)
}

func TestTriage_NestedAndPruned(t *testing.T) {
	t.Parallel()

	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "sub", "deep", "x.log"), "log")
	writeFile(t, filepath.Join(root, "sub", "keep.kdbx"), "db")
	writeFile(t, filepath.Join(root, ".git", "objects", "junk.tmp"), "obj")
	writeFile(t, filepath.Join(root, "cache", "c.tmp"), "c")

	w := newTestWalker(t, filepath.Join(root, "cache"))
	result, err := w.Triage(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "sub", "deep", "x.log")}, paths(result.AutoSafe))
	assert.Empty(t, result.NeedsReview)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, ".git"),
		filepath.Join(root, "sub"),
		filepath.Join(root, "sub", "deep"),
		filepath.Join(root, "sub", "keep.kdbx"),
	}, paths(result.DoNotTouch))
}

func TestTriage_DisjointAndDeterministic(t *testing.T) {
	t.Parallel()

	root := tempRoot(t)
	for _, name := range []string{"a.tmp", "b.txt", "c (1).zip", ".hidden", "d/e.bak", "d/f.md", "g/h/i.temp"} {
		writeFile(t, filepath.Join(root, name), name)
	}

	w := newTestWalker(t)
	first, err := w.Triage(context.Background(), root)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, bucket := range [][]types.FileItem{first.AutoSafe, first.NeedsReview, first.DoNotTouch} {
		for _, it := range bucket {
			seen[it.Path]++
		}
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s in %d buckets", p, n)
	}

	for range 5 {
		again, err := w.Triage(context.Background(), root)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTriage_HardLinksReportedOnce(t *testing.T) {
	t.Parallel()

	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "b.tmp"), "same")
	require.NoError(t, os.Link(filepath.Join(root, "b.tmp"), filepath.Join(root, "a.tmp")))

	result, stats, err := newTestWalker(t).TriageWithStats(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "a.tmp")}, paths(result.AutoSafe))
	assert.Equal(t, int64(1), stats.Duplicates)
}

func TestTriage_Symlinks(t *testing.T) {
	t.Parallel()

	root := tempRoot(t)
	outside := tempRoot(t)
	writeFile(t, filepath.Join(root, "real.tmp"), "x")
	writeFile(t, filepath.Join(outside, "victim.tmp"), "y")
	require.NoError(t, os.Symlink(filepath.Join(outside, "victim.tmp"), filepath.Join(root, "escape.tmp")))
	require.NoError(t, os.Symlink("real.tmp", filepath.Join(root, "inside.tmp")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "outdir")))

	result, err := newTestWalker(t).Triage(context.Background(), root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "inside.tmp"),
		filepath.Join(root, "real.tmp"),
	}, paths(result.AutoSafe))
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "escape.tmp"),
		filepath.Join(root, "outdir"),
	}, paths(result.DoNotTouch))
}

func TestTriage_UnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	t.Parallel()

	root := tempRoot(t)
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "inner.tmp"), "x")
	writeFile(t, filepath.Join(root, "ok.tmp"), "x")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	result, stats, err := newTestWalker(t).TriageWithStats(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "ok.tmp")}, paths(result.AutoSafe))
	require.Len(t, result.DoNotTouch, 1)
	assert.Equal(t, locked, result.DoNotTouch[0].Path)
	assert.Equal(t, classify.ReasonUnreadable, result.DoNotTouch[0].Reason)
	assert.Equal(t, int64(1), stats.Unreadable)
}

func TestTriage_RootErrors(t *testing.T) {
	t.Parallel()

	w := newTestWalker(t)

	_, err := w.Triage(context.Background(), filepath.Join(tempRoot(t), "missing"))
	assert.ErrorIs(t, err, types.ErrInvalidPath)

	if os.Geteuid() != 0 {
		root := tempRoot(t)
		require.NoError(t, os.Chmod(root, 0o000))
		t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

		_, err = w.Triage(context.Background(), root)
		assert.ErrorIs(t, err, types.ErrPathNotReadable)
	}
}

func TestTriage_Cancelled(t *testing.T) {
	t.Parallel()

	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.tmp"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestWalker(t).Triage(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresClassifier(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.Error(t, err)
}

func TestIsExcluded(t *testing.T) {
	t.Parallel()

	c, err := classify.New(classify.Options{})
	require.NoError(t, err)
	w, err := New(Options{Classifier: c, Exclude: []string{"/data/quarantine", "node_modules", "/srv/*/tmp"}})
	require.NoError(t, err)

	assert.True(t, w.isExcluded("/data/quarantine"))
	assert.True(t, w.isExcluded("/data/quarantine/x/y"))
	assert.False(t, w.isExcluded("/data/quarantined"))
	assert.True(t, w.isExcluded("/home/u/proj/node_modules"))
	assert.True(t, w.isExcluded("/srv/web/tmp"))
	assert.False(t, w.isExcluded("/srv/web/tmp2"))
}
