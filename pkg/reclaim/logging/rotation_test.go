package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_SizeRotation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reclaim.log")
	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 32, MaxBackups: 10})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	line := []byte(strings.Repeat("x", 20) + "\n")
	for range 3 {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	backups := w.backups()
	assert.Len(t, backups, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(line)), info.Size())
}

func TestRotatingWriter_MaxBackups(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reclaim.log")
	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 8, MaxBackups: 2})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	for range 6 {
		_, err := w.Write([]byte("0123456789\n"))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, len(w.backups()), 2)
}

func TestRotatingWriter_DailyRotation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reclaim.log")
	w, err := NewRotatingWriter(path, RotationConfig{Daily: true})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = w.Write([]byte("day one\n"))
	require.NoError(t, err)

	w.mu.Lock()
	w.lastRotate = time.Now().Add(-48 * time.Hour)
	w.mu.Unlock()

	_, err = w.Write([]byte("day two\n"))
	require.NoError(t, err)

	assert.Len(t, w.backups(), 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "day two\n", string(data))
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reclaim.log")
	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 400, strings.Count(string(data), "line\n"))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "reclaim.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}
