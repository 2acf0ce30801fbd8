package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "manifests")
	s, err := Open(dir, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func sampleManifest() *Manifest {
	return &Manifest{
		SourceRoot: "/home/u/Downloads",
		Entries: []Entry{
			{OriginalPath: "/home/u/Downloads/a.tmp", QuarantinePath: "/q/x/a.tmp", SizeBytes: 10, ContentChecksum: "aa", Status: StatusMoved},
			{OriginalPath: "/home/u/Downloads/b.tmp", SizeBytes: 5, Status: StatusFailed, Error: "permission denied"},
		},
		Completed: true,
	}
}

func TestOpen_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := Open("", "")
	assert.Error(t, err)
}

func TestStore_CreateGet(t *testing.T) {
	t.Parallel()

	s, dir := setupTestStore(t)
	m := sampleManifest()
	require.NoError(t, s.Create(m))

	assert.True(t, ValidID(m.ID))
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, 1, m.Version)
	assert.FileExists(t, filepath.Join(dir, m.ID+".json"))

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.SourceRoot, got.SourceRoot)
	assert.Equal(t, m.Entries, got.Entries)
	assert.True(t, got.Completed)

	// Creating the same id twice fails.
	dup := sampleManifest()
	dup.ID = m.ID
	assert.Error(t, s.Create(dup))
}

func TestStore_GetNotFound(t *testing.T) {
	t.Parallel()

	s, _ := setupTestStore(t)
	id, err := NewID()
	require.NoError(t, err)

	_, err = s.Get(id)
	assert.ErrorIs(t, err, types.ErrManifestNotFound)

	_, err = s.Get("../../etc/passwd")
	assert.ErrorIs(t, err, types.ErrManifestNotFound)
}

func TestStore_ListAndLatest(t *testing.T) {
	t.Parallel()

	s, _ := setupTestStore(t)

	_, ok, err := s.Latest()
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)

	var created []string
	for range 5 {
		m := sampleManifest()
		require.NoError(t, s.Create(m))
		created = append(created, m.ID)
	}

	ids, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, created, ids)

	latest, ok, err := s.Latest()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, created[4], latest)

	sums, err := s.Summaries()
	require.NoError(t, err)
	require.Len(t, sums, 5)
	assert.Equal(t, Counts{Moved: 1, Failed: 1, Bytes: 10}, sums[0].Counts)
}

func TestStore_UpdateEntryStatus(t *testing.T) {
	t.Parallel()

	s, _ := setupTestStore(t)
	m := sampleManifest()
	require.NoError(t, s.Create(m))

	updated, err := s.UpdateEntryStatus(m.ID, "/home/u/Downloads/a.tmp", StatusRestored, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRestored, updated.Entries[0].Status)
	assert.Equal(t, 2, updated.Version)

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRestored, got.Entries[0].Status)
	assert.Equal(t, StatusFailed, got.Entries[1].Status)

	sum, err := s.index.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Counts.Restored)

	_, err = s.UpdateEntryStatus(m.ID, "/nope", StatusRestored, "")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	id, err := NewID()
	require.NoError(t, err)
	_, err = s.UpdateEntryStatus(id, "/x", StatusRestored, "")
	assert.ErrorIs(t, err, types.ErrManifestNotFound)
}

func TestStore_UpdateEntryStatuses(t *testing.T) {
	t.Parallel()

	s, _ := setupTestStore(t)
	m := sampleManifest()
	m.Entries = append(m.Entries, Entry{OriginalPath: "/home/u/Downloads/c.tmp", QuarantinePath: "/q/x/c.tmp", Status: StatusMoved})
	require.NoError(t, s.Create(m))

	updated, err := s.UpdateEntryStatuses(m.ID, []StatusChange{
		{OriginalPath: "/home/u/Downloads/a.tmp", Status: StatusRestored},
		{OriginalPath: "/home/u/Downloads/c.tmp", Status: StatusMoved, Error: "restore conflict"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version, "a batch is one new version")
	assert.Equal(t, StatusRestored, updated.Entries[0].Status)
	assert.Equal(t, StatusMoved, updated.Entries[2].Status)
	assert.Equal(t, "restore conflict", updated.Entries[2].Error)

	// An unknown path rejects the whole batch.
	_, err = s.UpdateEntryStatuses(m.ID, []StatusChange{
		{OriginalPath: "/home/u/Downloads/c.tmp", Status: StatusRestored},
		{OriginalPath: "/nope", Status: StatusRestored},
	})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, StatusMoved, got.Entries[2].Status)
}

func TestStore_ConcurrentUpdatesSerialize(t *testing.T) {
	t.Parallel()

	s, _ := setupTestStore(t)
	m := &Manifest{SourceRoot: "/r"}
	for i := range 20 {
		m.Entries = append(m.Entries, Entry{
			OriginalPath: filepath.Join("/r", string(rune('a'+i))),
			Status:       StatusMoved,
		})
	}
	require.NoError(t, s.Create(m))

	var wg sync.WaitGroup
	for _, e := range m.Entries {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			_, err := s.UpdateEntryStatus(m.ID, path, StatusRestored, "")
			assert.NoError(t, err)
		}(e.OriginalPath)
	}
	wg.Wait()

	got, err := s.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Counts().Restored)
	assert.Equal(t, 21, got.Version)
}

func TestOpen_Reconciles(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	dir := filepath.Join(base, "manifests")
	indexDir := filepath.Join(base, "index")

	s, err := Open(dir, indexDir)
	require.NoError(t, err)
	indexed := sampleManifest()
	require.NoError(t, s.Create(indexed))
	require.NoError(t, s.Close())

	// A record written while the index was unavailable.
	orphanID, err := NewID()
	require.NoError(t, err)
	orphan := sampleManifest()
	orphan.ID = orphanID
	orphan.Version = 1
	data, err := json.Marshal(orphan)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, orphanID+".json"), data, 0o600))

	// An interrupted write.
	tmp := filepath.Join(dir, orphanID+".123.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("{"), 0o600))

	// A record deleted by hand.
	goneID, err := NewID()
	require.NoError(t, err)
	s, err = Open(dir, indexDir)
	require.NoError(t, err)
	require.NoError(t, s.index.Put(Summary{ID: goneID}))
	require.NoError(t, s.Close())

	s, err = Open(dir, indexDir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{indexed.ID, orphanID}, ids)
	assert.NoFileExists(t, tmp)

	latest, ok, err := s.Latest()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, orphanID, latest)
}

func TestManifest_Counts(t *testing.T) {
	t.Parallel()

	m := sampleManifest()
	m.Entries = append(m.Entries, Entry{Status: StatusRestored, SizeBytes: 99})

	assert.Equal(t, Counts{Moved: 1, Failed: 1, Restored: 1, Bytes: 10}, m.Counts())

	sum := m.Summary()
	assert.Equal(t, m.SourceRoot, sum.SourceRoot)
	assert.True(t, sum.Completed)
}

func TestValidID(t *testing.T) {
	t.Parallel()

	id, err := NewID()
	require.NoError(t, err)

	assert.True(t, ValidID(id))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("latest"))
	assert.False(t, ValidID("urn:uuid:"+id))
}

func TestNewID_Ordered(t *testing.T) {
	t.Parallel()

	prev := ""
	for range 1000 {
		id, err := NewID()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}
