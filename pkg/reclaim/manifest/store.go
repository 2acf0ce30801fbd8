package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/reclaim/pkg/reclaim/logging"
	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// ErrEntryNotFound is returned when a manifest has no entry for a path.
var ErrEntryNotFound = errors.New("manifest entry not found")

// Store persists manifests. Writers to the same manifest are serialized;
// different manifests are updated independently.
type Store struct {
	dir   string
	index *Index
	locks sync.Map // id -> *sync.Mutex
	now   func() time.Time
}

// Open opens the record directory and index, reconciling the two: records
// missing from the index are re-indexed, index entries without a record are
// dropped and leftover temp files are removed. An empty indexPath keeps the
// index in memory and rebuilds it from the records.
func Open(dir, indexPath string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("manifest directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}

	index, err := OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}

	s := &Store{dir: dir, index: index, now: time.Now}
	if err := s.reconcile(); err != nil {
		_ = index.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the index.
func (s *Store) Close() error {
	return s.index.Close()
}

// Dir returns the record directory.
func (s *Store) Dir() string { return s.dir }

// Create assigns an id and creation time when unset and persists m.
func (s *Store) Create(m *Manifest) error {
	if m.ID == "" {
		id, err := NewID()
		if err != nil {
			return fmt.Errorf("generate manifest id: %w", err)
		}
		m.ID = id
	}
	if !ValidID(m.ID) {
		return fmt.Errorf("invalid manifest id %q", m.ID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	if m.Entries == nil {
		m.Entries = []Entry{}
	}

	mu := s.lock(m.ID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := os.Stat(s.recordPath(m.ID)); err == nil {
		return fmt.Errorf("manifest %s already exists", m.ID)
	}

	m.Version = 0
	if err := s.write(m); err != nil {
		return err
	}

	logging.Get("manifest").Info("manifest created",
		"id", m.ID, "root", m.SourceRoot, "entries", len(m.Entries))
	return nil
}

// List returns every manifest id in creation order.
func (s *Store) List() ([]string, error) {
	return s.index.IDs()
}

// Summaries returns the index summaries in creation order.
func (s *Store) Summaries() ([]Summary, error) {
	return s.index.Summaries()
}

// Get reads a manifest. Unknown ids yield ManifestNotFound.
func (s *Store) Get(id string) (*Manifest, error) {
	if !ValidID(id) {
		return nil, types.NewOpError(types.KindManifestNotFound, id, nil)
	}
	return s.read(id)
}

// Latest returns the id of the newest manifest. ok is false when there
// are none.
func (s *Store) Latest() (id string, ok bool, err error) {
	return s.index.Last()
}

// Update applies fn to a fresh copy of manifest id and writes the result
// as a new version. fn runs with the manifest's writer lock held; if it
// returns an error nothing is written.
func (s *Store) Update(id string, fn func(*Manifest) error) (*Manifest, error) {
	if !ValidID(id) {
		return nil, types.NewOpError(types.KindManifestNotFound, id, nil)
	}

	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	m, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := s.write(m); err != nil {
		return nil, err
	}
	return m, nil
}

// StatusChange is one entry update applied by UpdateEntryStatuses.
type StatusChange struct {
	OriginalPath string
	Status       Status
	Error        string
}

// UpdateEntryStatus sets the status of the entry for originalPath.
// errMsg replaces the entry's error text; pass "" to clear it.
func (s *Store) UpdateEntryStatus(id, originalPath string, status Status, errMsg string) (*Manifest, error) {
	return s.UpdateEntryStatuses(id, []StatusChange{{OriginalPath: originalPath, Status: status, Error: errMsg}})
}

// UpdateEntryStatuses applies every change to manifest id as one new
// version. A change naming an unknown entry fails the whole update.
func (s *Store) UpdateEntryStatuses(id string, changes []StatusChange) (*Manifest, error) {
	return s.Update(id, func(m *Manifest) error {
		index := make(map[string]int, len(m.Entries))
		for i, entry := range m.Entries {
			index[entry.OriginalPath] = i
		}
		for _, c := range changes {
			i, ok := index[c.OriginalPath]
			if !ok {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, c.OriginalPath)
			}
			m.Entries[i].Status = c.Status
			m.Entries[i].Error = c.Error
		}
		return nil
	})
}

func (s *Store) lock(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) read(id string) (*Manifest, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewOpError(types.KindManifestNotFound, id, nil)
		}
		return nil, fmt.Errorf("read manifest %s: %w", id, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", id, err)
	}
	return &m, nil
}

// write persists m as its next version: temp file, fsync, rename, then
// index. The record is the source of truth; a failed index update is
// repaired by the next Open.
func (s *Store) write(m *Manifest) error {
	m.Version++
	m.UpdatedAt = s.now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	path := s.recordPath(m.ID)
	tmp, err := os.CreateTemp(s.dir, m.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	syncDir(s.dir)

	if err := s.index.Put(m.Summary()); err != nil {
		logging.Get("manifest").Warn("index update failed", "id", m.ID, "error", err)
	}
	return nil
}

// reconcile brings the index in line with the record files.
func (s *Store) reconcile() error {
	log := logging.Get("manifest")

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read manifest dir: %w", err)
	}

	onDisk := make(map[string]bool)
	var missing []Summary
	for _, f := range files {
		name := f.Name()
		if f.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".tmp") {
			_ = os.Remove(filepath.Join(s.dir, name))
			log.Info("removed interrupted manifest write", "file", name)
			continue
		}
		id, ok := strings.CutSuffix(name, ".json")
		if !ok || !ValidID(id) {
			continue
		}

		m, err := s.read(id)
		if err != nil {
			log.Warn("skipping unreadable manifest", "id", id, "error", err)
			continue
		}
		onDisk[id] = true

		indexed, err := s.index.Get(id)
		if err != nil || indexed.Version != m.Version {
			missing = append(missing, m.Summary())
		}
	}

	if len(missing) > 0 {
		if err := s.index.PutBatch(missing); err != nil {
			return fmt.Errorf("re-index manifests: %w", err)
		}
		log.Info("re-indexed manifests", "count", len(missing))
	}

	ids, err := s.index.IDs()
	if err != nil {
		return fmt.Errorf("list index: %w", err)
	}
	for _, id := range ids {
		if !onDisk[id] {
			if err := s.index.Delete(id); err != nil {
				return fmt.Errorf("drop stale index entry: %w", err)
			}
		}
	}
	return nil
}

func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
