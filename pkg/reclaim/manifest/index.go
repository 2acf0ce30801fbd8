package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// errNotIndexed is returned when an id has no index entry.
var errNotIndexed = errors.New("manifest not indexed")

const keyPrefix = "m:"

func indexKey(id string) []byte { return []byte(keyPrefix + id) }

// Index is the ordered badger index of manifest summaries.
type Index struct {
	db *badger.DB
}

// OpenIndex opens or creates the index at path. An empty path keeps the
// index in memory.
func OpenIndex(path string) (*Index, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open manifest index: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Put stores or replaces the summary for s.ID.
func (ix *Index) Put(s Summary) error {
	value, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey(s.ID), value)
	})
}

// PutBatch stores many summaries at once.
func (ix *Index) PutBatch(summaries []Summary) error {
	wb := ix.db.NewWriteBatch()
	defer wb.Cancel()

	for _, s := range summaries {
		value, err := json.Marshal(s)
		if err != nil {
			return err
		}
		if err := wb.Set(indexKey(s.ID), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Get returns the summary stored for id.
func (ix *Index) Get(id string) (Summary, error) {
	var s Summary
	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errNotIndexed
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	return s, err
}

// Delete removes id from the index.
func (ix *Index) Delete(id string) error {
	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(indexKey(id))
	})
}

// IDs returns every indexed id in ascending key order.
func (ix *Index) IDs() ([]string, error) {
	ids := []string{}
	prefix := []byte(keyPrefix)
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// Summaries returns every indexed summary in ascending id order.
func (ix *Index) Summaries() ([]Summary, error) {
	out := []Summary{}
	prefix := []byte(keyPrefix)
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var s Summary
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

// Last returns the greatest indexed id. ok is false when the index is empty.
func (ix *Index) Last() (id string, ok bool, err error) {
	prefix := []byte(keyPrefix)
	err = ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past every key with the prefix; 0xff never occurs in an id.
		it.Seek(append([]byte(keyPrefix), 0xff))
		if it.ValidForPrefix(prefix) {
			id = string(it.Item().Key()[len(prefix):])
			ok = true
		}
		return nil
	})
	return id, ok, err
}
