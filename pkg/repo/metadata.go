package repo

import (
	"encoding/json"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

const fileKeyPrefix = "f:"

func fileKey(id model.FileID) []byte {
	return []byte(fileKeyPrefix + id.String())
}

// LoadBaseTree hydrates a tree.HashTree from the metadata-base section.
func (s *Store) LoadBaseTree() (*tree.HashTree, error) {
	s.muMetaBase.RLock()
	defer s.muMetaBase.RUnlock()
	return loadTree(s.metaBase)
}

// SaveBaseTree overwrites the metadata-base section with exactly the
// files in t, the promotion step of spec.md §4.4 Phase P7.
func (s *Store) SaveBaseTree(t *tree.HashTree) error {
	s.muMetaBase.Lock()
	defer s.muMetaBase.Unlock()
	return saveTree(s.metaBase, t)
}

func loadTree(db *badgerdb.DB) (*tree.HashTree, error) {
	ht := tree.NewHashTree()
	err := db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var f model.File
				if err := json.Unmarshal(val, &f); err != nil {
					return fmt.Errorf("repo: decode file: %w", err)
				}
				ht.Insert(&f)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repo: load tree: %w", err)
	}
	return ht, nil
}

func saveTree(db *badgerdb.DB, t *tree.HashTree) error {
	return db.Update(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		prefix := []byte(fileKeyPrefix)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, append([]byte(nil), it.Item().Key()...))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("repo: clear stale entry: %w", err)
			}
		}

		for _, id := range t.IDs() {
			f, ok := t.Find(id)
			if !ok {
				continue
			}
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("repo: encode file %s: %w", id, err)
			}
			if err := txn.Set(fileKey(id), data); err != nil {
				return fmt.Errorf("repo: write file %s: %w", id, err)
			}
		}
		return nil
	})
}

// tombstoneSentinel marks a removed id in the local overlay section; it
// can never collide with a real JSON-encoded *model.File, which always
// starts with '{'.
var tombstoneSentinel = []byte("TOMBSTONE")

// LoadLocalOverlay hydrates the local overlay map: files for inserts,
// nil for tombstoned ids, per pkg/tree.Staged's Overlay representation.
func (s *Store) LoadLocalOverlay() (map[model.FileID]*model.File, error) {
	s.muMetaLocal.RLock()
	defer s.muMetaLocal.RUnlock()

	out := make(map[model.FileID]*model.File)
	err := s.metaLocal.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			idStr := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				if string(val) == string(tombstoneSentinel) {
					out[mustParseID(idStr)] = nil
					return nil
				}
				var f model.File
				if err := json.Unmarshal(val, &f); err != nil {
					return fmt.Errorf("repo: decode overlay file: %w", err)
				}
				out[f.ID] = &f
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repo: load local overlay: %w", err)
	}
	return out, nil
}

// SaveLocalOverlay overwrites the local overlay section with exactly the
// entries given: a non-nil *model.File for an insert, nil for a
// tombstone.
func (s *Store) SaveLocalOverlay(overlay map[model.FileID]*model.File) error {
	s.muMetaLocal.Lock()
	defer s.muMetaLocal.Unlock()

	return s.metaLocal.Update(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		prefix := []byte(fileKeyPrefix)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, append([]byte(nil), it.Item().Key()...))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("repo: clear stale overlay entry: %w", err)
			}
		}

		for id, f := range overlay {
			if f == nil {
				if err := txn.Set(fileKey(id), tombstoneSentinel); err != nil {
					return fmt.Errorf("repo: write tombstone %s: %w", id, err)
				}
				continue
			}
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("repo: encode overlay file %s: %w", id, err)
			}
			if err := txn.Set(fileKey(id), data); err != nil {
				return fmt.Errorf("repo: write overlay file %s: %w", id, err)
			}
		}
		return nil
	})
}

// ClearLocalOverlay empties the local overlay section, e.g. after sync
// promotes every entry into base.
func (s *Store) ClearLocalOverlay() error {
	return s.SaveLocalOverlay(nil)
}

func mustParseID(s string) model.FileID {
	id, err := model.ParseFileID(s)
	if err != nil {
		return model.NilFileID
	}
	return id
}
