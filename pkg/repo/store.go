// Package repo implements the on-disk layout from spec.md §6: one
// directory per account holding separate sections for metadata base,
// metadata local, keychain, and watermark (document base/local are
// pkg/docs's concern). Each section is badger — an LSM-tree store with a
// write-ahead log and atomic commit — matching spec.md's "append-friendly
// log... with atomic rename for commit" requirement.
//
// Grounded on dittofs/pkg/metadata/store/badger (BadgerMetadataStore: one
// badger.DB per logical store, JSON-encoded values behind prefixed keys,
// WithTransaction wrapping read/write batches) adapted from dittofs's
// single NFS metadata store into Lockbook's four-section layout.
//
// Lock ordering: callers that touch more than one section in a single
// logical operation must acquire Store's section locks in the fixed
// order spec.md §5 mandates: metadata base/local, then keychain, then
// watermark (document locks live in pkg/docs and are acquired before
// keychain by convention at the pkg/core call site, since pkg/core is
// the only layer that ever needs more than one package's lock at once).
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Store owns the four badger databases backing one account's local
// state, plus the RWMutex guarding each section per spec.md §5.
type Store struct {
	dir string

	muMetaBase  sync.RWMutex
	metaBase    *badgerdb.DB
	muMetaLocal sync.RWMutex
	metaLocal   *badgerdb.DB
	muKeychain  sync.RWMutex
	keychain    *badgerdb.DB
	muWatermark sync.RWMutex
	watermark   *badgerdb.DB
}

// Open creates or opens the four-section store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("repo: create root dir: %w", err)
	}

	s := &Store{dir: dir}
	sections := []struct {
		name string
		db   **badgerdb.DB
	}{
		{"meta_base", &s.metaBase},
		{"meta_local", &s.metaLocal},
		{"keychain", &s.keychain},
		{"watermark", &s.watermark},
	}
	for _, sec := range sections {
		path := filepath.Join(dir, sec.name)
		opts := badgerdb.DefaultOptions(path).WithLogger(nil)
		db, err := badgerdb.Open(opts)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("repo: open %s section: %w", sec.name, err)
		}
		*sec.db = db
	}
	return s, nil
}

// Close releases all four badger databases. Safe to call on a partially
// opened Store.
func (s *Store) Close() error {
	var firstErr error
	for _, db := range []*badgerdb.DB{s.metaBase, s.metaLocal, s.keychain, s.watermark} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dir returns the root directory this store was opened against.
func (s *Store) Dir() string {
	return s.dir
}

// WipeAccount drops every key from all four sections: metadata, keychain,
// and watermark. Document blobs are left for GC to reclaim once no file
// references them, rather than wiped synchronously here.
func (s *Store) WipeAccount() error {
	s.muMetaBase.Lock()
	defer s.muMetaBase.Unlock()
	s.muMetaLocal.Lock()
	defer s.muMetaLocal.Unlock()
	s.muKeychain.Lock()
	defer s.muKeychain.Unlock()
	s.muWatermark.Lock()
	defer s.muWatermark.Unlock()

	for _, db := range []*badgerdb.DB{s.metaBase, s.metaLocal, s.keychain, s.watermark} {
		if err := db.DropAll(); err != nil {
			return fmt.Errorf("repo: wipe account: %w", err)
		}
	}
	return nil
}
