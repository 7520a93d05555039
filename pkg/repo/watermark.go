package repo

import (
	"encoding/binary"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
)

var keyWatermark = []byte("watermark")

// GetWatermark returns the last server metadata version this store has
// fully incorporated into base, or 0 if this account has never synced.
func (s *Store) GetWatermark() (uint64, error) {
	s.muWatermark.RLock()
	defer s.muWatermark.RUnlock()

	var v uint64
	err := s.watermark.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyWatermark)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("repo: corrupt watermark value")
			}
			v = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("repo: get watermark: %w", err)
	}
	return v, nil
}

// SetWatermark advances the last-synced watermark, written only at sync
// commit (spec.md §4.4 Phase P7, §5).
func (s *Store) SetWatermark(v uint64) error {
	s.muWatermark.Lock()
	defer s.muWatermark.Unlock()

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return s.watermark.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyWatermark, buf)
	})
}
