// Package docs implements the document content store from spec.md §4.3:
// two content-addressed namespaces (base and local), the safe_write
// conflict-detecting primitive, and reachability-based GC.
//
// Grounded on dittofs's pkg/metadata/object.go for the content-addressing
// idiom (ContentHash [32]byte keys, RefCount-style reachability) and on
// pkg/payload/gc/gc.go for the GC pass shape (scan, reclaim, Stats); this
// GC has no options, progress callback or dry-run mode. The two concrete BlobStore
// implementations are grounded on SPEC_FULL.md's DOMAIN STACK: FSBlobs is
// the default local backend, and S3Blobs wires aws-sdk-go-v2/s3 as the
// optional remote blob backend the pack's go.mod already carries.
package docs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/lockbook/lockbook/internal/logger"
	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/model"
)

// ErrNotFound is returned by BlobStore.Get and Store.Read when a key is
// absent from a namespace.
var ErrNotFound = errors.New("docs: blob not found")

// ErrConflict is returned by SafeWrite when the current hmac doesn't match
// the caller's expected_old_hmac.
var ErrConflict = errors.New("docs: concurrent modification detected")

// ContentKey addresses a document's ciphertext blob by file id and content
// hmac, per spec.md §3/§4.3.
type ContentKey struct {
	ID   model.FileID
	HMAC [32]byte
}

func (k ContentKey) String() string {
	return fmt.Sprintf("%s/%x", k.ID, k.HMAC)
}

// BlobStore is the storage-backend abstraction a single namespace (base or
// local) is built on. Implementations: FSBlobs (default) and S3Blobs.
type BlobStore interface {
	Get(ctx context.Context, key ContentKey) ([]byte, error)
	Put(ctx context.Context, key ContentKey, data []byte) error
	Delete(ctx context.Context, key ContentKey) error
	List(ctx context.Context) ([]ContentKey, error)
}

// Store composes a base and a local BlobStore into the two-namespace
// document model spec.md §4.3 describes: a logical read consults local
// first, then base; a write always targets local.
type Store struct {
	base  BlobStore
	local BlobStore
}

// New composes base and local into a Store.
func New(base, local BlobStore) *Store {
	return &Store{base: base, local: local}
}

// Read returns the ciphertext for key, checking local before base.
func (s *Store) Read(ctx context.Context, key ContentKey) ([]byte, error) {
	data, err := s.local.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.base.Get(ctx, key)
}

// Write always targets the local namespace.
func (s *Store) Write(ctx context.Context, key ContentKey, ciphertext []byte) error {
	return s.local.Put(ctx, key, ciphertext)
}

// Delete removes key from the local namespace; base is only ever pruned by
// GC, never by a direct user-initiated delete.
func (s *Store) Delete(ctx context.Context, key ContentKey) error {
	return s.local.Delete(ctx, key)
}

// Has reports whether key is already present in either namespace, without
// returning its content. Used by the sync engine's Phase P4 to skip
// re-fetching documents it already holds.
func (s *Store) Has(ctx context.Context, key ContentKey) (bool, error) {
	if _, err := s.local.Get(ctx, key); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := s.base.Get(ctx, key); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return false, nil
}

// currentHMAC reports whether a blob for (id, known) exists in the local
// or the base namespace. It does not know which hmac is the newest for id.
func (s *Store) currentHMAC(ctx context.Context, id model.FileID, known [32]byte) (have bool, err error) {
	key := ContentKey{ID: id, HMAC: known}
	if _, err := s.local.Get(ctx, key); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := s.base.Get(ctx, key); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return false, nil
}

// SafeWrite is the conflict-detecting primitive from spec.md §4.3: the
// only sanctioned way for an editor to persist a document edit. It refuses
// the write unless a blob for (id, expectedOldHMAC) exists in either
// namespace (a zero expectedOldHMAC skips the check), sealing newPlaintext
// with fileKey only after the check passes. It does not check that
// expectedOldHMAC is the newest hmac for id: an older blob not yet
// garbage collected also passes; pkg/core compares against the file's
// metadata hmac before calling it.
func (s *Store) SafeWrite(ctx context.Context, id model.FileID, expectedOldHMAC [32]byte, newPlaintext []byte, fileKey [32]byte) (newHMAC [32]byte, err error) {
	if expectedOldHMAC != ([32]byte{}) {
		exists, err := s.currentHMAC(ctx, id, expectedOldHMAC)
		if err != nil {
			return newHMAC, err
		}
		if !exists {
			return newHMAC, ErrConflict
		}
	}

	mac := hmac.New(sha256.New, fileKey[:])
	mac.Write(newPlaintext)
	copy(newHMAC[:], mac.Sum(nil))

	ciphertext, err := crypto.SealBytes(fileKey, newPlaintext)
	if err != nil {
		return newHMAC, fmt.Errorf("docs: seal content: %w", err)
	}

	if err := s.Write(ctx, ContentKey{ID: id, HMAC: newHMAC}, ciphertext); err != nil {
		return newHMAC, err
	}
	return newHMAC, nil
}

// ReadPlaintext is a convenience wrapper over Read that unseals the
// ciphertext with fileKey.
func (s *Store) ReadPlaintext(ctx context.Context, key ContentKey, fileKey [32]byte) ([]byte, error) {
	ciphertext, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.OpenBytes(fileKey, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("docs: open content: %w", err)
	}
	return plain, nil
}

// WriteBase stores ciphertext directly in the base namespace, bypassing
// local. Used only by the sync engine's Phase P4 (pulling a document the
// server already has), where the content never belonged to an in-flight
// local edit.
func (s *Store) WriteBase(ctx context.Context, key ContentKey, ciphertext []byte) error {
	return s.base.Put(ctx, key, ciphertext)
}

// Promote moves a local write into base once sync accepts its metadata,
// per spec.md §4.3's "writes whose metadata is promoted move from local to
// base". Superseded local writes are dropped by Discard, not here.
func (s *Store) Promote(ctx context.Context, key ContentKey) error {
	data, err := s.local.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil // nothing local to promote; base already has it
		}
		return err
	}
	if err := s.base.Put(ctx, key, data); err != nil {
		return err
	}
	return s.local.Delete(ctx, key)
}

// Discard drops a local write whose metadata was superseded during merge,
// without promoting it to base.
func (s *Store) Discard(ctx context.Context, key ContentKey) error {
	return s.local.Delete(ctx, key)
}

// GC removes blobs from both namespaces that aren't named in reachable,
// the set of (id, hmac) pairs referenced by any file in base ∪ local.
func (s *Store) GC(ctx context.Context, reachable map[ContentKey]struct{}) (*Stats, error) {
	stats := &Stats{}
	for _, bs := range []BlobStore{s.base, s.local} {
		keys, err := bs.List(ctx)
		if err != nil {
			return stats, fmt.Errorf("docs: list blobs: %w", err)
		}
		stats.Scanned += len(keys)
		for _, key := range keys {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			if _, ok := reachable[key]; ok {
				continue
			}
			if err := bs.Delete(ctx, key); err != nil {
				logger.Warn("docs: gc failed to delete blob", "key", key.String(), "error", err)
				stats.Errors++
				continue
			}
			stats.Reclaimed++
		}
	}
	return stats, nil
}

// Stats summarizes a GC pass, grounded on dittofs's pkg/payload/gc.Stats.
type Stats struct {
	Scanned   int
	Reclaimed int
	Errors    int
}
