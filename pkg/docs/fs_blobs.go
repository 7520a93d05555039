package docs

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSBlobs is the default BlobStore backend: one file per ContentKey,
// sharded by the first two hex characters of the id to keep any single
// directory from growing unbounded, grounded on the content-addressed
// layout dittofs's pkg/metadata/object.go documents for its own blob keys.
type FSBlobs struct {
	root string
}

// NewFSBlobs roots a blob store at dir, creating it if necessary.
func NewFSBlobs(dir string) (*FSBlobs, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("docs: create blob root: %w", err)
	}
	return &FSBlobs{root: dir}, nil
}

func (f *FSBlobs) path(key ContentKey) string {
	id := key.ID.String()
	shard := id[:2]
	return filepath.Join(f.root, shard, id+"_"+hex.EncodeToString(key.HMAC[:])+".blob")
}

func (f *FSBlobs) Get(_ context.Context, key ContentKey) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("docs: read blob: %w", err)
	}
	return data, nil
}

func (f *FSBlobs) Put(_ context.Context, key ContentKey, data []byte) error {
	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("docs: create shard dir: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("docs: write blob: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("docs: commit blob: %w", err)
	}
	return nil
}

func (f *FSBlobs) Delete(_ context.Context, key ContentKey) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("docs: delete blob: %w", err)
	}
	return nil
}

func (f *FSBlobs) List(_ context.Context) ([]ContentKey, error) {
	var out []ContentKey
	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		key, ok := parseBlobFilename(filepath.Base(path))
		if !ok {
			return nil
		}
		out = append(out, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("docs: list blobs: %w", err)
	}
	return out, nil
}

func parseBlobFilename(name string) (ContentKey, bool) {
	name = strings.TrimSuffix(name, ".blob")
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 {
		return ContentKey{}, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return ContentKey{}, false
	}
	hmacBytes, err := hex.DecodeString(parts[1])
	if err != nil || len(hmacBytes) != 32 {
		return ContentKey{}, false
	}
	var key ContentKey
	key.ID = id
	copy(key.HMAC[:], hmacBytes)
	return key, true
}
