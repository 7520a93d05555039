package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/lockbook/lockbook/internal/bytesize"
	"github.com/lockbook/lockbook/pkg/docs"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
)

func hmacToBytes(h [32]byte) []byte {
	return append([]byte(nil), h[:]...)
}

func contentKeyFor(f *model.File) (docs.ContentKey, bool) {
	if len(f.DocumentHMAC) == 0 {
		return docs.ContentKey{}, false
	}
	var key docs.ContentKey
	key.ID = f.ID
	copy(key.HMAC[:], f.DocumentHMAC)
	return key, true
}

// ReadDocument returns id's decrypted content, per spec.md §6's
// read_document. markUserActivity is accepted for API parity with
// consumers that track recency, but the core itself keeps no such
// bookkeeping: usage accounting lives at the server, not the local store.
func (lb *Lb) ReadDocument(ctx context.Context, id model.FileID, _ bool) ([]byte, error) {
	content, _, err := lb.ReadDocumentWithHMAC(ctx, id)
	return content, err
}

// ReadDocumentWithHMAC returns id's decrypted content plus its current
// content hmac, per spec.md §6's read_document_with_hmac.
func (lb *Lb) ReadDocumentWithHMAC(ctx context.Context, id model.FileID) ([]byte, []byte, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, nil, err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return nil, nil, lberrors.NotFound("file", id.String())
	}
	if f.Type != model.Document {
		return nil, nil, lberrors.New(lberrors.KindValidation, "core: not a document")
	}
	key, hasContent := contentKeyFor(f)
	if !hasContent {
		return nil, nil, nil
	}
	fileKey, err := lb.keychain.DecryptFileKey(lb.lazy, id)
	if err != nil {
		return nil, nil, lberrors.Wrap(lberrors.KindUnexpected, "core: resolve file key", err)
	}
	plain, err := lb.docs.ReadPlaintext(ctx, key, fileKey)
	if err != nil {
		return nil, nil, lberrors.Wrap(lberrors.KindDisk, "core: read document", err)
	}
	return plain, f.DocumentHMAC, nil
}

// WriteDocument overwrites id's content unconditionally, per spec.md §6's
// write_document. It is built on SafeWrite with the file's own current
// hmac as the expectation, since the caller holds the account's single
// writer lock for the duration.
func (lb *Lb) WriteDocument(ctx context.Context, id model.FileID, content []byte) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}
	var expected [32]byte
	copy(expected[:], f.DocumentHMAC)
	return lb.safeWriteLocked(ctx, f, expected, content)
}

// SafeWrite persists content only if id's current hmac matches
// expectedHMAC, per spec.md §6's safe_write and §8's conflict-safety law.
func (lb *Lb) SafeWrite(ctx context.Context, id model.FileID, expectedHMAC []byte, content []byte) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}
	if !bytes.Equal(f.DocumentHMAC, expectedHMAC) {
		return lberrors.Conflict("document was modified concurrently", id.String())
	}
	var expected [32]byte
	copy(expected[:], expectedHMAC)
	return lb.safeWriteLocked(ctx, f, expected, content)
}

func (lb *Lb) safeWriteLocked(ctx context.Context, f *model.File, expectedHMAC [32]byte, content []byte) error {
	if f.Type != model.Document {
		return lberrors.New(lberrors.KindValidation, "core: not a document")
	}
	if f.Deleted {
		return lberrors.New(lberrors.KindValidation, "core: file is deleted")
	}
	if max := lb.cfg.MaxDocumentSize; max > 0 && bytesize.ByteSize(len(content)) > max {
		return lberrors.New(lberrors.KindValidation, fmt.Sprintf("core: document exceeds max size of %s", max))
	}

	fileKey, err := lb.keychain.DecryptFileKey(lb.lazy, f.ID)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: resolve file key", err)
	}

	newHMAC, err := lb.docs.SafeWrite(ctx, f.ID, expectedHMAC, content, fileKey)
	if err != nil {
		if errors.Is(err, docs.ErrConflict) {
			return lberrors.Conflict("document was modified concurrently", f.ID.String())
		}
		return lberrors.Wrap(lberrors.KindUnexpected, "core: write document", err)
	}

	clone := f.Clone()
	priorHMAC := clone.DocumentHMAC
	clone.DocumentHMAC = hmacToBytes(newHMAC)

	if err := lb.applyAndValidate(clone); err != nil {
		_ = lb.docs.Discard(ctx, docs.ContentKey{ID: f.ID, HMAC: newHMAC})
		return err
	}
	lb.tracker.MarkContentEdited(f.ID, priorHMAC)
	if err := lb.commit(); err != nil {
		return err
	}
	lb.events.publish(Event{Kind: DocumentWritten, FileID: f.ID})
	return nil
}
