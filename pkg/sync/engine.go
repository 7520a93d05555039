// Package sync implements the bidirectional synchronization protocol from
// spec.md §4.4: pull server metadata, merge it against pending local
// changes, validate the result, pull/push documents, push the reduced
// metadata diff, and commit by promoting local into base and advancing
// the watermark.
//
// Grounded on dittofs's reconciliation loop shape (pkg/metadata's
// base/overlay promotion plus its content GC pass) generalized from
// dittofs's single-writer NFS model into a two-sided merge against a
// remote peer, since dittofs itself never merges concurrent writers —
// the merge algorithm in merge.go and mergetext.go is therefore built
// directly from spec.md §4.4/§8/§9 and documented there as such.
package sync

import (
	"context"
	"errors"
	"sync"

	"github.com/lockbook/lockbook/internal/logger"
	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/docs"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/repo"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/lockbook/lockbook/pkg/validate"
	"github.com/lockbook/lockbook/pkg/wire"
)

// Phase tags a sync progress event, per spec.md §4.4's progress callback.
type Phase string

const (
	PhasePullMetadata Phase = "pull_metadata"
	PhasePullDocument Phase = "pull_document"
	PhasePushMetadata Phase = "push_metadata"
	PhasePushDocument Phase = "push_document"
	PhaseComplete     Phase = "complete"
)

// Event is delivered to the caller's progress callback at each phase
// transition, optionally naming the file a document phase concerns.
type Event struct {
	Phase  Phase
	FileID *model.FileID
}

// ProgressFunc receives sync progress events. Implementations must not
// block; the engine calls it synchronously on the syncing goroutine.
type ProgressFunc func(Event)

// Status summarizes one sync call's outcome, per spec.md §8's idempotence
// law: a sync with nothing to do reports zero work done.
type Status struct {
	PulledFiles     int
	PulledDocuments int
	PushedFiles     int
	PushedDocuments int
	Forked          []model.FileID // original ids whose content conflict forked a sibling
}

// ErrAlreadySyncing is returned when Sync is called while one is already
// in flight, per spec.md §4.4's "at most one in flight" rule.
var ErrAlreadySyncing = errors.New("sync: already syncing")

// Engine drives one account's sync against one server, composing the
// repo, docs, crypto, and wire layers spec.md §4.4 names as its
// collaborators.
type Engine struct {
	store    *repo.Store
	docs     *docs.Store
	wire     *wire.Client
	keychain *crypto.Keychain
	viewer   model.PublicKey

	mu      sync.Mutex
	syncing bool
}

// New builds an Engine. viewer is the account's own public key, used as
// the validator's authorization subject.
func New(store *repo.Store, docStore *docs.Store, wireClient *wire.Client, keychain *crypto.Keychain) *Engine {
	return &Engine{
		store:    store,
		docs:     docStore,
		wire:     wireClient,
		keychain: keychain,
		viewer:   keychain.Account().Fingerprint(),
	}
}

// Sync runs one synchronization pass to completion, or returns
// ErrAlreadySyncing if one is already running on this Engine.
func (e *Engine) Sync(ctx context.Context, progress ProgressFunc) (*Status, error) {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return nil, ErrAlreadySyncing
	}
	e.syncing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	return e.run(ctx, progress, true)
}

func report(progress ProgressFunc, phase Phase, id *model.FileID) {
	if progress != nil {
		progress(Event{Phase: phase, FileID: id})
	}
}

// run executes phases P1-P7. allowRetry permits one re-pull-and-remerge
// cycle on a Phase P5 rejection, per spec.md §4.4's "restart from P1 once".
func (e *Engine) run(ctx context.Context, progress ProgressFunc, allowRetry bool) (*Status, error) {
	status := &Status{}

	// Phase P1 — pull metadata.
	report(progress, PhasePullMetadata, nil)
	watermark, err := e.store.GetWatermark()
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: read watermark", err)
	}
	updates, err := e.wire.GetUpdates(ctx, watermark)
	if err != nil {
		return nil, networkError(err)
	}
	remoteFiles := make([]*model.File, len(updates))
	for i, u := range updates {
		remoteFiles[i] = u.ToFile()
	}
	status.PulledFiles = len(remoteFiles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase P2 — merge.
	base, err := e.store.LoadBaseTree()
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: load base tree", err)
	}
	localOverlay, err := e.store.LoadLocalOverlay()
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: load local overlay", err)
	}
	mr, err := merge(ctx, base, localOverlay, remoteFiles, e.keychain, e.docs)
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: merge", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase P3 — validate merged tree. Wrapped in a Lazy tree, which
	// memoizes the validator's direct Find calls for this sync pass;
	// ancestor and child lookups go to the underlying Staged tree,
	// DefaultAccess recomputes access on every call, and names come from
	// the keychain's file-key cache.
	staged := tree.NewStaged(mr.remoteBase)
	for id, f := range mr.mergedOverlay {
		if f == nil {
			staged.Remove(id)
		} else {
			staged.Insert(f)
		}
	}
	lazyStaged, err := tree.NewLazy(staged, 4096)
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: build lazy merge tree", err)
	}
	defer lazyStaged.Close()

	opts := validate.Options{Decryptor: e.keychain, Access: validate.DefaultAccess{}, Names: e.keychain}
	if err := validate.Validate(lazyStaged, mr.remoteBase, e.viewer, opts); err != nil {
		logger.Error("sync: merged tree failed validation", "error", err, "watermark", watermark, "pulled", len(remoteFiles), "local_changes", len(localOverlay))
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: merged tree invalid", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase P4 — pull documents.
	for _, f := range remoteFiles {
		if len(f.DocumentHMAC) == 0 {
			continue
		}
		var key docs.ContentKey
		key.ID = f.ID
		copy(key.HMAC[:], f.DocumentHMAC)
		have, err := e.docs.Has(ctx, key)
		if err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: check document presence", err)
		}
		if have {
			continue
		}
		report(progress, PhasePullDocument, &f.ID)
		ciphertext, err := e.wire.GetDocument(ctx, f.ID, f.DocumentHMAC)
		if err != nil {
			return nil, networkError(err)
		}
		if err := verifyDocumentHMAC(e.keychain, mr.remoteBase, f, ciphertext); err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: pulled document hmac mismatch", err)
		}
		if err := e.docs.WriteBase(ctx, key, ciphertext); err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: write pulled document", err)
		}
		status.PulledDocuments++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage the merge's own content-merge writes (three-way textual merges)
	// into local before push, so Phase P6 finds them.
	for _, w := range mr.contentWrites {
		f, ok := mr.mergedOverlay[w.id]
		if !ok {
			continue
		}
		fileKey, err := e.keychain.DecryptFileKey(lazyStaged, w.id)
		if err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: resolve merged file key", err)
		}
		newHMAC, err := e.docs.SafeWrite(ctx, w.id, w.oldHMAC, w.plaintext, fileKey)
		if err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: stage merged content", err)
		}
		f.DocumentHMAC = newHMAC[:]
	}

	// Phase P5 — push metadata.
	var pushed []wire.FileUpsert
	for _, f := range mr.mergedOverlay {
		if f == nil {
			continue
		}
		pushed = append(pushed, wire.FileUpsertFromFile(f))
	}
	if len(pushed) > 0 {
		report(progress, PhasePushMetadata, nil)
		newVersions, err := e.wire.Upsert(ctx, pushed)
		if err != nil {
			var apiErr *wire.APIError
			if errors.As(err, &apiErr) && apiErr.IsConflict() && allowRetry {
				return e.run(ctx, progress, false)
			}
			return nil, networkError(err)
		}
		for id, v := range newVersions {
			if f, ok := mr.mergedOverlay[id]; ok && f != nil {
				f.Version = v
				f.LastModifiedBy = e.viewer
			}
		}
		status.PushedFiles = len(pushed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase P6 — push documents: every local content write whose metadata
	// was just accepted (present in mergedOverlay with a document hmac that
	// differs from what's already in the base namespace).
	for id, f := range mr.mergedOverlay {
		if f == nil || len(f.DocumentHMAC) == 0 {
			continue
		}
		var key docs.ContentKey
		key.ID = id
		copy(key.HMAC[:], f.DocumentHMAC)
		baseHas, err := e.docs.Has(ctx, key)
		if err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: check document presence", err)
		}
		if baseHas {
			continue
		}
		ciphertext, err := e.docs.Read(ctx, key)
		if errors.Is(err, docs.ErrNotFound) {
			continue // metadata references content this device never wrote (e.g. a pulled remote edit)
		}
		if err != nil {
			return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: read local document", err)
		}
		report(progress, PhasePushDocument, &id)
		oldFile, _ := base.Find(id)
		var oldHMAC []byte
		if oldFile != nil {
			oldHMAC = oldFile.DocumentHMAC
		}
		if err := e.wire.ChangeDocumentContent(ctx, id, oldHMAC, f.DocumentHMAC, ciphertext); err != nil {
			return nil, networkError(err)
		}
		status.PushedDocuments++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase P7 — commit.
	newBase := mr.remoteBase
	reachable := make(map[docs.ContentKey]struct{})
	for _, f := range mr.mergedOverlay {
		if f != nil {
			newBase.Insert(f)
		}
	}
	for _, id := range newBase.IDs() {
		f, ok := newBase.Find(id)
		if ok && len(f.DocumentHMAC) > 0 {
			var key docs.ContentKey
			key.ID = id
			copy(key.HMAC[:], f.DocumentHMAC)
			reachable[key] = struct{}{}
			if err := e.docs.Promote(ctx, key); err != nil {
				return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: promote document", err)
			}
		}
	}
	if err := e.store.SaveBaseTree(newBase); err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: save base tree", err)
	}
	if err := e.store.ClearLocalOverlay(); err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: clear local overlay", err)
	}
	newWatermark := watermark
	for _, f := range remoteFiles {
		if f.Version > newWatermark {
			newWatermark = f.Version
		}
	}
	for _, f := range mr.mergedOverlay {
		if f != nil && f.Version > newWatermark {
			newWatermark = f.Version
		}
	}
	if err := e.store.SetWatermark(newWatermark); err != nil {
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "sync: advance watermark", err)
	}
	if _, err := e.docs.GC(ctx, reachable); err != nil {
		logger.Warn("sync: gc pass failed", "error", err)
	}

	report(progress, PhaseComplete, nil)
	return status, nil
}

// verifyDocumentHMAC decrypts ciphertext and confirms its plaintext hmac
// matches f's metadata hmac, per spec.md §4.4 Phase P4.
func verifyDocumentHMAC(keychain *crypto.Keychain, view tree.Tree, f *model.File, ciphertext []byte) error {
	key, err := keychain.DecryptFileKey(view, f.ID)
	if err != nil {
		return err
	}
	plain, err := crypto.OpenBytes(key, ciphertext)
	if err != nil {
		return err
	}
	got := hmacDocument(key, plain)
	var want [32]byte
	copy(want[:], f.DocumentHMAC)
	if got != want {
		return errors.New("document hmac does not match metadata")
	}
	return nil
}

func networkError(err error) error {
	var apiErr *wire.APIError
	if errors.As(err, &apiErr) {
		return lberrors.Network(string(apiErr.Kind), apiErr.Message)
	}
	return lberrors.Wrap(lberrors.KindNetwork, "sync: wire request failed", err)
}

// CalculateWork reports whether a sync would do anything, without
// performing one: the watermark lookup and local overlay size are cheap
// local checks, while pending-remote-update detection still requires a
// round trip, per spec.md §6's calculate_work operation.
func (e *Engine) CalculateWork(ctx context.Context) (hasRemoteWork, hasLocalWork bool, err error) {
	watermark, err := e.store.GetWatermark()
	if err != nil {
		return false, false, err
	}
	updates, err := e.wire.GetUpdates(ctx, watermark)
	if err != nil {
		return false, false, networkError(err)
	}
	overlay, err := e.store.LoadLocalOverlay()
	if err != nil {
		return false, false, err
	}
	return len(updates) > 0, len(overlay) > 0, nil
}

// LastSyncedVersion returns the watermark: the last server metadata
// version this store has fully incorporated into base, per spec.md §6's
// get_last_synced. The core layer tracks wall-clock time of last sync
// separately, since the watermark itself is an opaque version counter.
func (e *Engine) LastSyncedVersion() (uint64, error) {
	return e.store.GetWatermark()
}
