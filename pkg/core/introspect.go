package core

import (
	"context"

	"github.com/lockbook/lockbook/pkg/docs"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
)

// Usage reports server-side storage consumption against the account's
// tier cap, per spec.md §6's get_usage.
type Usage struct {
	UsedBytes uint64
	CapBytes  uint64
}

// GetUsage queries the server for this account's current storage usage,
// per spec.md §6's get_usage.
func (lb *Lb) GetUsage(ctx context.Context) (*Usage, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	reqCtx, cancel := withContext(ctx)
	defer cancel()
	resp, err := lb.wire.GetUsage(reqCtx)
	if err != nil {
		return nil, translateWireErr(err)
	}
	return &Usage{UsedBytes: resp.UsedBytes, CapBytes: resp.CapBytes}, nil
}

// GetUncompressedUsage sums every document's plaintext size across the
// locally visible tree, per spec.md §6's get_uncompressed_usage: the
// server only ever sees ciphertext, so this figure can only be computed
// locally, and only for documents this account can currently decrypt.
func (lb *Lb) GetUncompressedUsage(ctx context.Context) (uint64, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return 0, err
	}

	var total uint64
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok || f.Deleted || f.Type != model.Document {
			continue
		}
		key, hasContent := contentKeyFor(f)
		if !hasContent {
			continue
		}
		fileKey, err := lb.keychain.DecryptFileKey(lb.lazy, id)
		if err != nil {
			continue
		}
		plain, err := lb.docs.ReadPlaintext(ctx, key, fileKey)
		if err != nil {
			continue
		}
		total += uint64(len(plain))
	}
	return total, nil
}

// IntegrityReport summarizes the result of TestRepoIntegrity, per spec.md
// §6's test_repo_integrity.
type IntegrityReport struct {
	// Orphans are non-root files whose parent id doesn't resolve.
	Orphans []string
	// UndecryptableNames are files whose EncryptedName this account
	// cannot open (a corrupted or mis-keyed entry).
	UndecryptableNames []string
	// MissingDocuments are documents with a DocumentHMAC but no local
	// blob under either document namespace.
	MissingDocuments []string
}

func (r *IntegrityReport) clean() bool {
	return len(r.Orphans) == 0 && len(r.UndecryptableNames) == 0 && len(r.MissingDocuments) == 0
}

// TestRepoIntegrity walks the local tree looking for structural damage
// that validate.Validate wouldn't itself have let in through core's own
// operations, but that an interrupted write or a hand-edited store could
// still produce, per spec.md §6's test_repo_integrity.
func (lb *Lb) TestRepoIntegrity(ctx context.Context) (*IntegrityReport, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	report := &IntegrityReport{}
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok {
			continue
		}
		if !f.IsRoot() {
			if _, ok := lb.lazy.Find(f.ParentID); !ok {
				report.Orphans = append(report.Orphans, id.String())
			}
		}
		if _, err := lb.decryptName(f); err != nil {
			report.UndecryptableNames = append(report.UndecryptableNames, id.String())
		}
		if key, hasContent := contentKeyFor(f); hasContent {
			have, err := lb.docs.Has(ctx, key)
			if err != nil || !have {
				report.MissingDocuments = append(report.MissingDocuments, id.String())
			}
		}
	}
	return report, nil
}

// Status summarizes the account's overall sync/storage state in one
// call, per spec.md §6's status: a convenience aggregate over
// calculate_work, get_last_synced, and get_pending_shares for a UI status
// bar.
type Status struct {
	Username      string
	LastSyncedAt  int64
	HasRemoteWork bool
	HasLocalWork  bool
	PendingShares int
}

// Status reports the account's current sync and pending-work state, per
// spec.md §6's status.
func (lb *Lb) Status(ctx context.Context) (*Status, error) {
	work, err := lb.CalculateWork(ctx)
	if err != nil {
		return nil, err
	}
	shares, err := lb.GetPendingShares(ctx)
	if err != nil {
		return nil, err
	}
	lb.mu.RLock()
	username := lb.username
	lb.mu.RUnlock()
	return &Status{
		Username:      username,
		LastSyncedAt:  lb.GetLastSynced(),
		HasRemoteWork: work.HasRemoteWork,
		HasLocalWork:  work.HasLocalWork,
		PendingShares: len(shares),
	}, nil
}

// Subscribe returns a channel of Events (metadata changes, document
// writes, sync progress, pending-share changes) and a cancel function
// that must be called once the caller is done, per spec.md §6's
// subscribe.
func (lb *Lb) Subscribe() (<-chan Event, func()) {
	return lb.events.Subscribe()
}

// GC reclaims document blobs no longer referenced by any file in base or
// local, grounded on pkg/docs.Store.GC. Not named directly in spec.md's
// operation list but implied by "content-addressed... garbage collected
// independently of metadata sync" in the on-disk layout section.
func (lb *Lb) GC(ctx context.Context) (*docs.Stats, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	reachable := make(map[docs.ContentKey]struct{})
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok {
			continue
		}
		if key, hasContent := contentKeyFor(f); hasContent {
			reachable[key] = struct{}{}
		}
	}
	for _, id := range lb.base.IDs() {
		f, ok := lb.base.Find(id)
		if !ok {
			continue
		}
		if key, hasContent := contentKeyFor(f); hasContent {
			reachable[key] = struct{}{}
		}
	}
	stats, err := lb.docs.GC(ctx, reachable)
	if err != nil {
		return nil, lberrors.Wrap(lberrors.KindDisk, "core: garbage collect documents", err)
	}
	return stats, nil
}
