package core

import (
	"context"
	"errors"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lockbook/lockbook/pkg/changes"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
	lbsync "github.com/lockbook/lockbook/pkg/sync"
)

// WorkCalculated summarizes whether a sync would have anything to do, per
// spec.md §6's calculate_work.
type WorkCalculated struct {
	HasRemoteWork bool
	HasLocalWork  bool
}

// SyncResult is core's own view of lbsync.Status, returned from Sync.
type SyncResult struct {
	PulledFiles     int
	PulledDocuments int
	PushedFiles     int
	PushedDocuments int
	Forked          []model.FileID
}

// CalculateWork reports whether a call to Sync would pull or push
// anything, per spec.md §6's calculate_work.
func (lb *Lb) CalculateWork(ctx context.Context) (*WorkCalculated, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	remote, local, err := lb.engine.CalculateWork(ctx)
	if err != nil {
		return nil, translateWireErr(err)
	}
	return &WorkCalculated{HasRemoteWork: remote, HasLocalWork: local}, nil
}

// Sync runs one synchronization pass, per spec.md §4.4/§6's sync_all. The
// progress callback, if non-nil, receives the same phase transitions the
// underlying engine reports, translated into core's own Event type.
func (lb *Lb) Sync(ctx context.Context, progress func(Event)) (*SyncResult, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	return lb.runSyncLocked(ctx, progress)
}

// runSyncLocked is Sync's body, for callers that already hold lb.mu (e.g.
// ImportAccount's initial pull). It rebuilds the in-memory tree trio from
// the new base once the engine commits, and publishes SyncStarted/
// SyncProgress/SyncEnded events alongside whatever progress reports.
func (lb *Lb) runSyncLocked(ctx context.Context, progress func(Event)) (*SyncResult, error) {
	lb.events.publish(Event{Kind: SyncStarted})

	pending := lb.tracker.All()
	pushedIDs := make([]model.FileID, 0, len(pending))
	for id := range pending {
		pushedIDs = append(pushedIDs, id)
	}

	status, err := lb.engine.Sync(ctx, func(e lbsync.Event) {
		evt := Event{Kind: SyncProgress, Message: string(e.Phase)}
		if e.FileID != nil {
			evt.FileID = *e.FileID
		}
		lb.events.publish(evt)
		if progress != nil {
			progress(evt)
		}
	})
	if err != nil {
		lb.events.publish(Event{Kind: SyncEnded, Err: err})
		if errors.Is(err, lbsync.ErrAlreadySyncing) {
			return nil, lberrors.New(lberrors.KindUnexpected, "core: sync already in progress")
		}
		return nil, translateWireErr(err)
	}

	if err := lb.reloadLocked(); err != nil {
		return nil, err
	}
	// The engine merges the entire pre-sync overlay, pushes whatever still
	// differs from remote and promotes the result into base on success, so
	// every id tracked going in was synced.
	for _, id := range pushedIDs {
		lb.tracker.Clear(id)
	}

	lb.lastSyncMu.Lock()
	lb.lastSyncedAt = time.Now()
	lb.lastSyncMu.Unlock()

	lb.events.publish(Event{Kind: SyncEnded})
	result := &SyncResult{
		PulledFiles:     status.PulledFiles,
		PulledDocuments: status.PulledDocuments,
		PushedFiles:     status.PushedFiles,
		PushedDocuments: status.PushedDocuments,
		Forked:          status.Forked,
	}
	return result, nil
}

// GetLastSynced returns the unix timestamp (ms) of the last successful
// sync, or zero if none has happened yet, per spec.md §6's
// get_last_synced.
func (lb *Lb) GetLastSynced() int64 {
	lb.lastSyncMu.RLock()
	defer lb.lastSyncMu.RUnlock()
	if lb.lastSyncedAt.IsZero() {
		return 0
	}
	return lb.lastSyncedAt.UnixMilli()
}

// GetLastSyncedHuman renders GetLastSynced as a relative duration (e.g.
// "3 minutes ago"), per spec.md §6's get_last_synced_human_string.
func (lb *Lb) GetLastSyncedHuman() string {
	lb.lastSyncMu.RLock()
	at := lb.lastSyncedAt
	lb.lastSyncMu.RUnlock()
	if at.IsZero() {
		return "never"
	}
	return humanize.Time(at)
}

// LocalChange describes one file's pending local edits relative to base,
// per spec.md §6's get_local_changes. Implementations may expose either
// the change-tracker's semantic record or the overlay's raw diff; this
// one reports the semantic record, since it's what a UI sync-status
// panel actually wants to render ("renamed", "moved", "edited").
type LocalChange struct {
	ID      model.FileID
	New     bool
	Renamed bool
	Moved   bool
	Edited  bool
	Deleted bool
}

// LocalChanges lists every file with pending local edits not yet pushed
// to the server, per spec.md §6's get_local_changes.
func (lb *Lb) LocalChanges() ([]LocalChange, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	all := lb.tracker.All()
	out := make([]LocalChange, 0, len(all))
	for id, rec := range all {
		out = append(out, recordToLocalChange(id, rec))
	}
	return out, nil
}

func recordToLocalChange(id model.FileID, rec *changes.Record) LocalChange {
	return LocalChange{
		ID:      id,
		New:     rec.New,
		Renamed: rec.RenamedFrom != nil,
		Moved:   rec.MovedFrom != nil,
		Edited:  rec.ContentEditedFrom != nil,
		Deleted: rec.Deleted,
	}
}
