// Package changes implements the legacy local-changes tracking structure
// from spec.md §4.7: a per-id change record the core consults for
// local_changes() and whose collapse-to-origin / purge-on-delete-of-
// unsynced-new behaviors must hold regardless of which representation
// (this one, or the modern Staged-diff one in pkg/sync) a caller prefers.
//
// Grounded on dittofs's pkg/metadata change-tracking idiom (small struct
// of Option-like pointer fields plus a monotonic sequence number) — no
// single teacher file does exactly this, since dittofs doesn't stage
// client-side changes against a remote, so this is built from spec.md's
// field list directly and noted as such in DESIGN.md.
package changes

import (
	"github.com/lockbook/lockbook/pkg/model"
)

// Record is the per-id change record from spec.md §4.7.
type Record struct {
	// RenamedFrom holds the prior encrypted name, if this id has been
	// renamed locally since the last sync.
	RenamedFrom []byte
	// MovedFrom holds the prior parent id, if this id has been moved
	// locally since the last sync.
	MovedFrom *model.FileID
	// New marks a file created locally and never yet synced.
	New bool
	// ContentEditedFrom holds the prior document hmac, if local content
	// was written since the last sync.
	ContentEditedFrom []byte
	// Deleted marks a local deletion.
	Deleted bool
	// TimestampMillis is monotonic within a process, per spec.md §4.7.
	TimestampMillis int64
}

// IsEmpty reports whether r carries no pending change at all, meaning its
// entry should be purged from the tracking map entirely.
func (r *Record) IsEmpty() bool {
	return r == nil || (r.RenamedFrom == nil && r.MovedFrom == nil && !r.New &&
		r.ContentEditedFrom == nil && !r.Deleted)
}

// Tracker holds one Record per changed file id, keyed by id.
type Tracker struct {
	records map[model.FileID]*Record
	nowFn   func() int64
}

// NewTracker builds an empty Tracker. nowFn supplies the monotonic
// millisecond clock used to stamp records; production callers pass
// time.Now().UnixMilli, tests pass a deterministic stub.
func NewTracker(nowFn func() int64) *Tracker {
	return &Tracker{records: make(map[model.FileID]*Record), nowFn: nowFn}
}

// Get returns the record for id, or nil if untracked.
func (t *Tracker) Get(id model.FileID) *Record {
	return t.records[id]
}

// All returns every tracked record, keyed by id.
func (t *Tracker) All() map[model.FileID]*Record {
	out := make(map[model.FileID]*Record, len(t.records))
	for id, r := range t.records {
		out[id] = r
	}
	return out
}

func (t *Tracker) touch(id model.FileID) *Record {
	r, ok := t.records[id]
	if !ok {
		r = &Record{}
		t.records[id] = r
	}
	r.TimestampMillis = t.nowFn()
	return r
}

// MarkCreated records a locally-created file.
func (t *Tracker) MarkCreated(id model.FileID) {
	r := t.touch(id)
	r.New = true
}

// MarkRenamed records a rename, collapsing to no-op if encryptedName
// matches the name this id had before any pending rename (return-to-origin
// collapses the change, per spec.md §4.7 and §8).
func (t *Tracker) MarkRenamed(id model.FileID, priorEncryptedName, newEncryptedName []byte) {
	r := t.touch(id)
	if r.RenamedFrom == nil {
		r.RenamedFrom = append([]byte(nil), priorEncryptedName...)
	}
	if bytesEqual(r.RenamedFrom, newEncryptedName) {
		r.RenamedFrom = nil
	}
	t.pruneIfEmpty(id, r)
}

// MarkMoved records a move, collapsing to no-op on return to the original
// parent.
func (t *Tracker) MarkMoved(id model.FileID, priorParent, newParent model.FileID) {
	r := t.touch(id)
	if r.MovedFrom == nil {
		p := priorParent
		r.MovedFrom = &p
	}
	if *r.MovedFrom == newParent {
		r.MovedFrom = nil
	}
	t.pruneIfEmpty(id, r)
}

// MarkContentEdited records a document write.
func (t *Tracker) MarkContentEdited(id model.FileID, priorHMAC []byte) {
	r := t.touch(id)
	if r.ContentEditedFrom == nil {
		r.ContentEditedFrom = append([]byte(nil), priorHMAC...)
	}
}

// MarkDeleted records a local deletion. If id was created locally and
// never synced, the whole record is purged instead (spec.md §4.7's
// "deleting a file that was created locally and never synced purges the
// record entirely").
func (t *Tracker) MarkDeleted(id model.FileID) {
	r := t.touch(id)
	if r.New {
		delete(t.records, id)
		return
	}
	r.Deleted = true
}

func (t *Tracker) pruneIfEmpty(id model.FileID, r *Record) {
	if r.IsEmpty() {
		delete(t.records, id)
	}
}

// Clear removes id's record entirely, e.g. after sync promotes it.
func (t *Tracker) Clear(id model.FileID) {
	delete(t.records, id)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
