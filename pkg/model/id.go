// Package model holds the data types shared by every layer of the core:
// file ids, the File entity itself, share grants, and access modes — the
// vocabulary spec.md §3 defines.
package model

import "github.com/google/uuid"

// FileID is the stable 128-bit identifier of a file, per spec.md §3.
// It never changes across renames or moves.
type FileID = uuid.UUID

// NewFileID generates a fresh random file id.
func NewFileID() FileID {
	return uuid.New()
}

// NilFileID is the zero-value file id, used as a sentinel for "no parent"
// only in contexts where a self-loop isn't otherwise representable.
var NilFileID = uuid.Nil

// ParseFileID parses the canonical string form of a FileID.
func ParseFileID(s string) (FileID, error) {
	return uuid.Parse(s)
}
