// Package validate implements the single validation entry point from
// spec.md §4.2: a fixed ordered battery of point, structural, and
// authorization checks over a proposed tree state, returning the first
// violation encountered or success.
//
// Grounded on dittofs's pkg/metadata validation.go (ValidateName,
// ValidatePath, CheckStickyBitRestriction) for the point-check shape and
// pkg/metadata/errors.go (StoreError/ErrorCode/NewXxxError factories) for
// the typed-failure idiom, generalized from a flat NFS error code into the
// named failure kinds the tree/merge/authorization model needs.
package validate

import "fmt"

// Kind names one of the failure modes enumerated in spec.md §4.2. Callers
// switch on Kind rather than parsing Error(), the same discipline dittofs's
// ErrorCode enum enforces on top of StoreError.
type Kind int

const (
	Cycle Kind = iota
	Orphan
	PathConflict
	SharedLink
	BrokenLink
	OwnedLink
	DuplicateLink
	NonFolderWithChildren
	FileWithDifferentOwnerParent
	FileNameTooLong
	DeletedFileUpdated
	InsufficientPermission
	RootModificationInvalid
)

func (k Kind) String() string {
	switch k {
	case Cycle:
		return "Cycle"
	case Orphan:
		return "Orphan"
	case PathConflict:
		return "PathConflict"
	case SharedLink:
		return "SharedLink"
	case BrokenLink:
		return "BrokenLink"
	case OwnedLink:
		return "OwnedLink"
	case DuplicateLink:
		return "DuplicateLink"
	case NonFolderWithChildren:
		return "NonFolderWithChildren"
	case FileWithDifferentOwnerParent:
		return "FileWithDifferentOwnerParent"
	case FileNameTooLong:
		return "FileNameTooLong"
	case DeletedFileUpdated:
		return "DeletedFileUpdated"
	case InsufficientPermission:
		return "InsufficientPermission"
	case RootModificationInvalid:
		return "RootModificationInvalid"
	default:
		return "Unknown"
	}
}

// Failure is the structured validation error spec.md §4.2 requires:
// callers never apply an invalid diff, so Failure always names which id
// and which rule tripped.
type Failure struct {
	Kind    Kind
	FileID  string
	Message string
}

func (f *Failure) Error() string {
	if f.FileID == "" {
		return fmt.Sprintf("validate: %s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("validate: %s on %s: %s", f.Kind, f.FileID, f.Message)
}

func newFailure(kind Kind, id fmt.Stringer, message string) *Failure {
	f := &Failure{Kind: kind, Message: message}
	if id != nil {
		f.FileID = id.String()
	}
	return f
}

// As reports whether err is a *Failure of the given kind.
func As(err error, kind Kind) bool {
	f, ok := err.(*Failure)
	return ok && f.Kind == kind
}
