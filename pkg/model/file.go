package model

// FileType is one of the three kinds of file entity, per spec.md §3.
type FileType int

const (
	// Document holds content, addressed by its hmac.
	Document FileType = iota
	// Folder holds children.
	Folder
	// Link appears in one user's tree and resolves to a file owned by another.
	Link
)

func (t FileType) String() string {
	switch t {
	case Document:
		return "Document"
	case Folder:
		return "Folder"
	case Link:
		return "Link"
	default:
		return "Unknown"
	}
}

// MaxEncryptedNameLen bounds the ciphertext size of an encrypted_name, per
// spec.md invariant 6. The server only ever sees ciphertext, so this is
// checked against the sealed bytes, not the plaintext name (see SPEC_FULL.md §3).
const MaxEncryptedNameLen = 528

// AccessMode is the permission level a share grant (or ownership) confers.
type AccessMode int

const (
	// NoAccess means the viewer has no path to this file.
	NoAccess AccessMode = iota
	// Read allows decrypting and reading content, but not mutating.
	Read
	// Write allows mutating the file and its descendants.
	Write
	// Owner is reserved for the account that owns the file's root subtree.
	Owner
)

func (m AccessMode) String() string {
	switch m {
	case NoAccess:
		return "NoAccess"
	case Read:
		return "Read"
	case Write:
		return "Write"
	case Owner:
		return "Owner"
	default:
		return "Unknown"
	}
}

// AtLeast reports whether m confers at least `other`.
func (m AccessMode) AtLeast(other AccessMode) bool {
	return m >= other
}

// PublicKey identifies an account. Sealed key material and signatures are
// always relative to one of these.
type PublicKey string

// ShareGrant is a user access key: a sealed file key plus the mode it grants,
// per spec.md §3.
type ShareGrant struct {
	EncryptedBy PublicKey
	EncryptedFor PublicKey
	Mode        AccessMode
	Deleted     bool
	// SealedFileKey is the file's symmetric key, sealed to EncryptedFor.
	SealedFileKey []byte
}

// IsShare reports whether this grant confers access to someone other than
// the file's owner and hasn't been revoked.
func (g ShareGrant) IsShare(owner PublicKey) bool {
	return !g.Deleted && g.EncryptedFor != owner
}

// LinkTarget identifies the file a Link resolves to.
type LinkTarget struct {
	TargetID FileID
}

// File is the unit of metadata, per spec.md §3.
type File struct {
	ID       FileID
	ParentID FileID
	Type     FileType
	Owner    PublicKey

	// EncryptedName is an AEAD ciphertext over the plaintext name, sealed
	// under this file's own symmetric key.
	EncryptedName []byte

	// EncryptedKey holds the file's symmetric key, sealed once per user who
	// can reach it: the owner, plus every share recipient. Keyed by public key
	// so the keychain can look up "my sealed copy" directly.
	EncryptedKey map[PublicKey][]byte

	// DocumentHMAC is the content hash of the document's plaintext, nil for
	// folders and links, and nil for a document with no content written yet.
	DocumentHMAC []byte

	// UserAccessKeys is the set of share grants on this file.
	UserAccessKeys []ShareGrant

	// LinkTarget is set only when Type == Link.
	LinkTarget *LinkTarget

	// Deleted marks this file (and, for visibility purposes, its descendants)
	// as removed. A deleted file may not receive further non-deletion changes.
	Deleted bool

	// Version is the server-assigned monotonically increasing version number,
	// zero for files that have never been synced.
	Version uint64

	// LastModifiedBy is the public key of whoever last wrote this version.
	LastModifiedBy PublicKey
}

// IsRoot reports whether this file is an account root (self-loop).
func (f *File) IsRoot() bool {
	return f.ID == f.ParentID
}

// Clone returns a deep-enough copy of f for use as a staged mutation base;
// slices and maps are copied so mutating the clone never aliases f.
func (f *File) Clone() *File {
	clone := *f
	if f.EncryptedName != nil {
		clone.EncryptedName = append([]byte(nil), f.EncryptedName...)
	}
	if f.DocumentHMAC != nil {
		clone.DocumentHMAC = append([]byte(nil), f.DocumentHMAC...)
	}
	if f.EncryptedKey != nil {
		clone.EncryptedKey = make(map[PublicKey][]byte, len(f.EncryptedKey))
		for k, v := range f.EncryptedKey {
			clone.EncryptedKey[k] = append([]byte(nil), v...)
		}
	}
	if f.UserAccessKeys != nil {
		clone.UserAccessKeys = append([]ShareGrant(nil), f.UserAccessKeys...)
	}
	if f.LinkTarget != nil {
		target := *f.LinkTarget
		clone.LinkTarget = &target
	}
	return &clone
}
