package validate

import (
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// Decryptor answers whether a viewer holds a sealed copy of a file's key.
// pkg/crypto's Keychain implements this in the running core; tests use a
// trivial stub that checks EncryptedKey directly.
type Decryptor interface {
	CanDecrypt(viewer model.PublicKey, f *model.File) bool
}

// NameResolver recovers the comparable identity of a file's name for
// siblings-uniqueness checks. Real deployments wire pkg/crypto's Keychain,
// which decrypts EncryptedName; validate never assumes decryption succeeds
// for every caller, so a failure here is treated as "cannot compare" rather
// than a hard error.
type NameResolver interface {
	Name(viewer model.PublicKey, f *model.File) (string, bool)
}

// AccessResolver computes a viewer's effective access to a file within a
// given tree view. The default implementation (DefaultAccess) walks
// ownership and share grants; pkg/core may wrap it to add process-level
// caching via pkg/tree.Lazy's Derived method.
type AccessResolver interface {
	EffectiveAccess(view tree.Tree, viewer model.PublicKey, id model.FileID) model.AccessMode
}

// EncryptedKeyDecryptor is the trivial Decryptor: a viewer can decrypt a
// file iff they hold a sealed copy of its key. This is necessary but not
// sufficient in a real keychain (the seal could still fail to open);
// pkg/crypto's Keychain.CanDecrypt makes the same presence check and does
// not unseal either.
type EncryptedKeyDecryptor struct{}

func (EncryptedKeyDecryptor) CanDecrypt(viewer model.PublicKey, f *model.File) bool {
	_, ok := f.EncryptedKey[viewer]
	return ok
}

// DefaultAccess computes access from ownership plus the share-grant list on
// each file of the ancestor chain, taking the highest mode found anywhere
// on it (Owner if the viewer owns any file on the chain). This mirrors spec.md §4.5's "walking from the owned
// ancestor down through parent-sealed children" shape, but for permission
// rather than key material.
type DefaultAccess struct{}

func (DefaultAccess) EffectiveAccess(view tree.Tree, viewer model.PublicKey, id model.FileID) model.AccessMode {
	chain := view.Ancestors(id)
	if len(chain) == 0 {
		return model.NoAccess
	}
	// A share on any ancestor folder cascades to its descendants; take the
	// maximum grant found anywhere along the chain, owner status included.
	best := model.NoAccess
	for i := len(chain) - 1; i >= 0; i-- {
		f, ok := view.Find(chain[i])
		if !ok {
			continue
		}
		if f.Owner == viewer {
			best = model.Owner
			continue
		}
		for _, grant := range f.UserAccessKeys {
			if grant.Deleted || grant.EncryptedFor != viewer {
				continue
			}
			if grant.Mode > best {
				best = grant.Mode
			}
		}
	}
	return best
}
