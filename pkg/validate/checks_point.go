package validate

import (
	"bytes"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// pointChecks runs the six per-id checks from spec.md §4.2 against a single
// file in the proposed (staged) tree, consulting base for the "was this
// already deleted / is this the root" comparisons. Grounded on dittofs's
// per-field StoreError factories (NewNotFoundError, NewAccessDeniedError,
// etc.) in spirit: one small, named check per function, run in a fixed
// order below.
func pointChecks(staged, base tree.Tree, viewer model.PublicKey, dec Decryptor, id model.FileID) error {
	f, ok := staged.Find(id)
	if !ok {
		return nil // removed entirely; nothing to check
	}

	if err := checkRootNotMutated(base, f); err != nil {
		return err
	}
	if err := checkNotChangeToAlreadyDeleted(base, f); err != nil {
		return err
	}
	if err := checkNameSizeLimit(f); err != nil {
		return err
	}
	if err := checkDecryptable(viewer, dec, f); err != nil {
		return err
	}
	if err := checkOnlyFoldersHaveChildren(staged, f); err != nil {
		return err
	}
	if err := checkOwnerMatchesParent(staged, f); err != nil {
		return err
	}
	return nil
}

func checkRootNotMutated(base tree.Tree, f *model.File) error {
	if !f.IsRoot() {
		return nil
	}
	old, ok := base.Find(f.ID)
	if !ok {
		return nil // new root (account creation)
	}
	if old.Owner != f.Owner || old.Type != f.Type || !bytes.Equal(old.EncryptedName, f.EncryptedName) {
		return newFailure(RootModificationInvalid, f.ID, "root identity fields are immutable")
	}
	return nil
}

func checkNotChangeToAlreadyDeleted(base tree.Tree, f *model.File) error {
	old, ok := base.Find(f.ID)
	if !ok || !old.Deleted {
		return nil
	}
	if filesEqual(old, f) {
		return nil // re-asserting the same deleted state is a no-op
	}
	return newFailure(DeletedFileUpdated, f.ID, "cannot modify an already-deleted file")
}

func checkNameSizeLimit(f *model.File) error {
	if len(f.EncryptedName) > model.MaxEncryptedNameLen {
		return newFailure(FileNameTooLong, f.ID, "encrypted name exceeds the maximum sealed length")
	}
	return nil
}

func checkDecryptable(viewer model.PublicKey, dec Decryptor, f *model.File) error {
	if dec == nil {
		return nil
	}
	if f.Owner == viewer {
		return nil // owners always hold their own root key
	}
	if !dec.CanDecrypt(viewer, f) {
		return newFailure(InsufficientPermission, f.ID, "viewer cannot decrypt this file's key")
	}
	return nil
}

func checkOnlyFoldersHaveChildren(staged tree.Tree, f *model.File) error {
	if f.Type == model.Folder {
		return nil
	}
	if len(staged.Children(f.ID)) > 0 {
		return newFailure(NonFolderWithChildren, f.ID, "only folders may have children")
	}
	return nil
}

func checkOwnerMatchesParent(staged tree.Tree, f *model.File) error {
	if f.IsRoot() || f.Type == model.Link {
		return nil // links legitimately cross ownership boundaries
	}
	parent, ok := staged.Find(f.ParentID)
	if !ok {
		return nil // orphan check catches this separately
	}
	if parent.Owner != f.Owner {
		return newFailure(FileWithDifferentOwnerParent, f.ID, "file owner must match its parent's owner")
	}
	return nil
}

func filesEqual(a, b *model.File) bool {
	if a.ParentID != b.ParentID || a.Type != b.Type || a.Owner != b.Owner || a.Deleted != b.Deleted {
		return false
	}
	if !bytes.Equal(a.EncryptedName, b.EncryptedName) || !bytes.Equal(a.DocumentHMAC, b.DocumentHMAC) {
		return false
	}
	return true
}
