package core

import (
	"context"

	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
	"github.com/lockbook/lockbook/pkg/validate"
)

// FileMetadata is the decrypted, caller-facing view of a model.File: every
// field a consumer needs without ever touching ciphertext or key material
// itself.
type FileMetadata struct {
	ID             model.FileID
	ParentID       model.FileID
	Name           string
	Type           model.FileType
	Owner          model.PublicKey
	Deleted        bool
	Version        uint64
	LastModifiedBy model.PublicKey
}

// Derived-fact cache kinds stored in lb.lazy, per spec.md §4.1's list of
// what the lazy tree memoizes beyond Find itself (decrypted file key is
// deliberately not one of these: spec.md §3's ownership note puts that
// cache in pkg/crypto.Keychain instead, shared process-wide rather than
// per tree instance).
const (
	derivedName    = "name"
	derivedDeleted = "deleted"
	derivedAccess  = "access"
)

// lazyAccess wraps an AccessResolver with lb.lazy's memoization cache, so
// repeated authorization checks against the same (view, id) during one
// validation pass - or across several operations before the next reload -
// don't re-walk the ancestor/grant chain every time.
type lazyAccess struct {
	lazy     *tree.Lazy
	fallback validate.AccessResolver
}

func (a lazyAccess) EffectiveAccess(view tree.Tree, viewer model.PublicKey, id model.FileID) model.AccessMode {
	v, _ := a.lazy.Derived(derivedAccess, id, func() (any, error) {
		return a.fallback.EffectiveAccess(view, viewer, id), nil
	})
	mode, _ := v.(model.AccessMode)
	return mode
}

func (lb *Lb) validateOpts() validate.Options {
	return validate.Options{
		Decryptor: lb.keychain,
		Access:    lazyAccess{lazy: lb.lazy, fallback: validate.DefaultAccess{}},
		Names:     lb.keychain,
	}
}

// stage inserts f into lb.lazy (which forwards to the underlying lb.local
// overlay) and drops any derived facts memoized for its id, since a
// changed name, deletion flag, or grant set can invalidate any of them.
// This is the "single API that invalidates cache keys" spec.md §9 calls
// for: every mutation reaches lb.local exclusively through here.
func (lb *Lb) stage(f *model.File) {
	lb.lazy.Insert(f)
	lb.lazy.InvalidateDerived(derivedName, f.ID)
	lb.lazy.InvalidateDerived(derivedDeleted, f.ID)
	lb.lazy.InvalidateDerived(derivedAccess, f.ID)
}

// isDeleted reports whether id is deleted, considering ancestor
// propagation (spec.md §3 invariant 8), memoized per spec.md §4.1's
// "deletion status" derived fact.
func (lb *Lb) isDeleted(id model.FileID) bool {
	v, _ := lb.lazy.Derived(derivedDeleted, id, func() (any, error) {
		return tree.IsDeleted(lb.lazy, id), nil
	})
	deleted, _ := v.(bool)
	return deleted
}

// applyAndValidate stages f into lb.lazy, validates the resulting lazy
// staged tree (spec.md §4.2's "validate(lazy_staged_tree, viewer)") against
// lb.base, and rolls back to the last-committed state on failure. On
// success the caller still owes a commit() call.
func (lb *Lb) applyAndValidate(f *model.File) error {
	lb.stage(f)
	if err := validate.Validate(lb.lazy, lb.base, lb.viewer(), lb.validateOpts()); err != nil {
		if rerr := lb.reloadLocked(); rerr != nil {
			return lberrors.Wrap(lberrors.KindUnexpected, "core: rollback after failed validation", rerr)
		}
		return translateValidationErr(err)
	}
	return nil
}

func translateValidationErr(err error) error {
	if f, ok := err.(*validate.Failure); ok {
		switch f.Kind {
		case validate.InsufficientPermission:
			return lberrors.Permission(f.Message, f.FileID)
		case validate.PathConflict:
			return lberrors.Conflict(f.Message, f.FileID)
		default:
			return &lberrors.Problem{Kind: lberrors.KindValidation, SubKind: f.Kind.String(), Message: f.Message, Context: f.FileID}
		}
	}
	return lberrors.Wrap(lberrors.KindUnexpected, "core: validation failed", err)
}

// decryptName resolves f's plaintext name against lb.lazy, memoized per
// spec.md §4.1's "decrypted name" derived fact.
func (lb *Lb) decryptName(f *model.File) (string, error) {
	v, err := lb.lazy.Derived(derivedName, f.ID, func() (any, error) {
		key, err := lb.keychain.DecryptFileKey(lb.lazy, f.ID)
		if err != nil {
			return nil, err
		}
		plain, err := crypto.OpenBytes(key, f.EncryptedName)
		if err != nil {
			return nil, err
		}
		return string(plain), nil
	})
	if err != nil {
		return "", lberrors.Wrap(lberrors.KindUnexpected, "core: decrypt file name", err)
	}
	return v.(string), nil
}

func (lb *Lb) toMetadata(f *model.File) (*FileMetadata, error) {
	name, err := lb.decryptName(f)
	if err != nil {
		return nil, err
	}
	return &FileMetadata{
		ID:             f.ID,
		ParentID:       f.ParentID,
		Name:           name,
		Type:           f.Type,
		Owner:          f.Owner,
		Deleted:        f.Deleted,
		Version:        f.Version,
		LastModifiedBy: f.LastModifiedBy,
	}, nil
}

// Root returns the metadata for the loaded account's own root folder.
func (lb *Lb) Root() (*FileMetadata, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	f, ok := lb.findRootLocked()
	if !ok {
		return nil, lberrors.NotFound("root", "")
	}
	return lb.toMetadata(f)
}

func (lb *Lb) findRootLocked() (*model.File, bool) {
	viewer := lb.viewer()
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok {
			continue
		}
		if f.IsRoot() && f.Owner == viewer {
			return f, true
		}
	}
	return nil, false
}

// CreateFile creates a new file of kind fileType named name under parentID,
// per spec.md §6's create_file. The new file's symmetric key is never
// stored explicitly; it's derived on demand from the nearest keyed
// ancestor, per pkg/crypto.Keychain.DecryptFileKey.
func (lb *Lb) CreateFile(_ context.Context, name string, parentID model.FileID, fileType model.FileType) (*FileMetadata, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	if _, ok := lb.lazy.Find(parentID); !ok {
		return nil, lberrors.NotFound("parent file", parentID.String())
	}

	f, err := lb.insertNamedFileLocked(name, parentID, fileType, nil)
	if err != nil {
		return nil, err
	}
	return lb.toMetadata(f)
}

// RenameFile changes id's decrypted name to newName, per spec.md §6's
// rename_file.
func (lb *Lb) RenameFile(_ context.Context, id model.FileID, newName string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}
	key, err := lb.keychain.DecryptFileKey(lb.lazy, id)
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: resolve file key", err)
	}
	sealed, err := crypto.SealBytes(key, []byte(newName))
	if err != nil {
		return lberrors.Wrap(lberrors.KindUnexpected, "core: seal new name", err)
	}

	clone := f.Clone()
	priorName := clone.EncryptedName
	clone.EncryptedName = sealed

	if err := lb.applyAndValidate(clone); err != nil {
		return err
	}
	lb.tracker.MarkRenamed(id, priorName, sealed)
	return lb.commit()
}

// MoveFile reparents id under newParentID, per spec.md §6's move_file.
func (lb *Lb) MoveFile(_ context.Context, id, newParentID model.FileID) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}
	if _, ok := lb.lazy.Find(newParentID); !ok {
		return lberrors.NotFound("new parent", newParentID.String())
	}

	clone := f.Clone()
	priorParent := clone.ParentID
	clone.ParentID = newParentID

	if err := lb.applyAndValidate(clone); err != nil {
		return err
	}
	lb.tracker.MarkMoved(id, priorParent, newParentID)
	return lb.commit()
}

// Delete marks id (and, for visibility, its descendants) as deleted, per
// spec.md §6's delete and invariant 8. The entry is only pruned from base
// once a sync observes the server side deletion.
func (lb *Lb) Delete(_ context.Context, id model.FileID) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return lberrors.NotFound("file", id.String())
	}
	if f.IsRoot() {
		return lberrors.New(lberrors.KindValidation, "core: cannot delete account root")
	}

	clone := f.Clone()
	clone.Deleted = true

	if err := lb.applyAndValidate(clone); err != nil {
		return err
	}
	lb.tracker.MarkDeleted(id)
	return lb.commit()
}

// ListMetadatas returns every file visible to the account, per spec.md
// §6's list_metadatas.
func (lb *Lb) ListMetadatas() ([]*FileMetadata, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	var out []*FileMetadata
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok || lb.isDeleted(id) {
			continue
		}
		md, err := lb.toMetadata(f)
		if err != nil {
			continue // not decryptable for this viewer; silently excluded
		}
		out = append(out, md)
	}
	return out, nil
}

// GetChildren returns id's direct, visible children, per spec.md §6's
// get_children. A child whose own Deleted flag is unset but which sits
// under a deleted ancestor is still excluded (spec.md §3 invariant 8).
func (lb *Lb) GetChildren(id model.FileID) ([]*FileMetadata, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	var out []*FileMetadata
	for _, childID := range lb.lazy.Children(id) {
		f, ok := lb.lazy.Find(childID)
		if !ok || lb.isDeleted(childID) {
			continue
		}
		md, err := lb.toMetadata(f)
		if err != nil {
			continue
		}
		out = append(out, md)
	}
	return out, nil
}

// GetAndGetChildrenRecursively returns id and every descendant, per
// spec.md §6's get_and_get_children_recursively.
func (lb *Lb) GetAndGetChildrenRecursively(id model.FileID) ([]*FileMetadata, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	f, ok := lb.lazy.Find(id)
	if !ok {
		return nil, lberrors.NotFound("file", id.String())
	}
	root, err := lb.toMetadata(f)
	if err != nil {
		return nil, err
	}
	out := []*FileMetadata{root}

	queue := []model.FileID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, childID := range lb.lazy.Children(cur) {
			child, ok := lb.lazy.Find(childID)
			if !ok || lb.isDeleted(childID) {
				continue
			}
			md, err := lb.toMetadata(child)
			if err != nil {
				continue
			}
			out = append(out, md)
			queue = append(queue, childID)
		}
	}
	return out, nil
}

// GetFileByID looks up a single file, per spec.md §6's get_file_by_id.
func (lb *Lb) GetFileByID(id model.FileID) (*FileMetadata, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}
	f, ok := lb.lazy.Find(id)
	if !ok {
		return nil, lberrors.NotFound("file", id.String())
	}
	return lb.toMetadata(f)
}
