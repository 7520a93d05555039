package core

import (
	"context"
	"strings"

	"github.com/lockbook/lockbook/pkg/crypto"
	"github.com/lockbook/lockbook/pkg/lberrors"
	"github.com/lockbook/lockbook/pkg/model"
)

// PathFilter narrows ListPaths to a subset of the visible tree, per
// spec.md §6's list_paths(filter).
type PathFilter int

const (
	FilterAll PathFilter = iota
	FilterDocumentsOnly
	FilterFoldersOnly
	FilterLeafNodesOnly
)

// pathForLocked renders id's full path, root's decrypted name first (the
// owner's username, since CreateAccount seals the root's own name as its
// username). A segment this account cannot decrypt (an ancestor in a
// foreign owner's chain this account has no grant on) falls back to the
// file's short id, so one undecryptable ancestor degrades a path instead
// of failing it outright.
func (lb *Lb) pathForLocked(id model.FileID) (string, bool, error) {
	f, ok := lb.lazy.Find(id)
	if !ok {
		return "", false, lberrors.NotFound("file", id.String())
	}
	chain := lb.lazy.Ancestors(id)
	if len(chain) == 0 {
		return "", false, lberrors.NotFound("file", id.String())
	}

	segments := make([]string, len(chain))
	for i, ancestorID := range chain {
		af, ok := lb.lazy.Find(ancestorID)
		if !ok {
			segments[i] = ancestorID.String()[:8]
			continue
		}
		name, err := lb.decryptName(af)
		if err != nil {
			segments[i] = ancestorID.String()[:8]
			continue
		}
		segments[i] = name
	}

	// chain is nearest-first (id, ..., root); reverse for root-first display.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	path := strings.Join(segments, "/")
	if f.Type == model.Folder || f.IsRoot() {
		path += "/"
	}
	return path, true, nil
}

// GetPathByID renders id's full path, per spec.md §6's get_path_by_id.
func (lb *Lb) GetPathByID(id model.FileID) (string, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return "", err
	}
	path, _, err := lb.pathForLocked(id)
	return path, err
}

// GetByPath resolves a full path (username/.../name) to its metadata, per
// spec.md §6's get_by_path. A first segment equal to this account's
// username is stripped, so both "/folder/doc" and "username/folder/doc"
// resolve; any other first segment is looked up as a child of the root.
func (lb *Lb) GetByPath(path string) (*FileMetadata, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	root, ok := lb.findRootLocked()
	if !ok {
		return nil, lberrors.NotFound("root", "")
	}
	segments := splitPath(path)
	if len(segments) > 0 && segments[0] == lb.username {
		segments = segments[1:]
	}

	cur := root
	for _, seg := range segments {
		found, err := lb.findChildByNameLocked(cur.ID, seg)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, lberrors.NotFound("path", path)
		}
		cur = found
	}
	return lb.toMetadata(cur)
}

func (lb *Lb) findChildByNameLocked(parentID model.FileID, name string) (*model.File, error) {
	for _, childID := range lb.lazy.Children(parentID) {
		child, ok := lb.lazy.Find(childID)
		if !ok || child.Deleted {
			continue
		}
		childName, err := lb.decryptName(child)
		if err != nil {
			continue
		}
		if childName == name {
			return child, nil
		}
	}
	return nil, nil
}

// CreateAtPath creates every missing folder along path, and a final
// document unless path ends in "/", per spec.md §6's create_at_path.
func (lb *Lb) CreateAtPath(ctx context.Context, path string) (*FileMetadata, error) {
	isFolder := strings.HasSuffix(path, "/")
	return lb.createAlongPath(ctx, path, isFolder, nil)
}

// CreateLinkAtPath creates a link at path resolving to targetID, per
// spec.md §6's create_link_at_path.
func (lb *Lb) CreateLinkAtPath(ctx context.Context, path string, targetID model.FileID) (*FileMetadata, error) {
	target := &model.LinkTarget{TargetID: targetID}
	return lb.createAlongPath(ctx, path, false, target)
}

func (lb *Lb) createAlongPath(_ context.Context, path string, leafIsFolder bool, linkTarget *model.LinkTarget) (*FileMetadata, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	root, ok := lb.findRootLocked()
	if !ok {
		return nil, lberrors.NotFound("root", "")
	}
	segments := splitPath(path)
	if len(segments) > 0 && segments[0] == lb.username {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return nil, lberrors.New(lberrors.KindValidation, "core: empty path")
	}

	parent := root
	for i, seg := range segments {
		isLeaf := i == len(segments)-1
		existing, err := lb.findChildByNameLocked(parent.ID, seg)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if isLeaf {
				return nil, lberrors.Conflict("path already exists", path)
			}
			parent = existing
			continue
		}

		fileType := model.Folder
		if isLeaf && !leafIsFolder {
			fileType = model.Document
			if linkTarget != nil {
				fileType = model.Link
			}
		}
		f, err := lb.insertNamedFileLocked(seg, parent.ID, fileType, linkTarget)
		if err != nil {
			return nil, err
		}
		parent = f
	}
	return lb.toMetadata(parent)
}

// insertNamedFileLocked is CreateFile's body, reused by path creation so
// both call sites share one staged-insert/derive-key/validate sequence.
func (lb *Lb) insertNamedFileLocked(name string, parentID model.FileID, fileType model.FileType, linkTarget *model.LinkTarget) (*model.File, error) {
	// A link lives in its creator's own tree and points elsewhere, so it
	// keeps the viewer as owner (invariant 7 requires it to differ from
	// the target's). A document or folder inherits its parent's owner
	// instead: ownership belongs to the subtree root, not to whoever
	// happened to create the file (pkg/validate's owner-matches-parent
	// check enforces this for every non-link file, the case that lets a
	// write-share recipient create files inside the shared subtree).
	owner := lb.viewer()
	if fileType != model.Link {
		if parent, ok := lb.lazy.Find(parentID); ok {
			owner = parent.Owner
		}
	}

	id := model.NewFileID()
	f := &model.File{
		ID:         id,
		ParentID:   parentID,
		Type:       fileType,
		Owner:      owner,
		LinkTarget: linkTarget,
	}
	lb.stage(f)

	key, err := lb.keychain.DecryptFileKey(lb.lazy, id)
	if err != nil {
		_ = lb.reloadLocked()
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "core: derive new file key", err)
	}
	sealedName, err := crypto.SealBytes(key, []byte(name))
	if err != nil {
		_ = lb.reloadLocked()
		return nil, lberrors.Wrap(lberrors.KindUnexpected, "core: seal new file name", err)
	}
	f.EncryptedName = sealedName

	if err := lb.applyAndValidate(f); err != nil {
		return nil, err
	}
	lb.tracker.MarkCreated(id)
	if err := lb.commit(); err != nil {
		return nil, err
	}
	return f, nil
}

// ListPaths renders every visible file's path, filtered per filter, per
// spec.md §6's list_paths.
func (lb *Lb) ListPaths(filter PathFilter) ([]string, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if err := lb.requireAccount(); err != nil {
		return nil, err
	}

	var out []string
	for _, id := range lb.lazy.IDs() {
		f, ok := lb.lazy.Find(id)
		if !ok || lb.isDeleted(id) {
			continue
		}
		switch filter {
		case FilterDocumentsOnly:
			if f.Type != model.Document {
				continue
			}
		case FilterFoldersOnly:
			if f.Type != model.Folder {
				continue
			}
		case FilterLeafNodesOnly:
			if len(lb.lazy.Children(id)) > 0 {
				continue
			}
		}
		path, ok, err := lb.pathForLocked(id)
		if err != nil || !ok {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

func splitPath(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
