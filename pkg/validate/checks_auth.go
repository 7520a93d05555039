package validate

import (
	"bytes"

	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// authorizationChecks enforces spec.md §4.2's authorization rationale:
// access for a changed field is checked against the BASE view of the
// file's parent (the most permissive view, since write and owner must be
// indistinguishable under composition of individually-valid operations),
// except for new files whose parent is itself new, where authority
// inherits from the nearest existing ancestor.
func authorizationChecks(staged, base tree.Tree, viewer model.PublicKey, access AccessResolver, ids []model.FileID) error {
	for _, id := range ids {
		newF, haveNew := staged.Find(id)
		oldF, haveOld := base.Find(id)

		switch {
		case haveNew && !haveOld:
			if err := authorizeNewFile(staged, base, viewer, access, newF); err != nil {
				return err
			}
		case haveOld && !haveNew:
			if err := authorizeRequiresWrite(base, viewer, access, oldF.ID, oldF.ParentID); err != nil {
				return err
			}
		case haveOld && haveNew:
			if err := authorizeChangedFile(base, viewer, access, oldF, newF); err != nil {
				return err
			}
		}
	}
	return nil
}

// authorizeNewFile requires Write on the nearest ancestor that already
// exists in base, walking up through newly-created ancestors as needed.
func authorizeNewFile(staged, base tree.Tree, viewer model.PublicKey, access AccessResolver, f *model.File) error {
	cur := f.ParentID
	for {
		if _, ok := base.Find(cur); ok {
			break
		}
		parentFile, ok := staged.Find(cur)
		if !ok || parentFile.IsRoot() {
			break
		}
		cur = parentFile.ParentID
	}
	if access.EffectiveAccess(base, viewer, cur) < model.Write {
		return newFailure(InsufficientPermission, f.ID, "creating a file requires write access on its nearest existing ancestor")
	}
	return nil
}

func authorizeRequiresWrite(base tree.Tree, viewer model.PublicKey, access AccessResolver, id, parentID model.FileID) error {
	if access.EffectiveAccess(base, viewer, parentID) < model.Write {
		return newFailure(InsufficientPermission, id, "operation requires write access on the base view of the parent")
	}
	return nil
}

func authorizeChangedFile(base tree.Tree, viewer model.PublicKey, access AccessResolver, old, next *model.File) error {
	if old.Owner != next.Owner {
		return newFailure(InsufficientPermission, next.ID, "changing an existing file's owner is not permitted")
	}

	fieldsChanged := old.ParentID != next.ParentID ||
		old.Deleted != next.Deleted ||
		!bytes.Equal(old.EncryptedName, next.EncryptedName) ||
		!bytes.Equal(old.DocumentHMAC, next.DocumentHMAC)

	if fieldsChanged {
		if err := authorizeRequiresWrite(base, viewer, access, old.ID, old.ParentID); err != nil {
			return err
		}
	}

	return authorizeShareChanges(base, viewer, access, old, next)
}

// authorizeShareChanges applies the share-specific rules: granting
// requires at least the granted mode, revoking someone else's grant
// requires Write, self-revoke is always permitted, raising your own mode
// beyond what you currently have is forbidden, and changing any grant's
// mode requires at least the new mode.
func authorizeShareChanges(base tree.Tree, viewer model.PublicKey, access AccessResolver, old, next *model.File) error {
	oldGrants := indexGrants(old.UserAccessKeys)
	newGrants := indexGrants(next.UserAccessKeys)
	viewerAccess := access.EffectiveAccess(base, viewer, old.ParentID)

	for key, grant := range newGrants {
		prior, existed := oldGrants[key]

		switch {
		case !existed:
			if viewerAccess < grant.Mode {
				return newFailure(InsufficientPermission, next.ID, "granting access requires at least the granted mode")
			}
		case grant.Deleted && !prior.Deleted:
			if grant.EncryptedFor == viewer {
				continue // self-revoke always permitted
			}
			if viewerAccess < model.Write {
				return newFailure(InsufficientPermission, next.ID, "revoking another user's grant requires write access")
			}
		case grant.Mode != prior.Mode:
			if grant.EncryptedFor == viewer && grant.Mode > viewerAccess {
				return newFailure(InsufficientPermission, next.ID, "cannot raise your own access beyond what you currently hold")
			}
			if viewerAccess < grant.Mode {
				return newFailure(InsufficientPermission, next.ID, "changing a grant's mode requires at least that mode")
			}
		}
	}
	return nil
}

type grantKey struct {
	by, for_ model.PublicKey
}

func indexGrants(grants []model.ShareGrant) map[grantKey]model.ShareGrant {
	out := make(map[grantKey]model.ShareGrant, len(grants))
	for _, g := range grants {
		out[grantKey{by: g.EncryptedBy, for_: g.EncryptedFor}] = g
	}
	return out
}
