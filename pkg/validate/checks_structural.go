package validate

import (
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// structuralChecks runs the whole-tree checks from spec.md §4.2: these
// can't be evaluated one id at a time since they compare an id against its
// siblings or against another id's record.
func structuralChecks(staged tree.Tree, viewer model.PublicKey, names NameResolver) error {
	ids := staged.IDs()

	if err := checkAcyclic(staged, ids); err != nil {
		return err
	}
	if err := checkNoOrphans(staged, ids); err != nil {
		return err
	}
	if err := checkPathUniqueness(staged, viewer, names, ids); err != nil {
		return err
	}
	if err := checkLinkInvariants(staged, ids); err != nil {
		return err
	}
	return nil
}

func checkAcyclic(staged tree.Tree, ids []model.FileID) error {
	for _, id := range ids {
		f, ok := staged.Find(id)
		if !ok || f.IsRoot() {
			continue
		}
		seen := map[model.FileID]bool{id: true}
		cur := f.ParentID
		for {
			if seen[cur] {
				return newFailure(Cycle, id, "ancestor chain revisits an already-seen id")
			}
			seen[cur] = true
			pf, ok := staged.Find(cur)
			if !ok {
				break // orphan check handles the missing-ancestor case
			}
			if pf.IsRoot() {
				break
			}
			cur = pf.ParentID
		}
	}
	return nil
}

func checkNoOrphans(staged tree.Tree, ids []model.FileID) error {
	for _, id := range ids {
		f, ok := staged.Find(id)
		if !ok || f.IsRoot() {
			continue
		}
		if _, ok := staged.Find(f.ParentID); !ok {
			return newFailure(Orphan, id, "parent does not exist in the proposed tree")
		}
	}
	return nil
}

func checkPathUniqueness(staged tree.Tree, viewer model.PublicKey, names NameResolver, ids []model.FileID) error {
	if names == nil {
		return nil // no way to compare plaintext names without a resolver
	}
	bySiblingGroup := make(map[model.FileID]map[string]model.FileID)
	for _, id := range ids {
		f, ok := staged.Find(id)
		if !ok || f.IsRoot() || f.Deleted {
			continue
		}
		name, ok := names.Name(viewer, f)
		if !ok {
			continue // viewer can't decrypt this sibling; can't be compared
		}
		siblings := bySiblingGroup[f.ParentID]
		if siblings == nil {
			siblings = make(map[string]model.FileID)
			bySiblingGroup[f.ParentID] = siblings
		}
		if existing, clash := siblings[name]; clash && existing != id {
			return newFailure(PathConflict, id, "duplicate name among siblings: "+name)
		}
		siblings[name] = id
	}
	return nil
}

func checkLinkInvariants(staged tree.Tree, ids []model.FileID) error {
	targets := make(map[model.FileID]model.FileID) // target -> first link id pointing at it
	for _, id := range ids {
		f, ok := staged.Find(id)
		if !ok || f.Type != model.Link {
			continue
		}
		if len(f.UserAccessKeys) > 0 {
			return newFailure(SharedLink, id, "links cannot carry their own share grants")
		}
		if f.LinkTarget == nil {
			return newFailure(BrokenLink, id, "link has no target")
		}
		target, ok := staged.Find(f.LinkTarget.TargetID)
		if !ok {
			return newFailure(BrokenLink, id, "link target does not exist")
		}
		if target.Owner == f.Owner {
			return newFailure(OwnedLink, id, "link target is owned by the link's own owner")
		}
		if existing, dup := targets[f.LinkTarget.TargetID]; dup && existing != id {
			return newFailure(DuplicateLink, id, "another link already points at this target")
		}
		targets[f.LinkTarget.TargetID] = id
	}
	return nil
}
