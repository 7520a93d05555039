package validate

import (
	"github.com/lockbook/lockbook/pkg/model"
	"github.com/lockbook/lockbook/pkg/tree"
)

// Options carries the collaborators Validate needs beyond the two trees:
// a Decryptor for the per-file decryptability check, an AccessResolver for
// authorization, and an optional NameResolver for sibling path-uniqueness.
// Zero-value Options runs every check it can without a NameResolver; pass
// one backed by pkg/crypto's Keychain for full coverage.
type Options struct {
	Decryptor Decryptor
	Access    AccessResolver
	Names     NameResolver
}

// DefaultOptions returns the stock resolvers: EncryptedKeyDecryptor and
// DefaultAccess. Callers with a live keychain should override both.
func DefaultOptions() Options {
	return Options{Decryptor: EncryptedKeyDecryptor{}, Access: DefaultAccess{}}
}

// Validate is the single entry point from spec.md §4.2: validate(staged,
// viewer). staged is the proposed tree state (typically base ⊕ local, or
// the merged tree during sync); base is the prior accepted state used for
// diffing and for the "most permissive" parent-access rule. Validate runs
// point checks per id, then whole-tree structural checks, then
// authorization checks, returning the first *Failure encountered.
func Validate(staged, base tree.Tree, viewer model.PublicKey, opts Options) error {
	if opts.Access == nil {
		opts.Access = DefaultAccess{}
	}

	ids := staged.IDs()
	for _, id := range ids {
		if err := pointChecks(staged, base, viewer, opts.Decryptor, id); err != nil {
			return err
		}
	}

	if err := structuralChecks(staged, viewer, opts.Names); err != nil {
		return err
	}

	allIDs := unionIDs(staged, base)
	if err := authorizationChecks(staged, base, viewer, opts.Access, allIDs); err != nil {
		return err
	}

	return nil
}

func unionIDs(a, b tree.Tree) []model.FileID {
	seen := make(map[model.FileID]struct{})
	var out []model.FileID
	for _, id := range a.IDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b.IDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
