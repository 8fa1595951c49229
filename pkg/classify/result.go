package classify

import (
	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/manifest"
)

// Result is the four-way classification of two snapshots. Each list is
// sorted by path and the path sets are pairwise disjoint.
type Result struct {
	Created   []manifest.Entry
	Deleted   []manifest.Entry
	Updated   []manifest.Entry
	Unchanged []manifest.Entry
}

// Group returns the list holding entries of kind k.
func (r Result) Group(k manifest.Kind) []manifest.Entry {
	switch k {
	case manifest.KindCreated:
		return r.Created
	case manifest.KindDeleted:
		return r.Deleted
	case manifest.KindUpdated:
		return r.Updated
	case manifest.KindUnchanged:
		return r.Unchanged
	}
	return nil
}

// Entries returns all records in manifest order.
func (r Result) Entries() []manifest.Entry {
	out := make([]manifest.Entry, 0, r.Len())
	for _, k := range manifest.Kinds {
		out = append(out, r.Group(k)...)
	}
	return out
}

// Len is the total number of classified paths.
func (r Result) Len() int {
	return len(r.Created) + len(r.Deleted) + len(r.Updated) + len(r.Unchanged)
}

// Validate re-checks the result's invariants: every entry sits in the group
// of its kind with well-formed hashes, and paths are sorted and unique
// across all groups.
func (r Result) Validate() error {
	for _, k := range manifest.Kinds {
		for _, e := range r.Group(k) {
			if e.Kind != k {
				return errs.Formatf("%s entry %q filed under %s", e.Kind, e.Path, k)
			}
			if err := e.Check(); err != nil {
				return err
			}
		}
	}
	return manifest.CheckOrder(r.Entries())
}
