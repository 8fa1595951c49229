// Package classify splits two snapshots into created, deleted, updated and
// unchanged paths.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/saworbit/dirdelta/pkg/errs"
)

// Partition is the path-only split of two snapshots. Each list is sorted.
type Partition struct {
	Created  []string // new − old
	Deleted  []string // old − new
	Existing []string // old ∩ new
}

// PartitionPaths computes created, deleted and existing paths. Duplicate or
// malformed paths within either set are format violations.
func PartitionPaths(oldPaths, newPaths []string) (Partition, error) {
	oldSet, err := pathSet("old", oldPaths)
	if err != nil {
		return Partition{}, err
	}
	newSet, err := pathSet("new", newPaths)
	if err != nil {
		return Partition{}, err
	}

	p := Partition{
		Created:  make([]string, 0),
		Deleted:  make([]string, 0),
		Existing: make([]string, 0),
	}
	for path := range newSet {
		if _, ok := oldSet[path]; ok {
			p.Existing = append(p.Existing, path)
		} else {
			p.Created = append(p.Created, path)
		}
	}
	for path := range oldSet {
		if _, ok := newSet[path]; !ok {
			p.Deleted = append(p.Deleted, path)
		}
	}

	sort.Strings(p.Created)
	sort.Strings(p.Deleted)
	sort.Strings(p.Existing)
	return p, nil
}

func pathSet(side string, paths []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if err := checkPath(p); err != nil {
			return nil, errs.Formatf("%s tree: %v", side, err)
		}
		if _, dup := set[p]; dup {
			return nil, errs.Formatf("%s tree lists %q twice", side, p)
		}
		set[p] = struct{}{}
	}
	return set, nil
}

func checkPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty path")
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("path %q starts with a root marker", p)
	case strings.Contains(p, `\`):
		return fmt.Errorf("path %q uses a non-normalized separator", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("path %q has an empty or dot segment", p)
		}
	}
	return nil
}
