package merkle

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/cbergoon/merkletree"

	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/manifest"
)

// Leaf is one file of a target tree: its relative path and content digest.
type Leaf struct {
	Path string
	Hash string
}

// CalculateHash implements the merkletree.Content interface
func (l Leaf) CalculateHash() ([]byte, error) {
	h := sha256.New()
	h.Write([]byte(l.Path))
	h.Write([]byte{0})
	h.Write([]byte(l.Hash))
	return h.Sum(nil), nil
}

// Equals implements the merkletree.Content interface
func (l Leaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(Leaf)
	if !ok {
		return false, fmt.Errorf("type mismatch")
	}
	return l.Path == o.Path && l.Hash == o.Hash, nil
}

// TargetLeaves returns the files a manifest says the new tree holds, sorted
// by path. Deleted entries have no new side and are left out.
func TargetLeaves(entries []manifest.Entry) []Leaf {
	leaves := make([]Leaf, 0, len(entries))
	for _, e := range entries {
		if e.Kind == manifest.KindDeleted {
			continue
		}
		leaves = append(leaves, Leaf{Path: e.Path, Hash: e.NewHash})
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Path < leaves[j].Path })
	return leaves
}

// Root builds a Merkle tree over leaves in the given order and returns its
// root. An empty leaf set has a nil root.
func Root(leaves []Leaf) ([]byte, error) {
	if len(leaves) == 0 {
		return nil, nil
	}

	contents := make([]merkletree.Content, 0, len(leaves))
	for _, l := range leaves {
		contents = append(contents, l)
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return nil, fmt.Errorf("failed to build Merkle tree: %w", err)
	}
	return tree.MerkleRoot(), nil
}

// TargetRoot identifies the tree a manifest reconstructs.
func TargetRoot(entries []manifest.Entry) ([]byte, error) {
	return Root(TargetLeaves(entries))
}

// VerifyRoot checks that leaves hash to expected.
func VerifyRoot(leaves []Leaf, expected []byte) error {
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Path < leaves[j].Path })
	actual, err := Root(leaves)
	if err != nil {
		return err
	}
	if !bytes.Equal(actual, expected) {
		return errs.Formatf("merkle root mismatch: expected %x, got %x", expected, actual)
	}
	return nil
}
