package merkle

import (
	"bytes"
	"errors"
	"testing"

	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/manifest"
)

const (
	h1 = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	h2 = "a9993e364706816aba3e25717850c26c9cd0d89d"
	h3 = "81fe8bfe87576c3ecb22426f8e57847382917acf"
)

func TestLeaf(t *testing.T) {
	a := Leaf{Path: "a.txt", Hash: h1}
	b := Leaf{Path: "b.txt", Hash: h1}

	ha, _ := a.CalculateHash()
	hb, _ := b.CalculateHash()
	if bytes.Equal(ha, hb) {
		t.Error("same content at different paths produced same leaf hash")
	}

	equal, err := a.Equals(Leaf{Path: "a.txt", Hash: h1})
	if err != nil || !equal {
		t.Errorf("Equals() = %v, %v; want true", equal, err)
	}
	equal, _ = a.Equals(b)
	if equal {
		t.Error("different leaves should not be equal")
	}
}

func TestTargetLeavesSkipsDeleted(t *testing.T) {
	entries := []manifest.Entry{
		manifest.Created("z", h1),
		manifest.Deleted("gone", h2),
		manifest.Updated("m", h2, h3),
		manifest.Unchanged("a", h1),
	}

	leaves := TargetLeaves(entries)
	want := []Leaf{{"a", h1}, {"m", h3}, {"z", h1}}
	if len(leaves) != len(want) {
		t.Fatalf("got %d leaves, want %d", len(leaves), len(want))
	}
	for i := range want {
		if leaves[i] != want[i] {
			t.Errorf("leaf[%d] = %+v, want %+v", i, leaves[i], want[i])
		}
	}
}

func TestTargetRoot(t *testing.T) {
	tests := []struct {
		name    string
		entries []manifest.Entry
		wantNil bool
	}{
		{"empty", nil, true},
		{"only deletions", []manifest.Entry{manifest.Deleted("a", h1)}, true},
		{"single file", []manifest.Entry{manifest.Created("a", h1)}, false},
		{"several files", []manifest.Entry{
			manifest.Created("a", h1),
			manifest.Updated("b", h1, h2),
			manifest.Unchanged("c", h3),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := TargetRoot(tt.entries)
			if err != nil {
				t.Fatalf("TargetRoot() error = %v", err)
			}
			if (root == nil) != tt.wantNil {
				t.Errorf("TargetRoot() = %x, wantNil %v", root, tt.wantNil)
			}
		})
	}
}

func TestTargetRootIgnoresOldSide(t *testing.T) {
	a, _ := TargetRoot([]manifest.Entry{manifest.Updated("f", h1, h3)})
	b, _ := TargetRoot([]manifest.Entry{manifest.Created("f", h3)})
	if !bytes.Equal(a, b) {
		t.Error("root depends on how the file got there, want new side only")
	}
}

func TestVerifyRoot(t *testing.T) {
	entries := []manifest.Entry{
		manifest.Created("b", h1),
		manifest.Unchanged("a", h2),
	}
	root, err := TargetRoot(entries)
	if err != nil {
		t.Fatal(err)
	}

	// Order of the rebuilt leaves does not matter.
	if err := VerifyRoot([]Leaf{{"b", h1}, {"a", h2}}, root); err != nil {
		t.Errorf("VerifyRoot() error = %v", err)
	}

	err = VerifyRoot([]Leaf{{"a", h2}, {"b", h3}}, root)
	if !errors.Is(err, errs.ErrFormatViolation) {
		t.Errorf("VerifyRoot() error = %v, want format violation", err)
	}

	if err := VerifyRoot(nil, nil); err != nil {
		t.Errorf("VerifyRoot(empty) error = %v", err)
	}
}
