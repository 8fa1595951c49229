package patch

import (
	"fmt"
	"strings"

	"github.com/saworbit/dirdelta/pkg/diff"
	"github.com/saworbit/dirdelta/pkg/manifest"
)

// Summary reports what a create or apply run did.
type Summary struct {
	Manifest   string
	Counts     map[manifest.Kind]int
	FullBytes  int64
	DeltaBytes int64
	// NewBytes is the size of the new side of every updated path.
	NewBytes   int64
	TargetRoot []byte
}

func newSummary() Summary {
	return Summary{Counts: make(map[manifest.Kind]int, len(manifest.Kinds))}
}

// Total is the number of manifest records.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// DeltaStats relates the edit script bytes to the updated content they rebuild.
func (s Summary) DeltaStats() diff.Stats {
	return diff.ComputeStats(s.NewBytes, s.DeltaBytes)
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "manifest:   %s\n", s.Manifest)
	for _, k := range manifest.Kinds {
		fmt.Fprintf(&b, "%-11s %d\n", string(k)+":", s.Counts[k])
	}
	fmt.Fprintf(&b, "full bytes:  %d\n", s.FullBytes)
	fmt.Fprintf(&b, "delta bytes: %d", s.DeltaBytes)
	if stats := s.DeltaStats(); stats.NewSize > 0 {
		fmt.Fprintf(&b, " (%.1f%% of updated content)", 100*stats.CompressionRate)
	}
	b.WriteString("\n")
	if s.TargetRoot == nil {
		b.WriteString("tree root:  (empty tree)\n")
	} else {
		fmt.Fprintf(&b, "tree root:  %x\n", s.TargetRoot)
	}
	return b.String()
}
