package diff

import (
	"fmt"
	"io"
)

// Suffix is appended to a path to name its edit-script entry in a patch archive.
const Suffix = ".bsdiff"

// Encoder produces an edit script that rebuilds newData from old.
type Encoder interface {
	// Encode reads old (seekable) and newData (forward only) and writes the
	// edit script to patch, closing patch once the script is complete.
	// Callers that share the underlying stream pass a Borrow view.
	Encode(old io.ReadSeeker, newData io.Reader, patch io.WriteCloser) error
}

// Decoder rebuilds new content from old content and an edit script.
type Decoder interface {
	Apply(old io.Reader, patch io.Reader, out io.Writer) error
}

// Engine is a named delta codec.
type Engine interface {
	Encoder
	Decoder

	// Name returns the name of the diff engine
	Name() string
}

// NewEngine creates a new diff engine based on the specified library
func NewEngine(library string) (Engine, error) {
	switch library {
	case "bsdiff":
		return NewBsdiffEngine(), nil
	case "binarydist":
		return NewBinarydistEngine(), nil
	default:
		return nil, fmt.Errorf("unsupported diff library: %s (must be 'bsdiff' or 'binarydist')", library)
	}
}

// Stats holds statistics about a diff operation
type Stats struct {
	NewSize         int64   // Size of new data
	PatchSize       int64   // Size of patch data
	CompressionRate float64 // Patch size / new size (lower is better)
}

// ComputeStats calculates statistics for a diff operation
func ComputeStats(newSize, patchSize int64) Stats {
	stats := Stats{
		NewSize:   newSize,
		PatchSize: patchSize,
	}

	if newSize > 0 {
		stats.CompressionRate = float64(patchSize) / float64(newSize)
	}

	return stats
}

// Borrow hands w to an encoder as a WriteCloser whose Close leaves w open.
// The archive outlives every per-entry write, so only its owner may close it.
func Borrow(w io.Writer) io.WriteCloser {
	return borrowed{w}
}

type borrowed struct {
	io.Writer
}

func (borrowed) Close() error { return nil }

// CountingWriter counts bytes passed through to W.
type CountingWriter struct {
	W io.Writer
	N int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.N += int64(n)
	return n, err
}

// isEmpty reports whether old holds no bytes and leaves it rewound.
func isEmpty(old io.ReadSeeker) (bool, error) {
	size, err := old.Seek(0, io.SeekEnd)
	if err != nil {
		return false, fmt.Errorf("seek old source: %w", err)
	}
	if _, err := old.Seek(0, io.SeekStart); err != nil {
		return false, fmt.Errorf("rewind old source: %w", err)
	}
	return size == 0, nil
}
