package diff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
)

// BsdiffEngine implements Engine using bsdiff
type BsdiffEngine struct{}

// NewBsdiffEngine creates a new bsdiff-based diff engine
func NewBsdiffEngine() *BsdiffEngine {
	return &BsdiffEngine{}
}

// Name returns the name of the engine
func (e *BsdiffEngine) Name() string {
	return "bsdiff"
}

// Encode computes a BSDIFF40 edit script.
func (e *BsdiffEngine) Encode(old io.ReadSeeker, newData io.Reader, patch io.WriteCloser) (err error) {
	defer func() {
		if cerr := patch.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close patch: %w", cerr)
		}
	}()

	empty, err := isEmpty(old)
	if err != nil {
		return err
	}
	if empty {
		// Nothing to copy from: the script is the new content itself.
		_, err := io.Copy(patch, newData)
		return err
	}
	if err := bsdiff.Reader(old, newData, patch); err != nil {
		return fmt.Errorf("bsdiff computation failed: %w", err)
	}
	return nil
}

// Apply applies a bsdiff patch to old
func (e *BsdiffEngine) Apply(old io.Reader, patch io.Reader, out io.Writer) error {
	base, err := io.ReadAll(old)
	if err != nil {
		return fmt.Errorf("read old source: %w", err)
	}
	if len(base) == 0 {
		_, err := io.Copy(out, patch)
		return err
	}
	if err := bspatch.Reader(bytes.NewReader(base), out, patch); err != nil {
		return fmt.Errorf("bspatch application failed: %w", err)
	}
	return nil
}
