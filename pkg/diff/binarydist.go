package diff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/kr/binarydist"
)

// BinarydistEngine implements Engine with kr/binarydist, a second
// bsdiff-format codec.
type BinarydistEngine struct{}

func NewBinarydistEngine() *BinarydistEngine {
	return &BinarydistEngine{}
}

func (e *BinarydistEngine) Name() string {
	return "binarydist"
}

func (e *BinarydistEngine) Encode(old io.ReadSeeker, newData io.Reader, patch io.WriteCloser) (err error) {
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
	if err := binarydist.Diff(old, newData, patch); err != nil {
		return fmt.Errorf("binarydist diff failed: %w", err)
	}
	return nil
}

func (e *BinarydistEngine) Apply(old io.Reader, patch io.Reader, out io.Writer) error {
	base, err := io.ReadAll(old)
	if err != nil {
		return fmt.Errorf("read old source: %w", err)
	}
	if len(base) == 0 {
		_, err := io.Copy(out, patch)
		return err
	}
	if err := binarydist.Patch(bytes.NewReader(base), out, patch); err != nil {
		return fmt.Errorf("binarydist patch failed: %w", err)
	}
	return nil
}
