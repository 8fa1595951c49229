package tree

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/saworbit/dirdelta/internal/platform"
)

// Local is a Tree backed by a directory on disk.
type Local struct {
	root string
}

// NewLocal returns a Local tree rooted at dir. A symlinked root is resolved
// to its target; links below the root are still skipped by Files.
func NewLocal(dir string) *Local {
	root := dir
	if abs, err := filepath.Abs(dir); err == nil {
		root = abs
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return &Local{root: platform.LongPath(root)}
}

func (l *Local) Root() string {
	return l.root
}

func (l *Local) Exists() (bool, error) {
	info, err := os.Stat(l.root)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", l.root)
	}
	if err := checkEnumerable(l.root, info); err != nil {
		return false, err
	}
	return true, nil
}

// Files walks the root. Symlinks and other non-regular entries are skipped.
func (l *Local) Files(visit VisitFunc) ([]string, error) {
	var files []string

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := Relative(l.root, path)
		if err != nil {
			return err
		}
		if visit != nil {
			visit(rel)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.root, err)
	}

	return files, nil
}

func (l *Local) Open(rel string) (io.ReadCloser, error) {
	return os.Open(l.path(rel))
}

// OpenSeekable returns the file itself; local files seek natively.
func (l *Local) OpenSeekable(rel string) (io.ReadSeekCloser, error) {
	return os.Open(l.path(rel))
}

func (l *Local) path(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}
