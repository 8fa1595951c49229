// Package tree exposes directory snapshots through a backend-neutral,
// read-only capability interface.
package tree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/saworbit/dirdelta/pkg/errs"
)

// VisitFunc observes every regular file a listing emits.
type VisitFunc func(rel string)

// Tree is a read-only snapshot of a directory.
//
// Paths are relative, slash separated and never start with a root marker.
// Only regular files are listed; directories are filtered during traversal.
type Tree interface {
	// Root names the location the tree was opened from.
	Root() string
	// Exists reports whether the root is present and can be enumerated.
	Exists() (bool, error)
	// Files lists every regular file below the root. visit may be nil.
	Files(visit VisitFunc) ([]string, error)
	// Open returns a sequential reader for rel.
	Open(rel string) (io.ReadCloser, error)
	// OpenSeekable returns a random-access reader for rel.
	OpenSeekable(rel string) (io.ReadSeekCloser, error)
}

// Open resolves location to a backend: a .zip file becomes an Archive tree,
// anything else a Local directory. tempDir receives materialized copies for
// backends that cannot seek. A .zip that cannot be read is an invalid root.
func Open(location, tempDir string) (Tree, error) {
	info, err := os.Stat(location)
	if err == nil && info.Mode().IsRegular() && strings.EqualFold(filepath.Ext(location), ".zip") {
		a, err := OpenArchive(location, tempDir)
		if err != nil {
			return nil, errs.InvalidRoot(location, err)
		}
		return a, nil
	}
	return NewLocal(location), nil
}

// Relative resolves path, a descendant of root, to a slash-separated
// relative path.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is not below %s", path, root)
	}
	return rel, nil
}

// Materialize copies r into a fresh file under dir and returns it rewound.
// Closing the result deletes the file; on error nothing is left behind.
func Materialize(r io.Reader, dir string) (io.ReadSeekCloser, error) {
	f, err := os.CreateTemp(dir, "dirdelta-src-*")
	if err != nil {
		return nil, fmt.Errorf("create temp copy: %w", err)
	}

	tmp := &tempFile{File: f}
	if _, err := io.Copy(f, r); err != nil {
		return nil, errors.Join(fmt.Errorf("fill temp copy: %w", err), tmp.Close())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("rewind temp copy: %w", err), tmp.Close())
	}
	return tmp, nil
}

type tempFile struct {
	*os.File
}

func (t *tempFile) Close() error {
	closeErr := t.File.Close()
	if err := os.Remove(t.File.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(closeErr, err)
	}
	return closeErr
}
