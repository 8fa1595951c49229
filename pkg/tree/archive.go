package tree

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Archive is a Tree backed by a zip file. Entries cannot seek, so
// OpenSeekable materializes a temporary copy under TempDir.
type Archive struct {
	location string
	reader   *zip.ReadCloser
	entries  map[string]*zip.File
	order    []string
	TempDir  string
}

// OpenArchive opens the zip file at location.
func OpenArchive(location, tempDir string) (*Archive, error) {
	rc, err := zip.OpenReader(location)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", location, err)
	}

	a := &Archive{
		location: location,
		reader:   rc,
		entries:  make(map[string]*zip.File, len(rc.File)),
		TempDir:  tempDir,
	}
	for _, f := range rc.File {
		if !f.Mode().IsRegular() {
			continue
		}
		name := strings.TrimPrefix(path.Clean(f.Name), "./")
		a.order = append(a.order, name)
		a.entries[name] = f
	}
	return a, nil
}

func (a *Archive) Root() string {
	return a.location
}

func (a *Archive) Exists() (bool, error) {
	return a.reader != nil, nil
}

// Files returns entry names in archive order. Duplicate names are kept so
// the classifier can reject them.
func (a *Archive) Files(visit VisitFunc) ([]string, error) {
	files := make([]string, len(a.order))
	copy(files, a.order)
	if visit != nil {
		for _, f := range files {
			visit(f)
		}
	}
	return files, nil
}

func (a *Archive) Open(rel string) (io.ReadCloser, error) {
	f, ok := a.entries[rel]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: rel, Err: fs.ErrNotExist}
	}
	return f.Open()
}

func (a *Archive) OpenSeekable(rel string) (io.ReadSeekCloser, error) {
	rc, err := a.Open(rel)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Materialize(rc, a.TempDir)
}

// Close releases the underlying zip file.
func (a *Archive) Close() error {
	if a.reader == nil {
		return nil
	}
	err := a.reader.Close()
	a.reader = nil
	return err
}
