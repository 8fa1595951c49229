package tree

import (
	"bytes"
	"io"
	"io/fs"
	"sort"
)

// Mem is an in-memory Tree. A nil Data map reports a missing root.
type Mem struct {
	Name string
	Data map[string][]byte
}

// NewMem builds a Mem tree from path/content pairs.
func NewMem(name string, files map[string]string) *Mem {
	m := &Mem{Name: name, Data: make(map[string][]byte, len(files))}
	for path, data := range files {
		m.Data[path] = []byte(data)
	}
	return m
}

func (m *Mem) Root() string {
	return "mem://" + m.Name
}

func (m *Mem) Exists() (bool, error) {
	return m.Data != nil, nil
}

func (m *Mem) Files(visit VisitFunc) ([]string, error) {
	paths := make([]string, 0, len(m.Data))
	for p := range m.Data {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if visit != nil {
		for _, p := range paths {
			visit(p)
		}
	}
	return paths, nil
}

func (m *Mem) Open(rel string) (io.ReadCloser, error) {
	data, ok := m.Data[rel]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: rel, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Mem) OpenSeekable(rel string) (io.ReadSeekCloser, error) {
	data, ok := m.Data[rel]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: rel, Err: fs.ErrNotExist}
	}
	return nopSeekCloser{bytes.NewReader(data)}, nil
}

type nopSeekCloser struct {
	io.ReadSeeker
}

func (nopSeekCloser) Close() error { return nil }
