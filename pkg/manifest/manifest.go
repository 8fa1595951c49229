// Package manifest defines the per-path classification records of a patch
// and their line-oriented JSON encoding.
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/saworbit/dirdelta/pkg/errs"
)

// Kind discriminates the four classification outcomes.
type Kind string

const (
	KindCreated   Kind = "created"
	KindDeleted   Kind = "deleted"
	KindUpdated   Kind = "updated"
	KindUnchanged Kind = "unchanged"
)

// Kinds lists every kind in manifest group order.
var Kinds = []Kind{KindCreated, KindDeleted, KindUpdated, KindUnchanged}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreated, KindDeleted, KindUpdated, KindUnchanged:
		return true
	}
	return false
}

// Rank is the position of k's group in a manifest.
func (k Kind) Rank() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return len(Kinds)
}

// Entry is one manifest record. Hash fields are hex digests; a side that
// does not exist is the empty string, never omitted.
type Entry struct {
	Kind    Kind   `json:"kind"`
	Path    string `json:"path"`
	OldHash string `json:"oldHash"`
	NewHash string `json:"newHash"`
}

func Created(path, newHash string) Entry {
	return Entry{Kind: KindCreated, Path: path, NewHash: newHash}
}

func Deleted(path, oldHash string) Entry {
	return Entry{Kind: KindDeleted, Path: path, OldHash: oldHash}
}

func Updated(path, oldHash, newHash string) Entry {
	return Entry{Kind: KindUpdated, Path: path, OldHash: oldHash, NewHash: newHash}
}

// Unchanged records hash on both sides.
func Unchanged(path, hash string) Entry {
	return Entry{Kind: KindUnchanged, Path: path, OldHash: hash, NewHash: hash}
}

// Check verifies that the entry's hash fields match its kind.
func (e Entry) Check() error {
	if e.Path == "" {
		return errs.Formatf("%s entry with empty path", e.Kind)
	}
	switch e.Kind {
	case KindCreated:
		if e.OldHash != "" || e.NewHash == "" {
			return errs.Formatf("created entry %q must carry only a new hash", e.Path)
		}
	case KindDeleted:
		if e.OldHash == "" || e.NewHash != "" {
			return errs.Formatf("deleted entry %q must carry only an old hash", e.Path)
		}
	case KindUpdated:
		if e.OldHash == "" || e.NewHash == "" || e.OldHash == e.NewHash {
			return errs.Formatf("updated entry %q must carry two different hashes", e.Path)
		}
	case KindUnchanged:
		if e.OldHash == "" || e.OldHash != e.NewHash {
			return errs.Formatf("unchanged entry %q must carry one hash on both sides", e.Path)
		}
	default:
		return errs.Formatf("unknown entry kind %q for %q", e.Kind, e.Path)
	}
	return nil
}

// Writer emits one JSON record per line.
type Writer struct {
	w io.Writer
	n int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes a single record followed by a newline.
func (mw *Writer) Write(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal manifest entry %s: %w", e.Path, err)
	}
	line = append(line, '\n')
	if _, err := mw.w.Write(line); err != nil {
		return errs.IO("write manifest", e.Path, err)
	}
	mw.n++
	return nil
}

// WriteAll encodes entries in the order given.
func (mw *Writer) WriteAll(entries []Entry) error {
	for _, e := range entries {
		if err := mw.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Count returns how many records were written.
func (mw *Writer) Count() int {
	return mw.n
}

// Reader parses a manifest one line at a time.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next record or io.EOF. Blank lines are skipped.
func (mr *Reader) Next() (Entry, error) {
	for mr.sc.Scan() {
		mr.line++
		raw := bytes.TrimSpace(mr.sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		var e Entry
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&e); err != nil {
			return Entry{}, errs.Formatf("manifest line %d: %v", mr.line, err)
		}
		if err := e.Check(); err != nil {
			return Entry{}, fmt.Errorf("manifest line %d: %w", mr.line, err)
		}
		return e, nil
	}
	if err := mr.sc.Err(); err != nil {
		return Entry{}, errs.IO("read manifest", "", err)
	}
	return Entry{}, io.EOF
}

// ReadAll parses every record and verifies manifest ordering.
func ReadAll(r io.Reader) ([]Entry, error) {
	mr := NewReader(r)
	var entries []Entry
	for {
		e, err := mr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := CheckOrder(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CheckOrder verifies group order (created, deleted, updated, unchanged),
// strictly ascending paths within each group and that no path repeats.
func CheckOrder(entries []Entry) error {
	seen := make(map[string]Kind, len(entries))
	for i, e := range entries {
		if prev, dup := seen[e.Path]; dup {
			return errs.Formatf("path %q appears as both %s and %s", e.Path, prev, e.Kind)
		}
		seen[e.Path] = e.Kind

		if i == 0 {
			continue
		}
		prev := entries[i-1]
		switch {
		case prev.Kind.Rank() > e.Kind.Rank():
			return errs.Formatf("%s entry %q follows %s group", e.Kind, e.Path, prev.Kind)
		case prev.Kind == e.Kind && prev.Path >= e.Path:
			return errs.Formatf("%s entries out of order: %q before %q", e.Kind, prev.Path, e.Path)
		}
	}
	return nil
}
