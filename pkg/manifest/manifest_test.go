package manifest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/saworbit/dirdelta/pkg/errs"
)

const (
	h1 = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	h2 = "a9993e364706816aba3e25717850c26c9cd0d89d"
)

func TestWriterEmitsOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	entries := []Entry{
		Created("b.txt", h1),
		Deleted("c.txt", h2),
		Updated("d.txt", h1, h2),
		Unchanged("a.txt", h1),
	}
	if err := w.WriteAll(entries); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if w.Count() != 4 {
		t.Errorf("Count() = %d, want 4", w.Count())
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}

	want := `{"kind":"created","path":"b.txt","oldHash":"","newHash":"` + h1 + `"}`
	if lines[0] != want {
		t.Errorf("line 0 = %s\nwant     %s", lines[0], want)
	}
	if !strings.Contains(lines[1], `"newHash":""`) {
		t.Errorf("deleted record must keep an empty newHash: %s", lines[1])
	}
}

func TestReadAllParsesWhatWriterWrote(t *testing.T) {
	var buf bytes.Buffer
	entries := []Entry{
		Created("b.txt", h1),
		Created("z/y.txt", h2),
		Deleted("c.txt", h2),
		Updated("d.txt", h1, h2),
		Unchanged("a.txt", h1),
	}
	if err := NewWriter(&buf).WriteAll(entries); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("ReadAll() returned %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestReadAllEmptyManifest(t *testing.T) {
	got, err := ReadAll(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero records, got %d", len(got))
	}
}

func TestReadAllRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "hello\n"},
		{"unknown kind", `{"kind":"moved","path":"a","oldHash":"` + h1 + `","newHash":""}` + "\n"},
		{"created with old hash", `{"kind":"created","path":"a","oldHash":"` + h1 + `","newHash":"` + h2 + `"}` + "\n"},
		{"unknown field", `{"kind":"created","path":"a","oldHash":"","newHash":"` + h1 + `","mode":1}` + "\n"},
		{"group order", `{"kind":"deleted","path":"a","oldHash":"` + h1 + `","newHash":""}` + "\n" +
			`{"kind":"created","path":"b","oldHash":"","newHash":"` + h1 + `"}` + "\n"},
		{"path order", `{"kind":"created","path":"b","oldHash":"","newHash":"` + h1 + `"}` + "\n" +
			`{"kind":"created","path":"a","oldHash":"","newHash":"` + h1 + `"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll(strings.NewReader(tt.input))
			if !errors.Is(err, errs.ErrFormatViolation) {
				t.Errorf("ReadAll() error = %v, want format violation", err)
			}
		})
	}
}

func TestCheckOrderRejectsPathInTwoGroups(t *testing.T) {
	err := CheckOrder([]Entry{Created("a", h1), Deleted("a", h2)})
	if !errors.Is(err, errs.ErrFormatViolation) {
		t.Errorf("CheckOrder() error = %v, want format violation", err)
	}
}

func TestKindRank(t *testing.T) {
	for i, k := range Kinds {
		if k.Rank() != i {
			t.Errorf("%s.Rank() = %d, want %d", k, k.Rank(), i)
		}
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("renamed").Valid() {
		t.Error("renamed should not be a valid kind")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriterSurfacesIOFailure(t *testing.T) {
	err := NewWriter(failWriter{}).Write(Created("a", h1))
	if !errors.Is(err, errs.ErrIO) {
		t.Errorf("Write() error = %v, want i/o failure", err)
	}
}
