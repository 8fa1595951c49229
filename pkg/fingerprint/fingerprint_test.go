package fingerprint

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSumKnownDigests(t *testing.T) {
	tests := []struct {
		algo string
		data string
		want string
	}{
		{"sha1", "hello", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha1", "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"sha256", "hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}

	for _, tt := range tests {
		t.Run(tt.algo+"/"+tt.data, func(t *testing.T) {
			h, err := New(tt.algo)
			if err != nil {
				t.Fatalf("New(%s) error = %v", tt.algo, err)
			}
			got, err := h.Sum(strings.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Sum() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Sum() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSumDeterministic(t *testing.T) {
	for _, algo := range []string{"sha1", "sha256", "blake3"} {
		h, err := New(algo)
		if err != nil {
			t.Fatalf("New(%s) error = %v", algo, err)
		}
		data := bytes.Repeat([]byte("dirdelta "), 4096)

		first, err := h.Sum(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		second, err := h.Sum(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Errorf("%s: digest not deterministic", algo)
		}

		other, _ := h.Sum(strings.NewReader("different"))
		if other == first {
			t.Errorf("%s: different data produced the same digest", algo)
		}
	}
}

func TestSHA1DigestLength(t *testing.T) {
	h, _ := New("sha1")
	got, err := h.Sum(strings.NewReader("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 40 {
		t.Errorf("sha1 digest has %d hex chars, want 40", len(got))
	}
}

func TestNewRejectsUnknownAlgo(t *testing.T) {
	if _, err := New("md5"); err == nil {
		t.Error("New(md5) should fail")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSumPropagatesReadErrors(t *testing.T) {
	h, _ := New("sha1")
	if _, err := h.Sum(failingReader{}); err == nil {
		t.Error("Sum() should fail on read error")
	}
}

type mapOpener struct {
	files  map[string]string
	closed int
}

func (m *mapOpener) Open(rel string) (io.ReadCloser, error) {
	data, ok := m.files[rel]
	if !ok {
		return nil, errors.New("missing")
	}
	return &trackedCloser{Reader: strings.NewReader(data), owner: m}, nil
}

type trackedCloser struct {
	io.Reader
	owner *mapOpener
}

func (c *trackedCloser) Close() error {
	c.owner.closed++
	return nil
}

func TestSumFileClosesStream(t *testing.T) {
	h, _ := New("sha1")
	opener := &mapOpener{files: map[string]string{"a.txt": "hello"}}

	got, err := h.SumFile(opener, "a.txt")
	if err != nil {
		t.Fatalf("SumFile() error = %v", err)
	}
	if got != "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d" {
		t.Errorf("SumFile() = %s", got)
	}
	if opener.closed != 1 {
		t.Errorf("stream closed %d times, want 1", opener.closed)
	}
	if _, err := h.SumFile(opener, "missing"); err == nil {
		t.Error("SumFile() on missing path should fail")
	}
}
