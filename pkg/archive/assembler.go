// Package archive writes and reads patch archives: a zip container holding a
// manifest followed by one payload per created or updated path.
//
// Layout, in write order:
//
//	.index_<id>          manifest, one JSON record per line
//	<path>               full new content of each created path
//	<path>.bsdiff        edit script of each updated path
package archive

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/saworbit/dirdelta/internal/metrics"
	"github.com/saworbit/dirdelta/pkg/classify"
	"github.com/saworbit/dirdelta/pkg/diff"
	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/manifest"
	"github.com/saworbit/dirdelta/pkg/tree"
)

// ManifestPrefix starts the name of the manifest entry.
const ManifestPrefix = ".index_"

// FixedZipTime ensures byte-for-byte reproducible archives (1980-01-01 UTC).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// IDFunc yields the identifier embedded in the manifest name.
type IDFunc func() (string, error)

// RandomID returns 16 random bytes, hex encoded.
func RandomID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate manifest id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// Written describes what an Assembler put into an archive.
type Written struct {
	Manifest   string
	Records    int
	FullFiles  int
	FullBytes  int64
	DeltaFiles int
	DeltaBytes int64
	// NewBytes is the size of the new side of every updated path.
	NewBytes int64
}

// Assembler serializes a classification result into a zip archive.
type Assembler struct {
	enc   diff.Encoder
	newID IDFunc
}

// NewAssembler returns an Assembler using enc for updated paths. A nil newID
// falls back to RandomID.
func NewAssembler(enc diff.Encoder, newID IDFunc) *Assembler {
	if newID == nil {
		newID = RandomID
	}
	return &Assembler{enc: enc, newID: newID}
}

// Write emits the manifest, then every created payload, then every updated
// payload, and finally closes the zip container. w itself is never closed.
// On failure the container is left unfinished.
func (a *Assembler) Write(w io.Writer, oldTree, newTree tree.Tree, res classify.Result) (Written, error) {
	var out Written

	id, err := a.newID()
	if err != nil {
		return out, err
	}
	out.Manifest = ManifestPrefix + id

	zw := zip.NewWriter(w)

	entry, err := createEntry(zw, out.Manifest)
	if err != nil {
		return out, err
	}
	mw := manifest.NewWriter(entry)
	if err := mw.WriteAll(res.Entries()); err != nil {
		return out, err
	}
	out.Records = mw.Count()

	for _, e := range res.Created {
		n, err := a.writeFull(zw, newTree, e.Path)
		if err != nil {
			return out, err
		}
		out.FullFiles++
		out.FullBytes += n
		metrics.AddPayload("full", n)
	}

	for _, e := range res.Updated {
		stats, err := a.writeDelta(zw, oldTree, newTree, e.Path)
		if err != nil {
			return out, err
		}
		out.DeltaFiles++
		out.DeltaBytes += stats.PatchSize
		out.NewBytes += stats.NewSize
		metrics.AddPayload("delta", stats.PatchSize)
		metrics.ObserveDelta(stats)
	}

	if err := zw.Close(); err != nil {
		return out, errs.IO("close archive", "", err)
	}
	return out, nil
}

func (a *Assembler) writeFull(zw *zip.Writer, newTree tree.Tree, path string) (int64, error) {
	src, err := newTree.Open(path)
	if err != nil {
		return 0, errs.IO("open new", path, err)
	}
	defer src.Close()

	entry, err := createEntry(zw, path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(entry, src)
	if err != nil {
		return n, errs.IO("copy payload", path, err)
	}
	return n, nil
}

func (a *Assembler) writeDelta(zw *zip.Writer, oldTree, newTree tree.Tree, path string) (diff.Stats, error) {
	old, err := oldTree.OpenSeekable(path)
	if err != nil {
		return diff.Stats{}, errs.IO("open old", path, err)
	}
	defer old.Close()

	src, err := newTree.Open(path)
	if err != nil {
		return diff.Stats{}, errs.IO("open new", path, err)
	}
	defer src.Close()

	entry, err := createEntry(zw, path+diff.Suffix)
	if err != nil {
		return diff.Stats{}, err
	}

	newData := &countingReader{r: src}
	patch := &diff.CountingWriter{W: entry}
	if err := a.enc.Encode(old, newData, diff.Borrow(patch)); err != nil {
		return diff.Stats{}, errs.IO("encode delta", path, err)
	}
	return diff.ComputeStats(newData.n, patch.N), nil
}

func createEntry(zw *zip.Writer, name string) (io.Writer, error) {
	h := &zip.FileHeader{Name: name, Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	w, err := zw.CreateHeader(h)
	if err != nil {
		return nil, errs.IO("create entry", name, err)
	}
	return w, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
