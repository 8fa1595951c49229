package archive

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/saworbit/dirdelta/pkg/diff"
	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/manifest"
)

// Patch is a parsed patch archive.
type Patch struct {
	// Manifest is the name of the manifest entry.
	Manifest string
	// Entries holds every manifest record in archive order.
	Entries []manifest.Entry

	payloads map[string]*zip.File
}

// PayloadName returns the archive entry name holding e's payload. Deleted
// and unchanged records carry none.
func PayloadName(e manifest.Entry) (string, bool) {
	switch e.Kind {
	case manifest.KindCreated:
		return e.Path, true
	case manifest.KindUpdated:
		return e.Path + diff.Suffix, true
	}
	return "", false
}

// Open parses the archive in r. The first entry must be the manifest, and
// the remaining entries must be exactly the payloads it announces, in the
// order an Assembler writes them.
func Open(r io.ReaderAt, size int64) (*Patch, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, errs.Formatf("not a patch archive: %v", err)
		}
		return nil, errs.IO("open archive", "", err)
	}
	if len(zr.File) == 0 || !strings.HasPrefix(zr.File[0].Name, ManifestPrefix) {
		return nil, errs.Formatf("archive has no %s* manifest entry", ManifestPrefix)
	}

	p := &Patch{
		Manifest: zr.File[0].Name,
		payloads: make(map[string]*zip.File),
	}
	if p.Entries, err = readManifest(zr.File[0]); err != nil {
		return nil, err
	}

	expected := make([]manifest.Entry, 0, len(p.Entries))
	for _, e := range p.Entries {
		if _, ok := PayloadName(e); ok {
			expected = append(expected, e)
		}
	}

	rest := zr.File[1:]
	for i, f := range rest {
		if i >= len(expected) {
			if strings.HasPrefix(f.Name, ManifestPrefix) {
				return nil, errs.Formatf("archive holds more than one manifest: %s and %s", p.Manifest, f.Name)
			}
			return nil, errs.Formatf("unexpected archive entry %s", f.Name)
		}
		e := expected[i]
		name, _ := PayloadName(e)
		if f.Name != name {
			return nil, errs.Formatf("archive entry %d is %s, want %s", i+1, f.Name, name)
		}
		p.payloads[string(e.Kind)+":"+e.Path] = f
	}
	if len(rest) < len(expected) {
		name, _ := PayloadName(expected[len(rest)])
		return nil, errs.Formatf("archive is missing payload %s", name)
	}
	return p, nil
}

func readManifest(f *zip.File) ([]manifest.Entry, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errs.IO("open manifest", f.Name, err)
	}
	defer rc.Close()

	entries, err := manifest.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", f.Name, err)
	}
	return entries, nil
}

// Payload opens the payload of a created or updated record.
func (p *Patch) Payload(e manifest.Entry) (io.ReadCloser, error) {
	f, ok := p.payloads[string(e.Kind)+":"+e.Path]
	if !ok {
		return nil, errs.Formatf("no payload for %s entry %q", e.Kind, e.Path)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errs.IO("open payload", f.Name, err)
	}
	return rc, nil
}

// PayloadSize is the uncompressed size of e's payload, 0 when it has none.
func (p *Patch) PayloadSize(e manifest.Entry) int64 {
	f, ok := p.payloads[string(e.Kind)+":"+e.Path]
	if !ok {
		return 0
	}
	return int64(f.UncompressedSize64)
}

// Counts tallies the records per kind.
func (p *Patch) Counts() map[manifest.Kind]int {
	counts := make(map[manifest.Kind]int, len(manifest.Kinds))
	for _, e := range p.Entries {
		counts[e.Kind]++
	}
	return counts
}
