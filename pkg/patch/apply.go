package patch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/saworbit/dirdelta/internal/metrics"
	"github.com/saworbit/dirdelta/pkg/archive"
	"github.com/saworbit/dirdelta/pkg/config"
	"github.com/saworbit/dirdelta/pkg/diff"
	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/fingerprint"
	"github.com/saworbit/dirdelta/pkg/manifest"
	"github.com/saworbit/dirdelta/pkg/merkle"
	"github.com/saworbit/dirdelta/pkg/tree"
)

// Applier rebuilds a new tree from an old tree and a patch archive.
type Applier struct {
	cfg    *config.Config
	engine diff.Engine
	hasher *fingerprint.Hasher

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// NewApplier validates cfg and resolves its codec and fingerprint. They must
// match the settings the archive was created with.
func NewApplier(cfg *config.Config) (*Applier, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	engine, hasher, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	return &Applier{cfg: cfg, engine: engine, hasher: hasher}, nil
}

func (a *Applier) logger() *log.Logger {
	if a.Logger == nil {
		return log.Default()
	}
	return a.Logger
}

// Apply reads the archive in r and writes the reconstructed tree to outDir,
// which must be absent or empty. Old content is checked against the
// manifest before use and every written file is fingerprinted again; the
// rebuilt tree must hash to the manifest's Merkle root.
func (a *Applier) Apply(ctx context.Context, oldTree tree.Tree, r io.ReaderAt, size int64, outDir string) (sum Summary, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveRun(start, "apply", outcome(err))
	}()

	if err := checkRoot(oldTree); err != nil {
		return Summary{}, err
	}

	p, err := archive.Open(r, size)
	if err != nil {
		return Summary{}, err
	}

	if err := prepareOutDir(outDir); err != nil {
		return Summary{}, err
	}

	sum = newSummary()
	sum.Manifest = p.Manifest
	for _, e := range p.Entries {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		sum.Counts[e.Kind]++

		switch e.Kind {
		case manifest.KindDeleted:
			if a.cfg.Verbose {
				a.logger().Printf("[apply] skip deleted %s", e.Path)
			}
			continue
		case manifest.KindUpdated, manifest.KindUnchanged:
			if err := a.checkOld(oldTree, e); err != nil {
				return Summary{}, err
			}
		}

		n, err := a.restore(oldTree, p, e, outDir)
		if err != nil {
			return Summary{}, err
		}
		switch e.Kind {
		case manifest.KindCreated:
			sum.FullBytes += n
		case manifest.KindUpdated:
			sum.NewBytes += n
			sum.DeltaBytes += p.PayloadSize(e)
		}
	}

	leaves, err := a.verifyOutput(outDir, p.Entries)
	if err != nil {
		return Summary{}, err
	}
	if sum.TargetRoot, err = merkle.TargetRoot(p.Entries); err != nil {
		return Summary{}, err
	}
	if err := merkle.VerifyRoot(leaves, sum.TargetRoot); err != nil {
		return Summary{}, err
	}

	a.logger().Printf("[apply] %s -> %s: %d files written in %v",
		oldTree.Root(), outDir, len(leaves), time.Since(start).Round(time.Millisecond))
	return sum, nil
}

func prepareOutDir(outDir string) error {
	entries, err := os.ReadDir(outDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return errs.IO("read output", outDir, err)
	case len(entries) > 0:
		return fmt.Errorf("output directory %s is not empty", outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errs.IO("create output", outDir, err)
	}
	return nil
}

func (a *Applier) checkOld(oldTree tree.Tree, e manifest.Entry) error {
	h, err := a.hasher.SumFile(oldTree, e.Path)
	if err != nil {
		return errs.IO("fingerprint", oldTree.Root()+":"+e.Path, err)
	}
	if h != e.OldHash {
		return errs.Formatf("old %s does not match the patch: hash %s, want %s", e.Path, h, e.OldHash)
	}
	return nil
}

// restore writes the new content of e below outDir and returns its size.
func (a *Applier) restore(oldTree tree.Tree, p *archive.Patch, e manifest.Entry, outDir string) (int64, error) {
	dest := filepath.Join(outDir, filepath.FromSlash(e.Path))
	if _, err := tree.Relative(outDir, dest); err != nil {
		return 0, errs.Formatf("path %q escapes the output directory", e.Path)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, errs.IO("create directory", filepath.Dir(dest), err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errs.IO("create", dest, err)
	}
	out := &diff.CountingWriter{W: f}
	writeErr := a.fill(oldTree, p, e, out)
	if err := f.Close(); err != nil && writeErr == nil {
		writeErr = errs.IO("close", dest, err)
	}
	return out.N, writeErr
}

func (a *Applier) fill(oldTree tree.Tree, p *archive.Patch, e manifest.Entry, out io.Writer) error {
	switch e.Kind {
	case manifest.KindCreated:
		payload, err := p.Payload(e)
		if err != nil {
			return err
		}
		defer payload.Close()
		if _, err := io.Copy(out, payload); err != nil {
			return errs.IO("copy payload", e.Path, err)
		}
		return nil

	case manifest.KindUpdated:
		payload, err := p.Payload(e)
		if err != nil {
			return err
		}
		defer payload.Close()
		old, err := oldTree.Open(e.Path)
		if err != nil {
			return errs.IO("open old", e.Path, err)
		}
		defer old.Close()
		if err := a.engine.Apply(old, payload, out); err != nil {
			return errs.IO("apply delta", e.Path, err)
		}
		return nil

	case manifest.KindUnchanged:
		old, err := oldTree.Open(e.Path)
		if err != nil {
			return errs.IO("open old", e.Path, err)
		}
		defer old.Close()
		if _, err := io.Copy(out, old); err != nil {
			return errs.IO("copy unchanged", e.Path, err)
		}
		return nil
	}
	return errs.Formatf("%s entry %q has no content to restore", e.Kind, e.Path)
}

// verifyOutput fingerprints every file under outDir and checks it against
// the manifest's new hash.
func (a *Applier) verifyOutput(outDir string, entries []manifest.Entry) ([]merkle.Leaf, error) {
	want := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Kind != manifest.KindDeleted {
			want[e.Path] = e.NewHash
		}
	}

	out := tree.NewLocal(outDir)
	paths, err := out.Files(nil)
	if err != nil {
		return nil, errs.IO("list", outDir, err)
	}

	leaves := make([]merkle.Leaf, 0, len(paths))
	for _, path := range paths {
		h, err := a.hasher.SumFile(out, path)
		if err != nil {
			return nil, errs.IO("fingerprint", outDir+":"+path, err)
		}
		expected, ok := want[path]
		if !ok {
			return nil, errs.Formatf("unexpected file %s in output", path)
		}
		if h != expected {
			return nil, errs.Formatf("rebuilt %s has hash %s, want %s", path, h, expected)
		}
		leaves = append(leaves, merkle.Leaf{Path: path, Hash: h})
	}
	return leaves, nil
}

// Inspect parses an archive without applying it.
func Inspect(r io.ReaderAt, size int64) (Summary, []manifest.Entry, error) {
	p, err := archive.Open(r, size)
	if err != nil {
		return Summary{}, nil, err
	}
	sum := newSummary()
	sum.Manifest = p.Manifest
	sum.Counts = p.Counts()
	sum.TargetRoot, err = merkle.TargetRoot(p.Entries)
	if err != nil {
		return Summary{}, nil, err
	}
	return sum, p.Entries, nil
}
