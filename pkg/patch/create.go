// Package patch drives whole patch runs: building an archive from two trees
// and rebuilding the new tree from the old one and an archive.
package patch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"time"

	"github.com/saworbit/dirdelta/internal/metrics"
	"github.com/saworbit/dirdelta/pkg/archive"
	"github.com/saworbit/dirdelta/pkg/classify"
	"github.com/saworbit/dirdelta/pkg/config"
	"github.com/saworbit/dirdelta/pkg/diff"
	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/fingerprint"
	"github.com/saworbit/dirdelta/pkg/manifest"
	"github.com/saworbit/dirdelta/pkg/merkle"
	"github.com/saworbit/dirdelta/pkg/tree"
)

// Creator builds patch archives.
type Creator struct {
	cfg    *config.Config
	engine diff.Engine
	hasher *fingerprint.Hasher

	// NewID names the manifest entry; nil means archive.RandomID.
	NewID archive.IDFunc
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// NewCreator validates cfg and resolves its codec and fingerprint.
func NewCreator(cfg *config.Config) (*Creator, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	engine, hasher, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	return &Creator{cfg: cfg, engine: engine, hasher: hasher}, nil
}

func resolve(cfg *config.Config) (diff.Engine, *fingerprint.Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	engine, err := diff.NewEngine(cfg.DiffLibrary)
	if err != nil {
		return nil, nil, err
	}
	hasher, err := fingerprint.New(cfg.HashAlgo)
	if err != nil {
		return nil, nil, err
	}
	return engine, hasher, nil
}

func (c *Creator) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}

// Create writes to w an archive that turns oldTree into newTree. Both roots
// are checked before anything is written. The first failure aborts the run
// and w keeps whatever was written so far.
func (c *Creator) Create(ctx context.Context, oldTree, newTree tree.Tree, w io.Writer) (sum Summary, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveRun(start, "create", outcome(err))
	}()

	if err := checkRoot(oldTree); err != nil {
		return Summary{}, err
	}
	if err := checkRoot(newTree); err != nil {
		return Summary{}, err
	}

	oldPaths, err := list(oldTree, c.visitor("old"))
	if err != nil {
		return Summary{}, err
	}
	newPaths, err := list(newTree, c.visitor("new"))
	if err != nil {
		return Summary{}, err
	}

	p, err := classify.PartitionPaths(oldPaths, newPaths)
	if err != nil {
		return Summary{}, err
	}

	res, err := classify.NewClassifier(c.hasher, c.cfg.Workers).Classify(ctx, oldTree, newTree, p)
	if err != nil {
		return Summary{}, err
	}
	if err := res.Validate(); err != nil {
		return Summary{}, err
	}

	written, err := archive.NewAssembler(c.engine, c.NewID).Write(w, oldTree, newTree, res)
	if err != nil {
		return Summary{}, err
	}

	sum = newSummary()
	sum.Manifest = written.Manifest
	for _, k := range manifest.Kinds {
		sum.Counts[k] = len(res.Group(k))
	}
	sum.FullBytes = written.FullBytes
	sum.DeltaBytes = written.DeltaBytes
	sum.NewBytes = written.NewBytes
	if sum.TargetRoot, err = merkle.TargetRoot(res.Entries()); err != nil {
		return Summary{}, err
	}

	c.logger().Printf("[create] %s -> %s: %d created, %d deleted, %d updated, %d unchanged (%s, %s) in %v",
		oldTree.Root(), newTree.Root(),
		len(res.Created), len(res.Deleted), len(res.Updated), len(res.Unchanged),
		c.hasher.Algo(), c.engine.Name(),
		time.Since(start).Round(time.Millisecond))
	return sum, nil
}

func (c *Creator) visitor(side string) tree.VisitFunc {
	if !c.cfg.Verbose {
		return nil
	}
	logger := c.logger()
	return func(rel string) {
		logger.Printf("[walk] %s: %s", side, rel)
	}
}

func checkRoot(t tree.Tree) error {
	ok, err := t.Exists()
	if err != nil {
		return errs.InvalidRoot(t.Root(), err)
	}
	if !ok {
		return errs.InvalidRoot(t.Root(), fs.ErrNotExist)
	}
	return nil
}

func list(t tree.Tree, visit tree.VisitFunc) ([]string, error) {
	paths, err := t.Files(visit)
	if err != nil {
		return nil, errs.IO("list", t.Root(), err)
	}
	return paths, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
