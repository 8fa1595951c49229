package classify

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saworbit/dirdelta/internal/metrics"
	"github.com/saworbit/dirdelta/pkg/errs"
	"github.com/saworbit/dirdelta/pkg/fingerprint"
	"github.com/saworbit/dirdelta/pkg/manifest"
	"github.com/saworbit/dirdelta/pkg/tree"
)

// Classifier fingerprints the files of a Partition and assigns each path its
// manifest kind.
type Classifier struct {
	hasher  *fingerprint.Hasher
	workers int
}

// NewClassifier returns a Classifier hashing on up to workers goroutines.
// workers <= 1 keeps hashing strictly sequential.
func NewClassifier(hasher *fingerprint.Hasher, workers int) *Classifier {
	if workers < 1 {
		workers = 1
	}
	return &Classifier{hasher: hasher, workers: workers}
}

// Classify hashes created paths on the new side, deleted paths on the old
// side and existing paths on both. Every output list keeps the partition's
// path order regardless of which worker finishes first.
func (c *Classifier) Classify(ctx context.Context, oldTree, newTree tree.Tree, p Partition) (Result, error) {
	created := make([]manifest.Entry, len(p.Created))
	deleted := make([]manifest.Entry, len(p.Deleted))
	existing := make([]manifest.Entry, len(p.Existing))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, path := range p.Created {
		i, path := i, path
		g.Go(func() error {
			h, err := c.sum(gctx, newTree, path)
			if err != nil {
				return err
			}
			created[i] = manifest.Created(path, h)
			return nil
		})
	}

	for i, path := range p.Deleted {
		i, path := i, path
		g.Go(func() error {
			h, err := c.sum(gctx, oldTree, path)
			if err != nil {
				return err
			}
			deleted[i] = manifest.Deleted(path, h)
			return nil
		})
	}

	for i, path := range p.Existing {
		i, path := i, path
		g.Go(func() error {
			oldHash, err := c.sum(gctx, oldTree, path)
			if err != nil {
				return err
			}
			newHash, err := c.sum(gctx, newTree, path)
			if err != nil {
				return err
			}
			if oldHash == newHash {
				existing[i] = manifest.Unchanged(path, oldHash)
			} else {
				existing[i] = manifest.Updated(path, oldHash, newHash)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Created:   created,
		Deleted:   deleted,
		Updated:   make([]manifest.Entry, 0),
		Unchanged: make([]manifest.Entry, 0),
	}
	for _, e := range existing {
		if e.Kind == manifest.KindUnchanged {
			res.Unchanged = append(res.Unchanged, e)
		} else {
			res.Updated = append(res.Updated, e)
		}
	}

	for _, k := range manifest.Kinds {
		metrics.AddClassified(string(k), len(res.Group(k)))
	}
	return res, nil
}

func (c *Classifier) sum(ctx context.Context, t tree.Tree, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	h, err := c.hasher.SumFile(t, path)
	if err != nil {
		return "", errs.IO("fingerprint", t.Root()+":"+path, err)
	}
	metrics.ObserveFingerprint(start)
	return h, nil
}
