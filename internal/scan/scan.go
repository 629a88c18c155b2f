// Package scan hashes every object of a source with a bounded pool of workers.
package scan

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ctph/internal/fuzzy"
	"ctph/internal/source"
)

// Options configure a scan.
type Options struct {
	Workers      int   // defaults to GOMAXPROCS
	MaxFileBytes int64 // 0 means fuzzy.MaxInputSize
	Logger       logrus.FieldLogger
}

// Result is the outcome of hashing one object. Err is set when the object
// could not be hashed; the scan carries on with the remaining objects.
type Result struct {
	Object    source.Object
	Signature fuzzy.Signature
	Err       error
}

// Scan walks src and hashes each object concurrently, passing results to fn.
// Calls to fn are serialised but arrive in no particular order. Scan stops
// at the first error returned by the walk or by fn, or when ctx is done.
func Scan(ctx context.Context, src source.Source, opts Options, fn func(Result) error) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make(chan Result, workers)

	g.Go(func() error {
		defer close(results)

		work, workCtx := errgroup.WithContext(ctx)
		work.SetLimit(workers)
		walkErr := src.Walk(workCtx, func(obj source.Object) error {
			if err := workCtx.Err(); err != nil {
				return err
			}
			work.Go(func() error {
				sig, err := source.Hash(workCtx, src, obj, opts.MaxFileBytes)
				if err != nil {
					logger.WithError(err).WithField("object", obj.Name).Debug("hash failed")
				}
				select {
				case results <- Result{Object: obj, Signature: sig, Err: err}:
					return nil
				case <-workCtx.Done():
					return workCtx.Err()
				}
			})
			return nil
		})
		if err := work.Wait(); err != nil {
			return err
		}
		return walkErr
	})

	g.Go(func() error {
		for r := range results {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// Collect runs Scan and gathers every successful signature, ordered by
// label. Objects that failed to hash are returned separately.
func Collect(ctx context.Context, src source.Source, opts Options) ([]fuzzy.Signature, []Result, error) {
	var sigs []fuzzy.Signature
	var failed []Result
	err := Scan(ctx, src, opts, func(r Result) error {
		if r.Err != nil {
			failed = append(failed, r)
			return nil
		}
		sigs = append(sigs, r.Signature)
		return nil
	})
	slices.SortFunc(sigs, func(a, b fuzzy.Signature) int {
		return cmp.Compare(a.Label, b.Label)
	})
	return sigs, failed, err
}
