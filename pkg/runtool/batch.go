package runtool

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/astrokit/runtool/pkg/scope"
)

// Batch invokes several prepared runners concurrently, at most limit at a
// time (0 means unbounded). Outputs are returned in runner order; the
// first error cancels the remaining invocations' contexts.
func Batch(ctx context.Context, runners []*Runner, limit int) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	outputs := make([]string, len(runners))
	for i, r := range runners {
		g.Go(func() error {
			out, err := r.Invoke(ctx)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	return outputs, g.Wait()
}

// BatchInScope runs a batch inside a private ancillary-namespace scope
// seeded with the named parameter files. The scope is released on every
// path.
func BatchInScope(ctx context.Context, runners []*Runner, limit int, seeds ...string) ([]string, error) {
	var outputs []string
	err := scope.With(seeds, func(*scope.Scope) error {
		var batchErr error
		outputs, batchErr = Batch(ctx, runners, limit)
		return batchErr
	})
	return outputs, err
}
