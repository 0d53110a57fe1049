package tsbundle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Entry is one bundle of a batch: an entry file, optionally restricted to
// one exported type that is emitted under Alias.
type Entry struct {
	Path  string
	Type  string
	Alias string
	// Name identifies the entry in results, e.g. an output file name.
	Name string
}

// BatchResult pairs an Entry with its outcome. Err is set when the entry
// failed fatally; Result is nil then.
type BatchResult struct {
	Entry  Entry
	Result *Result
	Err    error
}

// BundleBatch bundles several entries concurrently, sharing the module
// cache. Results are returned in entry order. The error aggregates the
// entries that failed.
func (b *Bundler) BundleBatch(ctx context.Context, entries []Entry, opts ...BundleOption) ([]BatchResult, error) {
	results := make([]BatchResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.workers))
	for i, e := range entries {
		g.Go(func() error {
			eopts := append([]BundleOption(nil), opts...)
			if e.Type != "" {
				eopts = append(eopts, Only(e.Type))
				if e.Alias != "" {
					eopts = append(eopts, As(e.Alias))
				}
			}
			res, err := b.Bundle(gctx, e.Path, eopts...)
			results[i] = BatchResult{Entry: e, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("bundle %s: %w", r.Entry.Path, r.Err))
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("batch had %d error(s): %w", len(errs), errs[0])
	}
	return results, nil
}
