// Package settle runs independent writes concurrently and waits for all of
// them. A failing write never cancels the others; every error is reported in
// the position of the function that produced it.
package settle

import (
	"context"

	"golang.org/x/sync/errgroup"
)

func All(ctx context.Context, fns ...func(context.Context) error) []error {
	errs := make([]error, len(fns))

	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// Failed returns only the non-nil errors.
func Failed(errs []error) []error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}

	return failed
}
