package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent drivers concurrently, at most limit at a time.
type Ensemble struct {
	drivers []*Driver
	limit   int
}

// NewEnsemble groups drivers. A limit of zero or less runs all at once.
func NewEnsemble(limit int, drivers ...*Driver) *Ensemble {
	return &Ensemble{drivers: drivers, limit: limit}
}

// Run waits for every driver. A failing driver does not stop the others;
// results and errors are returned at the driver's index.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, []error) {
	results := make([]*Result, len(e.drivers))
	errs := make([]error, len(e.drivers))

	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, d := range e.drivers {
		g.Go(func() error {
			results[i], errs[i] = d.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}
