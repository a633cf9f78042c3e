package samplecache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Dispatcher splits a request for n samples into provider-sized
// sub-requests, runs them concurrently and reassembles the results in
// request order. A fetch is all-or-nothing: if any sub-request fails, the
// samples of the others are discarded.
type Dispatcher struct {
	gen         Generator
	id          Identity
	maxBatch    int
	parallelism int
}

// NewDispatcher returns a dispatcher issuing at most maxBatch samples per
// Generate call and at most parallelism calls at once. Non-positive values
// mean 1 and the default parallelism respectively.
func NewDispatcher(gen Generator, id Identity, maxBatch, parallelism int) *Dispatcher {
	if maxBatch < 1 {
		maxBatch = defaultMaxBatch
	}
	if parallelism < 1 {
		parallelism = defaultParallelism
	}
	return &Dispatcher{gen: gen, id: id, maxBatch: maxBatch, parallelism: parallelism}
}

// Fetch returns exactly n fresh samples or an error.
func (d *Dispatcher) Fetch(ctx context.Context, prompt string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	parts := make([][]string, (n+d.maxBatch-1)/d.maxBatch)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)

	remaining := n
	for i := range parts {
		size := min(d.maxBatch, remaining)
		remaining -= size
		g.Go(func() error {
			vals, err := d.gen.Generate(gctx, prompt, size)
			if err != nil {
				return d.providerError(err)
			}
			if len(vals) < size {
				return d.providerError(fmt.Errorf("%w: got %d of %d", ErrShortBatch, len(vals), size))
			}
			parts[i] = vals[:size]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func (d *Dispatcher) providerError(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: d.id.Provider, Model: d.id.Model, Err: err}
}
