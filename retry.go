package samplecache

import (
	"context"
	"errors"
)

// ParseFunc turns a raw sample into a T, or rejects it.
type ParseFunc[T any] func(raw string) (T, error)

// Retry draws one sample per attempt from an Independent view of m and
// returns the first one parse accepts. Each attempt reads a new position,
// so a cached model yields its next stored sample rather than repeating a
// rejected one. After attempts failures it returns a *RetryError wrapping
// the last error. Context cancellation stops immediately.
func Retry[T any](ctx context.Context, m Model, prompt string, attempts int, parse ParseFunc[T]) (T, error) {
	var zero T
	if parse == nil {
		return zero, errors.New("samplecache: nil parse func")
	}
	attempts = max(attempts, 1)

	ind, ok := m.(*Independent)
	if !ok {
		ind = NewIndependent(m)
	}

	var last error
	for range attempts {
		raw, err := ind.Sample(prompt, 1).Next(ctx)
		if err == nil {
			var v T
			if v, err = parse(raw); err == nil {
				return v, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		last = err
	}
	return zero, &RetryError{Attempts: attempts, Err: last}
}
