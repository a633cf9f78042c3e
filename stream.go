package samplecache

import (
	"context"
	"iter"
)

// Stream is a forward-only, logically infinite sequence of samples.
// Next blocks only when it has to fetch or persist new samples. An error
// does not invalidate values already returned; calling Next again retries.
type Stream interface {
	Next(ctx context.Context) (string, error)
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(ctx context.Context) (string, error)

func (f StreamFunc) Next(ctx context.Context) (string, error) { return f(ctx) }

// Take reads n values from s. On error it returns the values read so far.
func Take(ctx context.Context, s Stream, n int) ([]string, error) {
	out := make([]string, 0, max(n, 0))
	for len(out) < n {
		v, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// All ranges over s until the loop breaks or Next fails; the failing
// error is yielded once as the last element.
//
//	for v, err := range samplecache.All(ctx, s) {
//		if err != nil { ... }
//	}
func All(ctx context.Context, s Stream) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			v, err := s.Next(ctx)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
