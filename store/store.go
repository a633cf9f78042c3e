// Package store defines the append-only sequence storage used by samplecache.
//
// A Store keeps, per fingerprint, an ordered list of response strings indexed
// from 0. Entries are never reordered or deleted; they only grow through
// Append/AppendAt. Implementations MUST serialize appends to the same
// fingerprint (in-process and, for durable stores, across processes) so that
// every append observes and extends the true current length.
//
// Readers never lock: a Get either sees a value at index or it does not.
// Because entries only grow, a value once observed at an index stays there.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/samplecache/internal/wire"
)

// Store is an append-only, fingerprint-indexed sequence store.
// Must be safe for concurrent use.
type Store interface {
	// Len returns the number of values stored for fp (0 if unseen).
	Len(ctx context.Context, fp string) (int, error)

	// Get returns (value, true, nil) if index < Len(fp), ("", false, nil) otherwise.
	// It never triggers generation.
	Get(ctx context.Context, fp string, index int) (string, bool, error)

	// Append extends fp by values, in order, starting at the current length,
	// and returns the new length.
	Append(ctx context.Context, fp string, values []string) (int, error)

	// AppendAt appends values only if the current length equals at.
	// Returns ok=false (and writes nothing) when the length moved.
	AppendAt(ctx context.Context, fp string, at int, values []string) (ok bool, err error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Loader is implemented by stores that can return a whole entry at once.
type Loader interface {
	Load(ctx context.Context, fp string) ([]string, error)
}

// Lister is implemented by stores that can enumerate their fingerprints.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

var (
	// ErrCorrupt marks a record that failed structural parsing.
	ErrCorrupt = wire.ErrCorrupt

	// ErrUnsupported is returned when a composed store lacks an optional capability.
	ErrUnsupported = errors.New("store: operation not supported")
)

// CorruptError reports a record that cannot be read back. It is fatal for
// reads of that fingerprint; no partial data is returned alongside it.
type CorruptError struct {
	Fingerprint string
	Err         error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("store: corrupt record %q: %v", e.Fingerprint, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCorrupt) match any CorruptError.
func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

// Load returns the whole entry for fp, using Loader when s implements it
// and falling back to Len + Get otherwise.
func Load(ctx context.Context, s Store, fp string) ([]string, error) {
	if l, ok := s.(Loader); ok {
		return l.Load(ctx, fp)
	}
	n, err := s.Len(ctx, fp)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, ok, err := s.Get(ctx, fp, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CorruptError{Fingerprint: fp, Err: fmt.Errorf("missing index %d of %d", i, n)}
		}
		out = append(out, v)
	}
	return out, nil
}
