// Package prefix memoizes decoded record prefixes in front of a slower store.
//
// Entries are append-only, so a memoized prefix never becomes wrong; it can
// only be shorter than the truth. Reads inside the memoized prefix are served
// from memory, reads past it reload the entry from the inner store. No
// invalidation is ever needed, including when other processes append.
package prefix

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/samplecache/codec"
	"github.com/unkn0wn-root/samplecache/store"
)

// Backend is a byte cache. It may evict, refuse or delay writes at will.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) bool
	Close() error
}

type Options struct {
	Backend Backend               // required
	Codec   codec.Codec[[]string] // nil => CBOR
}

type Store struct {
	inner   store.Store
	backend Backend
	codec   codec.Codec[[]string]
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Loader = (*Store)(nil)
	_ store.Lister = (*Store)(nil)
)

func New(inner store.Store, opts Options) (*Store, error) {
	if inner == nil {
		return nil, errors.New("prefix: inner store is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("prefix: backend is required")
	}
	c := opts.Codec
	if c == nil {
		cb, err := codec.NewCBOR[[]string](false)
		if err != nil {
			return nil, err
		}
		c = cb
	}
	return &Store{inner: inner, backend: opts.Backend, codec: c}, nil
}

func (s *Store) Inner() store.Store { return s.inner }

func (s *Store) memo(fp string) []string {
	b, ok := s.backend.Get(fp)
	if !ok {
		return nil
	}
	vals, err := s.codec.Decode(b)
	if err != nil {
		return nil // unreadable memo is just a miss
	}
	return vals
}

func (s *Store) remember(fp string, vals []string) {
	if len(vals) == 0 {
		return
	}
	b, err := s.codec.Encode(vals)
	if err != nil {
		return
	}
	s.backend.Set(fp, b)
}

func (s *Store) Len(ctx context.Context, fp string) (int, error) {
	return s.inner.Len(ctx, fp)
}

func (s *Store) Get(ctx context.Context, fp string, index int) (string, bool, error) {
	if index < 0 {
		return "", false, nil
	}
	if vals := s.memo(fp); index < len(vals) {
		return vals[index], true, nil
	}
	vals, err := s.Load(ctx, fp)
	if err != nil || index >= len(vals) {
		return "", false, err
	}
	return vals[index], true, nil
}

// Load reads the full entry from the inner store and memoizes it.
func (s *Store) Load(ctx context.Context, fp string) ([]string, error) {
	vals, err := store.Load(ctx, s.inner, fp)
	if err != nil {
		return nil, err
	}
	s.remember(fp, vals)
	return vals, nil
}

func (s *Store) Append(ctx context.Context, fp string, values []string) (int, error) {
	return s.inner.Append(ctx, fp, values)
}

func (s *Store) AppendAt(ctx context.Context, fp string, at int, values []string) (bool, error) {
	return s.inner.AppendAt(ctx, fp, at, values)
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	l, ok := s.inner.(store.Lister)
	if !ok {
		return nil, store.ErrUnsupported
	}
	return l.Keys(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return errors.Join(s.backend.Close(), s.inner.Close(ctx))
}
