package samplecache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/samplecache/cursor"
	"github.com/unkn0wn-root/samplecache/internal/util"
	"github.com/unkn0wn-root/samplecache/store"
)

// Options configures a Cached layer.
type Options struct {
	// Store holds the sequences. Default: a fresh in-memory store.
	// When the wrapped model is itself a Cached layer, Store is the outer
	// store of a nested composition and receives only what gets read.
	Store store.Store

	// Replication fails with ReplicationMissError instead of fetching.
	Replication bool

	Logger Logger
	Hooks  Hooks
}

// Cached makes a model repeatable: every Sample call replays the same
// stored sequence from index 0, fetching and appending new samples only
// when a stream reads past the end of what is stored.
type Cached struct {
	inner       Model
	id          Identity
	store       store.Store
	replication bool

	// exactly one of the two is set
	fetcher Fetcher
	below   *Cached

	sf    singleflight.Group
	log   Logger
	hooks Hooks
}

var (
	_ Sequencer = (*Cached)(nil)
	_ Fetcher   = (*Cached)(nil)
)

func NewCached(inner Model, opts Options) (*Cached, error) {
	if inner == nil {
		return nil, errors.New("samplecache: nil model")
	}
	c := &Cached{
		inner:       inner,
		id:          inner.Identity(),
		replication: opts.Replication,
		log:         coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:       coalesce[Hooks](opts.Hooks, NopHooks{}),
	}

	outer := opts.Store
	if outer == nil {
		outer = store.NewMemory()
	}
	if below := innerCached(inner); below != nil {
		c.below = below
		c.store = store.NewNested(outer, below.store, c.copied)
	} else {
		c.store = outer
		if f, ok := inner.(Fetcher); ok {
			c.fetcher = f
		} else {
			c.fetcher = &streamFetcher{m: inner}
		}
	}
	return c, nil
}

// innerCached finds a Cached layer under any number of Independent views.
func innerCached(m Model) *Cached {
	for {
		switch v := m.(type) {
		case *Cached:
			return v
		case *Independent:
			m = v.inner
		default:
			return nil
		}
	}
}

func (c *Cached) copied(fp string, from, count int) {
	c.hooks.SliceCopied(fp, from, count)
	c.log.Debug("slice copied", Fields{"fp": shortFP(fp), "from": from, "count": count})
}

func (c *Cached) Identity() Identity { return c.id }

// Store returns the store reads are served from.
func (c *Cached) Store() store.Store { return c.store }

func (c *Cached) Fingerprint(prompt string) string { return Fingerprint(c.id, prompt) }

// Sample returns a stream that starts at index 0.
func (c *Cached) Sample(prompt string, batch int) Stream {
	return &cachedStream{c: c, prompt: prompt, fp: c.Fingerprint(prompt), batch: max(batch, 1)}
}

// Fetch bypasses the cache and returns fresh samples from the wrapped
// model. A layer in replication mode never fetches.
func (c *Cached) Fetch(ctx context.Context, prompt string, n int) ([]string, error) {
	if c.replication {
		return nil, &ReplicationMissError{Fingerprint: c.Fingerprint(prompt), Index: -1}
	}
	if c.below != nil {
		return c.below.Fetch(ctx, prompt, n)
	}
	return c.fetcher.Fetch(ctx, prompt, n)
}

// At returns the value at index of prompt's sequence, growing the
// sequence in multiples of batch if it is too short.
func (c *Cached) At(ctx context.Context, prompt string, index, batch int) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("samplecache: negative index %d", index)
	}
	return c.at(ctx, prompt, c.Fingerprint(prompt), index, max(batch, 1))
}

func (c *Cached) at(ctx context.Context, prompt, fp string, index, batch int) (string, error) {
	for {
		v, ok, err := c.store.Get(ctx, fp, index)
		if err != nil {
			return "", c.storeError(fp, err)
		}
		if ok {
			return v, nil
		}
		if c.replication {
			c.hooks.ReplicationMiss(fp, index)
			c.log.Warn("replication miss", Fields{"fp": shortFP(fp), "index": index})
			return "", &ReplicationMissError{Fingerprint: fp, Index: index}
		}
		if err := c.grow(ctx, prompt, fp, index, batch); err != nil {
			return "", err
		}
	}
}

// grow extends the sequence past index. Concurrent callers for one
// fingerprint share a single grow; each re-reads afterwards. The shared
// grow runs detached from any one caller's cancellation, and a caller
// that gives up stops waiting without failing the others.
func (c *Cached) grow(ctx context.Context, prompt, fp string, index, batch int) error {
	shared := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(fp, func() (any, error) {
		ctx := shared
		if c.below != nil {
			// the layer below owns growth; its store is readable through
			// the nested store and gets copied on the next Get
			_, err := c.below.At(ctx, prompt, index, batch)
			return nil, err
		}

		have, err := c.store.Len(ctx, fp)
		if err != nil {
			return nil, c.storeError(fp, err)
		}
		if index < have {
			// grown by someone else since the miss
			_, ok, err := c.store.Get(ctx, fp, index)
			if err == nil && !ok {
				err = &store.CorruptError{
					Fingerprint: fp,
					Err:         fmt.Errorf("length %d but index %d missing", have, index),
				}
			}
			if err != nil {
				return nil, c.storeError(fp, err)
			}
			return nil, nil
		}

		n := readAhead(index+1-have, batch)
		vals, err := c.fetcher.Fetch(ctx, prompt, n)
		if err != nil {
			return nil, err
		}
		if len(vals) == 0 {
			return nil, &ProviderError{Provider: c.id.Provider, Model: c.id.Model, Err: ErrShortBatch}
		}
		newLen, err := c.store.Append(ctx, fp, vals)
		if err != nil {
			return nil, c.storeError(fp, err)
		}
		c.log.Debug("sequence grown", Fields{"fp": shortFP(fp), "from": have, "len": newLen})
		return nil, nil
	})
	select {
	case r := <-ch:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cached) storeError(fp string, err error) error {
	c.hooks.StoreError(fp, err)
	c.log.Error("store error", Fields{"fp": shortFP(fp), "err": err})
	return err
}

// Close closes the store this layer was given. Layers below are not closed.
func (c *Cached) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

type cachedStream struct {
	c      *Cached
	prompt string
	fp     string
	batch  int
	cur    cursor.Reset
}

func (s *cachedStream) Next(ctx context.Context) (string, error) {
	v, err := s.c.at(ctx, s.prompt, s.fp, s.cur.Pos(), s.batch)
	if err != nil {
		return "", err
	}
	s.cur.Advance(1)
	return v, nil
}

// streamFetcher draws fresh samples from a model that only offers Sample,
// keeping one stream per prompt so successive fetches continue it. Fetches
// for different prompts run concurrently.
type streamFetcher struct {
	m       Model
	locks   util.KeyedMutex
	streams sync.Map // prompt -> Stream
}

func (f *streamFetcher) Fetch(ctx context.Context, prompt string, n int) ([]string, error) {
	unlock := f.locks.Lock(prompt)
	defer unlock()

	s, ok := f.streams.Load(prompt)
	if !ok {
		s = f.m.Sample(prompt, n)
		f.streams.Store(prompt, s)
	}
	vals, err := Take(ctx, s.(Stream), n)
	if err != nil {
		return nil, err
	}
	return vals, nil
}
