// Package ristretto adapts dgraph-io/ristretto as a prefix.Backend.
package ristretto

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/samplecache/store/prefix"
)

type Backend struct {
	c *rc.Cache
}

var _ prefix.Backend = (*Backend)(nil)

type Config struct {
	NumCounters int64 // ~10x the number of records expected to be memoized
	MaxCost     int64 // bytes; each record costs its encoded size
	BufferItems int64 // 0 => 64
}

func New(cfg Config) (*Backend, error) {
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Backend{c: c}, nil
}

func (b *Backend) Get(key string) ([]byte, bool) {
	v, ok := b.c.Get(key)
	if !ok {
		return nil, false
	}
	raw, _ := v.([]byte)
	if raw == nil {
		// drop unexpected entry shape
		b.c.Del(key)
		return nil, false
	}
	return raw, true
}

// Set is admission-controlled and asynchronous; a Get right after Set may miss.
func (b *Backend) Set(key string, value []byte) bool {
	return b.c.Set(key, value, int64(len(value)))
}

// Wait blocks until buffered writes are applied.
func (b *Backend) Wait() { b.c.Wait() }

func (b *Backend) Close() error {
	b.c.Wait()
	b.c.Close()
	return nil
}
