// Package bigcache adapts allegro/bigcache as a prefix.Backend.
// BigCache keeps values off the Go heap's pointer graph, which suits a memo
// of many large records.
package bigcache

import (
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/samplecache/store/prefix"
)

type Backend struct {
	c *bc.BigCache
}

var _ prefix.Backend = (*Backend)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 10m
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Backend, error) {
	if cfg.LifeWindow <= 0 {
		cfg.LifeWindow = 10 * time.Minute
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c}, nil
}

func (b *Backend) Get(key string) ([]byte, bool) {
	v, err := b.c.Get(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Set may fail when an entry exceeds the shard size; the memo then just misses.
func (b *Backend) Set(key string, value []byte) bool {
	return b.c.Set(key, value) == nil
}

func (b *Backend) Close() error { return b.c.Close() }

// Len reports the number of memoized records.
func (b *Backend) Len() int { return b.c.Len() }
