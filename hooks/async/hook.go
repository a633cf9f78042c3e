// usage:
//
//	import (
//		"log/slog"
//
//		"github.com/unkn0wn-root/samplecache"
//		"github.com/unkn0wn-root/samplecache/hooks/async"
//		"github.com/unkn0wn-root/samplecache/sloghooks"
//	)
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    FetchedEvery: 10, // log ~every 10th fetch
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	model, _ := samplecache.NewCached(live, samplecache.Options{
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/samplecache"
)

// Hooks forwards events to inner on worker goroutines. When the queue is
// full, events are dropped and counted.
type Hooks struct {
	inner   samplecache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

var _ samplecache.Hooks = (*Hooks)(nil)

func New(inner samplecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	defer func() {
		// send on a closed queue
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Fetched(fp string, n int, took time.Duration) {
	h.try(func() { h.inner.Fetched(fp, n, took) })
}
func (h *Hooks) FetchFailed(fp string, err error) { h.try(func() { h.inner.FetchFailed(fp, err) }) }
func (h *Hooks) ReplicationMiss(fp string, i int) { h.try(func() { h.inner.ReplicationMiss(fp, i) }) }
func (h *Hooks) StoreError(fp string, err error)  { h.try(func() { h.inner.StoreError(fp, err) }) }
func (h *Hooks) SliceCopied(fp string, from, n int) {
	h.try(func() { h.inner.SliceCopied(fp, from, n) })
}
