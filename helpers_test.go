package samplecache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

var testID = Identity{Provider: "mock", Model: "m-1", Temperature: 1}

// fakeGen labels samples "<prompt>#<n>" with a per-prompt counter and
// records the size of every Generate call.
type fakeGen struct {
	mu    sync.Mutex
	calls []int
	next  map[string]int
	fail  func(call int) error
	short int // when > 0, every call returns at most short samples
}

func (g *fakeGen) Generate(_ context.Context, prompt string, n int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	call := len(g.calls)
	g.calls = append(g.calls, n)
	if g.fail != nil {
		if err := g.fail(call); err != nil {
			return nil, err
		}
	}
	if g.next == nil {
		g.next = make(map[string]int)
	}
	if g.short > 0 {
		n = min(n, g.short)
	}
	base := g.next[prompt]
	g.next[prompt] += n
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s#%d", prompt, base+i)
	}
	return out, nil
}

func (g *fakeGen) Calls() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.calls...)
}

func newLive(t *testing.T, g Generator, maxBatch int) *Live {
	t.Helper()
	l, err := NewLive(g, testID, LiveOptions{MaxBatch: maxBatch})
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	return l
}

func newCached(t *testing.T, inner Model, opts Options) *Cached {
	t.Helper()
	c, err := NewCached(inner, opts)
	if err != nil {
		t.Fatalf("NewCached: %v", err)
	}
	return c
}

func take(t *testing.T, s Stream, n int) []string {
	t.Helper()
	vals, err := Take(context.Background(), s, n)
	if err != nil {
		t.Fatalf("Take(%d): %v", n, err)
	}
	return vals
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type hookEvent struct {
	kind string
	fp   string
	a, b int
	err  error
	took time.Duration
}

type recordingHooks struct {
	mu     sync.Mutex
	events []hookEvent
}

func (h *recordingHooks) add(e hookEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *recordingHooks) Fetched(fp string, n int, took time.Duration) {
	h.add(hookEvent{kind: "fetched", fp: fp, a: n, took: took})
}
func (h *recordingHooks) FetchFailed(fp string, err error) {
	h.add(hookEvent{kind: "fetch_failed", fp: fp, err: err})
}
func (h *recordingHooks) ReplicationMiss(fp string, index int) {
	h.add(hookEvent{kind: "replication_miss", fp: fp, a: index})
}
func (h *recordingHooks) SliceCopied(fp string, from, count int) {
	h.add(hookEvent{kind: "slice_copied", fp: fp, a: from, b: count})
}
func (h *recordingHooks) StoreError(fp string, err error) {
	h.add(hookEvent{kind: "store_error", fp: fp, err: err})
}

func (h *recordingHooks) count(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}
