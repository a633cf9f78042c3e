package samplecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherSplitsAndOrders(t *testing.T) {
	var calls atomic.Int32
	gen := GeneratorFunc(func(_ context.Context, _ string, n int) ([]string, error) {
		call := calls.Add(1)
		if n == 10 {
			// full batches finish after the short tail
			time.Sleep(20 * time.Millisecond)
		}
		out := make([]string, n)
		for j := range out {
			out[j] = fmt.Sprintf("c%d-%d-of-%d", call, j, n)
		}
		return out, nil
	})

	d := NewDispatcher(gen, testID, 10, 4)
	vals, err := d.Fetch(context.Background(), "p", 25)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(vals) != 25 {
		t.Fatalf("len = %d, want 25", len(vals))
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}

	// blocks of 10, 10, 5, each contiguous and in-order within the block
	blocks := [][2]int{{0, 10}, {10, 20}, {20, 25}}
	for _, b := range blocks {
		size := b[1] - b[0]
		prefix := vals[b[0]][:strings.Index(vals[b[0]], "-")]
		for j := b[0]; j < b[1]; j++ {
			want := fmt.Sprintf("%s-%d-of-%d", prefix, j-b[0], size)
			if vals[j] != want {
				t.Fatalf("vals[%d] = %q, want %q", j, vals[j], want)
			}
		}
	}
	if vals[0][:strings.Index(vals[0], "-")] == vals[10][:strings.Index(vals[10], "-")] {
		t.Fatal("first two blocks came from the same call")
	}
}

func TestDispatcherAllOrNothing(t *testing.T) {
	boom := errors.New("rate limited")
	g := &fakeGen{fail: func(call int) error {
		if call == 1 {
			return boom
		}
		return nil
	}}
	d := NewDispatcher(g, testID, 5, 1)
	vals, err := d.Fetch(context.Background(), "p", 15)
	if vals != nil {
		t.Fatalf("partial result returned: %v", vals)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ProviderError, got %T %v", err, err)
	}
	if pe.Provider != "mock" || pe.Model != "m-1" || !errors.Is(err, boom) {
		t.Fatalf("bad provider error: %+v", pe)
	}
}

func TestDispatcherShortBatch(t *testing.T) {
	d := NewDispatcher(&fakeGen{short: 3}, testID, 5, 2)
	_, err := d.Fetch(context.Background(), "p", 5)
	if !errors.Is(err, ErrShortBatch) {
		t.Fatalf("want ErrShortBatch, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("short batch should be a ProviderError, got %T", err)
	}
}

func TestDispatcherTruncatesLongBatch(t *testing.T) {
	gen := GeneratorFunc(func(_ context.Context, _ string, n int) ([]string, error) {
		return make([]string, n+3), nil
	})
	vals, err := NewDispatcher(gen, testID, 4, 0).Fetch(context.Background(), "p", 6)
	if err != nil || len(vals) != 6 {
		t.Fatalf("got %d values, err %v; want 6", len(vals), err)
	}
}

func TestDispatcherBoundsParallelism(t *testing.T) {
	var inflight, peak atomic.Int32
	gen := GeneratorFunc(func(_ context.Context, _ string, n int) ([]string, error) {
		cur := inflight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return make([]string, n), nil
	})
	if _, err := NewDispatcher(gen, testID, 1, 2).Fetch(context.Background(), "p", 8); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d > 2", peak.Load())
	}
}

func TestDispatcherZero(t *testing.T) {
	g := &fakeGen{}
	vals, err := NewDispatcher(g, testID, 10, 1).Fetch(context.Background(), "p", 0)
	if err != nil || len(vals) != 0 || len(g.Calls()) != 0 {
		t.Fatalf("zero fetch: vals=%v err=%v calls=%v", vals, err, g.Calls())
	}
}

func TestLiveStreamsAreIndependent(t *testing.T) {
	g := &fakeGen{}
	l := newLive(t, g, 10)

	a := take(t, l.Sample("p", 2), 3)
	b := take(t, l.Sample("p", 2), 1)

	if !equal(a, []string{"p#0", "p#1", "p#2"}) {
		t.Fatalf("first stream = %v", a)
	}
	if b[0] != "p#4" {
		t.Fatalf("second stream should fetch fresh, got %v", b)
	}
	if calls := g.Calls(); fmt.Sprint(calls) != "[2 2 2]" {
		t.Fatalf("calls = %v, want three fetches of 2", calls)
	}
}

func TestLiveHooks(t *testing.T) {
	h := &recordingHooks{}
	l, err := NewLive(&fakeGen{fail: func(call int) error {
		if call == 1 {
			return errors.New("down")
		}
		return nil
	}}, testID, LiveOptions{Hooks: h})
	if err != nil {
		t.Fatal(err)
	}
	s := l.Sample("p", 1)
	if _, err := s.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if h.count("fetched") != 1 || h.count("fetch_failed") != 1 {
		t.Fatalf("events = %+v", h.events)
	}
	if h.events[0].fp != Fingerprint(testID, "p") {
		t.Fatal("hook got wrong fingerprint")
	}
}

func TestNewLiveValidates(t *testing.T) {
	if _, err := NewLive(nil, testID, LiveOptions{}); err == nil {
		t.Fatal("nil generator accepted")
	}
	if _, err := NewLive(&fakeGen{}, Identity{Provider: "p"}, LiveOptions{}); err == nil {
		t.Fatal("empty model accepted")
	}
	if _, err := NewLive(&fakeGen{}, testID, LiveOptions{MaxBatch: -1}); err == nil {
		t.Fatal("negative MaxBatch accepted")
	}
}
