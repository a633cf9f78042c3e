// Package storetest holds the behaviour every store.Store must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/unkn0wn-root/samplecache/store"
)

// Run exercises s against the Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("EmptyFingerprint", func(t *testing.T) { testEmpty(t, newStore(t)) })
	t.Run("AppendAndGet", func(t *testing.T) { testAppendGet(t, newStore(t)) })
	t.Run("AppendAt", func(t *testing.T) { testAppendAt(t, newStore(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
	t.Run("Load", func(t *testing.T) { testLoad(t, newStore(t)) })
}

func testEmpty(t *testing.T, s store.Store) {
	ctx := context.Background()
	n, err := s.Len(ctx, "nope")
	if err != nil || n != 0 {
		t.Fatalf("Len on unseen fp: n=%d err=%v", n, err)
	}
	if _, ok, err := s.Get(ctx, "nope", 0); err != nil || ok {
		t.Fatalf("Get on unseen fp: ok=%v err=%v", ok, err)
	}
}

func testAppendGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	n, err := s.Append(ctx, "fp", []string{"a", "b\nwith newline"})
	if err != nil || n != 2 {
		t.Fatalf("Append: n=%d err=%v", n, err)
	}
	n, err = s.Append(ctx, "fp", []string{"c"})
	if err != nil || n != 3 {
		t.Fatalf("second Append: n=%d err=%v", n, err)
	}
	want := []string{"a", "b\nwith newline", "c"}
	for i, w := range want {
		v, ok, err := s.Get(ctx, "fp", i)
		if err != nil || !ok || v != w {
			t.Fatalf("Get(%d): v=%q ok=%v err=%v want %q", i, v, ok, err, w)
		}
	}
	if _, ok, err := s.Get(ctx, "fp", 3); err != nil || ok {
		t.Fatalf("Get past end: ok=%v err=%v", ok, err)
	}
	if n, _ := s.Len(ctx, "other"); n != 0 {
		t.Fatalf("fingerprints must be isolated, other has %d", n)
	}
}

func testAppendAt(t *testing.T, s store.Store) {
	ctx := context.Background()
	ok, err := s.AppendAt(ctx, "fp", 0, []string{"x"})
	if err != nil || !ok {
		t.Fatalf("AppendAt(0) on empty: ok=%v err=%v", ok, err)
	}
	ok, err = s.AppendAt(ctx, "fp", 0, []string{"y"})
	if err != nil || ok {
		t.Fatalf("AppendAt(0) on len=1 should be rejected: ok=%v err=%v", ok, err)
	}
	ok, err = s.AppendAt(ctx, "fp", 1, []string{"y", "z"})
	if err != nil || !ok {
		t.Fatalf("AppendAt(1): ok=%v err=%v", ok, err)
	}
	if n, _ := s.Len(ctx, "fp"); n != 3 {
		t.Fatalf("Len after AppendAt: %d want 3", n)
	}
}

func testConcurrentAppend(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers, per = 8, 5

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				// each append is a pair so interleaving would split pairs
				v := fmt.Sprintf("w%d-%d", w, i)
				if _, err := s.Append(ctx, "shared", []string{v + "/a", v + "/b"}); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Append: %v", err)
	}

	all, err := store.Load(ctx, s, "shared")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != workers*per*2 {
		t.Fatalf("expected %d values, got %d", workers*per*2, len(all))
	}
	seen := make(map[string]bool, len(all))
	for i := 0; i < len(all); i += 2 {
		a, b := all[i], all[i+1]
		if a[:len(a)-2] != b[:len(b)-2] || a[len(a)-2:] != "/a" || b[len(b)-2:] != "/b" {
			t.Fatalf("interleaved append at %d: %q %q", i, a, b)
		}
		if seen[a] {
			t.Fatalf("duplicate value %q", a)
		}
		seen[a] = true
	}
}

func testLoad(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.Append(ctx, "fp", []string{"1", "2", "3"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, s, "fp")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != "1" || got[2] != "3" {
		t.Fatalf("Load got %v", got)
	}
	if l, ok := s.(store.Lister); ok {
		keys, err := l.Keys(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 1 || keys[0] != "fp" {
			t.Fatalf("Keys got %v want [fp]", keys)
		}
	}
}
