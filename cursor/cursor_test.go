package cursor

import (
	"sync"
	"testing"
)

func TestSnapshotDefaultsToZeroWithoutCreating(t *testing.T) {
	var m Map

	c := m.Get("b")
	c.Lock()
	c.Advance(2)
	c.Unlock()

	if got := m.Snapshot("a"); got != 0 {
		t.Fatalf("Snapshot(a) = %d, want 0", got)
	}
	if got := m.Snapshot("b"); got != 2 {
		t.Fatalf("Snapshot(b) = %d, want 2", got)
	}
	if len(m.cursors) != 1 {
		t.Fatalf("snapshots must not create cursors, have %d", len(m.cursors))
	}
}

func TestGetReturnsSameCursor(t *testing.T) {
	var m Map // zero value
	if m.Get("k") != m.Get("k") {
		t.Fatal("Get must return the same cursor for a key")
	}
}

// TestConcurrentClaimsNeverOverlap claims positions from many goroutines and
// checks every position is handed out exactly once.
func TestConcurrentClaimsNeverOverlap(t *testing.T) {
	var m Map
	const workers, per = 16, 50

	var mu sync.Mutex
	seen := make(map[int]int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				c := m.Get("fp")
				c.Lock()
				p := c.Pos()
				c.Advance(1)
				c.Unlock()

				mu.Lock()
				seen[p]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*per {
		t.Fatalf("expected %d distinct positions, got %d", workers*per, len(seen))
	}
	for p, n := range seen {
		if n != 1 {
			t.Fatalf("position %d handed out %d times", p, n)
		}
	}
	if got := m.Snapshot("fp"); got != workers*per {
		t.Fatalf("final position %d want %d", got, workers*per)
	}
}

func TestAdvanceIgnoresNonPositive(t *testing.T) {
	c := &Cursor{}
	c.Lock()
	c.Advance(3)
	c.Advance(0)
	c.Advance(-2)
	p := c.Pos()
	c.Unlock()
	if p != 3 {
		t.Fatalf("pos=%d want 3", p)
	}
}

func TestResetStartsAtZero(t *testing.T) {
	var r Reset
	if r.Pos() != 0 {
		t.Fatal("reset cursor must start at 0")
	}
	r.Advance(2)
	if r.Pos() != 2 {
		t.Fatalf("pos=%d want 2", r.Pos())
	}
}
