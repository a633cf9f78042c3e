// Package cursor tracks read positions into cached response sequences.
//
// Two flavours exist:
//   - Reset: a plain position owned by one stream; starts at 0 for every
//     Sample call and dies with the stream.
//   - Map/Cursor: positions keyed by fingerprint that persist for the
//     lifetime of the owning Map. They never reset and only move forward.
package cursor

import "sync"

// Reset is a per-stream position. Not safe for concurrent use.
type Reset struct {
	pos int
}

func (r *Reset) Pos() int      { return r.pos }
func (r *Reset) Advance(k int) { r.pos += k }

// Cursor is a persistent position for one fingerprint.
//
// Callers hold the cursor while reading the value at Pos and call Advance
// only once the value was actually handed out, so a failed read consumes
// nothing and two holders never see the same position.
type Cursor struct {
	mu  sync.Mutex
	pos int
}

// Lock acquires exclusive use of the cursor.
func (c *Cursor) Lock()   { c.mu.Lock() }
func (c *Cursor) Unlock() { c.mu.Unlock() }

// Pos returns the next unread index. Caller must hold the lock.
func (c *Cursor) Pos() int { return c.pos }

// Advance moves the cursor forward by k. Caller must hold the lock.
func (c *Cursor) Advance(k int) {
	if k > 0 {
		c.pos += k
	}
}

// Map owns persistent cursors keyed by fingerprint. The zero value is ready to use.
type Map struct {
	mu      sync.RWMutex
	cursors map[string]*Cursor
}

// Get returns the cursor for key, creating it at position 0.
func (m *Map) Get(key string) *Cursor {
	m.mu.RLock()
	c := m.cursors[key]
	m.mu.RUnlock()
	if c != nil {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursors == nil {
		m.cursors = make(map[string]*Cursor)
	}
	if c = m.cursors[key]; c == nil {
		c = &Cursor{}
		m.cursors[key] = c
	}
	return c
}

// Snapshot returns the current position for key; missing => 0.
// It waits for an in-flight read on the same key to finish.
func (m *Map) Snapshot(key string) int {
	m.mu.RLock()
	c := m.cursors[key]
	m.mu.RUnlock()
	if c == nil {
		return 0
	}
	c.Lock()
	defer c.Unlock()
	return c.pos
}
