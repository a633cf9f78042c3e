package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process-local Store. Entries live as long as the Memory value.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
}

type memEntry struct {
	mu     sync.RWMutex
	values []string
}

var (
	_ Store  = (*Memory)(nil)
	_ Loader = (*Memory)(nil)
	_ Lister = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memEntry)}
}

func (m *Memory) entry(fp string, create bool) *memEntry {
	m.mu.RLock()
	e := m.entries[fp]
	m.mu.RUnlock()
	if e != nil || !create {
		return e
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e = m.entries[fp]; e == nil {
		e = &memEntry{}
		m.entries[fp] = e
	}
	return e
}

func (m *Memory) Len(_ context.Context, fp string) (int, error) {
	e := m.entry(fp, false)
	if e == nil {
		return 0, nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.values), nil
}

func (m *Memory) Get(_ context.Context, fp string, index int) (string, bool, error) {
	e := m.entry(fp, false)
	if e == nil || index < 0 {
		return "", false, nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index >= len(e.values) {
		return "", false, nil
	}
	return e.values[index], true, nil
}

func (m *Memory) Append(_ context.Context, fp string, values []string) (int, error) {
	e := m.entry(fp, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values = append(e.values, values...)
	return len(e.values), nil
}

func (m *Memory) AppendAt(_ context.Context, fp string, at int, values []string) (bool, error) {
	e := m.entry(fp, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.values) != at {
		return false, nil
	}
	e.values = append(e.values, values...)
	return true, nil
}

func (m *Memory) Load(_ context.Context, fp string) ([]string, error) {
	e := m.entry(fp, false)
	if e == nil {
		return nil, nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.values...), nil
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	out := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		e.mu.RLock()
		n := len(e.values)
		e.mu.RUnlock()
		if n > 0 {
			out = append(out, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close(context.Context) error { return nil }
