package samplecache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on the goroutine
// that pulled from a stream. Wrap slow sinks with hooks/async.
type Hooks interface {
	// Fresh samples were fetched from the provider (all sub-requests done).
	Fetched(fingerprint string, count int, took time.Duration)

	// A live fetch failed; nothing was appended.
	FetchFailed(fingerprint string, err error)

	// A cache in replication mode was asked for an index it does not hold.
	ReplicationMiss(fingerprint string, index int)

	// Values [from, from+count) were copied from an inner cache into an outer one.
	SliceCopied(fingerprint string, from, count int)

	// The store failed to read or append (I/O, lock or corrupt record).
	StoreError(fingerprint string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Fetched(string, int, time.Duration) {}
func (NopHooks) FetchFailed(string, error)          {}
func (NopHooks) ReplicationMiss(string, int)        {}
func (NopHooks) SliceCopied(string, int, int)       {}
func (NopHooks) StoreError(string, error)           {}

// MultiHooks fans every event out to each of its elements, in order.
type MultiHooks []Hooks

func (m MultiHooks) Fetched(fp string, count int, took time.Duration) {
	for _, h := range m {
		h.Fetched(fp, count, took)
	}
}

func (m MultiHooks) FetchFailed(fp string, err error) {
	for _, h := range m {
		h.FetchFailed(fp, err)
	}
}

func (m MultiHooks) ReplicationMiss(fp string, index int) {
	for _, h := range m {
		h.ReplicationMiss(fp, index)
	}
}

func (m MultiHooks) SliceCopied(fp string, from, count int) {
	for _, h := range m {
		h.SliceCopied(fp, from, count)
	}
}

func (m MultiHooks) StoreError(fp string, err error) {
	for _, h := range m {
		h.StoreError(fp, err)
	}
}
