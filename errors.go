package samplecache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/samplecache/store"
)

var (
	// ErrReplicationMiss matches every *ReplicationMissError.
	ErrReplicationMiss = errors.New("samplecache: replication cache miss")

	// ErrShortBatch is wrapped in a ProviderError when a provider returns
	// fewer samples than were requested.
	ErrShortBatch = errors.New("samplecache: provider returned fewer samples than requested")

	// ErrCorrupt matches records that fail structural parsing.
	ErrCorrupt = store.ErrCorrupt
)

// ProviderError is a failed live fetch. It is never retried internally.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("samplecache: provider %s model %s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ReplicationMissError is returned instead of a live fetch when a cache in
// replication mode lacks the requested index: the run is not fully
// reproducible from the cache it was given.
type ReplicationMissError struct {
	Fingerprint string
	Index       int
}

func (e *ReplicationMissError) Error() string {
	return fmt.Sprintf("samplecache: replication cache miss: %s[%d]", e.Fingerprint, e.Index)
}

func (e *ReplicationMissError) Is(target error) bool { return target == ErrReplicationMiss }

// RetryError is returned by Retry after the last attempt failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("samplecache: failed after %d attempts; last error: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }
