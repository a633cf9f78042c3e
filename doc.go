// Package samplecache makes calls to a non-deterministic text generation
// service reproducible, cheap and composable with retry-style control flow.
//
// A Model turns a prompt into a lazy, logically infinite Stream of samples.
// Models compose by wrapping:
//
//   - Live: talks to a Generator through a Dispatcher that splits requests
//     into provider-sized batches. No memory across calls.
//   - Cached: persists every fetched sample in an append-only store.Store keyed
//     by Fingerprint. Each Sample call replays the stored sequence from index 0,
//     fetching more only when a stream reads past the end ("repeatable").
//     In replication mode a miss fails with ErrReplicationMiss instead.
//   - Independent: keeps a per-fingerprint cursor, so successive Sample calls
//     continue where the previous ones stopped ("fresh every call") while
//     still reading the same cached sequence.
//
// Cached over Cached reads through the outer store into the inner one and
// copies what it reads, which slices a large cache down to exactly what a run
// touched:
//
//	inner, _ := samplecache.NewCached(live, samplecache.Options{Store: bigCache})
//	outer, _ := samplecache.NewCached(inner, samplecache.Options{Store: emptyDir})
//	model := samplecache.NewIndependent(outer)
//	v, err := model.Sample("prompt", 4).Next(ctx)
//
// Blocking happens only inside Stream.Next: a provider fetch or a store append.
package samplecache
