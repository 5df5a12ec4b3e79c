// Package store provides the in-memory entry store: a mapping from uint32
// keys to compressed value blobs that behaves like a dictionary of canonical
// values.
//
// Layout:
//   - Every blob is produced by codec.Encode with the store's algorithm; a
//     store never mixes algorithms.
//   - Entries keep insertion order. Overwriting a key keeps its position;
//     deleting and re-inserting a key moves it to the end.
//   - Keys and Items return snapshots: mutations after the call are not
//     observed by the returned sequence.
//
// A Store is not safe for concurrent mutation. Concurrent readers are fine
// as long as no goroutine writes.
package store
