// Package store provides SQLite-backed durable storage for the fact graph:
// an attribute registry plus an entity/attribute/value datom log.
//
// The database holds three tables: attributes (ident, value type,
// cardinality, uniqueness), entities (id allocation), and datoms (e, a, v
// triples with an AVE index for reverse lookups). Values are stored in a
// canonical text encoding keyed by the attribute's declared value type; the
// codec in codec.go is the only place that encoding lives.
//
// Reads happen through immutable snapshots: Snapshot materializes the whole
// datom set into a Facts value with EAV and AVE indexes, which is safe for
// unsynchronized concurrent use and doubles as the reference query executor
// (exec.go). Refreshing state means taking a new snapshot and swapping the
// pointer, never mutating a Facts in place.
//
// Database configuration follows the usual SQLite discipline:
//
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single-connection pool, since SQLite allows one writer
package store
