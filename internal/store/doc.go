// Package store provides the key-value storage capability injected into the
// widget runtime.
//
// The widget persists exactly one kind of durable state: the per-visitor
// session token. Rather than reaching for global browser storage implicitly,
// the runtime takes a KV with Get/Set/Delete so tests can substitute an
// in-memory fake and hosts can decide where profile state lives.
//
// Two implementations are provided:
//
//   - SQLiteKV: durable, one database file per visitor profile
//   - Memory: ephemeral, for tests and preview surfaces
//
// Missing keys are reported with ErrNotFound.
package store
