// Package storage provides persistent single-key token storage backends used by
// the session store.
//
// # Backends
//
//   - [Memory]: process-local map, for tests and ephemeral shells.
//   - [File]: JSON document on local disk, survives process restarts.
//   - [Redis]: keys namespaced per client instance in a shared Redis.
//
// # Architecture boundaries
//
// This package persists opaque strings. It does NOT interpret tokens, track
// initialization, or decide authentication state. Those belong to session.
//
// # What this package must NOT do
//
//   - Import session, guard, or the root sessiongate package.
//   - Log token values.
package storage
