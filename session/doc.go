// Package session owns the client's authentication token and its
// initialization lifecycle.
//
// # Components
//
//   - [Store]: the single owned state cell. Reads the persisted token once,
//     exposes it through snapshots and subscriptions, and is the only writer
//     of the storage key.
//   - [Hook]: wraps a Store with the navigation side effects of login and
//     logout and derives [AuthState].
//
// # Architecture boundaries
//
// This package performs storage I/O and issues navigation requests. It does
// NOT acquire tokens over the network, validate token contents, or decide
// whether a route may render. Those belong to form, authapi, and guard.
//
// # What this package must NOT do
//
//   - Let initialized revert to false once it has become true.
//   - Report IsAuthenticated from anything but the presence of a token.
//   - Log token values.
package session
