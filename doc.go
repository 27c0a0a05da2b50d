// Package sessiongate gates client-side routes on a persisted bearer token.
//
// A [Gate] wires four parts built by [Builder.Build]:
//
//   - a session store that loads the token once at startup and persists
//     every change (package session),
//   - an in-process router that records navigation (package router),
//   - a route guard that renders, redirects or waits based on session state
//     and path (package guard),
//   - a credential client and form that exchange a username and password for
//     a token (packages authapi and form).
//
// Gate methods are safe to call from multiple goroutines after Start.
//
// # Architecture boundaries
//
// sessiongate is the assembly point. It owns configuration, logging, audit
// dispatch and metrics. Routing decisions live in guard, persistence in
// session and storage, and wire calls in authapi.
//
// # What this package must NOT do
//
//   - Validate or refresh tokens. The token is opaque on the client.
//   - Retry failed credential exchanges.
//   - Import internal/devserver. The backend is reached over HTTP only.
package sessiongate
