// Package internal holds code private to sessiongate.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - devserver: the local credential backend used by the CLI and tests
//   - rate: Redis-backed lockout and in-process throttling for devserver
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessiongate API.
//   - Be imported by any package outside the sessiongate module.
package internal
