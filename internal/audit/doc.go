// Package audit relays session-gate events to a sink off the caller's
// goroutine.
//
// # Components
//
//   - [Sink] consumes events. Provided: no-op, channel, JSON lines, logrus.
//   - [Dispatcher] is a buffered relay that either drops or blocks when full.
//   - [Event] records one login, logout, initialization, redirect or form
//     submission.
//
// # What this package must NOT do
//
//   - Decide which events exist. The gate emits them.
//   - Import sessiongate or any sibling package.
package audit
