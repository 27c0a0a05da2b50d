// Package router models the outer application router as seen by the session
// gate: a current path, a fire-and-forget Redirect side channel, and change
// notifications.
//
// [Router] delivers path changes from a drain loop. A Redirect issued from
// inside a change notification is queued and delivered after the current
// notification returns, so subscribers never re-enter each other.
package router
