// Package rate limits credential attempts for the development backend.
//
// [Lockout] is a Redis fixed-window counter of consecutive failures per
// username. [Throttle] is an in-process token bucket per client address.
package rate
