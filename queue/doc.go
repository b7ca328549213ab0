// Package queue implements the Channel (spec.md §4.Q): a generic bounded
// FIFO with blocking push/pop, a timeout-bounded poll for supervisors, and
// an idempotent close that wakes every blocked pusher and popper.
//
// Channel wraps a native Go channel rather than being one, because a plain
// `chan T` has no way for a consumer to observe "closed and fully drained"
// versus "closed but still has buffered items" without a second signal —
// and no way for Pop to additionally select on an external cancellation
// context without the caller reaching into the channel's internals.
package queue
