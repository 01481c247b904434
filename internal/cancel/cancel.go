// Package cancel provides an injected cancellation token, used in place of
// the original implementation's single global shutdown flag
// (ShutdownRequested()) so that busy handlers, progress handlers, and
// long-running scans can be cancelled per-caller rather than
// process-wide.
package cancel

import "sync/atomic"

// Token is a one-shot cancellation signal. The zero value is a valid,
// never-cancelled Token.
type Token struct {
	ch   chan struct{}
	once int32
}

// New returns a fresh, not-yet-cancelled Token.
func New() *Token {
	return &Token{ch: make(chan struct{})}
}

// Cancel signals the token. Safe to call more than once or concurrently;
// only the first call has an effect.
func (t *Token) Cancel() {
	if atomic.CompareAndSwapInt32(&t.once, 0, 1) {
		close(t.ch)
	}
}

// Done returns a channel closed exactly when Cancel is first called,
// suitable for use in a select alongside other channels (e.g. in a busy
// handler's sleep-and-retry loop).
func (t *Token) Done() <-chan struct{} {
	return t.ch
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}
