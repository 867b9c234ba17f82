package subscription

import (
	"context"
	"errors"

	"github.com/vsb-protocol/vsb-go/pkg/value"
)

// Subscription errors.
var (
	// ErrOverflow indicates the delivery queue dropped updates because
	// the consumer fell behind. It is recoverable: the next read
	// resumes with the oldest retained update.
	ErrOverflow = errors.New("subscription queue overflowed, oldest updates dropped")

	// ErrReconnectFailed indicates re-registering this subscription
	// after a reconnect failed. It is terminal for the subscription
	// only; other subscriptions and the client are unaffected.
	ErrReconnectFailed = errors.New("failed to re-establish subscription after reconnect")

	// ErrStreamClosed indicates the subscription was cancelled.
	ErrStreamClosed = errors.New("subscription stream closed")

	// ErrEmptyPath indicates a subscribe call with an empty path.
	ErrEmptyPath = errors.New("path must not be empty")
)

// Subscription is the consumer-facing stream handle for one registered
// path. It holds the consumer side of the delivery queue and the
// subscription identifier used to request cancellation; the
// Multiplexer owns the producer side. A Subscription is a lazy,
// conceptually infinite sequence: Next blocks until the broker
// publishes an update, and the stream ends only on Close or a
// terminal error. It is not restartable; subscribe again for a new
// stream.
type Subscription struct {
	mux  *Multiplexer
	id   uint32
	path string
	q    *queue
}

// ID returns the subscription identifier. Identifiers increase
// monotonically and are never reused within a client's lifetime.
func (s *Subscription) ID() uint32 {
	return s.id
}

// Path returns the subscribed signal path.
func (s *Subscription) Path() string {
	return s.path
}

// Next blocks until the next value update is available and returns it.
//
// Recoverable errors: ErrOverflow (updates were dropped; keep
// reading). Terminal errors: ErrStreamClosed, ErrReconnectFailed, or
// the fatal error that ended the client; after a terminal error every
// subsequent call returns the same error. Context cancellation returns
// ctx.Err() without consuming an update.
func (s *Subscription) Next(ctx context.Context) (value.Value, error) {
	return s.q.pop(ctx)
}

// Close cancels the subscription. The broker is notified best-effort;
// local delivery stops no later than the next dispatch cycle. Safe to
// call concurrently with Next and with in-flight dispatch.
func (s *Subscription) Close() {
	s.mux.Cancel(s.id)
}
