package client

import (
	"context"

	"github.com/vsb-protocol/vsb-go/pkg/subscription"
	"github.com/vsb-protocol/vsb-go/pkg/value"
)

// GetValue reads a signal and converts it to the requested static
// type. A value of an incompatible dynamic kind fails with
// value.TypeMismatchError without affecting the connection.
func GetValue[T value.GoType](ctx context.Context, c *Client, path string) (T, error) {
	v, err := c.Get(ctx, path)
	if err != nil {
		var zero T
		return zero, err
	}
	return value.As[T](v)
}

// SetValue writes a statically typed signal value.
func SetValue[T value.GoType](ctx context.Context, c *Client, path string, v T) error {
	return c.Set(ctx, path, value.Of(v))
}

// SubscribeValue registers a live subscription yielding statically
// typed updates. Each update is converted at read time, so a wrong
// static type surfaces as a per-item value.TypeMismatchError rather
// than a registration failure, and the stream keeps going.
func SubscribeValue[T value.GoType](ctx context.Context, c *Client, path string) (*Stream[T], error) {
	sub, err := c.Subscribe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Stream[T]{sub: sub}, nil
}

// Stream is a typed view of one subscription. It is a lazy,
// conceptually infinite sequence: it ends only on Close or a terminal
// error and is not restartable.
type Stream[T value.GoType] struct {
	sub *subscription.Subscription
}

// Path returns the subscribed signal path.
func (s *Stream[T]) Path() string {
	return s.sub.Path()
}

// Next blocks until the next update and converts it to T.
//
// Recoverable errors: value conversion failures and ErrOverflow; keep
// reading. Terminal errors end the stream: every subsequent call
// returns the same error.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	v, err := s.sub.Next(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return value.As[T](v)
}

// Close cancels the subscription.
func (s *Stream[T]) Close() {
	s.sub.Close()
}
