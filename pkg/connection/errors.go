package connection

import (
	"errors"
	"fmt"
)

// Connection errors.
var (
	// ErrNotConnected indicates an operation on a disconnected connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect on a live connection.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrConnectionLost indicates an outstanding request was invalidated
	// by a connection drop.
	ErrConnectionLost = errors.New("connection lost")

	// ErrRequestTimeout indicates a request timed out. A response that
	// arrives after the timeout is discarded.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrClosed indicates the connection was closed for good.
	ErrClosed = errors.New("connection closed")

	// ErrReconnectExhausted indicates the reconnect policy ran out of
	// attempts. This is fatal: all outstanding streams end.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// ConnectError indicates the broker address was unreachable or the
// link could not be established.
type ConnectError struct {
	// Address is the broker address that was dialed.
	Address string

	// Cause is the underlying dial or handshake error.
	Cause error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Address, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Cause
}
