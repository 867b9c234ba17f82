package client

import (
	"github.com/vsb-protocol/vsb-go/pkg/connection"
	"github.com/vsb-protocol/vsb-go/pkg/subscription"
)

// Common errors re-exported from the lower layers so callers matching
// with errors.Is rarely need to import them directly.
var (
	// ErrEmptyPath indicates a call with an empty signal path.
	ErrEmptyPath = subscription.ErrEmptyPath

	// ErrConnectionLost indicates the link dropped while a request was
	// outstanding. The caller decides whether to retry.
	ErrConnectionLost = connection.ErrConnectionLost

	// ErrRequestTimeout indicates a request/response exchange expired.
	ErrRequestTimeout = connection.ErrRequestTimeout

	// ErrClosed indicates the client was closed.
	ErrClosed = connection.ErrClosed

	// ErrReconnectExhausted indicates the reconnect policy gave up.
	// It is fatal: every stream ends with it.
	ErrReconnectExhausted = connection.ErrReconnectExhausted

	// ErrOverflow indicates a subscription dropped updates because the
	// consumer fell behind. Recoverable; keep reading.
	ErrOverflow = subscription.ErrOverflow

	// ErrReconnectFailed indicates one subscription could not be
	// re-established after a reconnect. Terminal for that stream only.
	ErrReconnectFailed = subscription.ErrReconnectFailed

	// ErrStreamClosed indicates a subscription was cancelled.
	ErrStreamClosed = subscription.ErrStreamClosed
)
