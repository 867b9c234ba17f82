// Package connection owns the single physical link between a client
// and its broker.
//
// Connection is the state machine Disconnected → Connecting →
// Connected → Disconnected. One goroutine (the read loop) is the sole
// reader of the link; request writes from any goroutine are serialized
// through the framer. Responses are correlated to waiting callers by
// message ID, so calls complete in response order, not request order.
// Any I/O failure fails all outstanding requests with
// ErrConnectionLost and reports the loss; the Connection never
// retries by itself.
//
// Manager adds policy-driven reconnection on top (disabled, fixed
// delay, or exponential backoff with optional max attempts), and
// KeepAlive detects dead links with ping/pong probes.
package connection
