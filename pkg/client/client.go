package client

import (
	"context"
	"sync/atomic"

	"github.com/vsb-protocol/vsb-go/pkg/connection"
	"github.com/vsb-protocol/vsb-go/pkg/subscription"
	"github.com/vsb-protocol/vsb-go/pkg/value"
	"github.com/vsb-protocol/vsb-go/pkg/wire"
)

// Client is the top-level handle to one signal broker. It owns exactly
// one connection and one subscription multiplexer for its lifetime;
// Close tears down the connection and ends every subscription.
type Client struct {
	config  Config
	address string

	conn    *connection.Connection
	mux     *subscription.Multiplexer
	manager *connection.Manager

	closed atomic.Bool
}

// Connect establishes a connection to the broker at address and
// returns a ready client. It blocks until the link is up or the
// attempt fails; a lost link is later re-established per the
// configured reconnect policy while live subscriptions are resumed
// transparently.
func Connect(ctx context.Context, address string, config Config) (*Client, error) {
	config.applyDefaults()

	c := &Client{
		config:  config,
		address: address,
	}

	c.conn = connection.New(connection.Config{
		Dialer:         config.Dialer,
		ConnectTimeout: config.ConnectTimeout,
		RequestTimeout: config.RequestTimeout,
		MaxMessageSize: config.MaxMessageSize,
		KeepAlive:      config.KeepAlive,
		Logger:         config.Logger,
	})
	c.mux = subscription.NewMultiplexer(c.conn, subscription.Config{
		QueueCapacity: config.QueueCapacity,
		Logger:        config.Logger,
	})
	c.manager = connection.NewManager(config.Reconnect, func(ctx context.Context) error {
		return c.conn.Connect(ctx, c.address)
	})

	c.conn.OnNotification(c.mux.Dispatch)
	c.conn.OnDisconnected(c.handleConnectionLost)
	c.manager.OnReconnected(c.handleReconnected)
	c.manager.OnExhausted(c.handleExhausted)

	if err := c.conn.Connect(ctx, address); err != nil {
		return nil, err
	}
	c.manager.Start()

	return c, nil
}

// State returns the current connection state.
func (c *Client) State() connection.State {
	return c.conn.State()
}

// OnStateChange registers a callback observing connection state
// transitions, including those driven by automatic reconnection.
// Must be set before the state changes of interest can occur.
func (c *Client) OnStateChange(fn func(oldState, newState connection.State)) {
	c.conn.OnStateChange(fn)
}

// Get reads the current value of a signal. It does not retry: on
// ErrConnectionLost the caller decides whether to call again.
func (c *Client) Get(ctx context.Context, path string) (value.Value, error) {
	if path == "" {
		return value.Value{}, ErrEmptyPath
	}

	resp, err := c.conn.Do(ctx, &wire.Request{
		Operation: wire.OpGet,
		Path:      path,
	})
	if err != nil {
		return value.Value{}, err
	}
	if err := wire.ResponseError(resp); err != nil {
		return value.Value{}, err
	}
	if resp.Datapoint == nil {
		return value.Unset(), nil
	}
	return resp.Datapoint.ToValue()
}

// Set writes a signal value. It returns nil only after the broker
// acknowledged the write, not merely after the request was sent.
func (c *Client) Set(ctx context.Context, path string, v value.Value) error {
	if path == "" {
		return ErrEmptyPath
	}

	dp := wire.FromValue(v)
	resp, err := c.conn.Do(ctx, &wire.Request{
		Operation: wire.OpSet,
		Path:      path,
		Datapoint: &dp,
	})
	if err != nil {
		return err
	}
	return wire.ResponseError(resp)
}

// GetMany reads the current values of several signals. It fails fast:
// the first failing path aborts the batch and returns its error.
func (c *Client) GetMany(ctx context.Context, paths []string) (map[string]value.Value, error) {
	values := make(map[string]value.Value, len(paths))
	for _, path := range paths {
		v, err := c.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		values[path] = v
	}
	return values, nil
}

// SetMany writes several signal values. It fails fast: the first
// failing path aborts the batch, leaving earlier writes in effect.
func (c *Client) SetMany(ctx context.Context, values map[string]value.Value) error {
	for path, v := range values {
		if err := c.Set(ctx, path, v); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a live subscription to a signal path. The
// returned stream yields every update the broker emits for the path in
// emission order and survives reconnects; it ends only on Close or a
// terminal error.
func (c *Client) Subscribe(ctx context.Context, path string) (*subscription.Subscription, error) {
	return c.mux.Register(ctx, path)
}

// Close permanently shuts down the client: reconnection stops, every
// subscription ends with ErrStreamClosed, and the connection closes.
// Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.manager.Stop()
	c.mux.CloseAll(subscription.ErrStreamClosed)
	return c.conn.Close()
}

// handleConnectionLost runs when the link drops unexpectedly. With
// reconnection enabled, subscription reads are gated until the
// resubscribe completes so no stale value surfaces; otherwise every
// stream ends with the loss error.
func (c *Client) handleConnectionLost(err error) {
	if c.closed.Load() {
		return
	}
	if c.config.Reconnect.Mode == connection.ReconnectDisabled {
		c.mux.CloseAll(err)
		return
	}
	c.mux.Suspend()
	c.manager.NotifyConnectionLost()
}

// handleReconnected replays every live subscription on the fresh link.
func (c *Client) handleReconnected() {
	c.mux.Resubscribe(context.Background())
}

// handleExhausted ends every stream once the reconnect policy gives up.
func (c *Client) handleExhausted(err error) {
	c.mux.CloseAll(err)
}
