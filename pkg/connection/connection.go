package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vsb-protocol/vsb-go/pkg/log"
	"github.com/vsb-protocol/vsb-go/pkg/transport"
	"github.com/vsb-protocol/vsb-go/pkg/wire"
)

// Connection states.
type State uint8

const (
	// StateDisconnected indicates no connection.
	StateDisconnected State = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected
)

// String returns the connection state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a broker connection.
type Config struct {
	// Dialer opens the physical link. Defaults to plain TCP.
	Dialer transport.Dialer

	// ConnectTimeout bounds a single connection attempt (default: 10s).
	ConnectTimeout time.Duration

	// RequestTimeout bounds a request/response exchange (default: 30s).
	// A per-call context deadline takes precedence when shorter.
	RequestTimeout time.Duration

	// MaxMessageSize is the maximum wire message size (default: 64KB).
	MaxMessageSize uint32

	// KeepAlive configures liveness pings. A zero PingInterval uses the
	// default; set Disabled to turn pings off.
	KeepAlive KeepAliveConfig

	// Logger receives protocol events. Nil disables logging.
	Logger log.Logger
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		Dialer:         &transport.TCPDialer{},
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxMessageSize: transport.DefaultMaxMessageSize,
		KeepAlive:      DefaultKeepAliveConfig(),
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Dialer == nil {
		c.Dialer = def.Dialer
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
}

// Connection owns one physical link to the broker: it establishes the
// link, serializes request writes, correlates responses to waiting
// callers by message ID, and hands asynchronous notifications to the
// registered intake. Any I/O failure transitions it to Disconnected
// and fails every outstanding request with ErrConnectionLost; it never
// retries by itself, retry policy lives in the Manager.
type Connection struct {
	config Config
	id     string

	// State
	state  atomic.Int32
	closed atomic.Bool

	// Link for the current session
	mu      sync.RWMutex
	conn    net.Conn
	framer  *transport.Framer
	address string
	session uint64 // increments per successful Connect

	// Keep-alive for the current session
	keepAlive *KeepAlive

	// Pending requests awaiting responses
	nextMsgID atomic.Uint32
	pendingMu sync.Mutex
	pending   map[uint32]chan *wire.Response

	// Callbacks
	cbMu           sync.RWMutex
	onNotification func(*wire.Notification)
	onStateChange  func(oldState, newState State)
	onDisconnected func(err error)
}

// New creates a new connection (not yet connected).
func New(config Config) *Connection {
	config.applyDefaults()
	return &Connection{
		config:  config,
		id:      uuid.NewString(),
		pending: make(map[uint32]chan *wire.Response),
	}
}

// ID returns the connection instance identifier used in log events.
func (c *Connection) ID() string {
	return c.id
}

// State returns the current connection state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// OnNotification registers the intake for asynchronous notifications.
// Called from the read loop goroutine; the handler must not block.
func (c *Connection) OnNotification(fn func(*wire.Notification)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onNotification = fn
}

// OnStateChange registers a callback for state transitions.
func (c *Connection) OnStateChange(fn func(oldState, newState State)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onStateChange = fn
}

// OnDisconnected registers a callback invoked when the link fails.
// The error describes the failure cause.
func (c *Connection) OnDisconnected(fn func(err error)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onDisconnected = fn
}

// Connect establishes a link to the broker address. It blocks until
// the link is up or the attempt fails with a ConnectError.
func (c *Connection) Connect(ctx context.Context, address string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.notifyStateChange(StateDisconnected, StateConnecting)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.config.Dialer.Dial(ctx, address)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.notifyStateChange(StateConnecting, StateDisconnected)
		return &ConnectError{Address: address, Cause: err}
	}

	framer := transport.NewFramerWithMaxSize(conn, c.config.MaxMessageSize)
	framer.SetLogger(c.config.Logger, c.id)

	c.mu.Lock()
	c.conn = conn
	c.framer = framer
	c.address = address
	c.session++
	session := c.session
	c.mu.Unlock()

	c.startKeepAlive(session)
	go c.readLoop(framer, session)

	c.state.Store(int32(StateConnected))
	c.notifyStateChange(StateConnecting, StateConnected)

	return nil
}

// Do sends a request and waits for the matching response. The message
// ID is assigned here; responses are correlated by ID, so concurrent
// calls do not have to complete in FIFO order. On timeout the call
// fails with ErrRequestTimeout and a late response is discarded.
func (c *Connection) Do(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	if c.State() != StateConnected {
		return nil, ErrNotConnected
	}

	req.MessageID = c.nextMessageID()

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	if c.pending == nil {
		c.pendingMu.Unlock()
		return nil, ErrClosed
	}
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := c.send(data); err != nil {
		return nil, err
	}

	timeout := c.config.RequestTimeout
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			if c.closed.Load() {
				return nil, ErrClosed
			}
			return nil, ErrConnectionLost
		}
		return resp, nil
	}
}

// Send writes a pre-encoded message to the link. Writes are serialized
// by the framer so concurrent senders never interleave partial frames.
func (c *Connection) send(data []byte) error {
	c.mu.RLock()
	framer := c.framer
	c.mu.RUnlock()

	if framer == nil || c.State() != StateConnected {
		return ErrNotConnected
	}
	return framer.WriteFrame(data)
}

// SendControl sends a control message (ping/pong/close).
func (c *Connection) SendControl(msgType wire.ControlMessageType, seq uint32) error {
	data, err := wire.EncodeControlMessage(&wire.ControlMessage{Type: msgType, Sequence: seq})
	if err != nil {
		return fmt.Errorf("failed to encode control message: %w", err)
	}
	return c.send(data)
}

// Close permanently closes the connection. A close control message is
// sent best-effort; outstanding requests fail with ErrClosed.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if c.State() == StateConnected {
		// Best-effort goodbye.
		_ = c.SendControl(wire.ControlClose, 0)
	}
	c.teardown(ErrClosed)

	c.pendingMu.Lock()
	c.pending = nil
	c.pendingMu.Unlock()

	return nil
}

// nextMessageID generates the next request message ID, skipping the
// reserved notification and control IDs.
func (c *Connection) nextMessageID() uint32 {
	for {
		id := c.nextMsgID.Add(1)
		if id != wire.NotificationMessageID && id != wire.ControlMessageID {
			return id
		}
	}
}

// teardown moves the connection to Disconnected, closes the link and
// fails all pending requests. Safe to call from any goroutine; only
// the first caller per session does the work.
func (c *Connection) teardown(cause error) {
	old := State(c.state.Swap(int32(StateDisconnected)))
	if old == StateDisconnected {
		return
	}

	if c.keepAlive != nil {
		c.keepAlive.Stop()
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.framer = nil
	c.mu.Unlock()

	c.failPending()
	c.notifyStateChange(old, StateDisconnected)

	if !errors.Is(cause, ErrClosed) {
		c.logError(cause)
		c.cbMu.RLock()
		onDisc := c.onDisconnected
		c.cbMu.RUnlock()
		if onDisc != nil {
			onDisc(cause)
		}
	}
}

// failPending closes every pending response channel. Waiters observe
// the closed channel and report ErrConnectionLost (or ErrClosed).
func (c *Connection) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// startKeepAlive initializes liveness monitoring for this session.
func (c *Connection) startKeepAlive(session uint64) {
	if c.config.KeepAlive.Disabled {
		c.keepAlive = nil
		return
	}
	c.keepAlive = NewKeepAlive(
		c.config.KeepAlive,
		func(seq uint32) error {
			return c.SendControl(wire.ControlPing, seq)
		},
		func() {
			c.teardownSession(session, fmt.Errorf("%w: keep-alive timeout", ErrConnectionLost))
		},
	)
	c.keepAlive.Start()
}

// teardownSession tears down only if the given session is still live,
// so a stale keep-alive or read loop cannot kill a fresh reconnect.
func (c *Connection) teardownSession(session uint64, cause error) {
	c.mu.RLock()
	current := c.session
	c.mu.RUnlock()
	if current != session {
		return
	}
	c.teardown(cause)
}

// readLoop is the sole reader of the link. It classifies each frame
// and dispatches it: responses complete exactly one waiting request,
// notifications go to the registered intake, control messages are
// handled inline. A decode failure of a single message is logged and
// skipped; frame or I/O errors end the session.
func (c *Connection) readLoop(framer *transport.Framer, session uint64) {
	for {
		data, err := framer.ReadFrame()
		if err != nil {
			if c.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if err == io.EOF {
				c.teardownSession(session, fmt.Errorf("%w: broker closed the link", ErrConnectionLost))
			} else {
				c.teardownSession(session, fmt.Errorf("%w: %v", ErrConnectionLost, err))
			}
			return
		}

		msgType, err := wire.PeekMessageType(data)
		if err != nil {
			c.logError(err)
			continue
		}

		switch msgType {
		case wire.MessageTypeResponse:
			resp, err := wire.DecodeResponse(data)
			if err != nil {
				c.logError(err)
				continue
			}
			c.handleResponse(resp)

		case wire.MessageTypeNotification:
			notif, err := wire.DecodeNotification(data)
			if err != nil {
				c.logError(err)
				continue
			}
			c.cbMu.RLock()
			handler := c.onNotification
			c.cbMu.RUnlock()
			if handler != nil {
				handler(notif)
			}

		case wire.MessageTypeControl:
			msg, err := wire.DecodeControlMessage(data)
			if err != nil {
				c.logError(err)
				continue
			}
			if c.handleControlMessage(msg, session) {
				return
			}

		default:
			// A client never receives requests.
			c.logError(fmt.Errorf("unexpected message type %d from broker", msgType))
		}
	}
}

// handleResponse completes the waiting request, if any. Responses to
// timed-out or unknown requests are discarded.
func (c *Connection) handleResponse(resp *wire.Response) {
	c.pendingMu.Lock()
	ch, exists := c.pending[resp.MessageID]
	if exists {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !exists {
		return
	}
	// Buffered; the single waiter consumes exactly one response.
	ch <- resp
}

// handleControlMessage processes a control message. Returns true if
// the read loop should exit.
func (c *Connection) handleControlMessage(msg *wire.ControlMessage, session uint64) bool {
	switch msg.Type {
	case wire.ControlPing:
		_ = c.SendControl(wire.ControlPong, msg.Sequence)
	case wire.ControlPong:
		if c.keepAlive != nil {
			c.keepAlive.PongReceived(msg.Sequence)
		}
	case wire.ControlClose:
		_ = c.SendControl(wire.ControlClose, 0)
		c.teardownSession(session, fmt.Errorf("%w: broker requested close", ErrConnectionLost))
		return true
	}
	return false
}

// notifyStateChange notifies the state change callback and logger.
func (c *Connection) notifyStateChange(oldState, newState State) {
	if c.config.Logger != nil {
		c.config.Logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.id,
			Layer:        log.LayerConnection,
			Category:     log.CategoryState,
			RemoteAddr:   c.address,
			StateChange:  &log.StateChangeEvent{From: oldState.String(), To: newState.String()},
		})
	}

	c.cbMu.RLock()
	fn := c.onStateChange
	c.cbMu.RUnlock()
	if fn != nil {
		fn(oldState, newState)
	}
}

func (c *Connection) logError(err error) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerConnection,
		Category:     log.CategoryError,
		RemoteAddr:   c.address,
		Error:        &log.ErrorEvent{Message: err.Error()},
	})
}
