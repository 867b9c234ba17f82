// Package testbroker runs an in-process signal broker speaking the
// real wire protocol over TCP, for exercising the client end to end in
// tests. It stores values, acknowledges writes, honors subscriptions
// and lets a test publish updates or kill connections on demand.
package testbroker

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/vsb-protocol/vsb-go/pkg/transport"
	"github.com/vsb-protocol/vsb-go/pkg/value"
	"github.com/vsb-protocol/vsb-go/pkg/wire"
)

// Broker is a fake signal broker for tests.
type Broker struct {
	listener net.Listener
	closed   atomic.Bool
	wg       sync.WaitGroup

	mu       sync.Mutex
	values   map[string]value.Value
	reject   map[string]wire.Status
	conns    map[*brokerConn]struct{}
	seq      map[string]uint64
	opCounts map[wire.Operation]int
	subbed   chan string // signals each accepted subscribe path
}

// New starts a broker on an ephemeral localhost port.
func New() (*Broker, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	b := &Broker{
		listener: ln,
		values:   make(map[string]value.Value),
		reject:   make(map[string]wire.Status),
		conns:    make(map[*brokerConn]struct{}),
		seq:      make(map[string]uint64),
		opCounts: make(map[wire.Operation]int),
		subbed:   make(chan string, 64),
	}
	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

// Addr returns the broker's listen address.
func (b *Broker) Addr() string {
	return b.listener.Addr().String()
}

// Close shuts the broker down and closes all connections.
func (b *Broker) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.listener.Close()
	b.DropConnections()
	b.wg.Wait()
}

// SetValue seeds the stored value for a path.
func (b *Broker) SetValue(path string, v value.Value) {
	b.mu.Lock()
	b.values[path] = v
	b.mu.Unlock()
}

// Value returns the stored value for a path.
func (b *Broker) Value(path string) (value.Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[path]
	return v, ok
}

// RejectPath makes all requests for a path fail with the given status.
func (b *Broker) RejectPath(path string, status wire.Status) {
	b.mu.Lock()
	b.reject[path] = status
	b.mu.Unlock()
}

// Publish stores a new value and emits one notification per connection
// holding a live subscription to the path.
func (b *Broker) Publish(path string, v value.Value) {
	b.mu.Lock()
	b.values[path] = v
	b.seq[path]++
	notif := &wire.Notification{
		Path:      path,
		Datapoint: wire.FromValue(v),
		Seq:       b.seq[path],
	}
	var targets []*brokerConn
	for bc := range b.conns {
		if bc.subscribed(path) {
			targets = append(targets, bc)
		}
	}
	b.mu.Unlock()

	data, err := wire.EncodeNotification(notif)
	if err != nil {
		return
	}
	for _, bc := range targets {
		_ = bc.framer.WriteFrame(data)
	}
}

// DropConnections severs every live connection without a close
// handshake, simulating a transport failure.
func (b *Broker) DropConnections() {
	b.mu.Lock()
	conns := make([]*brokerConn, 0, len(b.conns))
	for bc := range b.conns {
		conns = append(conns, bc)
	}
	b.mu.Unlock()

	for _, bc := range conns {
		bc.conn.Close()
	}
}

// SubscriberCount returns how many live subscriptions exist for a path
// across all connections.
func (b *Broker) SubscriberCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for bc := range b.conns {
		n += bc.subCount(path)
	}
	return n
}

// OpCount returns how many requests of the given operation the broker
// has served.
func (b *Broker) OpCount(op wire.Operation) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opCounts[op]
}

// WaitSubscribed blocks until the broker has accepted a subscribe
// request and returns its path. Used to synchronize resubscription
// tests.
func (b *Broker) WaitSubscribed() string {
	return <-b.subbed
}

func (b *Broker) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		bc := &brokerConn{
			broker: b,
			conn:   conn,
			framer: transport.NewFramer(conn),
			subs:   make(map[uint32]string),
		}
		b.mu.Lock()
		b.conns[bc] = struct{}{}
		b.mu.Unlock()

		b.wg.Add(1)
		go bc.serve()
	}
}

// brokerConn serves one client connection.
type brokerConn struct {
	broker *Broker
	conn   net.Conn
	framer *transport.Framer

	mu   sync.Mutex
	subs map[uint32]string // subscription ID -> path
}

func (bc *brokerConn) subscribed(path string) bool {
	return bc.subCount(path) > 0
}

func (bc *brokerConn) subCount(path string) int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	n := 0
	for _, p := range bc.subs {
		if p == path {
			n++
		}
	}
	return n
}

func (bc *brokerConn) serve() {
	defer bc.broker.wg.Done()
	defer func() {
		bc.conn.Close()
		bc.broker.mu.Lock()
		delete(bc.broker.conns, bc)
		bc.broker.mu.Unlock()
	}()

	for {
		data, err := bc.framer.ReadFrame()
		if err != nil {
			return
		}

		msgType, err := wire.PeekMessageType(data)
		if err != nil {
			continue
		}

		switch msgType {
		case wire.MessageTypeControl:
			msg, err := wire.DecodeControlMessage(data)
			if err != nil {
				continue
			}
			if msg.Type == wire.ControlPing {
				bc.sendControl(wire.ControlPong, msg.Sequence)
			}
			if msg.Type == wire.ControlClose {
				bc.sendControl(wire.ControlClose, 0)
				return
			}

		case wire.MessageTypeRequest:
			req, err := wire.DecodeRequest(data)
			if err != nil {
				continue
			}
			bc.handleRequest(req)
		}
	}
}

func (bc *brokerConn) handleRequest(req *wire.Request) {
	b := bc.broker

	b.mu.Lock()
	b.opCounts[req.Operation]++
	status, rejected := b.reject[req.Path]
	b.mu.Unlock()
	if rejected {
		bc.respond(&wire.Response{
			MessageID: req.MessageID,
			Status:    status,
			Error:     &wire.ErrorPayload{Message: "rejected by test configuration"},
		})
		return
	}

	switch req.Operation {
	case wire.OpGet:
		v, ok := b.Value(req.Path)
		if !ok {
			bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusUnknownPath})
			return
		}
		dp := wire.FromValue(v)
		bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusOK, Datapoint: &dp})

	case wire.OpSet:
		if req.Datapoint == nil {
			bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusInvalidValue})
			return
		}
		v, err := req.Datapoint.ToValue()
		if err != nil {
			bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusInvalidValue})
			return
		}
		b.SetValue(req.Path, v)
		bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusOK})

	case wire.OpSubscribe:
		bc.mu.Lock()
		bc.subs[req.SubscriptionID] = req.Path
		bc.mu.Unlock()
		bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusOK})
		select {
		case b.subbed <- req.Path:
		default:
		}

	case wire.OpUnsubscribe:
		bc.mu.Lock()
		delete(bc.subs, req.SubscriptionID)
		bc.mu.Unlock()
		bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusOK})

	default:
		bc.respond(&wire.Response{MessageID: req.MessageID, Status: wire.StatusInternal})
	}
}

func (bc *brokerConn) respond(resp *wire.Response) {
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		return
	}
	_ = bc.framer.WriteFrame(data)
}

func (bc *brokerConn) sendControl(msgType wire.ControlMessageType, seq uint32) {
	data, err := wire.EncodeControlMessage(&wire.ControlMessage{Type: msgType, Sequence: seq})
	if err != nil {
		return
	}
	_ = bc.framer.WriteFrame(data)
}
