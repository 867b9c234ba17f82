package connection

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsb-protocol/vsb-go/pkg/transport"
	"github.com/vsb-protocol/vsb-go/pkg/value"
	"github.com/vsb-protocol/vsb-go/pkg/wire"
)

// testLink is the broker end of a net.Pipe link handed out by the
// test dialer.
type testLink struct {
	conn   net.Conn
	framer *transport.Framer
}

func (l *testLink) close() {
	l.conn.Close()
}

// respond sends a canned response for a decoded request.
func (l *testLink) respond(t *testing.T, resp *wire.Response) {
	t.Helper()
	data, err := wire.EncodeResponse(resp)
	require.NoError(t, err)
	require.NoError(t, l.framer.WriteFrame(data))
}

// readRequest reads and decodes the next request frame.
func (l *testLink) readRequest(t *testing.T) *wire.Request {
	t.Helper()
	data, err := l.framer.ReadFrame()
	require.NoError(t, err)
	req, err := wire.DecodeRequest(data)
	require.NoError(t, err)
	return req
}

// pipeDialer returns a dialer backed by net.Pipe and a channel
// yielding the broker end of each dialed link.
func pipeDialer() (transport.Dialer, <-chan *testLink) {
	links := make(chan *testLink, 4)
	dialer := transport.DialerFunc(func(ctx context.Context, address string) (net.Conn, error) {
		client, server := net.Pipe()
		links <- &testLink{conn: server, framer: transport.NewFramer(server)}
		return client, nil
	})
	return dialer, links
}

func testConfig(dialer transport.Dialer) Config {
	return Config{
		Dialer:         dialer,
		RequestTimeout: 2 * time.Second,
		KeepAlive:      KeepAliveConfig{Disabled: true},
	}
}

func TestConnectTransitions(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))

	var mu sync.Mutex
	var transitions []State
	conn.OnStateChange(func(_, newState State) {
		mu.Lock()
		transitions = append(transitions, newState)
		mu.Unlock()
	})

	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	assert.Equal(t, StateConnected, conn.State())
	mu.Lock()
	assert.Equal(t, []State{StateConnecting, StateConnected}, transitions)
	mu.Unlock()
}

func TestConnectDialFailure(t *testing.T) {
	dialer := transport.DialerFunc(func(ctx context.Context, address string) (net.Conn, error) {
		return nil, net.ErrClosed
	})
	conn := New(testConfig(dialer))

	err := conn.Connect(context.Background(), "test:1")
	var connectErr *ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, "test:1", connectErr.Address)
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestConnectAlreadyConnected(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))

	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	assert.ErrorIs(t, conn.Connect(context.Background(), "test:1"), ErrAlreadyConnected)
}

func TestDoRoundTrip(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	go func() {
		req := link.readRequest(t)
		dp := wire.FromValue(value.NewFloat32(42))
		link.respond(t, &wire.Response{MessageID: req.MessageID, Status: wire.StatusOK, Datapoint: &dp})
	}()

	resp, err := conn.Do(context.Background(), &wire.Request{Operation: wire.OpGet, Path: "Vehicle.Speed"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())

	v, err := resp.Datapoint.ToValue()
	require.NoError(t, err)
	assert.True(t, v.Equal(value.NewFloat32(42)))
}

// Responses are correlated by message ID, not FIFO order: the broker
// answering in reverse order must still complete the right callers.
func TestDoOutOfOrderResponses(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	go func() {
		first := link.readRequest(t)
		second := link.readRequest(t)
		for _, req := range []*wire.Request{second, first} {
			dp := wire.FromValue(value.NewString(req.Path))
			link.respond(t, &wire.Response{MessageID: req.MessageID, Status: wire.StatusOK, Datapoint: &dp})
		}
	}()

	var wg sync.WaitGroup
	for _, path := range []string{"Signal.A", "Signal.B"} {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			resp, err := conn.Do(context.Background(), &wire.Request{Operation: wire.OpGet, Path: path})
			require.NoError(t, err)
			v, err := resp.Datapoint.ToValue()
			require.NoError(t, err)
			assert.True(t, v.Equal(value.NewString(path)), "response for %s misrouted", path)
		}(path)
	}
	wg.Wait()
}

func TestDoTimeout(t *testing.T) {
	dialer, links := pipeDialer()
	config := testConfig(dialer)
	config.RequestTimeout = 50 * time.Millisecond
	conn := New(config)
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	go link.framer.ReadFrame() // swallow the request, never answer

	_, err := conn.Do(context.Background(), &wire.Request{Operation: wire.OpGet, Path: "p"})
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestDoContextCancelled(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	go link.framer.ReadFrame()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := conn.Do(ctx, &wire.Request{Operation: wire.OpGet, Path: "p"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoNotConnected(t *testing.T) {
	dialer, _ := pipeDialer()
	conn := New(testConfig(dialer))

	_, err := conn.Do(context.Background(), &wire.Request{Operation: wire.OpGet, Path: "p"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectionLostFailsPending(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links

	lost := make(chan error, 1)
	conn.OnDisconnected(func(err error) { lost <- err })

	go func() {
		link.framer.ReadFrame()
		link.close()
	}()

	_, err := conn.Do(context.Background(), &wire.Request{Operation: wire.OpGet, Path: "p"})
	assert.ErrorIs(t, err, ErrConnectionLost)

	select {
	case err := <-lost:
		assert.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("disconnect callback not invoked")
	}
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestNotificationDelivered(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))

	received := make(chan *wire.Notification, 1)
	conn.OnNotification(func(n *wire.Notification) { received <- n })

	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	data, err := wire.EncodeNotification(&wire.Notification{
		Path:      "Vehicle.Speed",
		Datapoint: wire.FromValue(value.NewFloat32(88)),
		Seq:       1,
	})
	require.NoError(t, err)
	require.NoError(t, link.framer.WriteFrame(data))

	select {
	case n := <-received:
		assert.Equal(t, "Vehicle.Speed", n.Path)
		assert.Equal(t, uint64(1), n.Seq)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

// A single undecodable message is skipped; the stream keeps working.
func TestMalformedMessageSkipped(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	require.NoError(t, link.framer.WriteFrame([]byte{0xff, 0x00, 0x01}))

	go func() {
		req := link.readRequest(t)
		link.respond(t, &wire.Response{MessageID: req.MessageID, Status: wire.StatusOK})
	}()

	resp, err := conn.Do(context.Background(), &wire.Request{Operation: wire.OpGet, Path: "p"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}

func TestPingAnswered(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	defer conn.Close()
	link := <-links
	defer link.close()

	data, err := wire.EncodeControlMessage(&wire.ControlMessage{Type: wire.ControlPing, Sequence: 7})
	require.NoError(t, err)
	require.NoError(t, link.framer.WriteFrame(data))

	reply, err := link.framer.ReadFrame()
	require.NoError(t, err)
	msg, err := wire.DecodeControlMessage(reply)
	require.NoError(t, err)
	assert.Equal(t, wire.ControlPong, msg.Type)
	assert.Equal(t, uint32(7), msg.Sequence)
}

func TestCloseIsFinal(t *testing.T) {
	dialer, links := pipeDialer()
	conn := New(testConfig(dialer))
	require.NoError(t, conn.Connect(context.Background(), "test:1"))
	link := <-links

	go func() {
		// Drain the goodbye control message.
		link.framer.ReadFrame()
		link.close()
	}()

	require.NoError(t, conn.Close())
	assert.Equal(t, StateDisconnected, conn.State())

	// Closed is terminal: no further connects, double close is a no-op.
	assert.ErrorIs(t, conn.Connect(context.Background(), "test:1"), ErrClosed)
	require.NoError(t, conn.Close())
}

func TestMessageIDSkipsReserved(t *testing.T) {
	conn := New(testConfig(nil))
	conn.nextMsgID.Store(wire.ControlMessageID - 1)

	id := conn.nextMessageID()
	assert.NotEqual(t, wire.ControlMessageID, id)
	assert.NotEqual(t, wire.NotificationMessageID, id)
}
