package subscription

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vsb-protocol/vsb-go/pkg/log"
	"github.com/vsb-protocol/vsb-go/pkg/wire"
)

// DefaultQueueCapacity is the default per-subscription queue depth.
const DefaultQueueCapacity = 64

// Requester sends a request over the connection and waits for the
// broker's response. Implemented by connection.Connection.
type Requester interface {
	Do(ctx context.Context, req *wire.Request) (*wire.Response, error)
}

// Config configures the multiplexer.
type Config struct {
	// QueueCapacity is the per-subscription delivery queue depth
	// (default: 64). On overflow the oldest undelivered update is
	// dropped and the consumer sees one ErrOverflow on its next read.
	QueueCapacity int

	// Logger receives dispatch-level events. Nil disables logging.
	Logger log.Logger
}

// entry is the multiplexer's record of one live subscription.
type entry struct {
	id   uint32
	path string
	q    *queue
}

// Multiplexer tracks all live per-path subscriptions on one
// connection, routes incoming update notifications to the matching
// delivery queues, and re-establishes every subscription after a
// reconnect. A path may have any number of independent subscribers;
// each gets every update for the path, in broker-emission order.
type Multiplexer struct {
	config    Config
	requester Requester

	// nextID is monotonically increasing and never reused, so an
	// in-flight notification can never land on a newer subscription
	// after a rapid unsubscribe/resubscribe.
	nextID atomic.Uint32

	mu      sync.Mutex
	entries map[uint32]*entry
	byPath  map[string][]*entry
}

// NewMultiplexer creates a multiplexer sending subscribe and
// unsubscribe requests through the given requester.
func NewMultiplexer(requester Requester, config Config) *Multiplexer {
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = DefaultQueueCapacity
	}
	return &Multiplexer{
		config:    config,
		requester: requester,
		entries:   make(map[uint32]*entry),
		byPath:    make(map[string][]*entry),
	}
}

// Register subscribes to a path on the broker and returns the stream
// handle. On broker rejection no entry is added and the error is a
// *wire.StatusError. The subscription table lock is never held across
// the broker round-trip.
func (m *Multiplexer) Register(ctx context.Context, path string) (*Subscription, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	id := m.nextID.Add(1)

	resp, err := m.requester.Do(ctx, &wire.Request{
		Operation:      wire.OpSubscribe,
		Path:           path,
		SubscriptionID: id,
	})
	if err != nil {
		return nil, err
	}
	if err := wire.ResponseError(resp); err != nil {
		return nil, err
	}

	e := &entry{
		id:   id,
		path: path,
		q:    newQueue(m.config.QueueCapacity),
	}

	m.mu.Lock()
	m.entries[id] = e
	m.byPath[path] = append(m.byPath[path], e)
	m.mu.Unlock()

	return &Subscription{mux: m, id: id, path: path, q: e.q}, nil
}

// Cancel removes a subscription. The broker is notified best-effort:
// failure to deliver the unsubscribe request never blocks local
// cancellation. Safe to call concurrently with dispatch; at most one
// further update can be delivered to the handle after Cancel returns.
func (m *Multiplexer) Cancel(id uint32) {
	m.mu.Lock()
	e, exists := m.entries[id]
	if exists {
		delete(m.entries, id)
		m.removeFromPathLocked(e)
	}
	m.mu.Unlock()

	if !exists {
		return
	}

	e.q.fail(ErrStreamClosed)

	// Best-effort broker-side cleanup, bounded so an unresponsive
	// broker cannot stall the caller.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = m.requester.Do(ctx, &wire.Request{
		Operation:      wire.OpUnsubscribe,
		SubscriptionID: id,
	})
}

// Dispatch routes one update notification to every live subscriber of
// its path. Updates for paths without a live subscriber are dropped
// silently (normal transiently after a cancel). Called from the
// connection read loop only, which preserves per-subscription order.
func (m *Multiplexer) Dispatch(notif *wire.Notification) {
	v, err := notif.Datapoint.ToValue()
	if err != nil {
		m.logError(err)
		return
	}

	m.mu.Lock()
	subs := make([]*entry, len(m.byPath[notif.Path]))
	copy(subs, m.byPath[notif.Path])
	m.mu.Unlock()

	for _, e := range subs {
		e.q.push(v)
	}
}

// Suspend gates all delivery queues so that consumer reads block while
// a reconnect is in progress, instead of surfacing stale values.
func (m *Multiplexer) Suspend() {
	m.mu.Lock()
	entries := m.snapshotLocked()
	m.mu.Unlock()

	for _, e := range entries {
		e.q.setGated(true)
	}
}

// Resubscribe replays the broker-side registration for every live
// subscription after a reconnect, preserving each subscription's
// identifier and queue. A subscription whose resubscribe fails is
// closed with terminal ErrReconnectFailed; the others are resumed.
// Each entry has at most one resubscribe request in flight.
func (m *Multiplexer) Resubscribe(ctx context.Context) {
	m.mu.Lock()
	entries := m.snapshotLocked()
	m.mu.Unlock()

	for _, e := range entries {
		resp, err := m.requester.Do(ctx, &wire.Request{
			Operation:      wire.OpSubscribe,
			Path:           e.path,
			SubscriptionID: e.id,
		})
		if err == nil {
			err = wire.ResponseError(resp)
		}

		if err != nil {
			m.logError(err)
			m.mu.Lock()
			delete(m.entries, e.id)
			m.removeFromPathLocked(e)
			m.mu.Unlock()
			e.q.fail(ErrReconnectFailed)
		}

		// Resume reads regardless: either fresh updates or the
		// terminal error are now observable.
		e.q.setGated(false)
	}
}

// CloseAll terminates every subscription with the given error, e.g.
// when the reconnect policy is exhausted or the client shuts down.
func (m *Multiplexer) CloseAll(err error) {
	m.mu.Lock()
	entries := m.snapshotLocked()
	m.entries = make(map[uint32]*entry)
	m.byPath = make(map[string][]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.q.fail(err)
		e.q.setGated(false)
	}
}

// Count returns the number of live subscriptions.
func (m *Multiplexer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Multiplexer) snapshotLocked() []*entry {
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	return entries
}

func (m *Multiplexer) removeFromPathLocked(e *entry) {
	subs := m.byPath[e.path]
	for i, s := range subs {
		if s.id == e.id {
			m.byPath[e.path] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.byPath[e.path]) == 0 {
		delete(m.byPath, e.path)
	}
}

func (m *Multiplexer) logError(err error) {
	if m.config.Logger == nil {
		return
	}
	m.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerClient,
		Category:  log.CategoryError,
		Error:     &log.ErrorEvent{Message: err.Error()},
	})
}
