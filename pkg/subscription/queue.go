package subscription

import (
	"context"
	"sync"

	"github.com/vsb-protocol/vsb-go/pkg/value"
)

// queue is the bounded delivery queue of one subscription. It has a
// single producer (the dispatch loop) and a single consumer (the
// stream handle). A push to a full queue drops the oldest undelivered
// update and raises the overflow flag, which the consumer observes as
// exactly one ErrOverflow on its next read. The dispatch loop never
// blocks on a slow consumer.
type queue struct {
	mu         sync.Mutex
	items      []value.Value
	capacity   int
	overflowed bool
	gated      bool
	terminal   error

	// signal wakes the single waiting consumer.
	signal chan struct{}
}

func newQueue(capacity int) *queue {
	return &queue{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// push appends an update, dropping the oldest on overflow.
func (q *queue) push(v value.Value) {
	q.mu.Lock()
	if q.terminal != nil {
		q.mu.Unlock()
		return
	}
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		q.overflowed = true
	}
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.wake()
}

// pop blocks until an update, an overflow marker or a terminal error
// is available. While the queue is gated (resubscribe in progress) it
// keeps blocking instead of surfacing anything.
func (q *queue) pop(ctx context.Context) (value.Value, error) {
	for {
		q.mu.Lock()
		if !q.gated {
			switch {
			case q.terminal != nil:
				err := q.terminal
				q.mu.Unlock()
				return value.Value{}, err
			case q.overflowed:
				q.overflowed = false
				q.mu.Unlock()
				return value.Value{}, ErrOverflow
			case len(q.items) > 0:
				v := q.items[0]
				q.items = q.items[1:]
				q.mu.Unlock()
				return v, nil
			}
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return value.Value{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// setGated suspends (true) or resumes (false) consumer reads.
func (q *queue) setGated(gated bool) {
	q.mu.Lock()
	q.gated = gated
	q.mu.Unlock()
	q.wake()
}

// fail closes the queue with a terminal error. The first error wins.
func (q *queue) fail(err error) {
	q.mu.Lock()
	if q.terminal == nil {
		q.terminal = err
	}
	q.mu.Unlock()
	q.wake()
}

func (q *queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
