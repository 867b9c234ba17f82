package connection

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) ReconnectPolicy {
	return ReconnectPolicy{
		Mode:        ReconnectFixedDelay,
		Delay:       time.Millisecond,
		MaxAttempts: maxAttempts,
	}
}

func TestManagerReconnects(t *testing.T) {
	var attempts atomic.Int32
	reconnected := make(chan struct{})

	m := NewManager(fastPolicy(0), func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("still down")
		}
		return nil
	})
	m.OnReconnected(func() { close(reconnected) })

	m.Start()
	defer m.Stop()
	m.NotifyConnectionLost()

	select {
	case <-reconnected:
		assert.Equal(t, int32(3), attempts.Load())
	case <-time.After(time.Second):
		t.Fatal("reconnect did not complete")
	}
}

func TestManagerExhausted(t *testing.T) {
	var attempts atomic.Int32
	exhausted := make(chan error, 1)

	m := NewManager(fastPolicy(2), func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("still down")
	})
	m.OnExhausted(func(err error) { exhausted <- err })

	m.Start()
	defer m.Stop()
	m.NotifyConnectionLost()

	select {
	case err := <-exhausted:
		assert.ErrorIs(t, err, ErrReconnectExhausted)
		assert.Equal(t, int32(2), attempts.Load())
	case <-time.After(time.Second):
		t.Fatal("policy did not exhaust")
	}
}

func TestManagerReconnectingCallback(t *testing.T) {
	attemptCh := make(chan int, 4)

	m := NewManager(fastPolicy(2), func(ctx context.Context) error {
		return errors.New("still down")
	})
	m.OnReconnecting(func(attempt int, delay time.Duration) {
		attemptCh <- attempt
	})
	done := make(chan struct{})
	m.OnExhausted(func(error) { close(done) })

	m.Start()
	defer m.Stop()
	m.NotifyConnectionLost()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("policy did not exhaust")
	}
	require.Len(t, attemptCh, 2)
	assert.Equal(t, 1, <-attemptCh)
	assert.Equal(t, 2, <-attemptCh)
}

func TestManagerDisabledIgnoresLoss(t *testing.T) {
	var attempts atomic.Int32
	m := NewManager(ReconnectPolicy{Mode: ReconnectDisabled}, func(ctx context.Context) error {
		attempts.Add(1)
		return nil
	})

	m.Start()
	defer m.Stop()
	m.NotifyConnectionLost()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), attempts.Load())
}

func TestManagerStopCancelsAttempts(t *testing.T) {
	started := make(chan struct{})
	m := NewManager(ReconnectPolicy{Mode: ReconnectFixedDelay, Delay: time.Millisecond}, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})

	m.Start()
	m.NotifyConnectionLost()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("attempt never started")
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not unblock the in-flight attempt")
	}
}
