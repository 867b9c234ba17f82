package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffProgression(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        400 * time.Millisecond,
		Multiplier: 2,
		Jitter:     -1,
	})

	assert.Equal(t, 100*time.Millisecond, b.Next())
	assert.Equal(t, 200*time.Millisecond, b.Next())
	assert.Equal(t, 400*time.Millisecond, b.Next())
	// Capped at Max from here on.
	assert.Equal(t, 400*time.Millisecond, b.Next())
	assert.Equal(t, 4, b.Attempts())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2,
		Jitter:     -1,
	})

	b.Next()
	b.Next()
	b.Reset()

	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, 100*time.Millisecond, b.Next())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        100 * time.Millisecond,
		Multiplier: 2,
		Jitter:     0.25,
	})

	for i := 0; i < 50; i++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

// The zero config must jitter: deterministic reconnect delays would
// let clients that lost the broker together hammer it back in
// lockstep.
func TestBackoffDefaultHasJitter(t *testing.T) {
	b := NewBackoff()

	delays := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, InitialBackoff)
		assert.LessOrEqual(t, d, InitialBackoff+time.Duration(float64(InitialBackoff)*JitterFactor))
		delays[d] = true
		b.Reset()
	}
	assert.Greater(t, len(delays), 1, "default backoff produced identical delays")
}

// The reconnect policy's zero Backoff goes through the same defaults,
// so policy-driven delays jitter too.
func TestBackoffPolicyZeroConfigHasJitter(t *testing.T) {
	policy := DefaultReconnectPolicy()
	b := NewBackoffWithConfig(policy.Backoff)

	delays := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		delays[b.Next()] = true
		b.Reset()
	}
	assert.Greater(t, len(delays), 1, "zero-config policy backoff is deterministic")
}

func TestBackoffJitterDisabled(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Jitter: -1})
	for i := 0; i < 10; i++ {
		assert.Equal(t, InitialBackoff, b.Next())
		b.Reset()
	}
}
