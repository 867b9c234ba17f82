package connection

import (
	"context"
	"sync"
	"time"
)

// ReconnectMode selects the reconnect policy.
type ReconnectMode uint8

const (
	// ReconnectDisabled never reconnects; a lost connection stays lost.
	ReconnectDisabled ReconnectMode = iota

	// ReconnectFixedDelay retries with a constant delay between attempts.
	ReconnectFixedDelay

	// ReconnectExponential retries with exponential backoff and jitter.
	ReconnectExponential
)

// String returns the mode name.
func (m ReconnectMode) String() string {
	switch m {
	case ReconnectDisabled:
		return "disabled"
	case ReconnectFixedDelay:
		return "fixed-delay"
	case ReconnectExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// ReconnectPolicy configures automatic reconnection.
type ReconnectPolicy struct {
	// Mode selects the retry strategy.
	Mode ReconnectMode

	// Delay is the constant delay for ReconnectFixedDelay (default: 1s).
	Delay time.Duration

	// Backoff customizes ReconnectExponential. Zero values use defaults.
	Backoff BackoffConfig

	// MaxAttempts limits consecutive failed attempts before giving up
	// for good (0 = unlimited). Exhaustion is fatal to the client.
	MaxAttempts int
}

// DefaultReconnectPolicy reconnects with exponential backoff, forever.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Mode: ReconnectExponential}
}

// ConnectFunc is called to establish a connection.
type ConnectFunc func(ctx context.Context) error

// Manager drives policy-based reconnection for a Connection. The
// Connection itself never retries; the Manager observes link loss and
// replays the connect function until it succeeds or the policy is
// exhausted.
type Manager struct {
	mu sync.Mutex

	policy    ReconnectPolicy
	backoff   *Backoff
	connectFn ConnectFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconnectCh chan struct{}
	started     bool

	// Callbacks
	onReconnected  func()
	onReconnecting func(attempt int, delay time.Duration)
	onExhausted    func(err error)
}

// NewManager creates a reconnect manager. Start must be called before
// connection-loss notifications have any effect.
func NewManager(policy ReconnectPolicy, connectFn ConnectFunc) *Manager {
	if policy.Delay == 0 {
		policy.Delay = InitialBackoff
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		policy:      policy,
		backoff:     NewBackoffWithConfig(policy.Backoff),
		connectFn:   connectFn,
		ctx:         ctx,
		cancel:      cancel,
		reconnectCh: make(chan struct{}, 1),
	}
}

// OnReconnected sets a callback invoked after a successful reconnect.
func (m *Manager) OnReconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnected = fn
}

// OnReconnecting sets a callback invoked before each attempt.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// OnExhausted sets a callback invoked when the policy gives up.
func (m *Manager) OnExhausted(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExhausted = fn
}

// Start launches the background reconnect loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.policy.Mode == ReconnectDisabled {
		return
	}
	m.started = true
	m.wg.Add(1)
	go m.loop()
}

// Stop shuts down the reconnect loop and waits for it to exit.
func (m *Manager) Stop() {
	m.cancel()
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if started {
		m.wg.Wait()
	}
}

// NotifyConnectionLost signals that the link dropped and reconnection
// should begin. Safe to call from the read loop goroutine.
func (m *Manager) NotifyConnectionLost() {
	if m.policy.Mode == ReconnectDisabled {
		return
	}
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// nextDelay returns the wait before the given attempt.
func (m *Manager) nextDelay() time.Duration {
	if m.policy.Mode == ReconnectFixedDelay {
		return m.policy.Delay
	}
	return m.backoff.Next()
}

// attemptReconnect retries the connect function per policy until it
// succeeds, the manager stops, or attempts are exhausted.
func (m *Manager) attemptReconnect() {
	attempt := 0
	for {
		attempt++
		if m.policy.MaxAttempts > 0 && attempt > m.policy.MaxAttempts {
			m.mu.Lock()
			onExhausted := m.onExhausted
			m.mu.Unlock()
			if onExhausted != nil {
				onExhausted(ErrReconnectExhausted)
			}
			return
		}

		delay := m.nextDelay()

		m.mu.Lock()
		onReconnecting := m.onReconnecting
		m.mu.Unlock()
		if onReconnecting != nil {
			onReconnecting(attempt, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		err := m.connectFn(ctx)
		cancel()

		if err == nil {
			m.backoff.Reset()
			m.mu.Lock()
			onReconnected := m.onReconnected
			m.mu.Unlock()
			if onReconnected != nil {
				onReconnected()
			}
			return
		}
		if m.ctx.Err() != nil {
			return
		}
		// Failed; try again with the next delay.
	}
}
