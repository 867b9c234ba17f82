package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsb-protocol/vsb-go/pkg/connection"
)

func TestParseConfigFull(t *testing.T) {
	cfg, err := parseConfig([]byte(`
connect_timeout: 5s
request_timeout: 15s
max_message_size: 32768
queue_capacity: 128
keep_alive:
  ping_interval: 10s
  pong_timeout: 2s
  max_missed_pongs: 5
reconnect:
  mode: fixed-delay
  delay: 500ms
  max_attempts: 4
`))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, uint32(32768), cfg.MaxMessageSize)
	assert.Equal(t, 128, cfg.QueueCapacity)
	assert.Equal(t, 10*time.Second, cfg.KeepAlive.PingInterval)
	assert.Equal(t, 2*time.Second, cfg.KeepAlive.PongTimeout)
	assert.Equal(t, 5, cfg.KeepAlive.MaxMissedPongs)
	assert.Equal(t, connection.ReconnectFixedDelay, cfg.Reconnect.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.Delay)
	assert.Equal(t, 4, cfg.Reconnect.MaxAttempts)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig([]byte(`queue_capacity: 16`))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, 16, cfg.QueueCapacity)
	assert.Equal(t, def.ConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, def.RequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, connection.ReconnectExponential, cfg.Reconnect.Mode)
}

func TestParseConfigDisabledKeepAlive(t *testing.T) {
	cfg, err := parseConfig([]byte("keep_alive:\n  disabled: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.KeepAlive.Disabled)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := parseConfig([]byte("reconnect:\n  mode: sometimes\n"))
	assert.ErrorContains(t, err, "unknown reconnect mode")

	_, err = parseConfig([]byte("connect_timeout: fast\n"))
	assert.ErrorContains(t, err, "invalid duration")

	_, err = parseConfig([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("request_timeout: 3s\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
