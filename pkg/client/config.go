package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsb-protocol/vsb-go/pkg/connection"
	"github.com/vsb-protocol/vsb-go/pkg/log"
	"github.com/vsb-protocol/vsb-go/pkg/subscription"
	"github.com/vsb-protocol/vsb-go/pkg/transport"
)

// Config configures a Client.
type Config struct {
	// ConnectTimeout bounds the initial connection attempt (default: 10s).
	ConnectTimeout time.Duration

	// RequestTimeout bounds each get/set/subscribe round-trip
	// (default: 30s). A shorter per-call context deadline wins.
	RequestTimeout time.Duration

	// MaxMessageSize is the maximum wire message size (default: 64KB).
	MaxMessageSize uint32

	// QueueCapacity is the per-subscription delivery queue depth
	// (default: 64).
	QueueCapacity int

	// KeepAlive configures link liveness probing.
	KeepAlive connection.KeepAliveConfig

	// Reconnect selects the automatic reconnection policy
	// (default: exponential backoff, unlimited attempts).
	Reconnect connection.ReconnectPolicy

	// Dialer opens the physical link. Defaults to plain TCP.
	// Not representable in a config file.
	Dialer transport.Dialer

	// Logger receives protocol events. Nil disables logging.
	// Not representable in a config file.
	Logger log.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxMessageSize: transport.DefaultMaxMessageSize,
		QueueCapacity:  subscription.DefaultQueueCapacity,
		KeepAlive:      connection.DefaultKeepAliveConfig(),
		Reconnect:      connection.DefaultReconnectPolicy(),
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
}

// duration decodes "30s"-style strings from YAML.
type duration time.Duration

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the YAML representation of Config.
type fileConfig struct {
	ConnectTimeout duration `yaml:"connect_timeout"`
	RequestTimeout duration `yaml:"request_timeout"`
	MaxMessageSize uint32   `yaml:"max_message_size"`
	QueueCapacity  int      `yaml:"queue_capacity"`

	KeepAlive struct {
		Disabled       bool     `yaml:"disabled"`
		PingInterval   duration `yaml:"ping_interval"`
		PongTimeout    duration `yaml:"pong_timeout"`
		MaxMissedPongs int      `yaml:"max_missed_pongs"`
	} `yaml:"keep_alive"`

	Reconnect struct {
		Mode        string   `yaml:"mode"` // disabled | fixed-delay | exponential
		Delay       duration `yaml:"delay"`
		MaxAttempts int      `yaml:"max_attempts"`
	} `yaml:"reconnect"`
}

// LoadConfig reads a client configuration from a YAML file. Unset
// fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := DefaultConfig()
	if fc.ConnectTimeout != 0 {
		cfg.ConnectTimeout = time.Duration(fc.ConnectTimeout)
	}
	if fc.RequestTimeout != 0 {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeout)
	}
	if fc.MaxMessageSize != 0 {
		cfg.MaxMessageSize = fc.MaxMessageSize
	}
	if fc.QueueCapacity != 0 {
		cfg.QueueCapacity = fc.QueueCapacity
	}

	cfg.KeepAlive.Disabled = fc.KeepAlive.Disabled
	if fc.KeepAlive.PingInterval != 0 {
		cfg.KeepAlive.PingInterval = time.Duration(fc.KeepAlive.PingInterval)
	}
	if fc.KeepAlive.PongTimeout != 0 {
		cfg.KeepAlive.PongTimeout = time.Duration(fc.KeepAlive.PongTimeout)
	}
	if fc.KeepAlive.MaxMissedPongs != 0 {
		cfg.KeepAlive.MaxMissedPongs = fc.KeepAlive.MaxMissedPongs
	}

	switch fc.Reconnect.Mode {
	case "":
		// Keep the default policy.
	case "disabled":
		cfg.Reconnect.Mode = connection.ReconnectDisabled
	case "fixed-delay":
		cfg.Reconnect.Mode = connection.ReconnectFixedDelay
	case "exponential":
		cfg.Reconnect.Mode = connection.ReconnectExponential
	default:
		return Config{}, fmt.Errorf("unknown reconnect mode %q", fc.Reconnect.Mode)
	}
	if fc.Reconnect.Delay != 0 {
		cfg.Reconnect.Delay = time.Duration(fc.Reconnect.Delay)
	}
	if fc.Reconnect.MaxAttempts != 0 {
		cfg.Reconnect.MaxAttempts = fc.Reconnect.MaxAttempts
	}

	return cfg, nil
}
