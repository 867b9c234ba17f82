package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string

	// Direction indicates message flow.
	Direction Direction

	// Layer where the event was captured.
	Layer Layer

	// Category classifies the event type.
	Category Category

	// RemoteAddr is the broker address (host:port).
	RemoteAddr string

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent
	StateChange *StateChangeEvent
	Error       *ErrorEvent
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerConnection is the connection state machine and correlation layer.
	LayerConnection Layer = 1
	// LayerClient is the typed facade layer.
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerConnection:
		return "CONNECTION"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message passed through the layer.
	CategoryMessage Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryError indicates an error at any layer.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent describes a raw frame at the transport layer.
type FrameEvent struct {
	// Size is the full frame size including the length prefix.
	Size int

	// Data is the frame payload, possibly truncated for large frames.
	Data []byte

	// Truncated indicates Data was cut short.
	Truncated bool
}

// StateChangeEvent describes a connection state transition.
type StateChangeEvent struct {
	// From is the previous state name.
	From string

	// To is the new state name.
	To string
}

// ErrorEvent describes an error observed at a layer.
type ErrorEvent struct {
	// Message is the rendered error.
	Message string
}
