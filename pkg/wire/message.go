package wire

import (
	"fmt"
)

// CBOR map keys for message encoding.
// All messages use integer keys for efficiency.
const (
	// Common message keys
	KeyMessageID      = 1
	KeyOpOrStatus     = 2 // Operation (request) or Status (response)
	KeyPath           = 3
	KeyDatapoint      = 4
	KeySubscriptionID = 5
)

// Reserved message IDs distinguishing asynchronous messages from
// responses. Requests never use either value.
const (
	// NotificationMessageID marks a subscription notification.
	NotificationMessageID uint32 = 0

	// ControlMessageID marks a transport control message.
	ControlMessageID uint32 = 0xFFFFFFFF
)

// Request represents a client request to the broker.
//
// CBOR encoding:
//
//	{
//	  1: messageId,      // uint32: client-chosen, correlates the response
//	  2: operation,      // uint8: 1=Get, 2=Set, 3=Subscribe, 4=Unsubscribe
//	  3: path,           // string: dotted signal path (absent for unsubscribe)
//	  4: datapoint,      // value to write (set only)
//	  5: subscriptionId  // uint32 (subscribe/unsubscribe only)
//	}
type Request struct {
	MessageID      uint32     `cbor:"1,keyasint"`
	Operation      Operation  `cbor:"2,keyasint"`
	Path           string     `cbor:"3,keyasint,omitempty"`
	Datapoint      *Datapoint `cbor:"4,keyasint,omitempty"`
	SubscriptionID uint32     `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == NotificationMessageID || r.MessageID == ControlMessageID {
		return fmt.Errorf("messageId %d is reserved", r.MessageID)
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	switch r.Operation {
	case OpGet, OpSubscribe:
		if r.Path == "" {
			return fmt.Errorf("%s request requires a path", r.Operation)
		}
	case OpSet:
		if r.Path == "" {
			return fmt.Errorf("set request requires a path")
		}
		if r.Datapoint == nil {
			return fmt.Errorf("set request requires a datapoint")
		}
	case OpUnsubscribe:
		if r.SubscriptionID == 0 {
			return fmt.Errorf("unsubscribe request requires a subscriptionId")
		}
	}
	return nil
}

// Response represents a broker response to a request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,  // uint32: matches the request
//	  2: status,     // uint8: 0=success, or error code
//	  4: datapoint,  // current value (get only, on success)
//	  6: error       // additional error information (on failure)
//	}
type Response struct {
	MessageID uint32        `cbor:"1,keyasint"`
	Status    Status        `cbor:"2,keyasint"`
	Datapoint *Datapoint    `cbor:"4,keyasint,omitempty"`
	Error     *ErrorPayload `cbor:"6,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Notification represents a value update published by the broker for a
// subscribed path. One notification is emitted per path change; the
// client fans it out to every local subscriber of that path.
//
// CBOR encoding:
//
//	{
//	  1: 0,          // messageId 0 = notification
//	  3: path,       // string
//	  4: datapoint,  // new value
//	  5: seq         // uint64: broker emission sequence for the path
//	}
type Notification struct {
	Path      string    `cbor:"3,keyasint"`
	Datapoint Datapoint `cbor:"4,keyasint"`
	Seq       uint64    `cbor:"5,keyasint,omitempty"`
}

// ErrorPayload carries additional error information in a response.
//
// CBOR encoding:
//
//	{
//	  1: message  // string: human-readable error message
//	}
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// ControlMessage represents a transport-level control message.
// These are separate from the request/response/notification model;
// the wire layout lives in the codec.
type ControlMessage struct {
	Type     ControlMessageType
	Sequence uint32
}

// ControlMessageType represents the type of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "ping"
	case ControlPong:
		return "pong"
	case ControlClose:
		return "close"
	default:
		return "unknown"
	}
}
