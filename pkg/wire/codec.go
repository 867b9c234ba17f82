package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for broker messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for broker messages.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical, // Deterministic key ordering
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix, // Unix timestamps
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet, // Ignore duplicate keys (last wins)
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// DecodeError indicates a single malformed wire message. It never
// invalidates the connection's byte stream: the framing layer already
// delimited the message, so the reader can continue with the next one.
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request message.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, &DecodeError{Reason: "malformed request", Cause: err}
	}
	if err := req.Validate(); err != nil {
		return nil, &DecodeError{Reason: "invalid request", Cause: err}
	}
	return &req, nil
}

// EncodeResponse encodes a response message to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp.MessageID == NotificationMessageID || resp.MessageID == ControlMessageID {
		return nil, fmt.Errorf("invalid response: messageId %d is reserved", resp.MessageID)
	}
	return Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response message.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, &DecodeError{Reason: "malformed response", Cause: err}
	}
	if resp.MessageID == NotificationMessageID || resp.MessageID == ControlMessageID {
		return nil, decodeErrorf("response carries reserved messageId %d", resp.MessageID)
	}
	return &resp, nil
}

// notificationWire is the full wire layout of a notification,
// including the reserved messageId.
type notificationWire struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Path      string    `cbor:"3,keyasint"`
	Datapoint Datapoint `cbor:"4,keyasint"`
	Seq       uint64    `cbor:"5,keyasint,omitempty"`
}

// EncodeNotification encodes a notification message to CBOR bytes.
// Notifications have messageId=0 which is handled automatically.
func EncodeNotification(notif *Notification) ([]byte, error) {
	if notif.Path == "" {
		return nil, fmt.Errorf("invalid notification: empty path")
	}
	return Marshal(notificationWire{
		MessageID: NotificationMessageID,
		Path:      notif.Path,
		Datapoint: notif.Datapoint,
		Seq:       notif.Seq,
	})
}

// DecodeNotification decodes CBOR bytes into a notification message.
func DecodeNotification(data []byte) (*Notification, error) {
	var msg notificationWire
	if err := Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Reason: "malformed notification", Cause: err}
	}
	if msg.MessageID != NotificationMessageID {
		return nil, decodeErrorf("not a notification message: messageId=%d", msg.MessageID)
	}
	if msg.Path == "" {
		return nil, decodeErrorf("notification without path")
	}
	return &Notification{
		Path:      msg.Path,
		Datapoint: msg.Datapoint,
		Seq:       msg.Seq,
	}, nil
}

// controlWire is the full wire layout of a control message.
type controlWire struct {
	MessageID uint32             `cbor:"1,keyasint"`
	Type      ControlMessageType `cbor:"2,keyasint"`
	Sequence  uint32             `cbor:"3,keyasint,omitempty"`
}

// EncodeControlMessage encodes a control message (ping/pong/close) to CBOR bytes.
func EncodeControlMessage(msg *ControlMessage) ([]byte, error) {
	return Marshal(controlWire{
		MessageID: ControlMessageID,
		Type:      msg.Type,
		Sequence:  msg.Sequence,
	})
}

// DecodeControlMessage decodes CBOR bytes into a control message.
func DecodeControlMessage(data []byte) (*ControlMessage, error) {
	var msg controlWire
	if err := Unmarshal(data, &msg); err != nil {
		return nil, &DecodeError{Reason: "malformed control message", Cause: err}
	}
	if msg.MessageID != ControlMessageID {
		return nil, decodeErrorf("not a control message: messageId=%d", msg.MessageID)
	}
	if msg.Type < ControlPing || msg.Type > ControlClose {
		return nil, decodeErrorf("unknown control message type: %d", msg.Type)
	}
	return &ControlMessage{Type: msg.Type, Sequence: msg.Sequence}, nil
}

// MessageType represents the type of a decoded message.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeRequest
	MessageTypeResponse
	MessageTypeNotification
	MessageTypeControl
)

// PeekMessageType examines CBOR data to determine the message type
// without fully decoding it.
//
// Message type detection logic:
//   - Notification: messageId (key 1) = 0
//   - Control: messageId = 0xFFFFFFFF
//   - Request: key 2 holds a valid operation AND key 3 (path) or
//     key 5 (subscriptionId) is present
//   - Response: everything else
func PeekMessageType(data []byte) (MessageType, error) {
	var peek struct {
		MessageID      uint32 `cbor:"1,keyasint"`
		OpOrStatus     uint8  `cbor:"2,keyasint"`
		Path           string `cbor:"3,keyasint,omitempty"`
		SubscriptionID uint32 `cbor:"5,keyasint,omitempty"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return MessageTypeUnknown, &DecodeError{Reason: "failed to peek message", Cause: err}
	}

	switch peek.MessageID {
	case NotificationMessageID:
		return MessageTypeNotification, nil
	case ControlMessageID:
		return MessageTypeControl, nil
	}

	if Operation(peek.OpOrStatus).IsValid() && (peek.Path != "" || peek.SubscriptionID != 0) {
		return MessageTypeRequest, nil
	}

	return MessageTypeResponse, nil
}
