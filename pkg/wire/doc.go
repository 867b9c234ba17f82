// Package wire implements the broker message encoding.
//
// All messages are CBOR maps with integer keys. Four message kinds
// share one framing channel:
//   - Request: client → broker, correlated by a client-chosen messageId
//   - Response: broker → client, echoes the request's messageId
//   - Notification: broker → client, messageId 0, one per path change
//   - Control: ping/pong/close, messageId 0xFFFFFFFF
//
// Signal values travel as Datapoint, a kind-tagged wire form that
// preserves integer widths across the CBOR round-trip.
//
// A malformed message surfaces as a DecodeError and is skipped; only
// corruption of the framing itself is fatal to the connection. The
// codec is self-contained so it can be swapped without touching the
// connection or subscription layers.
package wire
