// Package transport provides the link layer of the broker client.
//
// It handles:
//   - Dialing the broker address (swappable via the Dialer interface)
//   - Length-prefixed message framing (4-byte big-endian prefix)
//   - Optional frame-level protocol logging
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│      TCP (or custom link)      │
//	└────────────────────────────────┘
//
// Transport security is outside this package: wrap the net.Conn
// returned by a custom Dialer if the deployment requires TLS.
package transport
