package transport

import (
	"context"
	"net"
	"time"
)

// Dialer opens the physical link to a broker address. The connection
// layer consumes this interface only, so tests can substitute
// net.Pipe-backed links and applications can wrap the link in TLS or
// any other transport before handing it over.
type Dialer interface {
	// Dial opens a link to the given host:port address. The context
	// bounds the attempt.
	Dial(ctx context.Context, address string) (net.Conn, error)
}

// TCPDialer dials plain TCP. It is the default Dialer.
type TCPDialer struct {
	// KeepAlivePeriod configures TCP-level keep-alive probes.
	// Zero leaves the OS default in place.
	KeepAlivePeriod time.Duration
}

// Dial opens a TCP connection to address.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{KeepAlive: d.KeepAlivePeriod}
	return dialer.DialContext(ctx, "tcp", address)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address string) (net.Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address string) (net.Conn, error) {
	return f(ctx, address)
}

// Compile-time interface satisfaction checks.
var (
	_ Dialer = (*TCPDialer)(nil)
	_ Dialer = (DialerFunc)(nil)
)
