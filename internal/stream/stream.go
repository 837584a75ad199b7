// Package stream defines the connection handed back by the connector.
// A Stream is either *Plain or *Secure; both satisfy the same interface
// so protocol code above never needs to know which one it holds.
package stream

import (
	"crypto/tls"
	"net"
	"sync"
)

// Stream is a duplex byte stream plus connection metadata.
type Stream interface {
	net.Conn

	// Secured reports whether a TLS session protects the stream.
	Secured() bool

	// NegotiatedProtocol returns the ALPN result, or "" when none was
	// negotiated.
	NegotiatedProtocol() string

	// Multiplexed reports whether the peer agreed to HTTP/2.
	Multiplexed() bool
}

// ReleaseFunc runs once when a stream is closed.
type ReleaseFunc func()

type releaser struct {
	once sync.Once
	fn   ReleaseFunc
}

func (r *releaser) release() {
	if r.fn != nil {
		r.once.Do(r.fn)
	}
}

// Plain is a raw transport connection.
type Plain struct {
	net.Conn
	rel releaser
}

// NewPlain wraps conn.  release may be nil.
func NewPlain(conn net.Conn, release ReleaseFunc) *Plain {
	return &Plain{Conn: conn, rel: releaser{fn: release}}
}

// Close closes the connection.
func (p *Plain) Close() error {
	p.rel.release()
	return p.Conn.Close()
}

// CloseWrite half-closes the connection when the transport supports it.
func (p *Plain) CloseWrite() error {
	if hc, ok := p.Conn.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return nil
}

func (p *Plain) Secured() bool              { return false }
func (p *Plain) NegotiatedProtocol() string { return "" }
func (p *Plain) Multiplexed() bool          { return false }

// Secure is a TLS session over a raw transport connection.
type Secure struct {
	*tls.Conn
	rel releaser
}

// NewSecure wraps an established TLS client connection.
func NewSecure(conn *tls.Conn, release ReleaseFunc) *Secure {
	return &Secure{Conn: conn, rel: releaser{fn: release}}
}

// Close sends close_notify and closes the underlying connection.
func (s *Secure) Close() error {
	s.rel.release()
	return s.Conn.Close()
}

func (s *Secure) Secured() bool { return true }

func (s *Secure) NegotiatedProtocol() string {
	return s.ConnectionState().NegotiatedProtocol
}

func (s *Secure) Multiplexed() bool {
	return s.NegotiatedProtocol() == "h2"
}

var (
	_ Stream = (*Plain)(nil)
	_ Stream = (*Secure)(nil)
)
