package connector

import (
	"context"
	"crypto/tls"
	"net"

	"httpsconn/internal/policy"
)

// Handshaker negotiates a client TLS session over an established raw
// connection.  The caller closes raw when Handshake fails.
type Handshaker interface {
	Handshake(ctx context.Context, raw net.Conn, serverName string, p *policy.Policy) (*tls.Conn, error)
}

// TLSHandshaker performs the handshake with crypto/tls using the
// policy's client configuration.
type TLSHandshaker struct{}

// Handshake runs one client handshake, bounded by the policy's
// handshake timeout when it has one.
func (TLSHandshaker) Handshake(ctx context.Context, raw net.Conn, serverName string, p *policy.Policy) (*tls.Conn, error) {
	if d := p.HandshakeTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	conn := tls.Client(raw, p.ClientConfig(serverName))
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}
