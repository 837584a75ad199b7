// Package transport provides abstractions for raw connection
// establishment.  Transports handle the "how" of reaching a target:
// plain TCP, optionally with a dedicated DNS server, or through an SSH
// jump host.  Whether TLS is layered on top is the connector's job.
package transport

import (
	"context"
	"log/slog"
	"net"
	"net/url"

	ncerr "httpsconn/internal/errors"
	"httpsconn/util"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Transport is the raw-connection capability consumed by the connector.
type Transport interface {
	// Ready reports whether Connect can be called now.  A non-nil error
	// means the transport is unusable.
	Ready() (bool, error)

	// Connect opens a raw duplex connection to the host and port named
	// by u.  The scheme only selects the default port.
	Connect(ctx context.Context, u *url.URL) (net.Conn, error)
}

// readier is implemented by dialers whose readiness can change.
type readier interface {
	Ready() (bool, error)
}

// DialerTransport adapts a Dialer to the Transport interface.
type DialerTransport struct {
	Dialer Dialer
	Logger *slog.Logger
}

// NewDialerTransport returns a Transport backed by d.
func NewDialerTransport(d Dialer, logger *slog.Logger) *DialerTransport {
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return &DialerTransport{Dialer: d, Logger: logger}
}

// Ready delegates to the dialer when it tracks readiness; stateless
// dialers are always ready.
func (t *DialerTransport) Ready() (bool, error) {
	if r, ok := t.Dialer.(readier); ok {
		return r.Ready()
	}
	return true, nil
}

// Connect dials the target address derived from u over TCP.
func (t *DialerTransport) Connect(ctx context.Context, u *url.URL) (net.Conn, error) {
	addr, err := util.TargetAddr(u)
	if err != nil {
		return nil, err
	}

	t.Logger.Debug("dialing", "addr", addr)
	conn, err := t.Dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, ncerr.Wrap("dial", addr, err)
	}
	return conn, nil
}

// Close releases the dialer.
func (t *DialerTransport) Close() error {
	return t.Dialer.Close()
}
