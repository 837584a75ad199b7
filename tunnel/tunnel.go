// Package tunnel carries the raw TCP leg of a connect attempt through an
// SSH gateway, backed by golang.org/x/crypto/ssh.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an established path to a gateway that can open forwarded
// connections on the caller's behalf.
type Tunnel interface {
	// Connect dials the gateway and authenticates.  It honors ctx for
	// the whole exchange, not just the TCP dial.
	Connect(ctx context.Context) error

	// DialContext opens a forwarded connection to address.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)

	// Alive reports whether the gateway connection is still up.
	Alive() bool

	// Gateway names the remote end, e.g. "user@host:22".
	Gateway() string

	Close() error
}
