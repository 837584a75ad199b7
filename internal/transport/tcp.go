package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Resolver maps a host name to a single address.
type Resolver interface {
	Resolve(ctx context.Context, host string) (net.IP, error)
}

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source port and resolving names with a custom Resolver.
type TCPDialer struct {
	Timeout   time.Duration
	LocalPort int // optional source-port binding (0 = ephemeral)

	// Resolver, when set, replaces the system resolver.  Only the first
	// address it returns is dialed.
	Resolver Resolver

	// NoDNS rejects host names that are not numeric addresses.
	NoDNS bool
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	if d.LocalPort > 0 {
		local := fmt.Sprintf(":%d", d.LocalPort)
		a, err := net.ResolveTCPAddr(network, local)
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) == nil {
		switch {
		case d.NoDNS:
			return nil, fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
		case d.Resolver != nil:
			ip, err := d.Resolver.Resolve(ctx, host)
			if err != nil {
				return nil, err
			}
			address = net.JoinHostPort(ip.String(), port)
		}
	}

	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
