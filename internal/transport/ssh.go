package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	ncerr "httpsconn/internal/errors"
	"httpsconn/internal/metrics"
	"httpsconn/tunnel"
	"httpsconn/util"
)

// SSHDialer routes connections through an SSH jump host.  The tunnel is
// connected lazily on the first Dial, re-established if it drops, and
// torn down on Close.
type SSHDialer struct {
	tunnel tunnel.Tunnel
	logger *slog.Logger

	// Metrics counts tunnel reconnects; nil disables counting.
	Metrics *metrics.Collector

	// connectMu serializes tunnel establishment; mu guards the flags
	// so Ready never blocks behind a handshake.
	connectMu  sync.Mutex
	mu         sync.Mutex
	connecting bool
	connected  bool
	closed     bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH tunnel.  The tunnel is not connected until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *slog.Logger) *SSHDialer {
	return NewTunnelDialer(tunnel.NewSSHTunnel(cfg, logger), logger)
}

// NewTunnelDialer wraps an unconnected tunnel.
func NewTunnelDialer(t tunnel.Tunnel, logger *slog.Logger) *SSHDialer {
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return &SSHDialer{tunnel: t, logger: logger}
}

// Ready reports false while the tunnel is being established and fails
// once the dialer has been closed.
func (d *SSHDialer) Ready() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, ncerr.ErrDialerClosed
	}
	return !d.connecting, nil
}

// connect establishes the SSH tunnel if it is not already up.
func (d *SSHDialer) connect(ctx context.Context) error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ncerr.ErrDialerClosed
	}
	if d.connected && d.tunnel.Alive() {
		d.mu.Unlock()
		return nil
	}
	if d.connected {
		d.logger.Warn("SSH tunnel dropped, reconnecting")
		d.tunnel.Close() //nolint:errcheck
		d.connected = false
		d.Metrics.TunnelReconnect()
	}
	d.connecting = true
	d.mu.Unlock()

	d.logger.Log(ctx, util.LevelVerbose, "establishing SSH tunnel", "gateway", d.tunnel.Gateway())
	err := d.tunnel.Connect(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.connecting = false
	if err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	if d.closed {
		d.tunnel.Close() //nolint:errcheck
		return ncerr.ErrDialerClosed
	}
	d.connected = true
	d.logger.Log(ctx, util.LevelVerbose, "SSH tunnel established")
	return nil
}

// Dial connects to address through the SSH tunnel.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.DialContext(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.  Later dials fail.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}
