package tunnel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "httpsconn/internal/errors"
	"httpsconn/util"
)

// SSHConfig holds everything needed to dial an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// KeepAlive is the interval between keepalive@openssh.com probes.
	// Zero disables them.
	KeepAlive time.Duration

	// Prompt reads passwords and key passphrases; TerminalPrompt when nil.
	Prompt SecretPrompt
}

func (c *SSHConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHTunnel is a [Tunnel] over a single ssh.Client.
type SSHTunnel struct {
	config *SSHConfig
	logger *slog.Logger

	mu     sync.RWMutex
	client *ssh.Client
	done   chan struct{} // closed when client goes away
	closed bool
}

var _ Tunnel = (*SSHTunnel)(nil)

// NewSSHTunnel creates a tunnel that is ready to [SSHTunnel.Connect].
func NewSSHTunnel(cfg *SSHConfig, logger *slog.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return &SSHTunnel{config: cfg, logger: logger}
}

// Gateway implements [Tunnel].
func (t *SSHTunnel) Gateway() string {
	return t.config.User + "@" + t.config.addr()
}

// Connect dials the gateway and runs the SSH handshake.  Cancelling ctx
// aborts a handshake in progress.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	authMethods, err := BuildAuthMethods(t.config)
	if err != nil {
		return ncerr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}
	hkCallback, err := hostKeyCallback(t.config)
	if err != nil {
		return ncerr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         t.config.ConnTimeout,
	}

	addr := t.config.addr()
	t.logger.Debug("SSH: dialing gateway", "addr", addr, "user", t.config.User)

	ctx, cancel := context.WithTimeout(ctx, t.config.ConnTimeout)
	defer cancel()

	var dialer net.Dialer
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ncerr.Wrap("dial", addr, err)
	}

	// ssh.NewClientConn has no context; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { tcpConn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if !stop() {
		if err == nil {
			sshConn.Close()
		}
		return ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, ctx.Err())
	}
	if err != nil {
		tcpConn.Close()
		if strings.Contains(err.Error(), "unable to authenticate") {
			return ncerr.WrapSSH("auth", t.config.Host, t.config.Port,
				fmt.Errorf("%w: %v", ncerr.ErrAuthFailed, err))
		}
		return ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	done := make(chan struct{})

	t.mu.Lock()
	t.client = client
	t.done = done
	t.closed = false
	t.mu.Unlock()

	go t.monitor(client, done)
	if t.config.KeepAlive > 0 {
		go t.keepAlive(client, done)
	}
	return nil
}

// DialContext forwards a connection through the gateway.
func (t *SSHTunnel) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client, closed := t.client, t.closed
	t.mu.RUnlock()

	if closed {
		return nil, ncerr.ErrTunnelClosed
	}
	if client == nil {
		return nil, ncerr.ErrNotConnected
	}

	t.logger.Debug("tunnel: dialing", "network", network, "addr", address)
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("tunnel dial %s: %w", address, err)
	}
	return conn, nil
}

// Close shuts down the SSH connection.  Dials fail with
// ErrTunnelClosed until the next Connect.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.closed = true
	t.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// Alive reports whether the gateway connection is still up.
func (t *SSHTunnel) Alive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client != nil
}

// monitor drops client once the gateway hangs up.
func (t *SSHTunnel) monitor(client *ssh.Client, done chan struct{}) {
	err := client.Wait()
	close(done)

	t.mu.Lock()
	if t.client == client {
		t.client = nil
	}
	t.mu.Unlock()

	t.logger.Debug("SSH tunnel closed", "gateway", t.Gateway(), "err", err)
}

// keepAlive probes the gateway until it goes away.  An unanswered probe
// closes the client, which lets monitor mark the tunnel dead.
func (t *SSHTunnel) keepAlive(client *ssh.Client, done <-chan struct{}) {
	ticker := time.NewTicker(t.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				t.logger.Warn("SSH keepalive failed", "gateway", t.Gateway(), "err", err)
				client.Close() //nolint:errcheck
				return
			}
		}
	}
}
