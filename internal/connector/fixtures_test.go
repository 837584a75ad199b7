package connector_test

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"httpsconn/internal/connector"
	"httpsconn/internal/policy"
	"httpsconn/internal/tlstest"
)

// fakeTransport sends every Connect to addr and records what it did.
type fakeTransport struct {
	addr       string
	notReady   bool
	readyErr   error
	connectErr error

	readyCalls atomic.Int64
	connects   atomic.Int64

	mu    sync.Mutex
	conns []*trackedConn
}

func (f *fakeTransport) Ready() (bool, error) {
	f.readyCalls.Add(1)
	if f.readyErr != nil {
		return false, f.readyErr
	}
	return !f.notReady, nil
}

func (f *fakeTransport) Connect(ctx context.Context, _ *url.URL) (net.Conn, error) {
	f.connects.Add(1)
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", f.addr)
	if err != nil {
		return nil, err
	}
	tc := &trackedConn{Conn: c}
	f.mu.Lock()
	f.conns = append(f.conns, tc)
	f.mu.Unlock()
	return tc, nil
}

func (f *fakeTransport) opened() []*trackedConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*trackedConn(nil), f.conns...)
}

type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

// countingHandshaker records every handshake and the policy it used.
type countingHandshaker struct {
	inner connector.Handshaker

	calls    atomic.Int64
	mu       sync.Mutex
	policies []*policy.Policy
}

func (h *countingHandshaker) Handshake(ctx context.Context, raw net.Conn, serverName string, p *policy.Policy) (*tls.Conn, error) {
	h.calls.Add(1)
	h.mu.Lock()
	h.policies = append(h.policies, p)
	h.mu.Unlock()

	inner := h.inner
	if inner == nil {
		inner = connector.TLSHandshaker{}
	}
	return inner.Handshake(ctx, raw, serverName, p)
}

// blockingHandshaker waits for ctx to end and reports its error.
type blockingHandshaker struct {
	started chan struct{}
}

func (h *blockingHandshaker) Handshake(ctx context.Context, _ net.Conn, _ string, _ *policy.Policy) (*tls.Conn, error) {
	close(h.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

// tlsServer starts an echo server presenting a certificate for
// example.test issued by a fresh CA.
func tlsServer(t *testing.T, scts ...[]byte) (*tlstest.CA, *tlstest.Leaf, *tlstest.Server) {
	t.Helper()

	ca, err := tlstest.GenerateCA("connector test CA")
	require.NoError(t, err)
	leaf, err := ca.CreateLeaf("example.test")
	require.NoError(t, err)

	srv := tlstest.NewServer(t, &tls.Config{
		Certificates: []tls.Certificate{leaf.TLSCertificate(scts...)},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS12,
	})
	return ca, leaf, srv
}

// silentServer accepts connections and never answers.
func silentServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
	})
	return ln.Addr().String()
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func echo(t *testing.T, conn net.Conn, msg string) {
	t.Helper()
	_, err := conn.Write([]byte(msg))
	require.NoError(t, err)
	buf := make([]byte, len(msg))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, msg, string(buf))
}
