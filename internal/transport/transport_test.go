package transport

import (
	"context"
	"io"
	"net"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "httpsconn/internal/errors"
	"httpsconn/internal/tlstest"
	"httpsconn/util"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func echo(t *testing.T, conn net.Conn, msg string) {
	t.Helper()
	conn.SetDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, err := conn.Write([]byte(msg))
	require.NoError(t, err)
	buf := make([]byte, len(msg))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, string(buf))
}

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	srv := tlstest.NewServer(t, nil)

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", srv.Addr)
	require.NoError(t, err)
	defer conn.Close()

	echo(t, conn, "hello from client\n")
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dial(ctx, "tcp", "127.0.0.1:1")
	require.Error(t, err)
}

func TestTCPDialer_NoDNS(t *testing.T) {
	d := &TCPDialer{NoDNS: true}
	_, err := d.Dial(context.Background(), "tcp", "example.test:80")
	require.ErrorContains(t, err, "DNS disabled")
}

type staticResolver struct {
	ip    net.IP
	calls int
}

func (r *staticResolver) Resolve(context.Context, string) (net.IP, error) {
	r.calls++
	return r.ip, nil
}

func TestTCPDialer_Resolver(t *testing.T) {
	srv := tlstest.NewServer(t, nil)
	_, port, err := net.SplitHostPort(srv.Addr)
	require.NoError(t, err)

	r := &staticResolver{ip: net.IPv4(127, 0, 0, 1)}
	d := &TCPDialer{Timeout: 2 * time.Second, Resolver: r}

	conn, err := d.Dial(context.Background(), "tcp", net.JoinHostPort("example.test", port))
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, 1, r.calls)

	// Numeric addresses bypass the resolver.
	conn2, err := d.Dial(context.Background(), "tcp", srv.Addr)
	require.NoError(t, err)
	conn2.Close()
	assert.Equal(t, 1, r.calls)
}

func TestDialerTransport_Connect(t *testing.T) {
	srv := tlstest.NewServer(t, nil)
	tr := NewDialerTransport(&TCPDialer{Timeout: 2 * time.Second}, slogt.New(t))

	ready, err := tr.Ready()
	require.NoError(t, err)
	require.True(t, ready)

	// The raw layer accepts https targets; TLS is layered above it.
	conn, err := tr.Connect(context.Background(), mustURL(t, "https://"+srv.Addr+"/"))
	require.NoError(t, err)
	defer conn.Close()
	echo(t, conn, "raw bytes")
	require.NoError(t, tr.Close())
}

func TestDialerTransport_ConnectErrors(t *testing.T) {
	tr := NewDialerTransport(&TCPDialer{Timeout: time.Second}, nil)

	_, err := tr.Connect(context.Background(), mustURL(t, "gopher://example.test/"))
	require.ErrorContains(t, err, "no default port")

	port, err := freePort()
	require.NoError(t, err)
	_, err = tr.Connect(context.Background(), mustURL(t, "http://127.0.0.1:"+port+"/"))
	var ne *ncerr.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "dial", ne.Op)
}

func freePort() (string, error) {
	port, err := util.FindFreePort()
	return strconv.Itoa(port), err
}

func startDNS(t *testing.T, records map[string]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{
		PacketConn: pc,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			q := r.Question[0]
			rec, ok := records[q.Name]
			switch {
			case !ok:
				m.Rcode = dns.RcodeNameError
			case q.Qtype == dns.TypeA:
				rr, err := dns.NewRR(q.Name + " 60 IN A " + rec)
				if err == nil {
					m.Answer = append(m.Answer, rr)
				}
			}
			w.WriteMsg(m) //nolint:errcheck
		}),
	}
	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }
	go srv.ActivateAndServe() //nolint:errcheck
	<-started
	t.Cleanup(func() { srv.Shutdown() }) //nolint:errcheck

	return pc.LocalAddr().String()
}

func TestDNSResolver(t *testing.T) {
	server := startDNS(t, map[string]string{"example.test.": "127.0.0.1"})
	r := &DNSResolver{Server: server, Timeout: 2 * time.Second}

	ip, err := r.Resolve(context.Background(), "example.test")
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.IPv4(127, 0, 0, 1)))

	_, err = r.Resolve(context.Background(), "missing.test")
	var dnsErr *net.DNSError
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, "missing.test", dnsErr.Name)
}

func TestDNSResolver_WithDialer(t *testing.T) {
	srv := tlstest.NewServer(t, nil)
	_, port, err := net.SplitHostPort(srv.Addr)
	require.NoError(t, err)

	server := startDNS(t, map[string]string{"example.test.": "127.0.0.1"})
	tr := NewDialerTransport(&TCPDialer{
		Timeout:  2 * time.Second,
		Resolver: &DNSResolver{Server: server, Timeout: 2 * time.Second},
	}, slogt.New(t))

	conn, err := tr.Connect(context.Background(), mustURL(t, "http://example.test:"+port+"/"))
	require.NoError(t, err)
	defer conn.Close()
	echo(t, conn, "resolved")
}
