// Package connector turns a target URL into a connected stream.
//
// URLs with the https scheme get a TLS session negotiated over the raw
// transport connection using one shared, immutable [policy.Policy];
// every other scheme yields the raw connection as is.  Callers receive
// a [stream.Stream] either way.
//
// The connector spawns no goroutines on the Connect path: the raw
// connect and the handshake run on the calling goroutine, and the raw
// connect always finishes before any handshake work starts.
package connector

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	ncerr "httpsconn/internal/errors"
	"httpsconn/internal/metrics"
	"httpsconn/internal/policy"
	"httpsconn/internal/stream"
	"httpsconn/internal/transport"
	"httpsconn/util"
)

// SecureScheme is the only scheme that triggers a TLS handshake.  The
// comparison is exact; url.Parse already lowercases schemes.
const SecureScheme = "https"

var errNoURL = errors.New("no target URL")

// Connector dispatches connect calls on the URL scheme.  It is never
// mutated after New and is safe for concurrent use.
type Connector struct {
	transport  transport.Transport
	policy     *policy.Policy
	handshaker Handshaker
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the logger used for per-attempt records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches a collector.  A nil collector disables counting.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Connector) { c.metrics = m }
}

// WithHandshaker replaces the default [TLSHandshaker].
func WithHandshaker(h Handshaker) Option {
	return func(c *Connector) {
		if h != nil {
			c.handshaker = h
		}
	}
}

// New returns a Connector that opens raw connections with t and
// secures https targets with p.  p must come from [policy.New].
func New(t transport.Transport, p *policy.Policy, opts ...Option) *Connector {
	if t == nil || p == nil {
		panic("connector: nil transport or policy")
	}
	c := &Connector{
		transport:  t,
		policy:     p,
		handshaker: TLSHandshaker{},
		logger:     util.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the shared security policy.
func (c *Connector) Policy() *policy.Policy { return c.policy }

// Ready reports whether the transport can accept a Connect now.  It
// does no scheme inspection and no security work.
func (c *Connector) Ready() (bool, error) {
	ok, err := c.transport.Ready()
	if err != nil {
		return false, ncerr.Transport("ready", "", err)
	}
	return ok, nil
}

// Connect opens a stream to u.  Failures are *errors.ConnectError
// values tagged with the stage that failed; nothing is retried.
func (c *Connector) Connect(ctx context.Context, u *url.URL) (stream.Stream, error) {
	if u == nil {
		return nil, ncerr.Validation("", errNoURL)
	}

	secure := u.Scheme == SecureScheme
	log := c.logger.With("attempt", uuid.NewString(), "scheme", u.Scheme, "host", u.Host)
	c.metrics.Attempt(secure)

	var (
		s   stream.Stream
		err error
	)
	if secure {
		s, err = c.connectSecure(ctx, u, log)
	} else {
		s, err = c.connectPlain(ctx, u, log)
	}
	if err != nil {
		c.metrics.Failure(err)
		log.Log(ctx, util.LevelVerbose, "connect failed",
			"kind", ncerr.KindOf(err).String(), "error", err)
		return nil, err
	}

	c.metrics.ConnectionOpened()
	return s, nil
}

func (c *Connector) connectPlain(ctx context.Context, u *url.URL, log *slog.Logger) (stream.Stream, error) {
	raw, err := c.transport.Connect(ctx, u)
	if err != nil {
		return nil, ncerr.Transport("connect", u.Hostname(), err)
	}
	log.Log(ctx, util.LevelVerbose, "connected", "remote", raw.RemoteAddr().String())
	return stream.NewPlain(raw, c.metrics.ConnectionClosed), nil
}

func (c *Connector) connectSecure(ctx context.Context, u *url.URL, log *slog.Logger) (stream.Stream, error) {
	// A URL without a host yields "", which fails validation below.
	host := u.Hostname()
	if err := ValidatePeerName(host); err != nil {
		return nil, ncerr.Validation(host, err)
	}

	raw, err := c.transport.Connect(ctx, u)
	if err != nil {
		return nil, ncerr.Transport("connect", host, err)
	}
	log.Log(ctx, util.LevelVerbose, "connected", "remote", raw.RemoteAddr().String())

	c.metrics.Handshake()
	conn, err := c.handshaker.Handshake(ctx, raw, host, c.policy)
	if err != nil {
		raw.Close() //nolint:errcheck
		return nil, ncerr.Handshake(host, err)
	}

	st := conn.ConnectionState()
	log.Log(ctx, util.LevelVerbose, "handshake done", slog.Group("tls",
		"version", tls.VersionName(st.Version),
		"alpn", st.NegotiatedProtocol))
	return stream.NewSecure(conn, c.metrics.ConnectionClosed), nil
}
