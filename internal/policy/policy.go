// Package policy builds the immutable TLS policy shared by every
// connect attempt: ALPN preference, trust roots and CT log data.
//
// A Policy is built once at process start and never changes; all of
// its state is unexported and accessors hand out copies, so it can be
// read from any number of goroutines without locking.
package policy

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"slices"
	"time"

	"httpsconn/internal/ctlog"
	ncerr "httpsconn/internal/errors"
)

// DefaultALPN lists the application protocols offered by default, in
// preference order.
var DefaultALPN = []string{"h2", "http/1.1"} //nolint:gochecknoglobals

// Policy is an immutable TLS client policy.
type Policy struct {
	alpn             []string
	roots            *x509.CertPool
	ctLogs           []ctlog.Log
	handshakeTimeout time.Duration

	now func() time.Time
}

type options struct {
	alpn             []string
	roots            *x509.CertPool
	nativeRoots      bool
	extraPEM         [][]byte
	ctLogs           []ctlog.Log
	handshakeTimeout time.Duration
	now              func() time.Time
}

// Option configures New.
type Option func(*options)

// WithALPN replaces the default ALPN preference list.
func WithALPN(protos ...string) Option {
	return func(o *options) { o.alpn = slices.Clone(protos) }
}

// WithRoots trusts exactly pool instead of the platform store.
func WithRoots(pool *x509.CertPool) Option {
	return func(o *options) {
		o.roots = pool
		o.nativeRoots = false
	}
}

// WithoutNativeRoots skips the platform store.  Combine with
// WithRootsPEM to trust only explicit CAs.
func WithoutNativeRoots() Option {
	return func(o *options) { o.nativeRoots = false }
}

// WithRootsPEM adds the PEM-encoded CA certificates to the trust roots.
func WithRootsPEM(pem []byte) Option {
	return func(o *options) { o.extraPEM = append(o.extraPEM, pem) }
}

// WithCTLogs replaces the built-in CT logs used to verify stapled SCTs.
func WithCTLogs(logs []ctlog.Log) Option {
	return func(o *options) { o.ctLogs = slices.Clone(logs) }
}

// WithoutCTLogs turns SCT verification off.
func WithoutCTLogs() Option {
	return func(o *options) { o.ctLogs = nil }
}

// WithHandshakeTimeout bounds each handshake; zero means no bound
// beyond the caller's context.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// withClock overrides the clock used for SCT timestamps.
func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// systemCertPool is swapped in tests.
var systemCertPool = x509.SystemCertPool //nolint:gochecknoglobals

// New builds a Policy.  Unless WithRoots or WithoutNativeRoots is given,
// the platform trust store is loaded and failure to read it is an error.
// The built-in CT logs from [ctlog.DefaultLogs] are attached unless
// replaced or removed.
func New(opts ...Option) (*Policy, error) {
	o := options{
		alpn:        slices.Clone(DefaultALPN),
		nativeRoots: true,
		ctLogs:      ctlog.DefaultLogs(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	roots := o.roots
	if o.nativeRoots {
		sys, err := systemCertPool()
		if err != nil {
			return nil, ncerr.Config("policy", fmt.Errorf("cannot access native cert store: %w", err))
		}
		roots = sys
	}
	if len(o.extraPEM) > 0 {
		if roots == nil {
			roots = x509.NewCertPool()
		} else {
			roots = roots.Clone()
		}
		for _, pem := range o.extraPEM {
			if !roots.AppendCertsFromPEM(pem) {
				return nil, ncerr.Config("policy", errors.New("no certificates found in PEM roots"))
			}
		}
	}
	if roots == nil {
		return nil, ncerr.Config("policy", errors.New("no trust roots configured"))
	}

	return &Policy{
		alpn:             o.alpn,
		roots:            roots,
		ctLogs:           o.ctLogs,
		handshakeTimeout: o.handshakeTimeout,
		now:              o.now,
	}, nil
}

// MustNew is like New but panics; use it at process start where a
// policy that cannot be built is fatal.
func MustNew(opts ...Option) *Policy {
	p, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// ALPN returns a copy of the protocol preference list.
func (p *Policy) ALPN() []string { return slices.Clone(p.alpn) }

// CTLogs returns a copy of the configured CT logs.
func (p *Policy) CTLogs() []ctlog.Log { return slices.Clone(p.ctLogs) }

// HandshakeTimeout returns the per-handshake bound, or zero.
func (p *Policy) HandshakeTimeout() time.Duration { return p.handshakeTimeout }

// ClientConfig returns a new tls.Config for a handshake with
// serverName.  The config is owned by the caller.
func (p *Policy) ClientConfig(serverName string) *tls.Config {
	cfg := &tls.Config{
		ServerName: serverName,
		RootCAs:    p.roots,
		NextProtos: slices.Clone(p.alpn),
		MinVersion: tls.VersionTLS12,
	}
	if len(p.ctLogs) > 0 {
		cfg.VerifyConnection = p.verifySCTs
	}
	return cfg
}

// verifySCTs runs after chain verification has succeeded.
func (p *Policy) verifySCTs(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return nil
	}
	leaf := cs.PeerCertificates[0].Raw
	if _, err := ctlog.VerifyAll(leaf, cs.SignedCertificateTimestamps, p.ctLogs, p.now()); err != nil {
		return fmt.Errorf("certificate transparency: %w", err)
	}
	return nil
}
