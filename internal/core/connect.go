package core

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"

	"httpsconn/internal/capability"
	"httpsconn/internal/connector"
	"httpsconn/internal/metrics"
	"httpsconn/internal/session"
	"httpsconn/util"
)

// ConnectMode opens a stream to Target and runs a capability on it:
// the default client mode.
type ConnectMode struct {
	Connector  *connector.Connector
	Transport  io.Closer
	Capability capability.Capability
	Target     *url.URL
	Logger     *slog.Logger
	Metrics    *metrics.Collector

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

// Run connects, creates a session, and hands it to the capability.
// The transport is closed when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	if m.Transport != nil {
		defer m.Transport.Close()
	}

	if err := waitReady(ctx, m.Connector); err != nil {
		return err
	}

	m.Logger.Log(ctx, util.LevelVerbose, "connecting", "target", m.Target.String())
	s, err := m.Connector.Connect(ctx, m.Target)
	if err != nil {
		return err
	}
	defer s.Close()

	m.Logger.Log(ctx, util.LevelVerbose, "connected",
		"remote", s.RemoteAddr().String(),
		"secured", s.Secured(),
		"alpn", s.NegotiatedProtocol())

	sess := session.New(s, m.stdin(), orStdout(m.Stdout), m.Logger)
	sess.Metrics = m.Metrics
	return m.Capability.Handle(ctx, sess)
}
