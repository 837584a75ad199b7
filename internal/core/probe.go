package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"httpsconn/internal/connector"
	"httpsconn/internal/stream"
)

// ProbeMode connects to Target, reports what kind of stream came back
// and closes it without sending data (-z).
type ProbeMode struct {
	Connector *connector.Connector
	Transport io.Closer
	Target    *url.URL
	Logger    *slog.Logger

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

// Run performs the probe.  A failed connect is returned unchanged so
// the caller can inspect its error kind.
func (m *ProbeMode) Run(ctx context.Context) error {
	if m.Transport != nil {
		defer m.Transport.Close()
	}

	if err := waitReady(ctx, m.Connector); err != nil {
		return err
	}

	s, err := m.Connector.Connect(ctx, m.Target)
	if err != nil {
		return err
	}
	defer s.Close()

	line := Describe(m.Target, s)
	m.Logger.Info("probe succeeded", "target", m.Target.String())
	_, err = fmt.Fprintln(orStdout(m.Stdout), line)
	return err
}

// Describe renders one line summarising s.
func Describe(target *url.URL, s stream.Stream) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s connected remote=%s secured=%t", target.Redacted(), s.RemoteAddr(), s.Secured())

	sec, ok := s.(*stream.Secure)
	if !ok {
		return b.String()
	}
	st := sec.ConnectionState()
	alpn := st.NegotiatedProtocol
	if alpn == "" {
		alpn = "none"
	}
	fmt.Fprintf(&b, " tls=%q alpn=%s multiplexed=%t", tls.VersionName(st.Version), alpn, s.Multiplexed())
	if len(st.PeerCertificates) > 0 {
		fmt.Fprintf(&b, " peer=%q", st.PeerCertificates[0].Subject.String())
	}
	if n := len(st.SignedCertificateTimestamps); n > 0 {
		fmt.Fprintf(&b, " scts=%d", n)
	}
	return b.String()
}
