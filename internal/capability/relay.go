package capability

import (
	"context"
	"io"

	"httpsconn/internal/session"
	"httpsconn/util"
)

// Relay copies data bidirectionally between the stream and the
// session's stdin/stdout.
type Relay struct{}

// Handle shuttles bytes between the stream and the local I/O endpoints
// until one side closes or the context is cancelled.  Traffic is
// counted on the session's collector when it has one.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	in, out := sess.Stdin, sess.Stdout
	if sess.Metrics != nil {
		in = &countingReader{r: in, add: sess.Metrics.BytesSent}
		out = &countingWriter{w: out, add: sess.Metrics.BytesReceived}
	}
	sess.Logger.Debug("relay started",
		"secured", sess.Conn.Secured(), "alpn", sess.Conn.NegotiatedProtocol())
	return util.BidirectionalCopy(ctx, sess.Conn, in, out)
}

type countingReader struct {
	r   io.Reader
	add func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.add(int64(n))
	return n, err
}

type countingWriter struct {
	w   io.Writer
	add func(int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.add(int64(n))
	return n, err
}
