// Package session represents a single connection lifecycle, binding an
// established stream with local I/O endpoints.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it's reading from os.Stdin
// or a test buffer, it just uses the session's Reader/Writer.
package session

import (
	"io"
	"log/slog"

	"httpsconn/internal/metrics"
	"httpsconn/internal/stream"
	"httpsconn/util"
)

// Session encapsulates the runtime context for a single stream.
type Session struct {
	Conn    stream.Stream
	Stdin   io.Reader
	Stdout  io.Writer
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// New creates a Session bound to the given stream and I/O pair.  A nil
// logger discards output.
func New(conn stream.Stream, stdin io.Reader, stdout io.Writer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = util.DiscardLogger()
	}
	return &Session{
		Conn:   conn,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
	}
}
