// Package capability defines what happens over an established stream.
// Each Capability encapsulates a single behaviour and operates on a
// Session rather than a raw net.Conn, which keeps capabilities testable
// and decoupled from whether the stream is secured.
package capability

import (
	"context"

	"httpsconn/internal/session"
)

// Capability handles a single stream according to a specific behaviour.
type Capability interface {
	// Handle runs the capability against the given session.
	// It blocks until the stream is done or the context is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
