// Package core is the orchestration layer.  It composes the transport,
// the security policy and the connector into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	transport, policy  →  connector  →  capability  →  session  →  core  →  cmd (CLI)
package core

import (
	"context"
	"time"

	"httpsconn/internal/connector"
)

// Mode represents a complete operational mode of httpsconn (connect
// or probe).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// readyPollInterval is how often waitReady re-checks a busy transport.
const readyPollInterval = 50 * time.Millisecond

// waitReady blocks until the connector's transport accepts a connect
// call, it fails, or ctx ends.
func waitReady(ctx context.Context, c *connector.Connector) error {
	t := time.NewTicker(readyPollInterval)
	defer t.Stop()
	for {
		ok, err := c.Ready()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
