package connector

import (
	"context"
	"errors"
	"net/url"
	"sync"

	ncerr "httpsconn/internal/errors"
	"httpsconn/internal/stream"
)

var errCollected = errors.New("attempt result already collected")

// Attempt is a connect call running in its own goroutine.  Exactly one
// of Wait or Cancel should eventually be called so the stream is either
// handed over or closed.
type Attempt struct {
	host   string
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	s        stream.Stream
	err      error
	taken    bool
	canceled bool
}

// Go starts Connect(ctx, u) in a new goroutine and returns at once.
func (c *Connector) Go(ctx context.Context, u *url.URL) *Attempt {
	ctx, cancel := context.WithCancel(ctx)
	a := &Attempt{done: make(chan struct{}), cancel: cancel}
	if u != nil {
		a.host = u.Hostname()
	}

	go func() {
		defer close(a.done)
		s, err := c.Connect(ctx, u)

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.canceled {
			if s != nil {
				s.Close() //nolint:errcheck
			}
			return
		}
		a.s, a.err = s, err
		a.cancel()
	}()
	return a
}

// Done is closed once the connect call has returned.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the attempt finishes and hands over its result.
// If ctx ends first the attempt is canceled.
func (a *Attempt) Wait(ctx context.Context) (stream.Stream, error) {
	select {
	case <-a.done:
	case <-ctx.Done():
		a.Cancel()
		return nil, ncerr.Transport("connect", a.host, ctx.Err())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.canceled:
		return nil, ncerr.Transport("connect", a.host, context.Canceled)
	case a.taken:
		return nil, errCollected
	}
	a.taken = true
	s := a.s
	a.s = nil
	return s, a.err
}

// Cancel aborts the attempt.  A connection that is still being set up
// is closed as soon as the connect call returns; a finished stream that
// was never collected is closed now.  Cancel after Wait is a no-op for
// the collected stream.
func (a *Attempt) Cancel() {
	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.canceled {
		return
	}
	a.canceled = true
	if a.s != nil {
		a.s.Close() //nolint:errcheck
		a.s = nil
	}
}
