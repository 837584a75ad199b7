// Package metrics provides lightweight, lock-free counters for tracking
// connection attempts made through a connector.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	ncerr "httpsconn/internal/errors"
)

// Collector tracks connection metrics.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	plainAttempts     atomic.Int64
	secureAttempts    atomic.Int64
	handshakes        atomic.Int64
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	tunnelReconnects  atomic.Int64
	failures          [ncerr.KindConfig + 1]atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Attempt metrics ──────────────────────────────────────────────────

// Attempt records the start of a connect call on the plain or the
// secure path.
func (c *Collector) Attempt(secure bool) {
	if c == nil {
		return
	}
	if secure {
		c.secureAttempts.Add(1)
	} else {
		c.plainAttempts.Add(1)
	}
}

// PlainAttempts returns the number of connect calls on the plain path.
func (c *Collector) PlainAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.plainAttempts.Load()
}

// SecureAttempts returns the number of connect calls on the secure path.
func (c *Collector) SecureAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.secureAttempts.Load()
}

// Handshake records a started TLS handshake.
func (c *Collector) Handshake() {
	if c == nil {
		return
	}
	c.handshakes.Add(1)
}

// Handshakes returns the number of handshakes started.
func (c *Collector) Handshakes() int64 {
	if c == nil {
		return 0
	}
	return c.handshakes.Load()
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open streams.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime stream count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the stream.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the stream.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Tunnel metrics ───────────────────────────────────────────────────

// TunnelReconnect records an SSH tunnel being re-established.
func (c *Collector) TunnelReconnect() {
	if c == nil {
		return
	}
	c.tunnelReconnects.Add(1)
}

// TunnelReconnects returns the total tunnel reconnection count.
func (c *Collector) TunnelReconnects() int64 {
	if c == nil {
		return 0
	}
	return c.tunnelReconnects.Load()
}

// ── Failure metrics ──────────────────────────────────────────────────

// Failure counts err under its error kind and remembers the message.
func (c *Collector) Failure(err error) {
	if c == nil || err == nil {
		return
	}
	kind := ncerr.KindOf(err)
	if int(kind) < len(c.failures) {
		c.failures[kind].Add(1)
	}
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = err.Error()
	c.mu.Unlock()
}

// Failures returns the number of failures recorded for kind.
func (c *Collector) Failures(kind ncerr.Kind) int64 {
	if c == nil || int(kind) >= len(c.failures) {
		return 0
	}
	return c.failures[kind].Load()
}

// ErrorCount returns the total number of failures of any kind.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	var n int64
	for i := range c.failures {
		n += c.failures[i].Load()
	}
	return n
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	PlainAttempts     int64            `json:"plain_attempts"`
	SecureAttempts    int64            `json:"secure_attempts"`
	Handshakes        int64            `json:"handshakes"`
	ConnectionsActive int64            `json:"connections_active"`
	ConnectionsTotal  int64            `json:"connections_total"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	TunnelReconnects  int64            `json:"tunnel_reconnects"`
	Failures          map[string]int64 `json:"failures,omitempty"`
	LastError         string           `json:"last_error,omitempty"`
	LastErrorMessage  string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		PlainAttempts:     c.plainAttempts.Load(),
		SecureAttempts:    c.secureAttempts.Load(),
		Handshakes:        c.handshakes.Load(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		TunnelReconnects:  c.tunnelReconnects.Load(),
	}
	for i := range c.failures {
		if n := c.failures[i].Load(); n > 0 {
			if s.Failures == nil {
				s.Failures = make(map[string]int64)
			}
			s.Failures[ncerr.Kind(i).String()] = n
		}
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
