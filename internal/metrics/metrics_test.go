package metrics

import (
	"encoding/json"
	"errors"
	"testing"

	ncerr "httpsconn/internal/errors"
)

func TestCollector_Attempts(t *testing.T) {
	c := New()

	c.Attempt(false)
	c.Attempt(true)
	c.Attempt(true)
	c.Handshake()

	if c.PlainAttempts() != 1 {
		t.Errorf("plain = %d, want 1", c.PlainAttempts())
	}
	if c.SecureAttempts() != 2 {
		t.Errorf("secure = %d, want 2", c.SecureAttempts())
	}
	if c.Handshakes() != 1 {
		t.Errorf("handshakes = %d, want 1", c.Handshakes())
	}
}

func TestCollector_Connections(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	if c.ActiveConnections() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total = %d, want 2", c.TotalConnections())
	}

	c.ConnectionClosed()
	if c.ActiveConnections() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveConnections())
	}
	if c.TotalConnections() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalConnections())
	}
}

func TestCollector_Bytes(t *testing.T) {
	c := New()

	c.BytesReceived(1024)
	c.BytesSent(512)
	c.BytesReceived(100)

	if c.TotalBytesIn() != 1124 {
		t.Errorf("bytes in = %d, want 1124", c.TotalBytesIn())
	}
	if c.TotalBytesOut() != 512 {
		t.Errorf("bytes out = %d, want 512", c.TotalBytesOut())
	}
}

func TestCollector_TunnelReconnects(t *testing.T) {
	c := New()

	c.TunnelReconnect()
	c.TunnelReconnect()

	if c.TunnelReconnects() != 2 {
		t.Errorf("reconnects = %d, want 2", c.TunnelReconnects())
	}
}

func TestCollector_Failures(t *testing.T) {
	c := New()

	c.Failure(ncerr.Handshake("example.test", errors.New("bad certificate")))
	c.Failure(ncerr.Handshake("example.test", errors.New("bad certificate")))
	c.Failure(ncerr.Transport("connect", "example.test", errors.New("refused")))
	c.Failure(errors.New("untagged"))
	c.Failure(nil)

	if got := c.Failures(ncerr.KindHandshake); got != 2 {
		t.Errorf("handshake failures = %d, want 2", got)
	}
	if got := c.Failures(ncerr.KindTransport); got != 1 {
		t.Errorf("transport failures = %d, want 1", got)
	}
	if got := c.Failures(ncerr.KindUnknown); got != 1 {
		t.Errorf("unknown failures = %d, want 1", got)
	}
	if got := c.Failures(ncerr.Kind(99)); got != 0 {
		t.Errorf("out of range kind = %d, want 0", got)
	}
	if c.ErrorCount() != 4 {
		t.Errorf("errors = %d, want 4", c.ErrorCount())
	}
}

func TestCollector_Snapshot(t *testing.T) {
	c := New()
	c.Attempt(true)
	c.ConnectionOpened()
	c.BytesReceived(100)
	c.Failure(ncerr.Validation("", ncerr.ErrEmptyPeerName))

	snap := c.Snapshot()
	if snap.SecureAttempts != 1 {
		t.Errorf("snap secure = %d", snap.SecureAttempts)
	}
	if snap.ConnectionsActive != 1 {
		t.Errorf("snap active = %d", snap.ConnectionsActive)
	}
	if snap.BytesIn != 100 {
		t.Errorf("snap bytes in = %d", snap.BytesIn)
	}
	if snap.Failures["validation"] != 1 {
		t.Errorf("snap failures = %v", snap.Failures)
	}
	if snap.LastErrorMessage == "" {
		t.Error("expected last error message")
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.ConnectionOpened()
	c.BytesSent(42)

	raw := c.JSON()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("JSON parse error: %v", err)
	}
	if snap.ConnectionsActive != 1 {
		t.Errorf("JSON active = %d", snap.ConnectionsActive)
	}
	if snap.BytesOut != 42 {
		t.Errorf("JSON bytes out = %d", snap.BytesOut)
	}
	if snap.Failures != nil {
		t.Errorf("JSON failures = %v, want none", snap.Failures)
	}
}

func TestNilCollector_NoOps(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.Attempt(true)
	c.Handshake()
	c.ConnectionOpened()
	c.ConnectionClosed()
	c.BytesReceived(100)
	c.BytesSent(100)
	c.TunnelReconnect()
	c.Failure(errors.New("test"))

	if c.ActiveConnections() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.SecureAttempts() != 0 {
		t.Error("nil collector should return 0")
	}
	if c.ErrorCount() != 0 {
		t.Error("nil collector should return 0")
	}

	snap := c.Snapshot()
	if snap.ConnectionsActive != 0 {
		t.Error("nil snapshot should be zero")
	}

	if c.JSON() == "" {
		t.Error("nil JSON should return valid JSON")
	}
}
