// Package errors provides domain-specific error types for httpsconn.
//
// Every failure surfaced by a connect attempt is a *ConnectError tagged
// with a Kind, so callers can tell "try another address" apart from
// "certificate untrusted, do not retry" without matching strings.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrTunnelClosed    = errors.New("tunnel is closed")
	ErrNotConnected    = errors.New("not connected")
	ErrDialerClosed    = errors.New("dialer is closed")
	ErrEmptyPeerName   = errors.New("empty peer name")
	ErrInvalidPeerName = errors.New("invalid peer name")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostKeyMismatch = errors.New("host key mismatch")
)

// ── Kinds ────────────────────────────────────────────────────────────

// Kind classifies where a connect attempt failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport covers name resolution, refused connections and
	// timeouts reported by the raw transport.
	KindTransport
	// KindValidation means the target could not be used for a secure
	// session (missing or malformed host). No I/O was attempted.
	KindValidation
	// KindHandshake covers TLS negotiation failures: protocol
	// mismatch, untrusted certificate, peer abort.
	KindHandshake
	// KindConfig is a construction-time failure (e.g. trust roots).
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindHandshake:
		return "handshake"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ConnectError is the error returned by every connector operation.
type ConnectError struct {
	Kind Kind
	Op   string // "ready", "connect", "validate", "handshake", "policy"
	Host string // target host, empty when unknown
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Kind, e.Op, e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "listen", "accept", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "channel", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// Transport tags err as a raw-transport failure.
func Transport(op, host string, err error) *ConnectError {
	return &ConnectError{Kind: KindTransport, Op: op, Host: host, Err: err}
}

// Validation tags err as a peer-name validation failure.
func Validation(host string, err error) *ConnectError {
	return &ConnectError{Kind: KindValidation, Op: "validate", Host: host, Err: err}
}

// Handshake tags err as a TLS negotiation failure.
func Handshake(host string, err error) *ConnectError {
	return &ConnectError{Kind: KindHandshake, Op: "handshake", Host: host, Err: err}
}

// Config tags err as a construction-time failure.
func Config(op string, err error) *ConnectError {
	return &ConnectError{Kind: KindConfig, Op: op, Err: err}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// KindOf returns the Kind of the outermost ConnectError in err's chain.
func KindOf(err error) Kind {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth retrying.  Only transport
// failures qualify; validation, handshake and config failures never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		if ce.Kind != KindTransport {
			return false
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrDialerClosed)
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	// net.OpError with Temporary() hint
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}
