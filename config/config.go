// Package config defines the runtime configuration for httpsconn and
// provides helpers for parsing the target URI and tunnel specifications.
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	ncerr "httpsconn/internal/errors"
)

// Config holds every tuneable for a single httpsconn run.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	URI string // positional argument, e.g. https://example.com/

	// ── Security policy ──────────────────────────────────────────────
	ALPN             []string
	CAFile           string // extra PEM roots
	NoNativeRoots    bool
	CTLogFile        string // JSON or YAML log list
	HandshakeTimeout time.Duration

	// ── Transport ────────────────────────────────────────────────────
	Timeout   time.Duration
	LocalPort int // -p: local bind port
	DNSServer string
	NoDNS     bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	ZeroIO     bool // connect, report the stream, close
	Stats      bool // print metrics JSON on exit
	ConfigFile string
}

// Target parses URI.  url.Parse lowercases the scheme.
func (c *Config) Target() (*url.URL, error) {
	u, err := url.Parse(c.URI)
	if err != nil {
		return nil, &ncerr.ConfigError{
			Field:   "uri",
			Value:   c.URI,
			Message: err.Error(),
		}
	}
	return u, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.URI == "" {
		return &ncerr.ConfigError{
			Field:   "uri",
			Message: "target URI is required",
			Hint:    "httpsconn https://example.com/ (use --help for usage)",
		}
	}
	u, err := c.Target()
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return &ncerr.ConfigError{
			Field:   "uri",
			Value:   c.URI,
			Message: "URI needs a scheme and a host",
			Hint:    "write the target as scheme://host[:port]/",
		}
	}

	if c.NoNativeRoots && c.CAFile == "" {
		return &ncerr.ConfigError{
			Field:   "no-native-roots",
			Message: "no trust roots left",
			Hint:    "add --ca-file with the roots to trust",
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.HandshakeTimeout < 0 {
		return &ncerr.ConfigError{Field: "handshake-timeout", Value: c.HandshakeTimeout, Message: "must not be negative"}
	}
	for _, p := range c.ALPN {
		if p == "" || len(p) > 255 {
			return &ncerr.ConfigError{Field: "alpn", Value: p, Message: "protocol ids must be 1-255 bytes"}
		}
	}

	if c.NoDNS && c.DNSServer != "" {
		return fmt.Errorf("-n and --dns-server are mutually exclusive")
	}
	if c.TunnelEnabled && c.DNSServer != "" {
		return fmt.Errorf("--dns-server is not used through SSH tunnels; the gateway resolves names")
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}

	return nil
}
