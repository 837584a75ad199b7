package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultHandshakeTimeout bounds a single TLS handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultSSHKeepAlive is the interval between gateway keepalive probes.
	DefaultSSHKeepAlive = 30 * time.Second

	// DefaultDNSTimeout bounds one query against --dns-server.
	DefaultDNSTimeout = 5 * time.Second

	// EnvPrefix starts every environment variable the loader reads.
	EnvPrefix = "HTTPSCONN_"
)

// Default returns a Config populated with the default values.
func Default() *Config {
	return &Config{
		Timeout:          DefaultConnTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}
