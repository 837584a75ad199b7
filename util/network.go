package util

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

var defaultPorts = map[string]int{ //nolint:gochecknoglobals
	"http":  80,
	"https": 443,
}

// DefaultPort returns the well-known port for scheme, or 0 when the
// scheme has none.
func DefaultPort(scheme string) int {
	return defaultPorts[scheme]
}

// TargetAddr returns "host:port" for u, using the scheme's default port
// when the URI carries none.
func TargetAddr(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("uri %q has no host", u.Redacted())
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return "", fmt.Errorf("invalid port %q", p)
		}
		return FormatAddr(host, port), nil
	}

	port := DefaultPort(u.Scheme)
	if port == 0 {
		return "", fmt.Errorf("no default port for scheme %q", u.Scheme)
	}
	return FormatAddr(host, port), nil
}

// IsIPLiteral reports whether host is a numeric IPv4 or IPv6 address.
func IsIPLiteral(host string) bool {
	return net.ParseIP(host) != nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
