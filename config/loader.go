package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ── Config file ──────────────────────────────────────────────────────

// File is the on-disk form of a Config.  Zero values leave the
// underlying setting untouched.
type File struct {
	URI              string        `yaml:"uri,omitempty"`
	ALPN             []string      `yaml:"alpn,omitempty"`
	CAFile           string        `yaml:"ca_file,omitempty"`
	NoNativeRoots    bool          `yaml:"no_native_roots,omitempty"`
	CTLogs           string        `yaml:"ct_logs,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout,omitempty"`
	DNSServer        string        `yaml:"dns_server,omitempty"`
	NoDNS            bool          `yaml:"no_dns,omitempty"`
	Tunnel           string        `yaml:"tunnel,omitempty"`
	SSHKey           string        `yaml:"ssh_key,omitempty"`
	SSHPassword      bool          `yaml:"ssh_password,omitempty"`
	SSHAgent         bool          `yaml:"ssh_agent,omitempty"`
	StrictHostKey    bool          `yaml:"strict_hostkey,omitempty"`
	KnownHosts       string        `yaml:"known_hosts,omitempty"`
	Verbose          int           `yaml:"verbose,omitempty"`
}

// LoadFile overlays the YAML file at path onto cfg.  Unknown keys are
// rejected so typos surface instead of being ignored.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	f.apply(cfg)
	cfg.ConfigFile = path
	return nil
}

func (f *File) apply(cfg *Config) {
	if f.URI != "" {
		cfg.URI = f.URI
	}
	if len(f.ALPN) > 0 {
		cfg.ALPN = f.ALPN
	}
	if f.CAFile != "" {
		cfg.CAFile = f.CAFile
	}
	if f.NoNativeRoots {
		cfg.NoNativeRoots = true
	}
	if f.CTLogs != "" {
		cfg.CTLogFile = f.CTLogs
	}
	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
	if f.HandshakeTimeout > 0 {
		cfg.HandshakeTimeout = f.HandshakeTimeout
	}
	if f.DNSServer != "" {
		cfg.DNSServer = f.DNSServer
	}
	if f.NoDNS {
		cfg.NoDNS = true
	}
	if f.Tunnel != "" {
		cfg.TunnelSpec = f.Tunnel
	}
	if f.SSHKey != "" {
		cfg.SSHKeyPath = f.SSHKey
	}
	if f.SSHPassword {
		cfg.SSHPassword = true
	}
	if f.SSHAgent {
		cfg.UseSSHAgent = true
	}
	if f.StrictHostKey {
		cfg.StrictHostKey = true
	}
	if f.KnownHosts != "" {
		cfg.KnownHostsPath = f.KnownHosts
	}
	if f.Verbose > 0 {
		cfg.Verbose = f.Verbose
	}
}

// Dump renders cfg in config-file form.
func Dump(cfg *Config) ([]byte, error) {
	f := File{
		URI:              cfg.URI,
		ALPN:             cfg.ALPN,
		CAFile:           cfg.CAFile,
		NoNativeRoots:    cfg.NoNativeRoots,
		CTLogs:           cfg.CTLogFile,
		Timeout:          cfg.Timeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		DNSServer:        cfg.DNSServer,
		NoDNS:            cfg.NoDNS,
		Tunnel:           cfg.TunnelSpec,
		SSHKey:           cfg.SSHKeyPath,
		SSHPassword:      cfg.SSHPassword,
		SSHAgent:         cfg.UseSSHAgent,
		StrictHostKey:    cfg.StrictHostKey,
		KnownHosts:       cfg.KnownHostsPath,
		Verbose:          cfg.Verbose,
	}
	return yaml.Marshal(&f)
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the HTTPSCONN_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flags are bound so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := env("URI"); v != "" {
		cfg.URI = v
	}
	if v := env("ALPN"); v != "" {
		cfg.ALPN = splitList(v)
	}
	if v := env("CA_FILE"); v != "" {
		cfg.CAFile = v
	}
	if envBool("NO_NATIVE_ROOTS") {
		cfg.NoNativeRoots = true
	}
	if v := env("CT_LOGS"); v != "" {
		cfg.CTLogFile = v
	}
	if v := envInt("TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envDuration("HANDSHAKE_TIMEOUT"); v > 0 {
		cfg.HandshakeTimeout = v
	}
	if v := env("DNS_SERVER"); v != "" {
		cfg.DNSServer = v
	}
	if envBool("NO_DNS") {
		cfg.NoDNS = true
	}

	// SSH tunnel
	if v := env("TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ConfigFileFromEnv returns the config file named by HTTPSCONN_CONFIG.
func ConfigFileFromEnv() string {
	return env("CONFIG")
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string) int {
	v := env(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

// envDuration accepts a Go duration ("1500ms") or whole seconds.
func envDuration(key string) time.Duration {
	v := env(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return secondsDuration(envInt(key))
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
