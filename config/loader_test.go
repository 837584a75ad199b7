package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_Strings(t *testing.T) {
	t.Setenv("HTTPSCONN_URI", "https://env.example/")
	t.Setenv("HTTPSCONN_CA_FILE", "/etc/ca.pem")
	t.Setenv("HTTPSCONN_CT_LOGS", "/etc/logs.json")
	t.Setenv("HTTPSCONN_DNS_SERVER", "10.0.0.53")
	t.Setenv("HTTPSCONN_TUNNEL", "ops@bastion")
	t.Setenv("HTTPSCONN_SSH_KEY", "/keys/id")
	t.Setenv("HTTPSCONN_KNOWN_HOSTS", "/keys/known")

	cfg := &Config{}
	LoadFromEnv(cfg)

	want := Config{
		URI:            "https://env.example/",
		CAFile:         "/etc/ca.pem",
		CTLogFile:      "/etc/logs.json",
		DNSServer:      "10.0.0.53",
		TunnelSpec:     "ops@bastion",
		SSHKeyPath:     "/keys/id",
		KnownHostsPath: "/keys/known",
	}
	if !reflect.DeepEqual(*cfg, want) {
		t.Errorf("got %+v\nwant %+v", *cfg, want)
	}
}

func TestLoadFromEnv_ALPN(t *testing.T) {
	t.Setenv("HTTPSCONN_ALPN", " h2 , http/1.1,, ")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if !reflect.DeepEqual(cfg.ALPN, []string{"h2", "http/1.1"}) {
		t.Errorf("ALPN = %q", cfg.ALPN)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(*Config) bool
	}{
		{"HTTPSCONN_NO_NATIVE_ROOTS", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.NoNativeRoots }},
		{"HTTPSCONN_NO_DNS", []string{"true"}, func(c *Config) bool { return c.NoDNS }},
		{"HTTPSCONN_SSH_PASSWORD", []string{"1"}, func(c *Config) bool { return c.SSHPassword }},
		{"HTTPSCONN_SSH_AGENT", []string{"yes"}, func(c *Config) bool { return c.UseSSHAgent }},
		{"HTTPSCONN_STRICT_HOSTKEY", []string{"true"}, func(c *Config) bool { return c.StrictHostKey }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := &Config{}
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s did not set the flag", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_FalseValues(t *testing.T) {
	for _, v := range []string{"0", "false", "no", "nope"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("HTTPSCONN_NO_DNS", v)
			cfg := &Config{}
			LoadFromEnv(cfg)
			if cfg.NoDNS {
				t.Errorf("NO_DNS=%s should not enable", v)
			}
		})
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	t.Setenv("HTTPSCONN_TIMEOUT", "15")
	t.Setenv("HTTPSCONN_HANDSHAKE_TIMEOUT", "1500ms")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.HandshakeTimeout != 1500*time.Millisecond {
		t.Errorf("HandshakeTimeout = %v", cfg.HandshakeTimeout)
	}

	t.Setenv("HTTPSCONN_HANDSHAKE_TIMEOUT", "3")
	LoadFromEnv(cfg)
	if cfg.HandshakeTimeout != 3*time.Second {
		t.Errorf("HandshakeTimeout = %v, want whole seconds", cfg.HandshakeTimeout)
	}
}

func TestLoadFromEnv_InvalidIgnored(t *testing.T) {
	t.Setenv("HTTPSCONN_TIMEOUT", "soon")
	t.Setenv("HTTPSCONN_VERBOSE", "loud")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Timeout != DefaultConnTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Timeout)
	}
	if cfg.Verbose != 0 {
		t.Errorf("Verbose = %d", cfg.Verbose)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	os.Unsetenv("HTTPSCONN_URI")
	cfg := &Config{URI: "https://keep/"}
	LoadFromEnv(cfg)
	if cfg.URI != "https://keep/" {
		t.Errorf("URI changed to %q", cfg.URI)
	}
}

func TestConfigFileFromEnv(t *testing.T) {
	t.Setenv("HTTPSCONN_CONFIG", "/etc/httpsconn.yaml")
	if got := ConfigFileFromEnv(); got != "/etc/httpsconn.yaml" {
		t.Errorf("got %q", got)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "httpsconn.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
uri: https://file.example/
alpn: [http/1.1]
ca_file: /etc/extra.pem
ct_logs: /etc/log_list.json
timeout: 12s
handshake_timeout: 750ms
dns_server: 192.0.2.53:5353
tunnel: admin@gw:2222
strict_hostkey: true
verbose: 2
`)

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.URI != "https://file.example/" {
		t.Errorf("URI = %q", cfg.URI)
	}
	if !reflect.DeepEqual(cfg.ALPN, []string{"http/1.1"}) {
		t.Errorf("ALPN = %q", cfg.ALPN)
	}
	if cfg.Timeout != 12*time.Second || cfg.HandshakeTimeout != 750*time.Millisecond {
		t.Errorf("timeouts = %v / %v", cfg.Timeout, cfg.HandshakeTimeout)
	}
	if cfg.DNSServer != "192.0.2.53:5353" || cfg.TunnelSpec != "admin@gw:2222" {
		t.Errorf("transport = %q / %q", cfg.DNSServer, cfg.TunnelSpec)
	}
	if !cfg.StrictHostKey || cfg.Verbose != 2 {
		t.Errorf("strict = %v, verbose = %d", cfg.StrictHostKey, cfg.Verbose)
	}
	if cfg.CAFile != "/etc/extra.pem" || cfg.CTLogFile != "/etc/log_list.json" {
		t.Errorf("files = %q / %q", cfg.CAFile, cfg.CTLogFile)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
}

func TestLoadFile_EnvWins(t *testing.T) {
	path := writeFile(t, "dns_server: 192.0.2.1\n")
	t.Setenv("HTTPSCONN_DNS_SERVER", "192.0.2.2")

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatal(err)
	}
	LoadFromEnv(cfg)
	if cfg.DNSServer != "192.0.2.2" {
		t.Errorf("DNSServer = %q, env should override the file", cfg.DNSServer)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default()); err == nil {
		t.Error("expected error for a missing file")
	}

	path := writeFile(t, "dns_sever: typo\n")
	err := LoadFile(path, Default())
	if err == nil || !strings.Contains(err.Error(), "dns_sever") {
		t.Errorf("unknown key should be reported, got %v", err)
	}

	path = writeFile(t, "timeout: [1, 2]\n")
	if err := LoadFile(path, Default()); err == nil {
		t.Error("expected error for a malformed value")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	cfg := Default()
	if err := LoadFile(writeFile(t, ""), cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != DefaultConnTimeout {
		t.Errorf("empty file changed Timeout to %v", cfg.Timeout)
	}
}

func TestDump_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.URI = "https://example.com/"
	cfg.ALPN = []string{"h2"}
	cfg.NoNativeRoots = true
	cfg.CAFile = "ca.pem"

	data, err := Dump(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "handshake_timeout: 10s") {
		t.Errorf("durations should be human readable:\n%s", data)
	}

	back := &Config{}
	if err := LoadFile(writeFile(t, string(data)), back); err != nil {
		t.Fatal(err)
	}
	back.ConfigFile = ""
	if !reflect.DeepEqual(back, cfg) {
		t.Errorf("round trip:\n got %+v\nwant %+v", back, cfg)
	}
}
