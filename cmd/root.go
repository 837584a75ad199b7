// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"httpsconn/config"
	"httpsconn/internal/core"
	"httpsconn/internal/metrics"
	"httpsconn/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X httpsconn/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected mode against os.Stdin and
// os.Stdout.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// ── file and environment ─────────────────────────────────────
	cfg := config.Default()
	path := configFlag(args)
	if path == "" {
		path = config.ConfigFileFromEnv()
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	// ── flags (defaults come from file and env) ──────────────────
	fs := flag.NewFlagSet("httpsconn", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// security policy
	fs.StringSliceVar(&cfg.ALPN, "alpn", cfg.ALPN, "ALPN protocol ids in preference order (default h2,http/1.1)")
	fs.StringVar(&cfg.CAFile, "ca-file", cfg.CAFile, "Extra trusted roots (PEM)")
	fs.BoolVar(&cfg.NoNativeRoots, "no-native-roots", cfg.NoNativeRoots, "Do not load the platform trust store")
	fs.StringVar(&cfg.CTLogFile, "ct-logs", cfg.CTLogFile, "CT log list (JSON or YAML) for stapled SCT checks")
	fs.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "TLS handshake timeout")

	// transport
	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Local source port")
	fs.StringVar(&cfg.DNSServer, "dns-server", cfg.DNSServer, "Resolve names with this DNS server (host[:port])")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")

	// SSH tunnel
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// output
	fs.BoolVarP(&cfg.ZeroIO, "zero-io", "z", cfg.ZeroIO, "Connect, report the stream and close")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print connection metrics as JSON on exit")
	fs.String("config", path, "YAML config file (env HTTPSCONN_CONFIG)")
	var verbose int
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var dryRun, showVersion, showHelp bool
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration, print it and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, stderr) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs, stderr)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "httpsconn %s\n", version)
		return nil
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	if verbose > 0 {
		cfg.Verbose = verbose
	}

	// ── positional argument ──────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.URI = rest[0]
	default:
		return fmt.Errorf("expected one target URI, got %d arguments", len(rest))
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	m := metrics.New()

	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	if dryRun {
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	switch md := mode.(type) {
	case *core.ConnectMode:
		md.Stdin, md.Stdout = stdin, stdout
	case *core.ProbeMode:
		md.Stdout = stdout
	}

	err = mode.Run(ctx)
	if cfg.Stats {
		fmt.Fprintln(stderr, m.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// configFlag finds --config before the full flag set exists, so the
// file can supply the flag defaults.
func configFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "--":
			return ""
		case a == "--config" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `httpsconn – HTTP(S) connection tool v%s

Opens a byte stream to a URI.  https targets are upgraded to TLS with
ALPN (h2, http/1.1) and optional stapled SCT checks; other schemes
stay plain.

Usage:
  httpsconn [options] <uri>                   Connect and relay stdin/stdout
  httpsconn -z [options] <uri>                Probe: report the stream, close
  httpsconn -T user@gateway <uri>             Connect through an SSH tunnel

Options:
`, version)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  printf 'GET / HTTP/1.1\r\nHost: example.com\r\n\r\n' | httpsconn https://example.com/
  httpsconn -z -v https://example.com/                TLS probe
  httpsconn -z --alpn http/1.1 https://example.com/   Force HTTP/1.1
  httpsconn --ca-file corp.pem --no-native-roots https://intranet/
  httpsconn -T admin@bastion https://db-internal:8443/

Environment:
  HTTPSCONN_* mirrors the long flags (HTTPSCONN_CA_FILE, HTTPSCONN_ALPN, ...).
`)
}
