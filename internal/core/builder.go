package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"httpsconn/config"
	"httpsconn/internal/capability"
	"httpsconn/internal/connector"
	"httpsconn/internal/ctlog"
	ncerr "httpsconn/internal/errors"
	"httpsconn/internal/metrics"
	"httpsconn/internal/policy"
	"httpsconn/internal/transport"
	"httpsconn/tunnel"
	"httpsconn/util"
)

// Build constructs the appropriate Mode from the given configuration.
// A policy that cannot be built (unreadable trust store, bad CA or CT
// log file) fails here, before any connection is attempted.  m may be
// nil.
func Build(cfg *config.Config, logger *slog.Logger, m *metrics.Collector) (Mode, error) {
	target, err := cfg.Target()
	if err != nil {
		return nil, err
	}
	if cfg.NoDNS && !cfg.TunnelEnabled && !util.IsIPLiteral(target.Hostname()) {
		return nil, fmt.Errorf(
			"cannot parse %q as an IP address (DNS disabled with -n)",
			target.Hostname())
	}

	pol, err := buildPolicy(cfg)
	if err != nil {
		return nil, err
	}

	tr := transport.NewDialerTransport(buildDialer(cfg, logger, m), logger)
	conn := connector.New(tr, pol,
		connector.WithLogger(logger),
		connector.WithMetrics(m))

	if cfg.ZeroIO {
		return &ProbeMode{
			Connector: conn,
			Transport: tr,
			Target:    target,
			Logger:    logger,
		}, nil
	}
	return &ConnectMode{
		Connector:  conn,
		Transport:  tr,
		Capability: &capability.Relay{},
		Target:     target,
		Logger:     logger,
		Metrics:    m,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildPolicy turns the security settings into the shared policy.
func buildPolicy(cfg *config.Config) (*policy.Policy, error) {
	var opts []policy.Option
	if len(cfg.ALPN) > 0 {
		opts = append(opts, policy.WithALPN(cfg.ALPN...))
	}
	if cfg.NoNativeRoots {
		opts = append(opts, policy.WithoutNativeRoots())
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, ncerr.Config("policy", fmt.Errorf("ca file: %w", err))
		}
		opts = append(opts, policy.WithRootsPEM(pem))
	}
	if cfg.CTLogFile != "" {
		logs, err := ctlog.LoadFile(cfg.CTLogFile)
		if err != nil {
			return nil, ncerr.Config("policy", err)
		}
		opts = append(opts, policy.WithCTLogs(logs))
	}
	if cfg.HandshakeTimeout > 0 {
		opts = append(opts, policy.WithHandshakeTimeout(cfg.HandshakeTimeout))
	}
	return policy.New(opts...)
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *slog.Logger, m *metrics.Collector) transport.Dialer {
	if cfg.TunnelEnabled {
		d := transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
			KeepAlive:     config.DefaultSSHKeepAlive,
		}, logger)
		d.Metrics = m
		return d
	}

	d := &transport.TCPDialer{
		Timeout:   cfg.Timeout,
		LocalPort: cfg.LocalPort,
		NoDNS:     cfg.NoDNS,
	}
	if cfg.DNSServer != "" {
		d.Resolver = &transport.DNSResolver{
			Server:  cfg.DNSServer,
			Timeout: config.DefaultDNSTimeout,
		}
	}
	return d
}

func orStdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}
