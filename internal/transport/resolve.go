package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DNSResolver queries one DNS server directly, asking for A records
// first and AAAA records second.
type DNSResolver struct {
	Server  string // host:port; port 53 is assumed when missing
	Timeout time.Duration
}

// Resolve returns the first address found for host.
func (r *DNSResolver) Resolve(ctx context.Context, host string) (net.IP, error) {
	server := r.Server
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	client := &dns.Client{Timeout: r.Timeout}
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		m.RecursionDesired = true

		in, _, err := client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s: %s", dns.TypeToString[qtype], dns.RcodeToString[in.Rcode])
			continue
		}
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				return v.A, nil
			case *dns.AAAA:
				return v.AAAA, nil
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no address records")
	}
	return nil, &net.DNSError{Err: lastErr.Error(), Name: host, Server: server}
}
