package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/singleflight"

	"github.com/die-net/socksgate/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// DNSResolver sends A queries to a single DNS server. Concurrent lookups of
// the same name share one query.
type DNSResolver struct {
	server  string
	timeout time.Duration
	udp     *dns.Client
	tcp     *dns.Client
	sf      singleflight.Group
}

// NewDNSResolver returns a resolver querying cfg.Server, on port 53 unless
// another port is given.
func NewDNSResolver(cfg Config) *DNSResolver {
	server := cfg.Server
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(strings.Trim(server, "[]"), "53")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &DNSResolver{
		server:  server,
		timeout: timeout,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// Server returns the host:port queries are sent to.
func (r *DNSResolver) Server() string {
	return r.server
}

func (r *DNSResolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip.Unmap()}, nil
	}

	name := dns.Fqdn(strings.ToLower(host))
	ch := r.sf.DoChan(name, func() (any, error) {
		// The query outlives a canceled caller so others waiting on it
		// still get an answer.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.lookup(qctx, host, name)
	})

	select {
	case <-ctx.Done():
		return nil, &net.DNSError{
			Err:       ctx.Err().Error(),
			Name:      host,
			Server:    r.server,
			IsTimeout: errors.Is(ctx.Err(), context.DeadlineExceeded),
		}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]netip.Addr)), nil
	}
}

func (r *DNSResolver) lookup(ctx context.Context, host, name string) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeA)
	m.RecursionDesired = true

	in, _, err := r.udp.ExchangeContext(ctx, m, r.server)
	if err == nil && in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, m, r.server)
	}
	if err != nil {
		metrics.DNSQueries.WithLabelValues("error").Inc()
		var ne net.Error
		return nil, &net.DNSError{
			Err:       err.Error(),
			Name:      host,
			Server:    r.server,
			IsTimeout: errors.As(err, &ne) && ne.Timeout() || errors.Is(err, context.DeadlineExceeded),
		}
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		metrics.DNSQueries.WithLabelValues("nxdomain").Inc()
		return nil, notFound(host, r.server)
	default:
		metrics.DNSQueries.WithLabelValues("error").Inc()
		return nil, &net.DNSError{
			Err:         "server replied " + dns.RcodeToString[in.Rcode],
			Name:        host,
			Server:      r.server,
			IsTemporary: in.Rcode == dns.RcodeServerFailure,
		}
	}

	var ips []netip.Addr
	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if ip, ok := netip.AddrFromSlice(a.A); ok {
			ips = append(ips, ip.Unmap())
		}
	}
	if len(ips) == 0 {
		metrics.DNSQueries.WithLabelValues("empty").Inc()
		return nil, notFound(host, r.server)
	}

	metrics.DNSQueries.WithLabelValues("success").Inc()
	return ips, nil
}

func notFound(host, server string) error {
	return &net.DNSError{Err: "no such host", Name: host, Server: server, IsNotFound: true}
}
