// Package resolver turns destination host names into IPv4 addresses, either
// through the system resolver or by querying a configured DNS server.
package resolver

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// Resolver looks up the IPv4 addresses of host.
//
// Failures are reported as *net.DNSError so callers can treat both
// implementations alike.
type Resolver interface {
	LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error)
}

type Config struct {
	// Server is a DNS server as host[:port]. Empty selects the system
	// resolver.
	Server string

	// Timeout bounds a single query, including a TCP retry after a
	// truncated answer.
	Timeout time.Duration
}

// New returns the resolver selected by cfg.
func New(cfg Config) Resolver {
	if cfg.Server == "" {
		return NewSystemResolver()
	}
	return NewDNSResolver(cfg)
}

type systemResolver struct {
	r *net.Resolver
}

// NewSystemResolver returns a Resolver backed by net.DefaultResolver.
func NewSystemResolver() Resolver {
	return &systemResolver{r: net.DefaultResolver}
}

func (s *systemResolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	ips, err := s.r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	for i := range ips {
		ips[i] = ips[i].Unmap()
	}
	return ips, nil
}
