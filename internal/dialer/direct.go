package dialer

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/die-net/socksgate/internal/resolver"
	"github.com/die-net/socksgate/internal/socks5"
)

type directDialer struct {
	cfg      Config
	resolver resolver.Resolver
}

// NewDirectDialer returns a Dialer that connects to destinations itself.
//
// IPv4 literals are dialed as is; IPv6 literals fail with
// socks5.ErrAddressNotSupported. Names are resolved with cfg.Resolver and the
// resulting IPv4 addresses are tried in order until one connects.
func NewDirectDialer(cfg Config) Dialer {
	r := cfg.Resolver
	if r == nil {
		r = resolver.NewSystemResolver()
	}
	return &directDialer{cfg: cfg, resolver: r}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: invalid port: %w", network, address, err)
	}

	if d.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.DialTimeout)
		defer cancel()
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if !ip.Is4() {
			return nil, fmt.Errorf("dial %s %s: %w", network, address, socks5.ErrAddressNotSupported)
		}
		return d.dial(ctx, network, netip.AddrPortFrom(ip, uint16(port)))
	}

	ips, err := d.resolver.LookupNetIP(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	var firstErr error
	attempts := 0
	for _, ip := range ips {
		ip = ip.Unmap()
		if !ip.Is4() {
			continue
		}
		attempts++
		conn, err := d.dial(ctx, network, netip.AddrPortFrom(ip, uint16(port)))
		if err == nil {
			return conn, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}

	if firstErr == nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, &net.DNSError{Err: "no ipv4 address", Name: host, IsNotFound: true})
	}
	// Like net.Dialer, report the first failure; it alone decides the reply
	// code.
	if attempts > 1 {
		return nil, fmt.Errorf("%w (%d more addresses failed)", firstErr, attempts-1)
	}
	return nil, firstErr
}

func (d *directDialer) dial(ctx context.Context, network string, ap netip.AddrPort) (net.Conn, error) {
	var nd net.Dialer

	conn, err := nd.DialContext(ctx, network, ap.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, ap, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	return conn, nil
}
