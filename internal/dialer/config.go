package dialer

import (
	"net"
	"time"

	"github.com/die-net/socksgate/internal/resolver"
)

type Config struct {
	// DialTimeout bounds name resolution plus all connect attempts.
	DialTimeout time.Duration
	// NegotiationTimeout bounds the handshake with an upstream proxy.
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig
	// Resolver resolves destination names. Nil uses the system resolver.
	Resolver resolver.Resolver
}
