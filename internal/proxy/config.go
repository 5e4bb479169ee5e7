package proxy

import (
	"time"

	"github.com/die-net/socksgate/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds the greeting and request exchange, and each
	// reply write.
	NegotiationTimeout time.Duration

	// IdleTimeout ends a relay after neither direction has moved data for
	// this long. Zero disables it.
	IdleTimeout time.Duration

	// WriteTimeout bounds each relay write. Zero disables it.
	WriteTimeout time.Duration

	// MaxSessions caps concurrent sessions; connections over the cap are
	// closed on accept. Zero means unlimited.
	MaxSessions int64

	// AcceptRate caps new sessions per second, with bursts of AcceptBurst.
	// Zero means unlimited.
	AcceptRate  float64
	AcceptBurst int

	Dialer dialer.Dialer
}
