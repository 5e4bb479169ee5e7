package proxy

import (
	"context"
	"errors"
	"log"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/die-net/socksgate/internal/metrics"
	"github.com/die-net/socksgate/internal/socks5"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// SOCKS5Server accepts SOCKS5 clients, resolves and connects each CONNECT
// target through its Dialer, and relays bytes until both sides are done.
type SOCKS5Server struct {
	ctx     context.Context
	cfg     Config
	verbose bool

	sessions *semaphore.Weighted
	limiter  *rate.Limiter
	nextID   atomic.Uint64
}

func NewSOCKS5Server(ctx context.Context, cfg Config, verbose bool) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &SOCKS5Server{ctx: ctx, cfg: cfg, verbose: verbose}
	if cfg.MaxSessions > 0 {
		s.sessions = semaphore.NewWeighted(cfg.MaxSessions)
	}
	if cfg.AcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), max(cfg.AcceptBurst, 1))
	}

	return s
}

// Serve accepts connections on ln until it is closed, handling each on its
// own goroutine. It returns nil once ln is closed or the server's context is
// done; temporary accept errors are logged and retried with backoff.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			metrics.AcceptErrors.Inc()
			backoff = min(max(2*backoff, minAcceptBackoff), maxAcceptBackoff)
			log.Printf("socks5: accept: %v; retrying in %v", err, backoff)

			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-s.ctx.Done():
				t.Stop()
				return nil
			}
			continue
		}
		backoff = 0

		if !s.admit(c) {
			continue
		}

		go func() {
			defer s.release()
			if err := s.handleConn(c); err != nil && s.verbose {
				log.Printf("socks5: %v", err)
			}
		}()
	}
}

// admit applies the accept rate and session cap without blocking. Rejected
// connections are closed immediately.
func (s *SOCKS5Server) admit(c net.Conn) bool {
	reason := ""
	switch {
	case s.limiter != nil && !s.limiter.Allow():
		reason = "rate"
	case s.sessions != nil && !s.sessions.TryAcquire(1):
		reason = "max_sessions"
	default:
		return true
	}

	metrics.SessionsRejected.WithLabelValues(reason).Inc()
	if s.verbose {
		log.Printf("socks5: rejecting %s: %s", c.RemoteAddr(), reason)
	}
	_ = c.Close()

	return false
}

func (s *SOCKS5Server) release() {
	if s.sessions != nil {
		s.sessions.Release(1)
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn) error {
	metrics.SessionsTotal.Inc()
	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	sess := &session{id: s.nextID.Add(1), client: conn}
	defer sess.close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	if err := socks5.ServerNegotiate(conn); err != nil {
		return sess.wrap("negotiate", err)
	}
	_ = sess.advance(stateAwaitingRequest)

	req, err := socks5.ServerReadRequest(conn)
	if err != nil {
		var rerr *socks5.ReplyError
		if errors.As(err, &rerr) {
			_ = s.reply(conn, rerr.Rep)
		}
		return sess.wrap("request", err)
	}
	sess.target = req.Addr.String()
	_ = sess.advance(stateConnecting)

	// The dialer applies its own timeouts.
	_ = conn.SetDeadline(time.Time{})

	start := time.Now()
	dest, err := s.cfg.Dialer.DialContext(ctx, "tcp", sess.target)
	metrics.ConnectDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		_ = s.reply(conn, socks5.ReplyCode(err))
		return sess.wrap("connect", err)
	}
	sess.dest = dest

	if err := s.reply(conn, socks5.RepSuccess); err != nil {
		return sess.wrap("reply", err)
	}
	_ = sess.advance(stateRelaying)

	if s.verbose {
		log.Printf("socks5: session %d %s -> %s: relaying", sess.id, conn.RemoteAddr(), sess.target)
	}

	err = CopyBidirectional(ctx, conn, dest, RelayConfig{
		IdleTimeout:  s.cfg.IdleTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	})
	if !isBenign(err) {
		return sess.wrap("relay", err)
	}

	return nil
}

// reply writes a CONNECT reply, bounded by the negotiation timeout.
func (s *SOCKS5Server) reply(conn net.Conn, rep byte) error {
	metrics.Replies.WithLabelValues(socks5.RepString(rep)).Inc()

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
		defer func() { _ = conn.SetWriteDeadline(time.Time{}) }()
	}

	return socks5.WriteReply(conn, rep)
}
