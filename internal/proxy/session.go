package proxy

import (
	"fmt"
	"io"
	"net"
	"time"
)

type sessionState int

const (
	stateAwaitingGreeting sessionState = iota
	stateAwaitingRequest
	stateConnecting
	stateRelaying
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingGreeting:
		return "awaiting_greeting"
	case stateAwaitingRequest:
		return "awaiting_request"
	case stateConnecting:
		return "connecting"
	case stateRelaying:
		return "relaying"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// rstAvoidanceDelay bounds how long a failed session drains the client after
// its final reply, so that closing with unread input doesn't reset the
// connection before the client reads the reply.
const rstAvoidanceDelay = 500 * time.Millisecond

// session is one client connection. Only the goroutine serving the client
// touches it.
type session struct {
	id     uint64
	client net.Conn
	dest   net.Conn
	target string
	state  sessionState
}

// advance moves the session forward. States never repeat or go backwards.
func (s *session) advance(next sessionState) error {
	if next <= s.state {
		return fmt.Errorf("session %d: invalid transition %s -> %s", s.id, s.state, next)
	}
	s.state = next
	return nil
}

// close releases both connections and moves the session to stateClosed.
// Calling it again is a no-op.
func (s *session) close() {
	if s.state == stateClosed {
		return
	}
	relaying := s.state == stateRelaying
	_ = s.advance(stateClosed)

	if s.dest != nil {
		_ = s.dest.Close()
	}
	if relaying {
		_ = s.client.Close()
		return
	}
	lingerClose(s.client)
}

// wrap annotates err with the session identity and the stage that failed.
func (s *session) wrap(stage string, err error) error {
	target := s.target
	if target == "" {
		target = "-"
	}
	return fmt.Errorf("session %d %s -> %s: %s: %w", s.id, s.client.RemoteAddr(), target, stage, err)
}

func lingerClose(c net.Conn) {
	defer c.Close()

	cw, ok := c.(interface{ CloseWrite() error })
	if !ok || cw.CloseWrite() != nil {
		return
	}
	_ = c.SetReadDeadline(time.Now().Add(rstAvoidanceDelay))
	_, _ = io.Copy(io.Discard, io.LimitReader(c, 64<<10))
}
