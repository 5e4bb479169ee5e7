package proxy

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// isBenign reports whether err is an ordinary way for a relay to end and not
// worth logging.
func isBenign(err error) bool {
	return err == nil ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
