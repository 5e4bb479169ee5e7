//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package sockopt

import (
	"errors"
	"syscall"
)

const ReusePortSupported = false

func ReusePort(_, _ string, _ syscall.RawConn) error {
	return errors.New("SO_REUSEPORT is not supported on this platform")
}
