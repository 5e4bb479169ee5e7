//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package sockopt

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// ReusePortSupported is true where ReusePort can succeed.
const ReusePortSupported = true

// ReusePort is a net.ListenConfig Control function enabling SO_REUSEADDR and
// SO_REUSEPORT on the socket before it is bound.
func ReusePort(_, _ string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if ctrlErr != nil {
			return
		}
		ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}
