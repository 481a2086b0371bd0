//go:build !windows

package impl

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SyscallReuseAddr sets SO_REUSEADDR on the raw connection, letting a new
// listener or unicast dialer bind a local address still in TIME_WAIT.
func SyscallReuseAddr(_ string, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// SyscallGetSocketSendQueueSize returns the number of bytes currently
// queued in the socket's send buffer, used to report transport backlog.
func SyscallGetSocketSendQueueSize(c syscall.RawConn) uint64 {
	var size int
	c.Control(func(fd uintptr) {
		size, _ = unix.IoctlGetInt(int(fd), unix.TIOCOUTQ)
	})
	if size < 0 {
		return 0
	}
	return uint64(size)
}
