//go:build unix

package nettools

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// pollReadable polls the descriptor without blocking. An idle HTTP
// connection has nothing to read, so readable means EOF, an error or a
// peer talking out of turn.
func pollReadable(rc syscall.RawConn) (readable, ok bool) {
	err := rc.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, err := unix.Poll(fds, 0)
			if err == unix.EINTR {
				continue
			}
			if err != nil {
				return
			}
			ok = true
			readable = n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
			return
		}
	})
	if err != nil {
		return false, false
	}
	return readable, ok
}
