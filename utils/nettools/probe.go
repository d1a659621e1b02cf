// Package nettools answers one question about an idle connection: can it
// still carry a request?
package nettools

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"
	"syscall"
	"time"
)

// how long a peek waits for the peer before declaring the connection quiet
const probeWait = time.Millisecond

// Alive reports whether an idle connection looks reusable: nothing is
// buffered, the peer has not closed its side and sent nothing unsolicited.
// br is the reader responses on c are parsed from, it may be nil.
func Alive(c net.Conn, br *bufio.Reader) bool {
	if br != nil && br.Buffered() > 0 {
		return false
	}
	// a TLS peer may legitimately send records (session tickets, alerts)
	// that leave the socket readable, so those go through the record layer
	if _, ok := c.(*tls.Conn); !ok {
		if rc := rawConn(c); rc != nil {
			if readable, ok := pollReadable(rc); ok {
				return !readable
			}
		}
	}
	return peekAlive(c, br)
}

func peekAlive(c net.Conn, br *bufio.Reader) bool {
	if err := c.SetReadDeadline(time.Now().Add(probeWait)); err != nil {
		return false
	}
	defer c.SetReadDeadline(time.Time{})
	var err error
	if br != nil {
		_, err = br.Peek(1)
	} else {
		_, err = c.Read(make([]byte, 1))
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func rawConn(c net.Conn) syscall.RawConn {
	if t, ok := c.(interface{ NetConn() net.Conn }); ok {
		c = t.NetConn()
	}
	if sc, ok := c.(syscall.Conn); ok {
		if rc, err := sc.SyscallConn(); err == nil {
			return rc
		}
	}
	return nil
}
