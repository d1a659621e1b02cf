package netpool

import (
	"bufio"
	"net"
	"sync/atomic"
	"time"
)

const (
	stateActive int32 = iota
	stateDone
)

// Conn is a connection checked out of a [Pool]. It is owned by exactly one
// caller until Release or Close hands it back.
type Conn struct {
	net.Conn
	// Reader buffers the response side. It lives as long as the
	// connection so bytes read ahead are never lost between requests.
	Reader *bufio.Reader

	pool     *Pool
	reused   bool
	lastIdle time.Time
	state    atomic.Int32
}

func newConn(p *Pool, c net.Conn) *Conn {
	return &Conn{Conn: c, Reader: bufio.NewReader(c), pool: p}
}

// Reused reports whether the connection already carried a request before
// this checkout.
func (c *Conn) Reused() bool { return c.reused }

func (c *Conn) Raw() net.Conn { return c.Conn }

func (c *Conn) Key() Key { return c.pool.key }

// Release returns a connection whose last response was fully read and that
// the peer did not ask to close.
func (c *Conn) Release() {
	if c.state.CompareAndSwap(stateActive, stateDone) {
		c.pool.put(c)
	}
}

// Close closes the connection for good. It does nothing once the
// connection was handed back.
func (c *Conn) Close() error {
	if !c.state.CompareAndSwap(stateActive, stateDone) {
		return nil
	}
	defer c.pool.free()
	return c.Conn.Close()
}
