package internal

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/go-h1/internal/dialer"
	"github.com/frankli0324/go-h1/internal/http"
	"github.com/frankli0324/go-h1/internal/iowait"
	"github.com/frankli0324/go-h1/utils/netpool"
)

// exchange is the innermost handler: acquire, write, read, and hand the
// connection back. A reused connection that turns out to be dead before
// any response byte arrived is replaced once by a fresh one.
func (c *Client) exchange(ctx context.Context, pr *PreparedRequest) (*http.Response, error) {
	w := waiterFrom(ctx)
	ep := dialer.EndpointOf(pr)
	conn, err := c.dialer.Acquire(ctx, ep, w)
	if err != nil {
		return nil, err
	}
	resp, err := c.roundTrip(ctx, conn, pr, w)
	var te *transmitError
	if errors.As(err, &te) && conn.Reused() && isReset(te.err) && ctx.Err() == nil {
		c.log.Debug("client: retrying on a fresh connection",
			zap.Stringer("key", conn.Key()), zap.Error(te.err))
		if conn, err = c.dialer.Dial(ctx, ep, w); err != nil {
			return nil, err
		}
		resp, err = c.roundTrip(ctx, conn, pr, w)
	}
	if errors.As(err, &te) {
		err = te.err
	}
	return resp, err
}

// transmitError marks a connection failure before the first response byte
// was read.
type transmitError struct{ err error }

func (e *transmitError) Error() string { return e.err.Error() }
func (e *transmitError) Unwrap() error { return e.err }

// connWriter remembers whether a write to the connection itself failed.
type connWriter struct {
	w   io.Writer
	err error
}

func (cw *connWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if err != nil && cw.err == nil {
		cw.err = err
	}
	return n, err
}

func isReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// roundTrip owns conn: it is released to the pool only after a complete
// response that allows reuse, and closed in every other case. A switched
// connection no longer speaks HTTP/1.1 and is never reused.
func (c *Client) roundTrip(ctx context.Context, conn *netpool.Conn, pr *PreparedRequest, w iowait.Waiter) (resp *http.Response, err error) {
	keepAlive := c.cfg.KeepAlive
	defer func() {
		if err != nil || resp.Close || resp.StatusCode == 101 || !keepAlive {
			conn.Close()
		} else {
			conn.Release()
		}
	}()
	abort := func() { conn.Raw().Close() }
	timeouts := c.cfg.Timeouts

	setPhaseDeadline(conn.SetWriteDeadline, timeouts.Write.Std())
	err = w.Wait(ctx, iowait.Write, func() error {
		cw := &connWriter{w: conn}
		if err := c.transport.WriteRequest(cw, pr, keepAlive); err != nil {
			if cw.err != nil {
				return &transmitError{err}
			}
			return err // the body source failed, not the connection
		}
		return nil
	}, abort)
	if err != nil {
		return nil, err
	}
	conn.SetWriteDeadline(noDeadline)

	setPhaseDeadline(conn.SetReadDeadline, timeouts.Read.Std())
	err = w.Wait(ctx, iowait.Read, func() (err error) {
		if _, err := conn.Reader.Peek(1); err != nil {
			return &transmitError{err}
		}
		resp, err = c.transport.ReadResponse(conn.Reader, pr.Method)
		return err
	}, abort)
	if err != nil {
		return nil, err
	}
	conn.SetReadDeadline(noDeadline)
	return resp, nil
}

func setPhaseDeadline(set func(time.Time) error, d time.Duration) {
	if d > 0 {
		set(time.Now().Add(d))
	} else {
		set(noDeadline)
	}
}
