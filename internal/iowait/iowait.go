// Package iowait decides how the client waits on I/O. The protocol code
// hands every blocking step (connect, TLS handshake, write, read) to a
// [Waiter]; the two implementations differ only in what the calling
// goroutine does while the step is in flight.
package iowait

import (
	"context"
)

type Phase int

const (
	Connect Phase = iota
	Handshake
	Write
	Read
)

func (p Phase) String() string {
	switch p {
	case Connect:
		return "connect"
	case Handshake:
		return "tls handshake"
	case Write:
		return "write"
	case Read:
		return "read"
	}
	return "unknown"
}

type Waiter interface {
	// Wait performs op, one I/O step of the given phase. abort, when not
	// nil, must make a running op return promptly, typically by closing
	// the connection op works on.
	Wait(ctx context.Context, phase Phase, op func() error, abort func()) error
}

// Blocking runs every step on the calling goroutine. A step is only bounded
// by the deadlines set on the connection; ctx is checked before it starts.
type Blocking struct{}

func (Blocking) Wait(ctx context.Context, _ Phase, op func() error, _ func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return op()
}

// Suspending runs every step on its own goroutine and parks the caller until
// the step completes or ctx is done, whichever comes first. On cancellation
// abort is called and Wait returns only after op did, so the connection is
// never touched by a step that outlived its send.
type Suspending struct{}

func (Suspending) Wait(ctx context.Context, _ Phase, op func() error, abort func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- op() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if abort != nil {
			abort()
		}
		<-done
		return ctx.Err()
	}
}
