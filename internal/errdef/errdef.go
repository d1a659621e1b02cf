// Package errdef holds the error taxonomy of the client. Every failure of a
// send reaches the caller as one *[SendError] whose chain carries the
// lower-layer error unchanged.
package errdef

import (
	"errors"
	"fmt"
)

type ConnectKind string

const (
	ConnectTimeout         ConnectKind = "timeout"
	ConnectRefused         ConnectKind = "refused"
	ConnectDNSFailure      ConnectKind = "dns failure"
	ConnectTLSVerification ConnectKind = "tls verification"
)

type ConnectError struct {
	Kind ConnectKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Kind, e.Err)
	}
	return fmt.Sprintf("connect %s: %s", e.Addr, e.Kind)
}

func (e *ConnectError) Unwrap() error { return e.Err }

type ProxyKind string

const (
	ProxyRejected      ProxyKind = "rejected"
	ProxySocksRejected ProxyKind = "socks rejected"
	ProxyAuthFailed    ProxyKind = "auth failed"
)

type ProxyError struct {
	Kind   ProxyKind
	Status int  // HTTP status of a rejected CONNECT
	Code   byte // SOCKS5 reply code
	Err    error
}

func (e *ProxyError) Error() string {
	msg := "proxy: " + string(e.Kind)
	switch e.Kind {
	case ProxyRejected:
		msg += fmt.Sprintf(" (status %d)", e.Status)
	case ProxySocksRejected:
		msg += fmt.Sprintf(" (code %#02x: %s)", e.Code, socksReplyText(e.Code))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProxyError) Unwrap() error { return e.Err }

func socksReplyText(code byte) string {
	switch code {
	case 0x01:
		return "general failure"
	case 0x02:
		return "connection not allowed by ruleset"
	case 0x03:
		return "network unreachable"
	case 0x04:
		return "host unreachable"
	case 0x05:
		return "connection refused"
	case 0x06:
		return "TTL expired"
	case 0x07:
		return "command not supported"
	case 0x08:
		return "address type not supported"
	}
	return "unknown"
}

type ParseKind string

const (
	ParseMalformed     ParseKind = "malformed"
	ParseUnexpectedEOF ParseKind = "unexpected eof"
)

type ParseError struct {
	Kind ParseKind
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := "parse: " + string(e.Kind)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func Malformed(format string, args ...any) error {
	return &ParseError{Kind: ParseMalformed, Msg: fmt.Sprintf(format, args...)}
}

func UnexpectedEOF(err error) error {
	return &ParseError{Kind: ParseUnexpectedEOF, Err: err}
}

type SendKind string

const (
	SendTooManyRedirects SendKind = "too many redirects"
	SendTimeout          SendKind = "timeout"
	SendConnect          SendKind = "connect"
	SendProxy            SendKind = "proxy"
	SendParse            SendKind = "parse"
	SendIo               SendKind = "io"
)

type SendError struct {
	Kind SendKind
	Err  error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return "send: " + string(e.Kind)
	}
	return "send: " + string(e.Kind) + ": " + e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }

// Timeout is implemented so *SendError satisfies [net.Error] checks callers
// already have.
func (e *SendError) Timeout() bool { return e.Kind == SendTimeout }

// Send classifies err into a *SendError. It returns nil for nil and err itself
// when it is already a *SendError.
func Send(err error) error {
	if err == nil {
		return nil
	}
	var se *SendError
	if errors.As(err, &se) {
		return err
	}
	var (
		ce *ConnectError
		pe *ProxyError
		pa *ParseError
	)
	switch {
	case IsTimeout(err):
		return &SendError{Kind: SendTimeout, Err: err}
	case errors.As(err, &ce):
		return &SendError{Kind: SendConnect, Err: err}
	case errors.As(err, &pe):
		return &SendError{Kind: SendProxy, Err: err}
	case errors.As(err, &pa):
		return &SendError{Kind: SendParse, Err: err}
	}
	return &SendError{Kind: SendIo, Err: err}
}

// IsTimeout reports whether a phase deadline was exceeded somewhere in err's
// chain. Context expiry counts, cancellation does not.
func IsTimeout(err error) bool {
	var ce *ConnectError
	if errors.As(err, &ce) && ce.Kind == ConnectTimeout {
		return true
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	return false
}

// SendKindOf returns the kind of the *SendError in err's chain, "" if none.
func SendKindOf(err error) SendKind {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
