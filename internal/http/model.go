package http

import (
	"bytes"
	"io"
)

// Body is a request payload. Its length is always known before the first
// byte is written, so requests never need chunked framing.
//
// Open may be called more than once, e.g. when a 307 redirect replays the
// request; every call must yield the same bytes.
type Body interface {
	ContentType() string
	Len() int64
	Open() (io.ReadCloser, error)
}

// Raw is an opaque payload sent as-is. The caller is responsible for the
// Content-Type header.
type Raw []byte

func (Raw) ContentType() string { return "" }
func (b Raw) Len() int64        { return int64(len(b)) }
func (b Raw) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Request is treated as immutable once handed to the client.
type Request struct {
	Method string
	URL    string
	Header Header
	Body   Body   // nil means no body
	Proto  string // defaults to HTTP/1.1
}

type Response struct {
	Proto      string
	Status     string // e.g. "200 OK"
	StatusCode int
	Reason     string
	Header     Header

	ContentLength int64 // -1 when the body was delimited by chunks or close
	Body          []byte

	// Close is set when the peer will not accept another request on the
	// connection the response was read from.
	Close bool
	// URL is the request URL that produced this response, after redirects.
	URL string
}

// Location returns the Location header, "" when absent.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

func IsRedirect(code int) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}
