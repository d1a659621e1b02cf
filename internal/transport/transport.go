package transport

import (
	"bufio"
	"io"

	"github.com/frankli0324/go-h1/internal/http"
)

// Transport is the client side of a message codec.
type Transport interface {
	WriteRequest(w io.Writer, r *http.PreparedRequest, keepAlive bool) error
	ReadResponse(r *bufio.Reader, method string) (*http.Response, error)
}
