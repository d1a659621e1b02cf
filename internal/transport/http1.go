package transport

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/http"
	"github.com/frankli0324/go-h1/internal/transport/chunked"
)

// body bytes are copied to the wire in chunks of this size
const copyBufferSize = 32 << 10

type HTTP1 struct{}

var _ Transport = HTTP1{}

// WriteRequest writes an http 1.1 request: the request line, Host, the
// framing header, Connection, the caller's headers in their original order
// and casing, a blank line and the body. e.g.:
//
//	POST /upload HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	Content-Length: 5\r\n
//	Connection: keep-alive\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
//	hello
func (t HTTP1) WriteRequest(w io.Writer, r *http.PreparedRequest, keepAlive bool) error {
	body, err := r.GetBody() // can write body
	if err != nil {
		return err
	}
	defer body.Close() // request body is ALWAYS closed

	if !httpguts.ValidHeaderFieldName(r.Method) {
		return errdef.Malformed("invalid method %q", r.Method)
	}
	bw := bufio.NewWriterSize(w, 4096)

	bw.WriteString(r.Method)
	bw.WriteByte(' ')
	bw.WriteString(requestTarget(r))
	bw.WriteByte(' ')
	bw.WriteString(r.Version())
	bw.WriteString("\r\n")

	bw.WriteString("Host: ")
	bw.WriteString(r.HeaderHost)
	bw.WriteString("\r\n")
	if r.ContentLength != -1 {
		bw.WriteString("Content-Length: ")
		bw.WriteString(strconv.FormatInt(r.ContentLength, 10))
		bw.WriteString("\r\n")
	}
	if keepAlive {
		bw.WriteString("Connection: keep-alive\r\n")
	} else {
		bw.WriteString("Connection: close\r\n")
	}
	if err := writeHeader(bw, r.Header.Without("Connection")); err != nil {
		return err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}

	if r.ContentLength > 0 {
		n, err := io.CopyBuffer(bw, io.LimitReader(body, r.ContentLength), make([]byte, copyBufferSize))
		if err != nil {
			return err
		}
		if n != r.ContentLength {
			return io.ErrUnexpectedEOF
		}
	}
	return bw.Flush()
}

func requestTarget(r *http.PreparedRequest) string {
	if r.Method == "CONNECT" {
		return r.U.Host
	}
	return r.U.RequestURI()
}

// ReadResponse reads one response from r. method is the method of the
// request it answers, which decides whether a body may follow. Interim 1xx
// responses other than 101 are skipped.
func (t HTTP1) ReadResponse(r *bufio.Reader, method string) (*http.Response, error) {
	for {
		resp, err := t.readResponse(r, method)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 || resp.StatusCode == 101 {
			return resp, nil
		}
	}
}

func (t HTTP1) readResponse(r *bufio.Reader, method string) (*http.Response, error) {
	lr := &lineReader{r: r}
	line, err := lr.readLine()
	if err != nil {
		return nil, err
	}
	resp := &http.Response{}
	if err := parseStatusLine(line, resp); err != nil {
		return nil, err
	}
	if resp.Header, err = lr.readHeader(); err != nil {
		return nil, err
	}

	resp.Close = shouldClose(resp.Proto, resp.Header)
	if resp.StatusCode < 200 {
		resp.ContentLength = 0
		return resp, nil
	}
	if method == "CONNECT" && resp.StatusCode/100 != 2 {
		// a refused tunnel's body is never read; the connection is done
		resp.Close = true
	}
	if err := t.readTransfer(r, resp, bodyAllowed(method, resp.StatusCode)); err != nil {
		return nil, err
	}
	return resp, nil
}

func parseStatusLine(line string, resp *http.Response) error {
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return errdef.Malformed("malformed HTTP response %q", line)
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, reason, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errdef.Malformed("malformed HTTP status code %q", statusCode)
	}
	code, err := strconv.Atoi(statusCode)
	if err != nil || code < 100 {
		return errdef.Malformed("malformed HTTP status code %q", statusCode)
	}
	resp.StatusCode, resp.Reason = code, reason
	return nil
}

func bodyAllowed(method string, status int) bool {
	switch {
	case method == "HEAD":
		return false
	case method == "CONNECT":
		return false
	case status == 204 || status == 304:
		return false
	}
	return true
}

func shouldClose(proto string, h http.Header) bool {
	if h.HasToken("Connection", "close") {
		return true
	}
	if proto == "HTTP/1.0" {
		return !h.HasToken("Connection", "keep-alive")
	}
	return false
}

func isChunked(h http.Header) bool {
	te := h.Values("Transfer-Encoding")
	if len(te) == 0 {
		return false
	}
	codings := strings.Split(te[len(te)-1], ",")
	return strings.EqualFold(strings.TrimSpace(codings[len(codings)-1]), "chunked")
}

// contentLength returns the declared body length, -1 when absent.
func contentLength(h http.Header) (int64, error) {
	contentLens := h.Values("Content-Length")
	if len(contentLens) == 0 {
		return -1, nil
	}
	// Hardening against HTTP request smuggling, taken from standard library
	// Per RFC 7230 Section 3.3.2
	first := strings.TrimSpace(contentLens[0])
	for _, ct := range contentLens[1:] {
		if first != strings.TrimSpace(ct) {
			return 0, errdef.Malformed("message cannot contain multiple Content-Length headers; got %q", contentLens)
		}
	}
	n, err := strconv.ParseUint(first, 10, 63)
	if err != nil {
		return 0, errdef.Malformed("bad Content-Length %q", first)
	}
	return int64(n), nil
}

func (t HTTP1) readTransfer(r *bufio.Reader, resp *http.Response, hasBody bool) error {
	if !hasBody {
		resp.ContentLength = 0
		return nil
	}
	switch {
	case isChunked(resp.Header):
		resp.ContentLength = -1
		body, err := io.ReadAll(chunked.NewChunkedReader(r))
		if err != nil {
			return err
		}
		resp.Body = body
		return nil
	case resp.Header.Has("Transfer-Encoding"):
		// a non-chunked final coding is delimited by close
	default:
		cl, err := contentLength(resp.Header)
		if err != nil {
			return err
		}
		if cl >= 0 {
			resp.ContentLength = cl
			body, err := readExactly(r, cl)
			if err != nil {
				return err
			}
			resp.Body = body
			return nil
		}
	}

	resp.ContentLength = -1
	resp.Close = true
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	resp.Body = body
	return nil
}

// readExactly grows the result as bytes arrive rather than trusting n for
// the allocation size.
func readExactly(r io.Reader, n int64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, r, n)
	if got < n {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, errdef.UnexpectedEOF(io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}
