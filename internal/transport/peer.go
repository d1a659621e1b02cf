package transport

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/http"
	"github.com/frankli0324/go-h1/internal/transport/chunked"
)

// The other half of the codec: reading requests and writing responses. The
// client never calls these, proxies and origin peers in tests do.

// IncomingRequest is a request as read off the wire.
type IncomingRequest struct {
	Method string
	Target string
	Proto  string
	Header http.Header
	Body   []byte
}

func (t HTTP1) ReadRequest(r *bufio.Reader) (*IncomingRequest, error) {
	lr := &lineReader{r: r}
	line, err := lr.readLine()
	if err != nil {
		return nil, err
	}
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || !strings.HasPrefix(parts[2], "HTTP/") {
		return nil, errdef.Malformed("malformed request line %q", line)
	}
	req := &IncomingRequest{Method: parts[0], Target: parts[1], Proto: parts[2]}
	if req.Header, err = lr.readHeader(); err != nil {
		return nil, err
	}

	if isChunked(req.Header) {
		req.Body, err = io.ReadAll(chunked.NewChunkedReader(r))
		return req, err
	}
	cl, err := contentLength(req.Header)
	if err != nil {
		return nil, err
	}
	if cl > 0 {
		if req.Body, err = readExactly(r, cl); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// WriteResponse writes resp with its header fields verbatim. The body is
// chunk-encoded when the header announces chunked transfer coding, otherwise
// written as-is; keeping Content-Length consistent is up to the caller.
func (t HTTP1) WriteResponse(w io.Writer, resp *http.Response) error {
	bw := bufio.NewWriter(w)
	proto := resp.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	bw.WriteString(proto)
	bw.WriteByte(' ')
	bw.WriteString(strconv.Itoa(resp.StatusCode))
	if resp.Reason != "" {
		bw.WriteByte(' ')
		bw.WriteString(resp.Reason)
	}
	bw.WriteString("\r\n")
	if err := writeHeader(bw, resp.Header); err != nil {
		return err
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if isChunked(resp.Header) {
		cw := chunked.NewChunkedWriter(bw)
		if _, err := cw.Write(resp.Body); err != nil {
			return err
		}
		if err := cw.Close(); err != nil {
			return err
		}
	} else if _, err := bw.Write(resp.Body); err != nil {
		return err
	}
	return bw.Flush()
}
