package http

import (
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

var DefaultPorts = map[string]string{
	"http": "80", "https": "443", "socks5": "1080",
}

var NoBody = nethttp.NoBody

type PreparedRequest struct {
	*Request

	U          *url.URL
	Header     Header // caller headers without Host and Content-Length
	HeaderHost string

	// Addr is the host:port to dial, with the host in ASCII form.
	Addr string

	ContentLength int64 // -1 when no framing header should be sent
}

// CanonicalHost converts host to the lower-cased ASCII form used for dialing,
// SNI and cookie domain matching.
func CanonicalHost(host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	host = strings.TrimSuffix(host, ".")
	h, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// STD3 rules reject names like "my_host" that resolvers accept
		if isASCII(host) {
			return strings.ToLower(host), nil
		}
		return "", err
	}
	return strings.ToLower(h), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("unsupported protocol scheme: " + u.Scheme)
	}

	host := u.Host
	cl := int64(-1)
	// user defined headers has higher priority
	for _, f := range r.Header {
		if strings.EqualFold(f.Name, "host") && f.Value != "" {
			host = f.Value
		}
		if strings.EqualFold(f.Name, "content-length") {
			if v, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64); err == nil {
				cl = v
			}
		}
	}
	if u.Hostname() == "" || host == "" {
		return nil, url.InvalidHostError("empty host")
	}
	hostname, err := CanonicalHost(u.Hostname())
	if err != nil {
		return nil, err
	}
	port := u.Port()
	if port == "" {
		port = DefaultPorts[u.Scheme]
	}

	pr := &PreparedRequest{
		Request:    r,
		U:          u,
		Header:     r.Header.Without("Host", "Content-Length"),
		HeaderHost: host,
		Addr:       net.JoinHostPort(hostname, port),
	}
	pr.ContentLength = pr.bodyLength()
	if cl == 0 && r.Body == nil {
		pr.ContentLength = 0 // an explicit empty body is still announced
	}
	if cl != -1 && pr.ContentLength != cl {
		return nil, errors.New("conflicting value between body size and content-length request header")
	}
	if r.Body != nil && r.Body.ContentType() != "" && !pr.Header.Has("Content-Type") {
		pr.Header = append(pr.Header.Clone(), Field{"Content-Type", r.Body.ContentType()})
	}
	return pr, nil
}

func (r *PreparedRequest) bodyLength() int64 {
	if r.Body != nil {
		return r.Body.Len()
	}
	switch r.Method {
	case "POST", "PUT", "PATCH":
		return 0
	}
	return -1
}

// GetBody opens a fresh reader over the request body.
func (r *PreparedRequest) GetBody() (io.ReadCloser, error) {
	if r.Body == nil {
		return NoBody, nil
	}
	return r.Body.Open()
}

// Hostname is the ASCII host part of [PreparedRequest.Addr].
func (r *PreparedRequest) Hostname() string {
	h, _, _ := net.SplitHostPort(r.Addr)
	return h
}

func (r *PreparedRequest) Port() string {
	_, p, _ := net.SplitHostPort(r.Addr)
	return p
}

// Version is the protocol version written on the request line.
func (r *PreparedRequest) Version() string {
	if r.Request.Proto == "" {
		return "HTTP/1.1"
	}
	return r.Request.Proto
}
