package internal

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-h1/internal/config"
	"github.com/frankli0324/go-h1/internal/http"
	"github.com/frankli0324/go-h1/internal/transport"
)

// origin is a loopback HTTP/1.1 server built on the codec's peer half. It
// records every request and answers with whatever handle returns.
type origin struct {
	ln     net.Listener
	handle func(req *transport.IncomingRequest) *http.Response

	mu       sync.Mutex
	requests []*transport.IncomingRequest
	conns    atomic.Int32
	closed   chan struct{}
}

func newOrigin(t *testing.T, handle func(req *transport.IncomingRequest) *http.Response) *origin {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	o := &origin{ln: ln, handle: handle, closed: make(chan struct{}, 64)}
	t.Cleanup(func() { ln.Close() })
	go o.serve()
	return o
}

func (o *origin) serve() {
	for {
		c, err := o.ln.Accept()
		if err != nil {
			return
		}
		o.conns.Add(1)
		go o.serveConn(c)
	}
}

// hangup is a response header telling the origin to drop the connection
// after answering without announcing it.
const hangup = "X-Test-Hangup"

func (o *origin) serveConn(c net.Conn) {
	defer func() {
		c.Close()
		select {
		case o.closed <- struct{}{}:
		default:
		}
	}()
	br := bufio.NewReader(c)
	for {
		req, err := transport.HTTP1{}.ReadRequest(br)
		if err != nil {
			return
		}
		o.mu.Lock()
		o.requests = append(o.requests, req)
		o.mu.Unlock()
		resp := o.handle(req)
		if resp == nil {
			return // hang up without answering
		}
		if err := (transport.HTTP1{}).WriteResponse(c, resp); err != nil {
			return
		}
		if resp.Header.HasToken("Connection", "close") || resp.Header.Has(hangup) {
			return
		}
	}
}

func (o *origin) port() string {
	_, p, _ := net.SplitHostPort(o.ln.Addr().String())
	return p
}

func (o *origin) url(path string) string { return "http://" + o.ln.Addr().String() + path }

func (o *origin) received() []*transport.IncomingRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*transport.IncomingRequest(nil), o.requests...)
}

func reply(status int, body string, fields ...http.Field) *http.Response {
	h := http.Header(fields)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	return &http.Response{StatusCode: status, Reason: "Whatever", Header: h, Body: []byte(body)}
}

func redirectTo(status int, loc string) *http.Response {
	return reply(status, "", http.Field{Name: "Location", Value: loc})
}

// rawOrigin answers one fixed response per connection and hands the raw
// request bytes it read to got.
func rawOrigin(t *testing.T, got chan<- []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				var buf bytes.Buffer
				br := bufio.NewReader(io.TeeReader(c, &buf))
				if _, err := (transport.HTTP1{}).ReadRequest(br); err != nil {
					return
				}
				io.WriteString(c, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok")
				got <- buf.Bytes()
			}()
		}
	}()
	return ln.Addr().String()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.UserAgent = ""
	return cfg
}

func newTestClient(t *testing.T, cfg *config.Config, opts ...Option) *Client {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(c.CloseIdleConnections)
	return c
}
