package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/go-h1/internal/http"
	"github.com/frankli0324/go-h1/internal/iowait"
	"github.com/frankli0324/go-h1/utils/netpool"
)

// Dialers handle pretty much everything related to the actual connection,
// including the proxy tunnel, resolvers, TLS and connection reuse.
type Dialer interface {
	// Acquire returns a connection to ep, reusing an idle one when it is
	// fresh and alive.
	Acquire(ctx context.Context, ep Endpoint, w iowait.Waiter) (*netpool.Conn, error)
	// Dial always opens a new connection to ep.
	Dial(ctx context.Context, ep Endpoint, w iowait.Waiter) (*netpool.Conn, error)
	Unwrap() Dialer
}

// Endpoint is the origin a request is sent to, host in canonical ASCII form.
type Endpoint struct {
	Scheme, Host, Port string
}

func EndpointOf(r *http.PreparedRequest) Endpoint {
	return Endpoint{Scheme: r.U.Scheme, Host: r.Hostname(), Port: r.Port()}
}

func (e Endpoint) Addr() string { return net.JoinHostPort(e.Host, e.Port) }

type Timeouts struct {
	Connect      time.Duration // TCP connect, including the proxy handshake
	TLSHandshake time.Duration
	Write        time.Duration
	Read         time.Duration
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use, ServerName is always overridden

	Proxy     *ProxyConfig
	Timeouts  Timeouts
	KeepAlive time.Duration // TCP keep-alive period, negative disables

	ConnPool *netpool.PoolGroup
	Logger   *zap.Logger
}

var _ Dialer = (*CoreDialer)(nil)

func (d *CoreDialer) Acquire(ctx context.Context, ep Endpoint, w iowait.Waiter) (*netpool.Conn, error) {
	return d.ConnPool.Connect(ctx, d.key(ep), d.dialFunc(ep, w))
}

func (d *CoreDialer) Dial(ctx context.Context, ep Endpoint, w iowait.Waiter) (*netpool.Conn, error) {
	return d.ConnPool.ConnectFresh(ctx, d.key(ep), d.dialFunc(ep, w))
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}

func (d *CoreDialer) key(ep Endpoint) netpool.Key {
	return netpool.Key{Scheme: ep.Scheme, Host: ep.Host, Port: ep.Port, Proxy: d.Proxy.Identity()}
}

func (d *CoreDialer) dialFunc(ep Endpoint, w iowait.Waiter) netpool.DialFunc {
	return func(ctx context.Context) (net.Conn, error) {
		return d.DialConn(ctx, ep, w)
	}
}

func (d *CoreDialer) log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
