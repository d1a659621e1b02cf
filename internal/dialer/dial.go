package dialer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/iowait"
)

// DialConn opens a new connection to ep: TCP to the origin or to the proxy,
// the proxy tunnel if any, then TLS for https.
func (d *CoreDialer) DialConn(ctx context.Context, ep Endpoint, w iowait.Waiter) (conn net.Conn, err error) {
	if d.Proxy == nil {
		conn, err = d.dialTCP(ctx, ep.Host, ep.Port, d.ResolveConfig, w)
	} else {
		conn, err = d.dialProxy(ctx, ep, w)
	}
	if err != nil {
		return nil, err
	}
	if ep.Scheme == "https" {
		if conn, err = d.handshake(ctx, conn, ep, w); err != nil {
			return nil, err
		}
	}
	d.log().Debug("dialer: connected",
		zap.String("addr", ep.Addr()), zap.String("scheme", ep.Scheme), zap.Bool("proxied", d.Proxy != nil))
	return conn, nil
}

func (d *CoreDialer) dialTCP(ctx context.Context, host, port string, rc *ResolveConfig, w iowait.Waiter) (net.Conn, error) {
	network, dst := "tcp", net.JoinHostPort(host, port)
	dialer := &net.Dialer{Timeout: d.Timeouts.Connect, KeepAlive: d.KeepAlive}
	dialctx := ctx
	if rc != nil {
		switch rc.Network {
		case "ip4":
			network = "tcp4"
		case "ip6":
			network = "tcp6"
		}
		if static, ok := rc.StaticHosts[host]; ok {
			dst = net.JoinHostPort(static, port)
		}
		if dns := rc.CustomDNSServer; dns != "" {
			dialctx = dnsServerCtx{dialctx, dns}
			dialer.Resolver = &customServerResolver
		}
	}

	var conn net.Conn
	err := w.Wait(ctx, iowait.Connect, func() (err error) {
		conn, err = dialer.DialContext(dialctx, network, dst)
		return err
	}, nil)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, classifyDial(ctx, dst, err)
	}
	return conn, nil
}

func (d *CoreDialer) handshake(ctx context.Context, conn net.Conn, ep Endpoint, w iowait.Waiter) (net.Conn, error) {
	config := d.TLSConfig.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	config.ServerName = ep.Host
	if len(config.NextProtos) == 0 {
		config.NextProtos = []string{"http/1.1"}
	}
	tc := tls.Client(conn, config)

	hctx := ctx
	if t := d.Timeouts.TLSHandshake; t > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	err := w.Wait(ctx, iowait.Handshake, func() error {
		return tc.HandshakeContext(hctx)
	}, func() { conn.Close() })
	if err != nil {
		conn.Close()
		return nil, classifyTLS(ctx, ep.Addr(), err)
	}
	return tc, nil
}

func classifyDial(ctx context.Context, addr string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	kind := errdef.ConnectRefused
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		kind = errdef.ConnectDNSFailure
	case isTimeout(err):
		kind = errdef.ConnectTimeout
	}
	return &errdef.ConnectError{Kind: kind, Addr: addr, Err: err}
}

func classifyTLS(ctx context.Context, addr string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	var (
		verr     *tls.CertificateVerificationError
		hostErr  x509.HostnameError
		authErr  x509.UnknownAuthorityError
		invalErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &hostErr), errors.As(err, &authErr), errors.As(err, &invalErr):
		return &errdef.ConnectError{Kind: errdef.ConnectTLSVerification, Addr: addr, Err: err}
	case isTimeout(err):
		return &errdef.ConnectError{Kind: errdef.ConnectTimeout, Addr: addr, Err: err}
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

var noDeadline time.Time

func setDeadline(c net.Conn, d time.Duration) {
	if d > 0 {
		c.SetDeadline(time.Now().Add(d))
	}
}
