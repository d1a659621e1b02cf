package dialer

import (
	"github.com/frankli0324/go-h1/internal/dialer"
)

// Dialers hand out connections requests are written to and responses read
// from: a TCP connection to the origin, or a tunnel through an HTTP CONNECT
// or SOCKS5 proxy, with TLS on top for https.
//
// A Dialer holds the connection related configs like [ProxyConfig] or
// *[crypto/tls.Config] and the pool idle connections wait in. Wrapping one
// (see Client.UseDialer) must keep the pool, Unwrap exposes the wrapped one.
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It would
// be used by a zero value Client.
type CoreDialer = dialer.CoreDialer

type Endpoint = dialer.Endpoint
type Timeouts = dialer.Timeouts

// ProxyConfig describes an HTTP CONNECT or SOCKS5 proxy, see [ParseProxy].
type ProxyConfig = dialer.ProxyConfig

var ParseProxy = dialer.ParseProxy

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library didn't provide a intuitive way of
// setting DNS server addresses since it only follows the
// system configuration (e.g. /etc/resolv.conf), leaving us only
// one option of using [net.Resolver.Dial] hook with a Go Resolver.
//
// this part of code tries to take advantage of that
// only option as far as possible to provide a relatively
// intuitive configuration API.
type ResolveConfig = dialer.ResolveConfig
