package dialer

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
)

type ResolveConfig struct {
	CustomDNSServer string            // host:port of a DNS server to ask instead of the system's
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	hosts := make(map[string]string, len(c.StaticHosts))
	for k, v := range c.StaticHosts {
		hosts[k] = v
	}
	return &ResolveConfig{
		CustomDNSServer: c.CustomDNSServer,
		Network:         c.Network,
		StaticHosts:     hosts,
	}
}

// Merge fills the fields c leaves empty from fallback.
func (c *ResolveConfig) Merge(fallback *ResolveConfig) *ResolveConfig {
	if fallback == nil {
		return c
	}
	if c == nil {
		return fallback
	}
	m := c.Clone()
	if m.CustomDNSServer == "" {
		m.CustomDNSServer = fallback.CustomDNSServer
	}
	if m.Network == "" {
		m.Network = fallback.Network
	}
	for k, v := range fallback.StaticHosts {
		if _, ok := m.StaticHosts[k]; !ok {
			m.StaticHosts[k] = v
		}
	}
	return m
}

// this type should not be used outside this file.
// prevents non-custom DNS server contexts to iterate through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer to any object, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return d.DialContext(ctx, network, v)
		}
		return d.DialContext(ctx, network, address)
	},
}

// resolve turns host into one IP address, honoring static hosts.
func (d *CoreDialer) resolve(ctx context.Context, cfg *ResolveConfig, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	if cfg != nil {
		if static, ok := cfg.StaticHosts[host]; ok {
			return static, nil
		}
	}
	ips, err := d.lookup(ctx, cfg, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return ips[rand.IntN(len(ips))].String(), nil
}

func (d *CoreDialer) lookup(ctx context.Context, cfg *ResolveConfig, host string) (result []net.IP, err error) {
	if cfg == nil {
		return d.LookupIPServer(ctx, "ip", host, "")
	}
	network := cfg.Network
	if network == "" {
		network = "ip"
	}
	return d.LookupIPServer(ctx, network, host, cfg.CustomDNSServer)
}

// LookupIPServer performs DNS lookup for a host on a custom dns server,
// it calls [net.Resolver.LookupIP] with a Go Resolver behind the scenes.
// An empty dns asks the system configured servers.
func (d *CoreDialer) LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	if host == "" {
		return nil, errors.New("lookup: empty host")
	}
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}
