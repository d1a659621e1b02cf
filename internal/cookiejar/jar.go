// Package cookiejar is a concurrency-safe RFC 6265 cookie store with
// Netscape cookies.txt persistence.
package cookiejar

import (
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/frankli0324/go-h1/internal/http"
)

type Jar struct {
	mu      sync.RWMutex
	entries map[key]*Cookie
	seq     uint64

	now func() time.Time
	log *zap.Logger
}

type Option func(*Jar)

func WithLogger(l *zap.Logger) Option {
	return func(j *Jar) { j.log = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(j *Jar) { j.now = now }
}

func New(opts ...Option) *Jar {
	j := &Jar{
		entries: map[key]*Cookie{},
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Ingest stores the cookies set by resp, which answered a request for u.
func (j *Jar) Ingest(resp *http.Response, u *url.URL) {
	j.SetCookies(u, resp.Header.Values("Set-Cookie"))
}

// SetCookies applies Set-Cookie header values received from u.
func (j *Jar) SetCookies(u *url.URL, lines []string) {
	if len(lines) == 0 {
		return
	}
	host, err := http.CanonicalHost(u.Hostname())
	if err != nil || host == "" {
		return
	}
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, line := range lines {
		sc, ok := parseSetCookie(line)
		if !ok {
			j.log.Debug("cookiejar: unparsable set-cookie", zap.String("host", host), zap.String("line", line))
			continue
		}
		c, ok := j.resolve(sc, host, u.EscapedPath(), now)
		if !ok {
			continue
		}
		if c.expired(now) {
			delete(j.entries, c.key())
			continue
		}
		c.Created = now
		j.put(c)
	}
}

// resolve applies the domain and path rules for a cookie received from host.
func (j *Jar) resolve(sc *setCookie, host, reqPath string, now time.Time) (*Cookie, bool) {
	c := &Cookie{
		Name: sc.name, Value: sc.value, Path: sc.path,
		Secure: sc.secure, HttpOnly: sc.httpOnly, SameSite: sc.sameSite,
	}
	if c.Path == "" {
		c.Path = defaultPath(reqPath)
	}
	switch {
	case sc.maxAge != nil && *sc.maxAge <= 0:
		c.Expires = time.Unix(1, 0)
	case sc.maxAge != nil:
		c.Expires = now.Add(time.Duration(*sc.maxAge) * time.Second)
	default:
		c.Expires = sc.expires
	}

	if sc.domain == "" {
		c.Domain, c.HostOnly = host, true
		return c, true
	}
	domain, err := http.CanonicalHost(sc.domain)
	if err != nil {
		return nil, false
	}
	if net.ParseIP(host) != nil {
		if domain != host {
			j.log.Debug("cookiejar: domain attribute on ip host", zap.String("host", host), zap.String("domain", domain))
			return nil, false
		}
		c.Domain, c.HostOnly = host, true
		return c, true
	}
	// a public suffix is only acceptable as the exact request host, and then
	// the cookie degrades to host-only
	if ps, _ := publicsuffix.PublicSuffix(domain); ps == domain {
		if domain != host {
			j.log.Debug("cookiejar: domain is a public suffix", zap.String("host", host), zap.String("domain", domain))
			return nil, false
		}
		c.Domain, c.HostOnly = host, true
		return c, true
	}
	if !domainMatch(host, domain) {
		j.log.Debug("cookiejar: domain does not match host", zap.String("host", host), zap.String("domain", domain))
		return nil, false
	}
	c.Domain = domain
	return c, true
}

// Select returns the cookies to send to u: longer paths first, then earlier
// creation.
func (j *Jar) Select(u *url.URL) []Cookie {
	host, err := http.CanonicalHost(u.Hostname())
	if err != nil || host == "" {
		return nil
	}
	reqPath := u.EscapedPath()
	if reqPath == "" {
		reqPath = "/"
	}
	secure := u.Scheme == "https" || u.Scheme == "wss"
	now := j.now()

	j.mu.RLock()
	var selected []Cookie
	for _, c := range j.entries {
		if c.HostOnly {
			if host != c.Domain {
				continue
			}
		} else if !domainMatch(host, c.Domain) {
			continue
		}
		if !pathMatch(reqPath, c.Path) || (c.Secure && !secure) || c.expired(now) {
			continue
		}
		selected = append(selected, *c)
	}
	j.mu.RUnlock()

	sort.Slice(selected, func(a, b int) bool {
		ca, cb := &selected[a], &selected[b]
		if len(ca.Path) != len(cb.Path) {
			return len(ca.Path) > len(cb.Path)
		}
		if !ca.Created.Equal(cb.Created) {
			return ca.Created.Before(cb.Created)
		}
		return ca.seq < cb.seq
	})
	return selected
}

// Header renders the Cookie request header value for u, "" if none match.
func (j *Jar) Header(u *url.URL) string {
	cc := j.Select(u)
	if len(cc) == 0 {
		return ""
	}
	parts := make([]string, len(cc))
	for i := range cc {
		parts[i] = cc[i].String()
	}
	return strings.Join(parts, "; ")
}

// Set stores c as is. Domain is canonicalised and Path defaults to "/".
func (j *Jar) Set(c Cookie) {
	c.Domain = strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	if c.Path == "" {
		c.Path = "/"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.put(&c)
}

// put must be called with mu held.
func (j *Jar) put(c *Cookie) {
	k := c.key()
	if old, ok := j.entries[k]; ok {
		c.Created, c.seq = old.Created, old.seq
	} else {
		j.seq++
		c.seq = j.seq
		if c.Created.IsZero() {
			c.Created = j.now()
		}
	}
	j.entries[k] = c
}

func (j *Jar) Get(domain, path, name string) (Cookie, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	c, ok := j.entries[key{strings.ToLower(strings.TrimPrefix(domain, ".")), path, name}]
	if !ok || c.expired(j.now()) {
		return Cookie{}, false
	}
	return *c, true
}

func (j *Jar) Delete(domain, path, name string) {
	j.mu.Lock()
	delete(j.entries, key{strings.ToLower(strings.TrimPrefix(domain, ".")), path, name})
	j.mu.Unlock()
}

func (j *Jar) Clear() {
	j.mu.Lock()
	j.entries = map[key]*Cookie{}
	j.mu.Unlock()
}

// All returns the live cookies in creation order.
func (j *Jar) All() []Cookie {
	now := j.now()
	j.mu.RLock()
	all := make([]Cookie, 0, len(j.entries))
	for _, c := range j.entries {
		if !c.expired(now) {
			all = append(all, *c)
		}
	}
	j.mu.RUnlock()
	sort.Slice(all, func(a, b int) bool { return all[a].seq < all[b].seq })
	return all
}

func (j *Jar) Len() int {
	return len(j.All())
}
