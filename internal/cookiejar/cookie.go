package cookiejar

import (
	"net"
	"strconv"
	"strings"
	"time"
)

type SameSite int

const (
	SameSiteDefault SameSite = iota
	SameSiteLax
	SameSiteStrict
	SameSiteNone
)

func (s SameSite) String() string {
	switch s {
	case SameSiteLax:
		return "Lax"
	case SameSiteStrict:
		return "Strict"
	case SameSiteNone:
		return "None"
	}
	return ""
}

// Cookie is a stored cookie. Domain is canonical: lower case ASCII without
// a leading dot.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time // zero for a session cookie
	Secure   bool
	HttpOnly bool
	SameSite SameSite

	// HostOnly cookies were set without a Domain attribute and only match
	// Domain exactly.
	HostOnly bool
	Created  time.Time

	seq uint64
}

type key struct {
	domain, path, name string
}

func (c *Cookie) key() key { return key{c.Domain, c.Path, c.Name} }

func (c *Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// String renders the cookie as it appears in a Cookie request header.
func (c *Cookie) String() string { return c.Name + "=" + c.Value }

// setCookie is a parsed Set-Cookie line before the request context decided
// its domain and path.
type setCookie struct {
	name, value string
	domain      string // "" when absent
	path        string // "" when absent or invalid
	maxAge      *int64
	expires     time.Time
	secure      bool
	httpOnly    bool
	sameSite    SameSite
}

// cookie-date layouts seen in the wild, most common first
var expiresLayouts = []string{
	time.RFC1123,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Monday, 02-Jan-06 15:04:05 MST",
	time.ANSIC,
	"Mon, 02 Jan 06 15:04:05 MST",
	"Mon, 02-Jan-06 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

func parseExpires(s string) (time.Time, bool) {
	for _, layout := range expiresLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseSetCookie(line string) (*setCookie, bool) {
	parts := strings.Split(line, ";")
	name, value, ok := strings.Cut(parts[0], "=")
	if !ok {
		return nil, false
	}
	sc := &setCookie{name: strings.TrimSpace(name), value: strings.TrimSpace(value)}
	if sc.name == "" || strings.ContainsAny(sc.name, " \t\"(),/:<=>?@[\\]{}") {
		return nil, false
	}
	for _, attr := range parts[1:] {
		k, v, _ := strings.Cut(attr, "=")
		k, v = strings.ToLower(strings.TrimSpace(k)), strings.TrimSpace(v)
		switch k {
		case "domain":
			v = strings.ToLower(strings.TrimPrefix(v, "."))
			if v != "" {
				sc.domain = v
			}
		case "path":
			if strings.HasPrefix(v, "/") {
				sc.path = v
			} else {
				sc.path = ""
			}
		case "max-age":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				sc.maxAge = &n
			}
		case "expires":
			if t, ok := parseExpires(v); ok {
				sc.expires = t
			}
		case "secure":
			sc.secure = true
		case "httponly":
			sc.httpOnly = true
		case "samesite":
			switch strings.ToLower(v) {
			case "lax":
				sc.sameSite = SameSiteLax
			case "strict":
				sc.sameSite = SameSiteStrict
			case "none":
				sc.sameSite = SameSiteNone
			}
		}
	}
	return sc, true
}

// domainMatch implements RFC 6265 section 5.1.3.
func domainMatch(host, domain string) bool {
	if host == domain {
		return true
	}
	return net.ParseIP(host) == nil && strings.HasSuffix(host, "."+domain)
}

// pathMatch implements RFC 6265 section 5.1.4.
func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

// defaultPath is the directory of the request path.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}
