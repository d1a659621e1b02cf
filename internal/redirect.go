package internal

import (
	"net/url"

	"github.com/frankli0324/go-h1/internal/config"
	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/http"
)

// nextRequest builds the request a redirect response points to.
//
//	303           GET, body dropped
//	301, 302      POST becomes GET with the body dropped, unless strict
//	307, 308      method and body kept
func nextRequest(prev *http.Request, pr *PreparedRequest, resp *http.Response, rule config.RewriteRule) (*http.Request, error) {
	loc, err := pr.U.Parse(resp.Location())
	if err != nil {
		return nil, errdef.Malformed("invalid Location %q: %v", resp.Location(), err)
	}
	next := &http.Request{
		Method: prev.Method,
		URL:    loc.String(),
		Header: prev.Header.Clone(),
		Body:   prev.Body,
		Proto:  prev.Proto,
	}

	dropBody := false
	switch resp.StatusCode {
	case 303:
		next.Method, dropBody = "GET", true
	case 301, 302:
		if rule != config.RewriteStrict && prev.Method == "POST" {
			next.Method, dropBody = "GET", true
		}
	}
	if dropBody {
		next.Body = nil
		next.Header = next.Header.Without("Content-Type", "Content-Length")
	}
	if !sameHost(pr.U, loc) {
		next.Header = next.Header.Without("Authorization", "Cookie", "Host")
	}
	return next, nil
}

func sameHost(a, b *url.URL) bool {
	ha, err1 := http.CanonicalHost(a.Hostname())
	hb, err2 := http.CanonicalHost(b.Hostname())
	return err1 == nil && err2 == nil && ha == hb
}
