// Package form encodes request payloads: url-encoded forms and multipart
// forms with streamed file parts. Both types implement the client's Body
// interface.
package form

import (
	"bytes"
	"io"
	"net/url"
	"strings"
)

const URLEncodedType = "application/x-www-form-urlencoded"

type Pair struct {
	Name  string
	Value string
}

// Values is an ordered list of form fields. Names may repeat.
type Values []Pair

// URLEncoded percent-encodes every name and value as a query component,
// spaces becoming '+', and joins the pairs with '&'.
func URLEncoded(params Values) []byte {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return []byte(b.String())
}

func (v Values) Encode() string { return string(URLEncoded(v)) }

func (v *Values) Add(name, value string) {
	*v = append(*v, Pair{name, value})
}

func (Values) ContentType() string { return URLEncodedType }
func (v Values) Len() int64        { return int64(len(URLEncoded(v))) }
func (v Values) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(URLEncoded(v))), nil
}

// ParseQuery is the inverse of [URLEncoded], keeping pair order. Pairs
// without '=' get an empty value.
func ParseQuery(s string) (Values, error) {
	var v Values
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, err
		}
		val, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		v = append(v, Pair{n, val})
	}
	return v, nil
}
