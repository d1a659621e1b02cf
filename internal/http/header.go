package http

import "strings"

// Field is a single header line. Name keeps the casing it was given or
// received with.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of header fields, duplicates allowed.
type Header []Field

// Get returns the first value associated with name, case-insensitively.
func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value associated with name, in order.
func (h Header) Values(name string) []string {
	var vv []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			vv = append(vv, f.Value)
		}
	}
	return vv
}

func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (h *Header) Add(name, value string) {
	*h = append(*h, Field{name, value})
}

// Set replaces the first field named name and drops the others. If there is
// no such field, one is appended.
func (h *Header) Set(name, value string) {
	out := (*h)[:0:0]
	set := false
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		} else if !set {
			out = append(out, Field{f.Name, value})
			set = true
		}
	}
	if !set {
		out = append(out, Field{name, value})
	}
	*h = out
}

// Without returns a copy of h with every field matching one of names removed.
func (h Header) Without(names ...string) Header {
	out := make(Header, 0, len(h))
next:
	for _, f := range h {
		for _, n := range names {
			if strings.EqualFold(f.Name, n) {
				continue next
			}
		}
		out = append(out, f)
	}
	return out
}

func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	return append(Header(nil), h...)
}

// HasToken reports whether any comma separated element of the fields named
// name equals token, case-insensitively. e.g. HasToken("Connection", "close")
func (h Header) HasToken(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}
