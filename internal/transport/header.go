package transport

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/http"
)

// MaxHeaderBytes bounds the start line plus header section of a message.
const MaxHeaderBytes = 1 << 20

type lineReader struct {
	r    *bufio.Reader
	read int
}

// readLine returns the next line without its line terminator. Lines longer
// than the bufio buffer are stitched together.
func (l *lineReader) readLine() (string, error) {
	var full []byte
	for {
		frag, err := l.r.ReadSlice('\n')
		l.read += len(frag)
		if l.read > MaxHeaderBytes {
			return "", errdef.Malformed("header section exceeds %d bytes", MaxHeaderBytes)
		}
		if err == nil {
			if full != nil {
				frag = append(full, frag...)
			}
			return string(bytes.TrimRight(frag, "\r\n")), nil
		}
		if err != bufio.ErrBufferFull {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return "", errdef.UnexpectedEOF(io.ErrUnexpectedEOF)
			}
			return "", err
		}
		full = append(full, frag...)
	}
}

// readHeader reads header lines up to and including the empty line that
// ends the section. Names keep their casing and order; obsolete line folding
// is joined into the previous value with a single space.
func (l *lineReader) readHeader() (http.Header, error) {
	var h http.Header
	for {
		line, err := l.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			return h, nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(h) == 0 {
				return nil, errdef.Malformed("leading continuation line %q", line)
			}
			last := &h[len(h)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !httpguts.ValidHeaderFieldName(name) {
			return nil, errdef.Malformed("invalid header line %q", line)
		}
		value = strings.Trim(value, " \t")
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, errdef.Malformed("invalid value for header %q", name)
		}
		h = append(h, http.Field{Name: name, Value: value})
	}
}

func writeHeader(w *bufio.Writer, h http.Header) error {
	for _, f := range h {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return errdef.Malformed("invalid header field name %q", f.Name)
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return errdef.Malformed("invalid header field value for %q", f.Name)
		}
		w.WriteString(f.Name)
		w.WriteString(": ")
		w.WriteString(f.Value)
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	return nil
}
