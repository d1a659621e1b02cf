package chunked

import (
	"bufio"
	"bytes"
	"io"

	"github.com/frankli0324/go-h1/internal/errdef"
)

const maxLineLength = 4096

// NewChunkedReader decodes a chunked body. The returned reader reports
// [io.EOF] only after the terminating chunk and its trailer section were
// consumed, leaving r positioned at the next message.
func NewChunkedReader(r io.Reader) io.Reader {
	var br *bufio.Reader
	if v, ok := r.(*bufio.Reader); ok {
		br = v
	} else {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{Reader: br}
}

type chunkedReader struct {
	*bufio.Reader
	remaining int64 // bytes left in the current chunk
	inChunk   bool
	done      bool
}

func (c *chunkedReader) readLine() ([]byte, error) {
	line, err := c.ReadSlice('\n')
	if err == bufio.ErrBufferFull || len(line) > maxLineLength {
		return nil, errdef.Malformed("chunk header line too long")
	}
	if err != nil {
		return nil, eof(err)
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (c *chunkedReader) readChunkHeader() (length uint64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i] // chunk extensions are ignored
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return 0, errdef.Malformed("empty chunk length")
	}
	if len(line) > 16 {
		return 0, errdef.Malformed("http chunk length too large")
	}
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errdef.Malformed("invalid byte in chunk length")
		}
		length <<= 4
		length |= uint64(b)
	}
	if length > 1<<62 {
		return 0, errdef.Malformed("http chunk length too large")
	}
	return length, nil
}

// skipTrailers discards the trailer section after the last chunk.
func (c *chunkedReader) skipTrailers() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.done {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if !c.inChunk {
		l, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if l == 0 {
			if err := c.skipTrailers(); err != nil {
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.remaining, c.inChunk = int64(l), true
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err = c.Reader.Read(p)
	c.remaining -= int64(n)
	if err != nil {
		return n, eof(err)
	}
	if c.remaining == 0 {
		var crlf [2]byte
		if _, err := io.ReadFull(c.Reader, crlf[:]); err != nil {
			return n, eof(err)
		}
		dr, dn := crlf[0], crlf[1]
		if dr != '\r' || dn != '\n' {
			return n, errdef.Malformed("malformed chunked encoding")
		}
		c.inChunk = false
	}
	return n, nil
}

// eof reports a stream cut short as a parse error and passes transport
// failures through untouched.
func eof(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errdef.UnexpectedEOF(io.ErrUnexpectedEOF)
	}
	return err
}
