package form

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Part is one field of a multipart form. The payload is either Data, held in
// memory, or the file at Path whose length was fixed at Size when the part
// was built.
type Part struct {
	Name        string
	Filename    string
	ContentType string

	Data []byte
	Path string
	Size int64
}

func Field(name, value string) Part {
	return Part{Name: name, Data: []byte(value)}
}

// Bytes is an in-memory file part.
func Bytes(name, filename string, data []byte) Part {
	return Part{Name: name, Filename: filename, ContentType: guessType(filename, data), Data: data}
}

// File stats path and returns a part streaming its content. The content
// type is guessed from the extension, then from the leading bytes.
func File(name, path string) (Part, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Part{}, err
	}
	if !fi.Mode().IsRegular() {
		return Part{}, errors.New("form: not a regular file: " + path)
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		if m, err := mimetype.DetectFile(path); err == nil {
			ct = m.String()
		} else {
			ct = "application/octet-stream"
		}
	}
	return Part{
		Name: name, Filename: filepath.Base(path), ContentType: ct,
		Path: path, Size: fi.Size(),
	}, nil
}

func guessType(filename string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}

func (p *Part) isFile() bool { return p.Path != "" }

func (p *Part) payloadLen() int64 {
	if p.isFile() {
		return p.Size
	}
	return int64(len(p.Data))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"", "\r", "%0D", "\n", "%0A")

func (p *Part) header(boundary string) []byte {
	var b bytes.Buffer
	b.WriteString("--")
	b.WriteString(boundary)
	b.WriteString("\r\nContent-Disposition: form-data; name=\"")
	b.WriteString(quoteEscaper.Replace(p.Name))
	b.WriteByte('"')
	if p.Filename != "" {
		b.WriteString("; filename=\"")
		b.WriteString(quoteEscaper.Replace(p.Filename))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	if p.ContentType != "" {
		b.WriteString("Content-Type: ")
		b.WriteString(p.ContentType)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// Multipart is an encoded multipart/form-data body. Its length is computed
// when it is built, file parts are read from disk only while it is written.
type Multipart struct {
	boundary string
	parts    []Part
	heads    [][]byte
	length   int64
}

const maxBoundaryAttempts = 8

// NewMultipart chooses a boundary that occurs in no in-memory payload and no
// part header, and precomputes the framing of every part.
func NewMultipart(parts ...Part) (*Multipart, error) {
	for i := 0; i < maxBoundaryAttempts; i++ {
		b := newBoundary()
		if collides(b, parts) {
			continue
		}
		m := &Multipart{boundary: b, parts: parts, heads: make([][]byte, len(parts))}
		for i := range parts {
			m.heads[i] = parts[i].header(b)
			m.length += int64(len(m.heads[i])) + parts[i].payloadLen() + 2
		}
		m.length += int64(len(m.closing()))
		return m, nil
	}
	return nil, errors.New("form: could not choose a multipart boundary")
}

func newBoundary() string {
	id := uuid.New()
	return "----H1FormBoundary" + strings.ReplaceAll(id.String(), "-", "")
}

func collides(boundary string, parts []Part) bool {
	for i := range parts {
		p := &parts[i]
		if strings.Contains(p.Name, boundary) || strings.Contains(p.Filename, boundary) {
			return true
		}
		if !p.isFile() && bytes.Contains(p.Data, []byte(boundary)) {
			return true
		}
	}
	return false
}

func (m *Multipart) closing() string { return "--" + m.boundary + "--\r\n" }

func (m *Multipart) Boundary() string    { return m.boundary }
func (m *Multipart) Parts() []Part       { return m.parts }
func (m *Multipart) Len() int64          { return m.length }
func (m *Multipart) ContentType() string { return "multipart/form-data; boundary=" + m.boundary }

// Open returns a reader producing the whole body. Files are opened lazily,
// one at a time, and closed as soon as their declared size was read.
func (m *Multipart) Open() (io.ReadCloser, error) {
	rc := &multipartReader{}
	readers := make([]io.Reader, 0, 3*len(m.parts)+1)
	for i := range m.parts {
		p := &m.parts[i]
		readers = append(readers, bytes.NewReader(m.heads[i]))
		if p.isFile() {
			fr := &fileReader{path: p.Path, size: p.Size}
			rc.files = append(rc.files, fr)
			readers = append(readers, fr)
		} else {
			readers = append(readers, bytes.NewReader(p.Data))
		}
		readers = append(readers, strings.NewReader("\r\n"))
	}
	readers = append(readers, strings.NewReader(m.closing()))
	rc.Reader = io.MultiReader(readers...)
	return rc, nil
}

type multipartReader struct {
	io.Reader
	files []*fileReader
}

func (r *multipartReader) Close() error {
	var first error
	for _, f := range r.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fileReader yields exactly size bytes of the file at path. A file that
// shrank since it was measured fails with [io.ErrUnexpectedEOF], growth past
// size is ignored.
type fileReader struct {
	path string
	size int64
	read int64
	f    *os.File
	done bool
}

func (r *fileReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	if rem := r.size - r.read; int64(len(p)) > rem {
		p = p[:rem]
	}
	if r.read == r.size {
		r.Close()
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.f == nil {
		f, err := os.Open(r.path)
		if err != nil {
			return 0, err
		}
		r.f = f
	}
	n, err := r.f.Read(p)
	r.read += int64(n)
	if err == io.EOF {
		if r.read < r.size {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
	}
	if r.read == r.size {
		r.Close()
	}
	return n, err
}

func (r *fileReader) Close() error {
	r.done = true
	if r.f != nil {
		err := r.f.Close()
		r.f = nil
		return err
	}
	return nil
}
