package form_test

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-h1/internal/form"
)

func TestURLEncoded(t *testing.T) {
	v := form.Values{{"q", "a b&c"}, {"name", "Zoë"}, {"q", "=/"}}
	assert.Equal(t, "q=a+b%26c&name=Zo%C3%AB&q=%3D%2F", string(form.URLEncoded(v)))
	assert.Equal(t, form.URLEncodedType, v.ContentType())
	assert.EqualValues(t, len(v.Encode()), v.Len())

	back, err := form.ParseQuery(v.Encode())
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestParseQueryLoose(t *testing.T) {
	v, err := form.ParseQuery("a=1&&flag&b=")
	require.NoError(t, err)
	assert.Equal(t, form.Values{{"a", "1"}, {"flag", ""}, {"b", ""}}, v)

	_, err = form.ParseQuery("bad=%zz")
	assert.Error(t, err)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func readAll(t *testing.T, m *form.Multipart) []byte {
	t.Helper()
	rc, err := m.Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func TestMultipartLengthOneFile(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 10000) // larger than any copy buffer
	path := writeFile(t, "report.txt", content)
	part, err := form.File("upload", path)
	require.NoError(t, err)
	assert.EqualValues(t, len(content), part.Size)
	assert.Equal(t, "report.txt", part.Filename)

	m, err := form.NewMultipart(part)
	require.NoError(t, err)

	b := m.Boundary()
	overhead := len("--"+b+"\r\n") +
		len(`Content-Disposition: form-data; name="upload"; filename="report.txt"`+"\r\n") +
		len("Content-Type: "+part.ContentType+"\r\n") +
		len("\r\n") + // end of part header
		len("\r\n") + // after payload
		len("--"+b+"--\r\n")
	assert.EqualValues(t, len(content)+overhead, m.Len())

	body := readAll(t, m)
	assert.EqualValues(t, m.Len(), len(body))
}

func TestMultipartParsesBack(t *testing.T) {
	path := writeFile(t, "pic.png", []byte("\x89PNG\r\n\x1a\nrest"))
	file, err := form.File("image", path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", file.ContentType)

	m, err := form.NewMultipart(
		form.Field("title", "hello world"),
		file,
		form.Bytes("notes", "notes.json", []byte(`{"a":1}`)),
	)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(m.ContentType())
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	assert.Equal(t, m.Boundary(), params["boundary"])

	mr := multipart.NewReader(bytes.NewReader(readAll(t, m)), m.Boundary())
	var names, payloads []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		names = append(names, p.FormName())
		payloads = append(payloads, string(data))
		if p.FormName() == "title" {
			assert.Empty(t, p.Header.Get("Content-Type"))
		}
	}
	assert.Equal(t, []string{"title", "image", "notes"}, names)
	assert.Equal(t, []string{"hello world", "\x89PNG\r\n\x1a\nrest", `{"a":1}`}, payloads)
}

func TestMultipartReopen(t *testing.T) {
	path := writeFile(t, "a.bin", []byte("abc"))
	part, err := form.File("f", path)
	require.NoError(t, err)
	m, err := form.NewMultipart(part)
	require.NoError(t, err)
	assert.Equal(t, readAll(t, m), readAll(t, m))
}

func TestMultipartBoundaryAvoidsPayload(t *testing.T) {
	for i := 0; i < 20; i++ {
		m, err := form.NewMultipart(form.Field("a", strings.Repeat("-", 100)))
		require.NoError(t, err)
		assert.NotContains(t, strings.Repeat("-", 100), m.Boundary())
	}
}

func TestMultipartFileShrank(t *testing.T) {
	path := writeFile(t, "grow.txt", []byte("0123456789"))
	part, err := form.File("f", path)
	require.NoError(t, err)
	m, err := form.NewMultipart(part)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("0123"), 0o600))
	rc, err := m.Open()
	require.NoError(t, err)
	defer rc.Close()
	_, err = io.ReadAll(rc)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFileMissing(t *testing.T) {
	_, err := form.File("f", filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
