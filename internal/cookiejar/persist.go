package cookiejar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// The Netscape cookies.txt layout shared with curl and wget: one cookie per
// line, seven tab separated fields
//
//	domain  include-subdomains  path  secure  expiry  name  value
//
// expiry is in epoch seconds, 0 for a session cookie. curl marks http-only
// cookies by prefixing the domain with "#HttpOnly_".

const httpOnlyPrefix = "#HttpOnly_"

const fileHeader = "# Netscape HTTP Cookie File\n# This file was generated by go-h1. Edit at your own risk.\n\n"

// Load merges the cookies stored at path into the jar. Expired rows are
// skipped, malformed rows are logged and skipped.
func (j *Jar) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return j.LoadFrom(f)
}

// LoadFrom is [Jar.Load] over an arbitrary reader.
func (j *Jar) LoadFrom(r io.Reader) error {
	now := j.now()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)

	j.mu.Lock()
	defer j.mu.Unlock()
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		c, err := parseRow(line)
		if err != nil {
			j.log.Warn("cookiejar: skipping malformed row", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if c == nil || c.expired(now) {
			continue
		}
		c.Created = now
		j.put(c)
	}
	return sc.Err()
}

// parseRow returns nil, nil for comments and blank lines.
func parseRow(line string) (*Cookie, error) {
	httpOnly := false
	if strings.HasPrefix(line, httpOnlyPrefix) {
		line, httpOnly = line[len(httpOnlyPrefix):], true
	}
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, fmt.Errorf("want 7 fields, got %d", len(fields))
	}
	expiry, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad expiry %q", fields[4])
	}
	domain := strings.ToLower(fields[0])
	c := &Cookie{
		Domain:   strings.TrimPrefix(domain, "."),
		HostOnly: !strings.EqualFold(fields[1], "TRUE") && !strings.HasPrefix(domain, "."),
		Path:     fields[2],
		Secure:   strings.EqualFold(fields[3], "TRUE"),
		Name:     fields[5],
		Value:    fields[6],
		HttpOnly: httpOnly,
	}
	if c.Domain == "" || c.Name == "" {
		return nil, fmt.Errorf("empty domain or name")
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if expiry > 0 {
		c.Expires = time.Unix(expiry, 0)
	}
	return c, nil
}

func formatRow(c *Cookie) string {
	domain, sub := c.Domain, "FALSE"
	if !c.HostOnly {
		domain, sub = "."+c.Domain, "TRUE"
	}
	if c.HttpOnly {
		domain = httpOnlyPrefix + domain
	}
	secure := "FALSE"
	if c.Secure {
		secure = "TRUE"
	}
	var expiry int64
	if !c.Expires.IsZero() {
		expiry = c.Expires.Unix()
	}
	return strings.Join([]string{
		domain, sub, c.Path, secure, strconv.FormatInt(expiry, 10), c.Name, c.Value,
	}, "\t")
}

// WriteTo writes every live cookie, oldest first.
func (j *Jar) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	n, _ := bw.WriteString(fileHeader)
	for _, c := range j.All() {
		m, _ := bw.WriteString(formatRow(&c) + "\n")
		n += m
	}
	return int64(n), bw.Flush()
}

// Save writes the jar to a temporary file next to path and renames it over
// path, so readers never observe a partially written file.
func (j *Jar) Save(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = j.WriteTo(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0o600); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
