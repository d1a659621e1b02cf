package dialer

import (
	"errors"
	"io"
	"net"
	"strconv"

	"github.com/frankli0324/go-h1/internal/errdef"
)

const socks5Version = 0x05

const (
	socksAuthNone         = 0x00
	socksAuthPassword     = 0x02
	socksAuthNoAcceptable = 0xff

	socksPasswordVersion = 0x01
	socksCmdConnect      = 0x01

	socksAtypIPv4   = 0x01
	socksAtypDomain = 0x03
	socksAtypIPv6   = 0x04
)

// socks5Greeting offers no-auth, and username/password when credentials
// are configured.
func socks5Greeting(withPassword bool) []byte {
	if withPassword {
		return []byte{socks5Version, 2, socksAuthNone, socksAuthPassword}
	}
	return []byte{socks5Version, 1, socksAuthNone}
}

// socks5Auth builds the RFC 1929 username/password sub-negotiation.
func socks5Auth(user, pass string) ([]byte, error) {
	if len(user) == 0 || len(user) > 255 || len(pass) > 255 {
		return nil, &errdef.ProxyError{Kind: errdef.ProxyAuthFailed, Err: errors.New("socks5 credentials must be 1 to 255 bytes")}
	}
	b := make([]byte, 0, 3+len(user)+len(pass))
	b = append(b, socksPasswordVersion, byte(len(user)))
	b = append(b, user...)
	b = append(b, byte(len(pass)))
	return append(b, pass...), nil
}

// socks5Connect builds a CONNECT request. IP literals are sent as such,
// anything else as a domain name for the proxy to resolve.
func socks5Connect(target string) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, errors.New("socks5: invalid port " + strconv.Quote(portStr))
	}
	b := []byte{socks5Version, socksCmdConnect, 0x00}
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			b = append(b, socksAtypIPv4)
			b = append(b, ip4...)
		} else {
			b = append(b, socksAtypIPv6)
			b = append(b, ip.To16()...)
		}
	} else {
		if len(host) > 255 {
			return nil, errors.New("socks5: host name too long")
		}
		b = append(b, socksAtypDomain, byte(len(host)))
		b = append(b, host...)
	}
	return append(b, byte(port>>8), byte(port)), nil
}

func connectSOCKS5(conn net.Conn, target, user, pass string) error {
	req, err := socks5Connect(target)
	if err != nil {
		return err
	}
	if _, err := conn.Write(socks5Greeting(user != "")); err != nil {
		return err
	}
	var reply [2]byte
	if err := readFull(conn, reply[:]); err != nil {
		return err
	}
	if reply[0] != socks5Version {
		return errdef.Malformed("socks5: unexpected version %#02x", reply[0])
	}
	switch reply[1] {
	case socksAuthNone:
	case socksAuthPassword:
		if user == "" {
			return &errdef.ProxyError{Kind: errdef.ProxyAuthFailed, Err: errors.New("proxy requires credentials")}
		}
		if err := socks5Authenticate(conn, user, pass); err != nil {
			return err
		}
	case socksAuthNoAcceptable:
		return &errdef.ProxyError{Kind: errdef.ProxyAuthFailed, Err: errors.New("no acceptable authentication method")}
	default:
		return errdef.Malformed("socks5: proxy chose unoffered method %#02x", reply[1])
	}

	if _, err := conn.Write(req); err != nil {
		return err
	}
	return readSOCKS5Reply(conn)
}

func socks5Authenticate(conn net.Conn, user, pass string) error {
	b, err := socks5Auth(user, pass)
	if err != nil {
		return err
	}
	if _, err := conn.Write(b); err != nil {
		return err
	}
	var reply [2]byte
	if err := readFull(conn, reply[:]); err != nil {
		return err
	}
	if reply[1] != 0x00 {
		return &errdef.ProxyError{Kind: errdef.ProxyAuthFailed}
	}
	return nil
}

// readSOCKS5Reply consumes the whole reply, bound address included, so the
// tunnel starts on a clean byte boundary.
func readSOCKS5Reply(r io.Reader) error {
	var head [4]byte
	if err := readFull(r, head[:]); err != nil {
		return err
	}
	if head[0] != socks5Version {
		return errdef.Malformed("socks5: unexpected version %#02x", head[0])
	}
	if head[1] != 0x00 {
		return &errdef.ProxyError{Kind: errdef.ProxySocksRejected, Code: head[1]}
	}
	var n int
	switch head[3] {
	case socksAtypIPv4:
		n = net.IPv4len
	case socksAtypIPv6:
		n = net.IPv6len
	case socksAtypDomain:
		var l [1]byte
		if err := readFull(r, l[:]); err != nil {
			return err
		}
		n = int(l[0])
	default:
		return errdef.Malformed("socks5: unknown address type %#02x", head[3])
	}
	return readFull(r, make([]byte, n+2))
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errdef.UnexpectedEOF(err)
	}
	return err
}
