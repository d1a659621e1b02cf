package nettools

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()
	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server = <-accepted
	require.NotNil(t, server)
	t.Cleanup(func() { client.Close(); server.Close() })
	return client, server
}

func TestAliveQuietConnection(t *testing.T) {
	c, _ := tcpPair(t)
	assert.True(t, Alive(c, bufio.NewReader(c)))
}

func TestAlivePeerClosed(t *testing.T) {
	c, s := tcpPair(t)
	s.Close()
	assert.Eventually(t, func() bool { return !Alive(c, nil) }, time.Second, 10*time.Millisecond)
}

func TestAliveUnsolicitedData(t *testing.T) {
	c, s := tcpPair(t)
	_, err := s.Write([]byte("HTTP/1.1 408 Request Timeout\r\n\r\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !Alive(c, nil) }, time.Second, 10*time.Millisecond)
}

func TestAliveBufferedBytes(t *testing.T) {
	c, s := tcpPair(t)
	br := bufio.NewReader(c)
	go s.Write([]byte("xx"))
	_, err := br.ReadByte()
	require.NoError(t, err)
	assert.False(t, Alive(c, br))
}

func TestPeekAlive(t *testing.T) {
	c, s := net.Pipe()
	defer s.Close()
	assert.True(t, peekAlive(c, bufio.NewReader(c)))
	c.Close()
	assert.False(t, peekAlive(c, nil))
}
