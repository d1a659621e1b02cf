//go:build !unix

package nettools

import "syscall"

func pollReadable(syscall.RawConn) (readable, ok bool) { return false, false }
