//go:build windows

package devserve

import (
	"errors"
	"syscall"
)

// WSAEADDRINUSE; syscall.EADDRINUSE is not what winsock returns.
const wsaeaddrinuse = syscall.Errno(10048)

func isAddrInUse(err error) bool {
	return errors.Is(err, wsaeaddrinuse) || errors.Is(err, syscall.EADDRINUSE)
}
