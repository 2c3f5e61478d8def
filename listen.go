package devserve

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

var ErrNoPortAvailable = errors.New("no available ports")

// Listen binds a TCP listener on host at the first free port in [first, last).
// A port already in use moves on to the next one; any other bind error is
// returned as is.
func Listen(host string, first, last int) (net.Listener, error) {
	for port := first; port < last; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			slog.Debug("listening", "addr", ln.Addr().String())
			return ln, nil
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		slog.Debug("port in use", "port", port, "error", err)
	}
	return nil, fmt.Errorf("%w between %d-%d", ErrNoPortAvailable, first, last)
}

// Port returns the TCP port ln is bound to, or 0 for other listeners.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
