package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultBMCPort is the RMCP+ port BMCs listen on.
const DefaultBMCPort = 623

// ParseBMCAddress splits a management address of the form
// [scheme://]host[:port] into host and port. Any scheme is discarded and
// the port defaults to defaultPort.
func ParseBMCAddress(address string, defaultPort int) (string, int, error) {
	addr := strings.TrimSpace(address)
	if _, rest, ok := strings.Cut(addr, "://"); ok {
		addr = rest
	}
	addr = strings.TrimSuffix(addr, "/")
	if addr == "" {
		return "", 0, fmt.Errorf("empty address %q", address)
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port: a bare host, or a bracketed or bare IPv6 literal.
		host = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
		return host, defaultPort, nil
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in address %q", address)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q in address %q", portStr, address)
	}
	return host, port, nil
}
