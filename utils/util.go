package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParsePort extracts the port of a listen address such as ":69" or "0.0.0.0:2049".
func ParsePort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		if !strings.HasPrefix(addr, ":") {
			return 0, fmt.Errorf("invalid addr %q: %w", addr, err)
		}
		p = addr[1:]
	}
	v, err := strconv.Atoi(p)
	if err != nil || v < 0 || v > 65535 {
		return 0, fmt.Errorf("invalid port in %q", addr)
	}
	return v, nil
}
