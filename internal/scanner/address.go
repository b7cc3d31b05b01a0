package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned before any network I/O when the target is
// not a dotted-quad IPv4 address.
var ErrInvalidAddress = errors.New("invalid IPv4 address")

// Leading zeros ("01.2.3.4") are accepted.
var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// IsValidIPv4 reports whether addr is four dot-separated decimal groups in [0, 255].
func IsValidIPv4(addr string) bool {
	_, ok := canonicalIPv4(addr)
	return ok
}

// canonicalIPv4 rebuilds addr from its parsed octets, so "127.0.0.01"
// becomes "127.0.0.1". The dialer would otherwise resolve the
// zero-padded form as a hostname.
func canonicalIPv4(addr string) (string, bool) {
	if !ipv4Pattern.MatchString(addr) {
		return "", false
	}
	octets := strings.Split(addr, ".")
	for i, part := range octets {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return "", false
		}
		octets[i] = strconv.Itoa(n)
	}
	return strings.Join(octets, "."), true
}

// validateAddress returns the canonical form of addr for dialing.
func validateAddress(addr string) (string, error) {
	canonical, ok := canonicalIPv4(addr)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return canonical, nil
}
