package util

import (
	"fmt"
	"net/netip"
	"strings"
)

const macHexLen = 12

// NormalizeMAC accepts a MAC address in any common notation
// (aa:bb:cc:dd:ee:ff, aa-bb-cc-dd-ee-ff, aabb.ccdd.eeff, aabbccddeeff)
// and returns it in lower-case colon form.
func NormalizeMAC(mac string) (string, error) {
	hex := make([]byte, 0, macHexLen)
	for i := 0; i < len(mac); i++ {
		c := mac[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
			hex = append(hex, c)
		case c >= 'A' && c <= 'F':
			hex = append(hex, c+('a'-'A'))
		case c == ':' || c == '-' || c == '.':
		default:
			return "", NewValidationError(fmt.Sprintf("invalid MAC address %q", mac))
		}
	}
	if len(hex) != macHexLen {
		return "", NewValidationError(fmt.Sprintf("invalid MAC address %q", mac))
	}

	var b strings.Builder
	for i := 0; i < macHexLen; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.Write(hex[i : i+2])
	}
	return b.String(), nil
}

// ParseIP validates an IPv4 or IPv6 host address.
func ParseIP(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, NewValidationError(fmt.Sprintf("invalid IP address %q", s))
	}
	return addr, nil
}
