package firewall

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

// Token grammar shared by the rule and set validators. All predicates are
// pure and operate on single entries of a rule's source/destination/port
// lists or a set's elements.

const (
	portMin = 1
	portMax = 65535
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)

// isAnyToken reports whether s is the wildcard entry.
func isAnyToken(s string) bool {
	return s == "any"
}

// isSetReference reports whether s references a named set (`@name`).
func isSetReference(s string) bool {
	return strings.HasPrefix(s, "@")
}

// setReferenceName returns the set name behind a `@name` reference.
func setReferenceName(s string) string {
	return strings.TrimPrefix(s, "@")
}

// parseNetwork parses s as an IP address or CIDR network and returns the IP
// version (4 or 6). ok is false when s is neither.
func parseNetwork(s string) (version int, ok bool) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		if prefix.Addr().Is4() {
			return 4, true
		}
		return 6, true
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		if addr.Is4() {
			return 4, true
		}
		return 6, true
	}
	return 0, false
}

// isCIDR reports whether s parses as an IP address or network of wantVersion.
func isCIDR(s string, wantVersion int) bool {
	version, ok := parseNetwork(s)
	return ok && version == wantVersion
}

// isPortToken reports whether s is a decimal port in [1,65535] or a range
// `A-B` with exactly two in-range parts. No A <= B ordering is enforced; the
// packet filter decides how an inverted range behaves.
func isPortToken(s string) bool {
	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		if len(parts) != 2 {
			return false
		}
		for _, part := range parts {
			if !isPortNumber(part) {
				return false
			}
		}
		return true
	}
	return isPortNumber(s)
}

func isPortNumber(s string) bool {
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= portMin && n <= portMax
}

// isMAC reports whether s is a MAC address of six 2-hex-digit groups
// separated by `:` or `-`. The match is case-insensitive and full-string.
func isMAC(s string) bool {
	return macPattern.MatchString(s)
}
