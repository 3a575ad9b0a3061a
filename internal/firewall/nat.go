package firewall

import (
	"fmt"
	"net/netip"
)

// NAT is one DNAT or SNAT mapping between a public and a private IPv4
// address or network.
type NAT struct {
	// Public must be IPv4 and must not be RFC1918 private.
	Public string `yaml:"public"`

	// Private must be IPv4 and RFC1918 private.
	Private string `yaml:"private"`

	// Iface is the interface the translation binds to; may be empty.
	Iface string `yaml:"iface"`
}

// NATs groups the DNAT and SNAT pairs of one compilation.
type NATs struct {
	DNATs []NAT `yaml:"dnats"`
	SNATs []NAT `yaml:"snats"`
}

// all returns the dnat and snat pairs as one list for validation.
func (n NATs) all() []NAT {
	out := make([]NAT, 0, len(n.DNATs)+len(n.SNATs))
	out = append(out, n.DNATs...)
	return append(out, n.SNATs...)
}

// Validate checks the NAT pair's address family, RFC1918 placement and
// interface name. All violations are returned, not just the first.
func (n NAT) Validate() []*ValidationError {
	var errs []*ValidationError

	if err := validateNATAddress(n.Private, true); err != nil {
		errs = append(errs, err)
	}
	if err := validateNATAddress(n.Public, false); err != nil {
		errs = append(errs, err)
	}
	if containsWhitespace(n.Iface) {
		errs = append(errs, newError(KindInvalidNATIface, n.Iface))
	}
	return errs
}

// validateNATAddress parses addr and enforces its RFC1918 placement.
// An unparsable value and a non-IPv4 value are distinct violations.
func validateNATAddress(addr string, wantPrivate bool) *ValidationError {
	ip, err := parseNATAddr(addr)
	if err != nil {
		return newError(KindInvalidNATIPAddress, addr)
	}
	if !ip.Is4() {
		return newError(KindInvalidNATIPAddressVersion, addr)
	}
	if wantPrivate && !ip.IsPrivate() {
		return newError(KindInvalidNATPrivate, addr)
	}
	if !wantPrivate && ip.IsPrivate() {
		return newError(KindInvalidNATPublic, addr)
	}
	return nil
}

func parseNATAddr(addr string) (netip.Addr, error) {
	if prefix, err := netip.ParsePrefix(addr); err == nil {
		return prefix.Addr(), nil
	}
	if ip, err := netip.ParseAddr(addr); err == nil {
		return ip, nil
	}
	return netip.Addr{}, fmt.Errorf("firewall: not an IP address or network: %q", addr)
}

// DNATStatement renders the prerouting translation for a DNAT pair.
func DNATStatement(n NAT) string {
	statement := ""
	if n.Iface != "" {
		statement = fmt.Sprintf("iifname %q ", n.Iface)
	}
	return fmt.Sprintf("%sip daddr %s dnat to %s", statement, n.Public, n.Private)
}

// SNATStatement renders the postrouting translation for an SNAT pair.
func SNATStatement(n NAT) string {
	statement := ""
	if n.Iface != "" {
		statement = fmt.Sprintf("oifname %q ", n.Iface)
	}
	return fmt.Sprintf("%sip saddr %s snat to %s", statement, n.Private, n.Public)
}
