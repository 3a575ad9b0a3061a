package firewall

import (
	"fmt"
	"strings"
)

// CompileRule renders a validated, classified rule into one packet-filter
// statement. The fragments are emitted in fixed order: interface selectors,
// source selector, destination selector, log clause, protocol/port/action.
// For icmp, dns and vpn the action is a jump into a protocol-specific helper
// chain; the helper chain's name is returned so the caller can register it.
// application is empty for direct actions and generic protocols.
func CompileRule(r Rule, namespace, table string) (statement, application string) {
	v := ""
	if r.Version != 4 {
		v = "6"
	}

	iif := ""
	if ifaceSet(r.IIface) {
		iif = "iifname " + r.IIface
	}
	oif := ""
	if ifaceSet(r.OIface) {
		oif = "oifname " + r.OIface
	}

	saddr := addressSelector(r.Source, v, "saddr")
	daddr := addressSelector(r.Destination, v, "daddr")
	dport := portSelector(r)

	var protoPort string
	switch r.Protocol {
	case "any":
		protoPort = r.Action
	case "icmp":
		// Helper chains carry an explicit version digit (icmp4_accept),
		// unlike the address selector marker which is empty for IPv4.
		icmpV := "4"
		if r.Version == 6 {
			icmpV = "6"
		}
		application = fmt.Sprintf("icmp%s_%s", icmpV, r.Action)
		protoPort = "jump " + application
	case "dns":
		application = "dns_" + r.Action
		protoPort = "jump " + application
	case "vpn":
		application = "vpn_" + r.Action
		protoPort = "jump " + application
	default:
		protoPort = fmt.Sprintf("%s %s %s", r.Protocol, dport, r.Action)
	}

	log := ""
	if r.Log {
		log = fmt.Sprintf("log prefix %q level debug", fmt.Sprintf("Namespace_%s_Table_%s", namespace, table))
	}

	statement = fmt.Sprintf("%s %s %s %s %s %s", iif, oif, saddr, daddr, log, protoPort)
	return statement, application
}

// addressSelector renders the ip{v} saddr/daddr fragment. A lone `any`
// yields no selector, a lone set reference is emitted as-is, and literal
// entries are collected into an anonymous set.
func addressSelector(entries []string, v, field string) string {
	if len(entries) == 0 || containsAny(entries) {
		return ""
	}
	if len(entries) == 1 && isSetReference(entries[0]) {
		return fmt.Sprintf("ip%s %s %s", v, field, entries[0])
	}
	return fmt.Sprintf("ip%s %s { %s }", v, field, strings.Join(entries, ", "))
}

// portSelector renders the dport fragment with the same single-set-reference
// versus literal-list rule as addresses. Protocol `any` carries no ports.
func portSelector(r Rule) string {
	if r.Protocol == "any" {
		return ""
	}
	if len(r.Port) == 1 && isSetReference(r.Port[0]) {
		return "dport " + r.Port[0]
	}
	return fmt.Sprintf("dport { %s }", strings.Join(r.Port, ", "))
}

func containsAny(entries []string) bool {
	for _, entry := range entries {
		if isAnyToken(entry) {
			return true
		}
	}
	return false
}
