package firewall

import (
	"strconv"
	"strings"
)

// protocolChoices are the protocols a rule may carry. icmp, dns and vpn
// compile to jumps into protocol-specific helper chains.
var protocolChoices = []string{"any", "tcp", "udp", "icmp", "dns", "vpn"}

// ifaceNone is the sentinel for an absent interface, alongside "".
const ifaceNone = "none"

// Rule is one declarative firewall statement.
type Rule struct {
	// Version is the IP version, 4 or 6.
	Version int `yaml:"version"`

	// Source and Destination hold `any`, CIDR strings, or a single set
	// reference (`@name`). A set reference or `any` must be the sole entry.
	Source      []string `yaml:"source"`
	Destination []string `yaml:"destination"`

	// Protocol is one of any, tcp, udp, icmp, dns, vpn.
	Protocol string `yaml:"protocol"`

	// Port holds decimal ports, `A-B` ranges, or a single set reference.
	// It must be empty when Protocol is `any`.
	Port []string `yaml:"port"`

	// Action is `accept` or `drop`.
	Action string `yaml:"action"`

	// Log enables a log statement on the compiled rule.
	Log bool `yaml:"log"`

	// IIface and OIface are the input/output interface names. "" and "none"
	// mean unset. Which of the two is set decides the chain the rule lands in.
	IIface string `yaml:"iiface"`
	OIface string `yaml:"oiface"`

	// Order is the compilation sort key, ascending and stable for ties.
	Order int `yaml:"order"`
}

// ifaceSet reports whether an interface field carries a real interface name.
func ifaceSet(iface string) bool {
	return iface != "" && iface != ifaceNone
}

// Validate runs every structural check on the rule and returns the union of
// all violations. Checks are independent: one failing check never hides
// another, so the caller always gets the full report for a malformed rule.
func (r Rule) Validate(category RuleCategory) []*ValidationError {
	var errs []*ValidationError

	if r.Action != "accept" && r.Action != "drop" {
		errs = append(errs, newError(KindInvalidAction, r.Action))
	}

	if r.Version != 4 && r.Version != 6 {
		errs = append(errs, newError(KindInvalidVersion, strconv.Itoa(r.Version)))
	}

	validProtocol := false
	for _, p := range protocolChoices {
		if r.Protocol == p {
			validProtocol = true
			break
		}
	}
	if !validProtocol {
		errs = append(errs, newError(KindInvalidProtocol, r.Protocol))
	}

	errs = append(errs, validateAddresses(r.Destination, KindInvalidDestination)...)
	errs = append(errs, validateAddresses(r.Source, KindInvalidSource)...)
	errs = append(errs, r.validatePort()...)
	errs = append(errs, r.validateInterfaces(category)...)

	return errs
}

// validateAddresses checks one source/destination list. listKind is the kind
// reported when the single-entry rule for `any` and set references is broken.
func validateAddresses(entries []string, listKind Kind) []*ValidationError {
	var errs []*ValidationError
	for _, entry := range entries {
		if isAnyToken(entry) || isSetReference(entry) {
			if len(entries) > 1 {
				errs = append(errs, newError(listKind, strings.Join(entries, ",")))
			}
			continue
		}
		if _, ok := parseNetwork(entry); !ok {
			errs = append(errs, newError(KindInvalidIPAddress, entry))
		}
	}
	return errs
}

func (r Rule) validatePort() []*ValidationError {
	var errs []*ValidationError

	// Ports attach to the compiled statement only for tcp/udp; `any` carries
	// the action directly and the jump protocols never render a port.
	if r.Protocol == "any" && len(r.Port) > 0 {
		return append(errs, newError(KindInvalidPort, strings.Join(r.Port, ",")))
	}
	if (r.Protocol == "tcp" || r.Protocol == "udp") && len(r.Port) == 0 {
		return append(errs, newError(KindInvalidPort, ""))
	}

	for _, entry := range r.Port {
		if isSetReference(entry) {
			if len(r.Port) > 1 {
				errs = append(errs, newError(KindInvalidPort, strings.Join(r.Port, ",")))
			}
			continue
		}
		if !isPortToken(entry) {
			errs = append(errs, newError(KindInvalidPort, entry))
		}
	}
	return errs
}

func (r Rule) validateInterfaces(category RuleCategory) []*ValidationError {
	iifSet, oifSet := ifaceSet(r.IIface), ifaceSet(r.OIface)
	value := ifaceValue(r)

	switch category {
	case CategoryGlobal:
		// Global rules are pre/postrouting only, never forward.
		if iifSet == oifSet {
			return []*ValidationError{newError(KindInvalidRuleDirection, value)}
		}
	default:
		if !iifSet && !oifSet {
			return []*ValidationError{newError(KindInvalidRuleType, value)}
		}
	}
	return nil
}

// setReferences returns the names of every set the rule references in its
// source, destination and port lists.
func (r Rule) setReferences() []string {
	var names []string
	for _, list := range [][]string{r.Source, r.Destination, r.Port} {
		for _, entry := range list {
			if isSetReference(entry) {
				names = append(names, setReferenceName(entry))
			}
		}
	}
	return names
}
