package firewall

import "fmt"

// Kind identifies a single violated validation constraint. The set of kinds
// is closed: every constraint the validators enforce maps to exactly one kind.
type Kind string

const (
	KindInvalidAction              Kind = "invalid_action"
	KindInvalidVersion             Kind = "invalid_version"
	KindInvalidProtocol            Kind = "invalid_protocol"
	KindInvalidSource              Kind = "invalid_source"
	KindInvalidDestination         Kind = "invalid_destination"
	KindInvalidIPAddress           Kind = "invalid_ip_address"
	KindInvalidPort                Kind = "invalid_port"
	KindInvalidPortValue           Kind = "invalid_port_value"
	KindInvalidRuleType            Kind = "invalid_rule_type"
	KindInvalidRuleDirection       Kind = "invalid_rule_direction"
	KindInvalidSetName             Kind = "invalid_set_name"
	KindInvalidSetType             Kind = "invalid_set_type"
	KindInvalidSetIPAddressVersion Kind = "invalid_set_ip_address_version"
	KindInvalidSetMacAddress       Kind = "invalid_set_mac_address"
	KindDuplicateSetName           Kind = "duplicate_set_name"
	KindInvalidNATIface            Kind = "invalid_nat_iface"
	KindInvalidNATIPAddress        Kind = "invalid_nat_ip_address"
	KindInvalidNATIPAddressVersion Kind = "invalid_nat_ip_address_version"
	KindInvalidNATPrivate          Kind = "invalid_nat_private"
	KindInvalidNATPublic           Kind = "invalid_nat_public"
	KindUnresolvedSetReference     Kind = "unresolved_set_reference"
)

// kindMessages holds the human-readable template per kind. Formatting is a
// rendering concern layered over the typed error; detection code never builds
// message strings.
var kindMessages = map[Kind]string{
	KindInvalidAction:              "invalid action %q, must be `accept` or `drop`",
	KindInvalidVersion:             "invalid IP version %q, must be 4 or 6",
	KindInvalidProtocol:            "invalid protocol %q",
	KindInvalidSource:              "invalid source %q, a set reference or `any` must be the sole entry",
	KindInvalidDestination:         "invalid destination %q, a set reference or `any` must be the sole entry",
	KindInvalidIPAddress:           "invalid IP address %q",
	KindInvalidPort:                "invalid port %q",
	KindInvalidPortValue:           "invalid port value %q, must be in range 1-65535",
	KindInvalidRuleType:            "invalid rule %q, at least one of iiface and oiface must be set",
	KindInvalidRuleDirection:       "invalid global rule %q, exactly one of iiface and oiface must be set",
	KindInvalidSetName:             "invalid set name %q, whitespace is not allowed",
	KindInvalidSetType:             "invalid set type %q",
	KindInvalidSetIPAddressVersion: "set element %q does not match the declared address version",
	KindInvalidSetMacAddress:       "invalid MAC address %q in set elements",
	KindDuplicateSetName:           "duplicate set name %q, set names must be unique",
	KindInvalidNATIface:            "invalid NAT iface %q, whitespace is not allowed",
	KindInvalidNATIPAddress:        "invalid NAT IP address %q",
	KindInvalidNATIPAddressVersion: "invalid NAT IP address %q, must be IPv4",
	KindInvalidNATPrivate:          "invalid NAT private address %q, must be RFC1918 private",
	KindInvalidNATPublic:           "invalid NAT public address %q, must not be RFC1918 private",
	KindUnresolvedSetReference:     "set %q is not present in the supplied sets",
}

// ValidationError is one violated constraint together with the offending
// value. Validators accumulate these instead of stopping at the first
// violation, so a caller always sees the complete report for an input.
type ValidationError struct {
	Kind  Kind
	Value string
}

func newError(kind Kind, value string) *ValidationError {
	return &ValidationError{Kind: kind, Value: value}
}

// Error renders the human-readable message for the violation.
func (e *ValidationError) Error() string {
	msg, ok := kindMessages[e.Kind]
	if !ok {
		return fmt.Sprintf("%s: %q", e.Kind, e.Value)
	}
	return fmt.Sprintf(msg, e.Value)
}

// Is supports errors.Is matching by kind, ignoring the offending value.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
