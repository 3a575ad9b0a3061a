package firewall

// Chain names the logical packet-filter chain a compiled rule lands in.
type Chain string

const (
	ChainInput       Chain = "input"
	ChainOutput      Chain = "output"
	ChainForward     Chain = "forward"
	ChainPrerouting  Chain = "prerouting"
	ChainPostrouting Chain = "postrouting"
)

// RuleCategory distinguishes namespace (user) rules from global rules.
// User rules land in input/output/forward; global rules are pre/postrouting
// only and must set exactly one interface.
type RuleCategory int

const (
	CategoryUser RuleCategory = iota
	CategoryGlobal
)

// Classify decides the chain a rule belongs to from its interface presence.
// The mapping is total for valid rules: every allowed (iiface, oiface)
// combination yields exactly one chain, and invalid combinations error.
func Classify(r Rule, category RuleCategory) (Chain, *ValidationError) {
	iifSet, oifSet := ifaceSet(r.IIface), ifaceSet(r.OIface)

	if category == CategoryGlobal {
		switch {
		case iifSet && !oifSet:
			return ChainPrerouting, nil
		case !iifSet && oifSet:
			return ChainPostrouting, nil
		default:
			return "", newError(KindInvalidRuleDirection, ifaceValue(r))
		}
	}

	switch {
	case iifSet && !oifSet:
		return ChainInput, nil
	case !iifSet && oifSet:
		return ChainOutput, nil
	case iifSet && oifSet:
		return ChainForward, nil
	default:
		return "", newError(KindInvalidRuleType, ifaceValue(r))
	}
}

func ifaceValue(r Rule) string {
	return "iiface:" + r.IIface + ";oiface:" + r.OIface
}
