package firewall

// Set is a named, typed element collection usable by `@name` reference
// inside rules.
type Set struct {
	// Name identifies the set within one compilation. No whitespace, unique.
	Name string `yaml:"name"`

	// Type is one of ipv4_addr, ipv6_addr, inet_service, ether_addr.
	Type string `yaml:"type"`

	// Elements must all match Type: CIDR strings of the declared version,
	// port/port-range strings for inet_service, MAC strings for ether_addr.
	Elements []string `yaml:"elements"`
}

// Validate checks the set's name, type and every element.
func (s Set) Validate() []*ValidationError {
	var errs []*ValidationError

	if containsWhitespace(s.Name) {
		errs = append(errs, newError(KindInvalidSetName, s.Name))
	}

	switch s.Type {
	case "ipv4_addr":
		errs = append(errs, validateAddressElements(s.Elements, 4)...)
	case "ipv6_addr":
		errs = append(errs, validateAddressElements(s.Elements, 6)...)
	case "inet_service":
		for _, element := range s.Elements {
			if !isPortToken(element) {
				errs = append(errs, newError(KindInvalidPortValue, element))
			}
		}
	case "ether_addr":
		for _, element := range s.Elements {
			if !isMAC(element) {
				errs = append(errs, newError(KindInvalidSetMacAddress, element))
			}
		}
	default:
		errs = append(errs, newError(KindInvalidSetType, s.Type))
	}

	return errs
}

func validateAddressElements(elements []string, wantVersion int) []*ValidationError {
	var errs []*ValidationError
	for _, element := range elements {
		if isCIDR(element, wantVersion) {
			continue
		}
		if _, ok := parseNetwork(element); ok {
			errs = append(errs, newError(KindInvalidSetIPAddressVersion, element))
		} else {
			errs = append(errs, newError(KindInvalidIPAddress, element))
		}
	}
	return errs
}

// ValidateSets validates a set collection. Duplicate names are reported
// first; the per-set checks still run so the error report is complete. The
// returned names are used to resolve `@name` references in rules.
func ValidateSets(sets []Set) (errs []*ValidationError, names []string) {
	seen := make(map[string]bool, len(sets))
	for _, s := range sets {
		if seen[s.Name] {
			errs = append(errs, newError(KindDuplicateSetName, s.Name))
			continue
		}
		seen[s.Name] = true
		names = append(names, s.Name)
	}

	for _, s := range sets {
		errs = append(errs, s.Validate()...)
	}
	return errs, names
}

func containsWhitespace(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			return true
		}
	}
	return false
}
