// Package firewall validates declarative firewall rules, sets and NAT pairs
// and compiles them into ordered, chain-correct packet-filter statements.
// The compiler is a pure computation: it takes an immutable input snapshot,
// returns a value and touches no shared state, so concurrent compilations
// are safe without locking.
package firewall

import (
	"log/slog"
	"sort"
)

// Input is the full snapshot one compilation works from.
type Input struct {
	// Namespace and Table name the network namespace and the packet-filter
	// table the artifact targets; both appear in compiled log prefixes.
	Namespace string `yaml:"namespace"`
	Table     string `yaml:"table"`

	// Priority orders the table's base chains against other tables attached
	// to the same hooks. Lower is evaluated first.
	Priority int `yaml:"priority"`

	// DefaultPolicy is the chain policy for unmatched traffic, accept or drop.
	DefaultPolicy string `yaml:"default_policy"`

	Sets        []Set  `yaml:"sets"`
	UserRules   []Rule `yaml:"user_rules"`
	GlobalRules []Rule `yaml:"global_rules"`
	NATs        NATs   `yaml:"nats"`
}

// Artifact is the compiled output handed to the template renderer. Every
// field is always populated; slices are non-nil even when empty so the
// renderer can reject a partially assembled artifact.
type Artifact struct {
	// Applications are the deduplicated helper chains the compiled rules
	// jump into (icmp4_accept, dns_drop, ...), in first-use order.
	Applications []string

	DefaultPolicy string

	DNATRules []string
	SNATRules []string

	InputRules   []string
	OutputRules  []string
	ForwardRules []string

	PreroutingGlobalRules  []string
	PostroutingGlobalRules []string

	Priority int
	Sets     []Set
	Table    string
}

// Compiler turns a validated Input into an Artifact.
type Compiler struct {
	logger *slog.Logger
}

// NewCompiler creates a Compiler with the given logger.
func NewCompiler(logger *slog.Logger) *Compiler {
	return &Compiler{
		logger: logger.With("component", "firewall"),
	}
}

// Compile validates every entity in the input and, only if no violation was
// found anywhere, compiles the rules into chain statement sequences. The
// call is fail-closed: a single validation error aborts compilation entirely
// and the full aggregated error list is returned with a nil artifact. No
// chain, however valid, is ever partially emitted.
func (c *Compiler) Compile(in Input) (*Artifact, []*ValidationError) {
	var errs []*ValidationError

	if in.DefaultPolicy != "accept" && in.DefaultPolicy != "drop" {
		errs = append(errs, newError(KindInvalidAction, in.DefaultPolicy))
	}

	setErrs, setNames := ValidateSets(in.Sets)
	errs = append(errs, setErrs...)

	errs = append(errs, validateRules(in.UserRules, CategoryUser, setNames)...)
	errs = append(errs, validateRules(in.GlobalRules, CategoryGlobal, setNames)...)

	for _, nat := range in.NATs.all() {
		errs = append(errs, nat.Validate()...)
	}

	if len(errs) > 0 {
		c.logger.Debug("compilation rejected",
			"namespace", in.Namespace,
			"table", in.Table,
			"errors", len(errs),
		)
		return nil, errs
	}

	art := &Artifact{
		Applications:           []string{},
		DefaultPolicy:          in.DefaultPolicy,
		DNATRules:              []string{},
		SNATRules:              []string{},
		InputRules:             []string{},
		OutputRules:            []string{},
		ForwardRules:           []string{},
		PreroutingGlobalRules:  []string{},
		PostroutingGlobalRules: []string{},
		Priority:               in.Priority,
		Sets:                   append([]Set{}, in.Sets...),
		Table:                  in.Table,
	}

	seen := make(map[string]bool)
	register := func(application string) {
		if application == "" || seen[application] {
			return
		}
		seen[application] = true
		art.Applications = append(art.Applications, application)
	}

	for _, r := range sortRules(in.UserRules) {
		chain, _ := Classify(r, CategoryUser)
		statement, application := CompileRule(r, in.Namespace, in.Table)
		register(application)
		switch chain {
		case ChainInput:
			art.InputRules = append(art.InputRules, statement)
		case ChainOutput:
			art.OutputRules = append(art.OutputRules, statement)
		case ChainForward:
			art.ForwardRules = append(art.ForwardRules, statement)
		}
	}

	for _, r := range sortRules(in.GlobalRules) {
		chain, _ := Classify(r, CategoryGlobal)
		statement, application := CompileRule(r, in.Namespace, in.Table)
		register(application)
		switch chain {
		case ChainPrerouting:
			art.PreroutingGlobalRules = append(art.PreroutingGlobalRules, statement)
		case ChainPostrouting:
			art.PostroutingGlobalRules = append(art.PostroutingGlobalRules, statement)
		}
	}

	for _, nat := range in.NATs.DNATs {
		art.DNATRules = append(art.DNATRules, DNATStatement(nat))
	}
	for _, nat := range in.NATs.SNATs {
		art.SNATRules = append(art.SNATRules, SNATStatement(nat))
	}

	c.logger.Debug("compiled firewall artifact",
		"namespace", in.Namespace,
		"table", in.Table,
		"input", len(art.InputRules),
		"output", len(art.OutputRules),
		"forward", len(art.ForwardRules),
		"prerouting", len(art.PreroutingGlobalRules),
		"postrouting", len(art.PostroutingGlobalRules),
		"applications", len(art.Applications),
	)
	return art, nil
}

// validateRules runs the rule validator over every rule and resolves each
// set reference against the supplied set names.
func validateRules(rules []Rule, category RuleCategory, setNames []string) []*ValidationError {
	names := make(map[string]bool, len(setNames))
	for _, name := range setNames {
		names[name] = true
	}

	var errs []*ValidationError
	for _, r := range rules {
		errs = append(errs, r.Validate(category)...)
		for _, ref := range r.setReferences() {
			if !names[ref] {
				errs = append(errs, newError(KindUnresolvedSetReference, ref))
			}
		}
	}
	return errs
}

// sortRules returns a copy of rules stable-sorted by ascending order key.
// Equal keys keep their input relative order.
func sortRules(rules []Rule) []Rule {
	sorted := append([]Rule{}, rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}
