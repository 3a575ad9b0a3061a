// Package render turns a compiled firewall artifact into an nft -f
// configuration document. Rendering is template driven and rejects any
// artifact that arrives with a missing field, so a partially assembled
// artifact can never reach a live packet filter.
package render

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/podnetlabs/podfw/internal/firewall"
)

const configTemplate = `#!/usr/sbin/nft -f

table inet {{ .Table }} {
{{- range .Sets }}
	set {{ .Name }} {
		type {{ .Type }}
{{- if setFlags .Type }}
		flags interval
		auto-merge
{{- end }}
{{- if .Elements }}
		elements = { {{ join .Elements ", " }} }
{{- end }}
	}
{{ end }}
{{- range .Applications }}
	chain {{ .Name }} {
{{- range .Body }}
		{{ . }}
{{- end }}
	}
{{ end }}
	chain prerouting {
		type filter hook prerouting priority {{ .Priority }}; policy accept;
{{- range .PreroutingGlobalRules }}
		{{ . }}
{{- end }}
	}

	chain postrouting {
		type filter hook postrouting priority {{ .Priority }}; policy accept;
{{- range .PostroutingGlobalRules }}
		{{ . }}
{{- end }}
	}

	chain input {
		type filter hook input priority {{ .Priority }}; policy {{ .DefaultPolicy }};
		ct state established,related accept
{{- range .InputRules }}
		{{ . }}
{{- end }}
	}

	chain forward {
		type filter hook forward priority {{ .Priority }}; policy {{ .DefaultPolicy }};
		ct state established,related accept
{{- range .ForwardRules }}
		{{ . }}
{{- end }}
	}

	chain output {
		type filter hook output priority {{ .Priority }}; policy {{ .DefaultPolicy }};
		ct state established,related accept
{{- range .OutputRules }}
		{{ . }}
{{- end }}
	}

	chain dnat {
		type nat hook prerouting priority -100; policy accept;
{{- range .DNATRules }}
		{{ . }}
{{- end }}
	}

	chain snat {
		type nat hook postrouting priority 100; policy accept;
{{- range .SNATRules }}
		{{ . }}
{{- end }}
	}
}
`

var nftTemplate = template.Must(template.New("nftables").Funcs(template.FuncMap{
	"join": strings.Join,
	"setFlags": func(setType string) bool {
		// Interval merging applies to range-capable element types only.
		return setType != "ether_addr"
	},
}).Parse(configTemplate))

// application is one rendered helper chain.
type application struct {
	Name string
	Body []string
}

// templateData is the full input the config template consumes.
type templateData struct {
	Table         string
	DefaultPolicy string
	Priority      int

	Sets         []firewall.Set
	Applications []application

	InputRules             []string
	OutputRules            []string
	ForwardRules           []string
	PreroutingGlobalRules  []string
	PostroutingGlobalRules []string
	DNATRules              []string
	SNATRules              []string
}

// Render produces the nft configuration document for art. It fails when the
// artifact is incomplete or names a helper chain the renderer cannot build.
func Render(art *firewall.Artifact) (string, error) {
	if err := checkArtifact(art); err != nil {
		return "", err
	}

	applications := make([]application, 0, len(art.Applications))
	for _, name := range sortedApplications(art.Applications) {
		body, err := applicationBody(name)
		if err != nil {
			return "", err
		}
		applications = append(applications, application{Name: name, Body: body})
	}

	data := templateData{
		Table:                  art.Table,
		DefaultPolicy:          art.DefaultPolicy,
		Priority:               art.Priority,
		Sets:                   art.Sets,
		Applications:           applications,
		InputRules:             art.InputRules,
		OutputRules:            art.OutputRules,
		ForwardRules:           art.ForwardRules,
		PreroutingGlobalRules:  art.PreroutingGlobalRules,
		PostroutingGlobalRules: art.PostroutingGlobalRules,
		DNATRules:              art.DNATRules,
		SNATRules:              art.SNATRules,
	}

	var b strings.Builder
	if err := nftTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render: execute template: %w", err)
	}
	return b.String(), nil
}

// checkArtifact rejects an artifact with any absent field. The compiler
// always emits non-nil sequences; a nil one means the artifact was assembled
// by hand or mutated in transit.
func checkArtifact(art *firewall.Artifact) error {
	if art == nil {
		return fmt.Errorf("render: nil artifact")
	}
	if art.Table == "" {
		return fmt.Errorf("render: artifact has no table name")
	}
	if art.DefaultPolicy != "accept" && art.DefaultPolicy != "drop" {
		return fmt.Errorf("render: artifact has invalid default policy %q", art.DefaultPolicy)
	}
	if art.Sets == nil {
		return fmt.Errorf("render: artifact field sets is absent")
	}

	sequences := map[string][]string{
		"applications":             art.Applications,
		"dnat_rules":               art.DNATRules,
		"snat_rules":               art.SNATRules,
		"input_rules":              art.InputRules,
		"output_rules":             art.OutputRules,
		"forward_rules":            art.ForwardRules,
		"prerouting_global_rules":  art.PreroutingGlobalRules,
		"postrouting_global_rules": art.PostroutingGlobalRules,
	}
	for field, seq := range sequences {
		if seq == nil {
			return fmt.Errorf("render: artifact field %s is absent", field)
		}
	}
	return nil
}

// sortedApplications orders helper chain names for stable output. The
// compiler deduplicates them but their order carries no meaning downstream.
func sortedApplications(names []string) []string {
	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	return sorted
}

// applicationBody returns the rule lines of a helper chain. Chain names are
// <family>_<action>; icmp chains carry the version digit.
func applicationBody(name string) ([]string, error) {
	family, action, ok := strings.Cut(name, "_")
	if !ok || (action != "accept" && action != "drop") {
		return nil, fmt.Errorf("render: unknown helper chain %q", name)
	}

	switch family {
	case "icmp4":
		return []string{
			"icmp type { destination-unreachable, echo-reply, echo-request, time-exceeded } " + action,
		}, nil
	case "icmp6":
		return []string{
			"icmpv6 type { echo-request, mld-listener-query, nd-router-solicit, nd-router-advert, nd-neighbor-solicit, nd-neighbor-advert } " + action,
		}, nil
	case "dns":
		return []string{
			"udp dport 53 " + action,
			"tcp dport 53 " + action,
		}, nil
	case "vpn":
		return []string{
			"udp dport { 500, 4500 } " + action,
			"ip protocol { esp, ah } " + action,
		}, nil
	}
	return nil, fmt.Errorf("render: unknown helper chain %q", name)
}
