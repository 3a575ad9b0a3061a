package render

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/podnetlabs/podfw/internal/firewall"
)

func compiledArtifact(t *testing.T) *firewall.Artifact {
	t.Helper()

	in := firewall.Input{
		Namespace:     "ns1100",
		Table:         "firewall",
		Priority:      0,
		DefaultPolicy: "drop",
		Sets: []firewall.Set{
			{Name: "ie_ipv4", Type: "ipv4_addr", Elements: []string{"91.103.0.0/24"}},
			{Name: "bm_macs", Type: "ether_addr", Elements: []string{"aa:bb:cc:dd:ee:ff"}},
		},
		UserRules: []firewall.Rule{
			{Version: 4, Source: []string{"@ie_ipv4"}, Destination: []string{"any"},
				Protocol: "tcp", Port: []string{"22"}, Action: "accept", Log: true,
				IIface: "ns.BM1", Order: 1},
			{Version: 4, Source: []string{"any"}, Destination: []string{"any"},
				Protocol: "icmp", Action: "accept", IIface: "ns.BM1", Order: 2},
			{Version: 6, Source: []string{"any"}, Destination: []string{"any"},
				Protocol: "dns", Action: "drop", OIface: "public0", Order: 3},
		},
		GlobalRules: []firewall.Rule{
			{Version: 4, Source: []string{"any"}, Destination: []string{"any"},
				Protocol: "any", Action: "accept", IIface: "VRF123.BM45", Order: 1},
		},
		NATs: firewall.NATs{
			DNATs: []firewall.NAT{{Public: "91.103.3.36", Private: "192.168.0.2", Iface: "VRF123.BM45"}},
			SNATs: []firewall.NAT{{Public: "91.103.3.1", Private: "192.168.0.0/24", Iface: "VRF123.BM45"}},
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	art, errs := firewall.NewCompiler(logger).Compile(in)
	if len(errs) != 0 {
		t.Fatalf("Compile() returned errors: %v", errs)
	}
	return art
}

func TestRender_FullDocument(t *testing.T) {
	doc, err := Render(compiledArtifact(t))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	for _, want := range []string{
		"table inet firewall {",
		"set ie_ipv4 {",
		"type ipv4_addr",
		"flags interval",
		"elements = { 91.103.0.0/24 }",
		"set bm_macs {",
		"type ether_addr",
		"chain icmp4_accept {",
		"icmp type { destination-unreachable, echo-reply, echo-request, time-exceeded } accept",
		"chain dns_drop {",
		"udp dport 53 drop",
		"tcp dport 53 drop",
		"type filter hook input priority 0; policy drop;",
		"ct state established,related accept",
		"type filter hook prerouting priority 0; policy accept;",
		"type nat hook prerouting priority -100; policy accept;",
		`iifname "VRF123.BM45" ip daddr 91.103.3.36 dnat to 192.168.0.2`,
		"type nat hook postrouting priority 100; policy accept;",
		`oifname "VRF123.BM45" ip saddr 192.168.0.0/24 snat to 91.103.3.1`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("Render() output missing %q\n%s", want, doc)
		}
	}
}

func TestRender_MACSetHasNoIntervalFlags(t *testing.T) {
	doc, err := Render(compiledArtifact(t))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	macBlock := doc[strings.Index(doc, "set bm_macs {"):]
	macBlock = macBlock[:strings.Index(macBlock, "}")]
	if strings.Contains(macBlock, "flags interval") {
		t.Errorf("ether_addr set block carries interval flags:\n%s", macBlock)
	}
}

func TestRender_Deterministic(t *testing.T) {
	art := compiledArtifact(t)
	first, err := Render(art)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	second, err := Render(art)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if first != second {
		t.Error("Render() produced different documents for the same artifact")
	}
}

func TestRender_RejectsIncompleteArtifact(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*firewall.Artifact)
	}{
		{"nil input rules", func(a *firewall.Artifact) { a.InputRules = nil }},
		{"nil applications", func(a *firewall.Artifact) { a.Applications = nil }},
		{"nil dnat rules", func(a *firewall.Artifact) { a.DNATRules = nil }},
		{"empty table", func(a *firewall.Artifact) { a.Table = "" }},
		{"empty default policy", func(a *firewall.Artifact) { a.DefaultPolicy = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := compiledArtifact(t)
			tt.mutate(art)
			if _, err := Render(art); err == nil {
				t.Error("Render() accepted an incomplete artifact")
			}
		})
	}
}

func TestRender_NilArtifact(t *testing.T) {
	if _, err := Render(nil); err == nil {
		t.Error("Render(nil) returned no error")
	}
}

func TestRender_UnknownHelperChain(t *testing.T) {
	art := compiledArtifact(t)
	art.Applications = append(art.Applications, "bogus_reject")
	if _, err := Render(art); err == nil {
		t.Error("Render() accepted an unknown helper chain name")
	}
}

func TestApplicationBody_VPN(t *testing.T) {
	body, err := applicationBody("vpn_accept")
	if err != nil {
		t.Fatalf("applicationBody() error: %v", err)
	}
	want := []string{
		"udp dport { 500, 4500 } accept",
		"ip protocol { esp, ah } accept",
	}
	if len(body) != len(want) {
		t.Fatalf("applicationBody() = %v, want %v", body, want)
	}
	for i := range want {
		if body[i] != want[i] {
			t.Errorf("applicationBody()[%d] = %q, want %q", i, body[i], want[i])
		}
	}
}
