package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/podnetlabs/podfw/internal/firewall"
	"github.com/podnetlabs/podfw/internal/podnet"
	"github.com/podnetlabs/podfw/internal/rcc"
)

const (
	enabledHost  = "2a02:2078:9::10:0:2"
	disabledHost = "2a02:2078:9::10:0:3"
)

func testPair() podnet.Pair {
	return podnet.Pair{Enabled: enabledHost, Disabled: disabledHost}
}

func testDeployer(runner rcc.Runner) *Deployer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDeployer(runner, logger)
}

func probeMiss() rcc.Result {
	return rcc.Result{PayloadCode: 1}
}

func stepsOf(report NodeReport) []Step {
	steps := make([]Step, 0, len(report.Steps))
	for _, s := range report.Steps {
		steps = append(steps, s.Step)
	}
	return steps
}

func sameSteps(got, want []Step) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBuild_FullSequenceOnBothNodes(t *testing.T) {
	runner := &mockRunner{}
	runner.on("grep", probeMiss())

	report, err := testDeployer(runner).Build(
		context.Background(), testPair(), "ns1100", "firewall", "table inet firewall {}\n")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []Step{StepCreateConfig, StepCheckConfig, StepProbeTable, StepApplyConfig, StepRemoveConfig}
	if got := stepsOf(report.Enabled); !sameSteps(got, want) {
		t.Errorf("enabled node steps = %v, want %v", got, want)
	}
	if got := stepsOf(report.Disabled); !sameSteps(got, want) {
		t.Errorf("disabled node steps = %v, want %v", got, want)
	}

	// The enabled node must be fully deployed before the disabled node is
	// contacted at all.
	if runner.calls[0].Host != enabledHost {
		t.Errorf("first payload went to %s, want the enabled node", runner.calls[0].Host)
	}
	enabledCalls := len(runner.callsFor(enabledHost))
	for i, c := range runner.calls {
		if c.Host == disabledHost && i < enabledCalls {
			t.Errorf("disabled node contacted at call %d, before the enabled node finished", i)
		}
	}
}

func TestBuild_DeletesExistingTable(t *testing.T) {
	runner := &mockRunner{}
	// Default result is success, so the probe reports the table present.

	report, err := testDeployer(runner).Build(
		context.Background(), testPair(), "ns1100", "firewall", "table inet firewall {}\n")
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []Step{StepCreateConfig, StepCheckConfig, StepProbeTable, StepDeleteTable, StepApplyConfig, StepRemoveConfig}
	if got := stepsOf(report.Enabled); !sameSteps(got, want) {
		t.Errorf("enabled node steps = %v, want delete before apply: %v", got, want)
	}
}

func TestBuild_EnabledFailureStopsSequence(t *testing.T) {
	runner := &mockRunner{}
	runner.on("grep", probeMiss())
	runner.onHost(enabledHost, "--check", rcc.Result{PayloadCode: 1, Stderr: "syntax error"})

	report, err := testDeployer(runner).Build(
		context.Background(), testPair(), "ns1100", "firewall", "bad document")
	if err == nil {
		t.Fatal("Build() succeeded despite a failing check on the enabled node")
	}
	if !strings.Contains(err.Error(), string(StepCheckConfig)) {
		t.Errorf("Build() error = %v, want the failing step named", err)
	}

	if len(report.Disabled.Steps) != 0 {
		t.Errorf("disabled node ran %d steps after enabled node failure, want 0", len(report.Disabled.Steps))
	}
	if calls := runner.callsFor(disabledHost); len(calls) != 0 {
		t.Errorf("disabled node received %d payloads after enabled node failure, want 0", len(calls))
	}

	// The failing step itself is part of the report.
	last := report.Enabled.Steps[len(report.Enabled.Steps)-1]
	if last.Step != StepCheckConfig || last.Result.PayloadCode != 1 {
		t.Errorf("last enabled step = %+v, want the failed check", last)
	}
}

func TestBuild_ChannelFailure(t *testing.T) {
	runner := &mockRunner{}
	runner.onHost(enabledHost, "printf", rcc.Result{
		ChannelCode: rcc.ChannelConnectFail,
		Err:         errors.New("dial tcp: connection refused"),
	})

	_, err := testDeployer(runner).Build(
		context.Background(), testPair(), "ns1100", "firewall", "table inet firewall {}\n")
	if err == nil {
		t.Fatal("Build() succeeded despite an unreachable enabled node")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Build() error = %v, want the channel error wrapped", err)
	}
}

func TestDeploy_ValidationErrorsReachNoNode(t *testing.T) {
	runner := &mockRunner{}

	in := firewall.Input{
		Namespace:     "ns1100",
		Table:         "firewall",
		DefaultPolicy: "reject",
	}
	_, verrs, err := testDeployer(runner).Deploy(context.Background(), testPair(), in)
	if err == nil {
		t.Fatal("Deploy() succeeded with an invalid default policy")
	}
	if len(verrs) == 0 {
		t.Error("Deploy() returned no validation errors")
	}
	if len(runner.calls) != 0 {
		t.Errorf("Deploy() ran %d payloads despite validation errors, want 0", len(runner.calls))
	}
}

func TestDeploy_CompilesRendersAndBuilds(t *testing.T) {
	runner := &mockRunner{}
	runner.on("grep", probeMiss())

	in := firewall.Input{
		Namespace:     "ns1100",
		Table:         "firewall",
		DefaultPolicy: "drop",
		UserRules: []firewall.Rule{
			{Version: 4, Source: []string{"91.103.3.36"}, Destination: []string{"any"},
				Protocol: "tcp", Port: []string{"22"}, Action: "accept", IIface: "ns.BM1", Order: 1},
		},
	}
	report, verrs, err := testDeployer(runner).Deploy(context.Background(), testPair(), in)
	if err != nil || len(verrs) != 0 {
		t.Fatalf("Deploy() = %v, %v", verrs, err)
	}
	if len(report.Enabled.Steps) == 0 || len(report.Disabled.Steps) == 0 {
		t.Error("Deploy() did not run the build sequence on both nodes")
	}

	// The staged document carries the compiled rule and is placed under the
	// document's own namespace.
	if !strings.Contains(runner.calls[0].Payload, "91.103.3.36") {
		t.Errorf("create payload lacks the compiled rule: %q", runner.calls[0].Payload)
	}
	if !strings.Contains(runner.calls[0].Payload, configPath("ns1100", "firewall")) {
		t.Errorf("create payload does not stage under the document namespace: %q", runner.calls[0].Payload)
	}
}

func TestScrub_DeletesWhenPresent(t *testing.T) {
	runner := &mockRunner{}

	report, err := testDeployer(runner).Scrub(context.Background(), testPair(), "ns1100", "firewall")
	if err != nil {
		t.Fatalf("Scrub() error: %v", err)
	}

	want := []Step{StepProbeTable, StepDeleteTable}
	if got := stepsOf(report.Enabled); !sameSteps(got, want) {
		t.Errorf("enabled node steps = %v, want %v", got, want)
	}
	if got := stepsOf(report.Disabled); !sameSteps(got, want) {
		t.Errorf("disabled node steps = %v, want %v", got, want)
	}
}

func TestScrub_SkipsAbsentTable(t *testing.T) {
	runner := &mockRunner{}
	runner.on("grep", probeMiss())

	report, err := testDeployer(runner).Scrub(context.Background(), testPair(), "ns1100", "firewall")
	if err != nil {
		t.Fatalf("Scrub() error: %v", err)
	}

	want := []Step{StepProbeTable}
	if got := stepsOf(report.Enabled); !sameSteps(got, want) {
		t.Errorf("enabled node steps = %v, want probe only", got)
	}
}

func TestScrub_EnabledFailureStopsSequence(t *testing.T) {
	runner := &mockRunner{}
	runner.onHost(enabledHost, "delete table", rcc.Result{PayloadCode: 1, Stderr: "busy"})

	_, err := testDeployer(runner).Scrub(context.Background(), testPair(), "ns1100", "firewall")
	if err == nil {
		t.Fatal("Scrub() succeeded despite a failing delete on the enabled node")
	}
	if calls := runner.callsFor(disabledHost); len(calls) != 0 {
		t.Errorf("disabled node received %d payloads after enabled node failure, want 0", len(calls))
	}
}

func TestRead_InSync(t *testing.T) {
	runner := &mockRunner{}
	runner.on("list table", rcc.Result{Stdout: "table inet firewall {\n}\n"})

	report, err := testDeployer(runner).Read(context.Background(), testPair(), "ns1100", "firewall")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if report.Enabled != report.Disabled {
		t.Errorf("Read() outputs differ: %q vs %q", report.Enabled, report.Disabled)
	}
	if report.Diff != "" {
		t.Errorf("Read() diff = %q, want empty for identical nodes", report.Diff)
	}
}

func TestRead_ReportsDrift(t *testing.T) {
	runner := &mockRunner{}
	runner.onHost(enabledHost, "list table", rcc.Result{Stdout: "table inet firewall {\n\tchain input {\n\t}\n}\n"})
	runner.onHost(disabledHost, "list table", rcc.Result{Stdout: "table inet firewall {\n}\n"})

	report, err := testDeployer(runner).Read(context.Background(), testPair(), "ns1100", "firewall")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if report.Diff == "" {
		t.Fatal("Read() diff empty, want unified diff of drifted nodes")
	}
	if !strings.Contains(report.Diff, "chain input") {
		t.Errorf("Read() diff = %q, want the drifted line present", report.Diff)
	}
	if !strings.Contains(report.Diff, enabledHost) || !strings.Contains(report.Diff, disabledHost) {
		t.Errorf("Read() diff = %q, want both node addresses in the headers", report.Diff)
	}
}

func TestRead_EnabledFailure(t *testing.T) {
	runner := &mockRunner{}
	runner.onHost(enabledHost, "list table", rcc.Result{PayloadCode: 1, Stderr: "No such file or directory"})

	_, err := testDeployer(runner).Read(context.Background(), testPair(), "ns1100", "firewall")
	if err == nil {
		t.Fatal("Read() succeeded despite a failing list on the enabled node")
	}
	if calls := runner.callsFor(disabledHost); len(calls) != 0 {
		t.Errorf("disabled node received %d payloads after enabled node failure, want 0", len(calls))
	}
}
