// Package deploy pushes compiled firewall configuration onto the HA pod
// node pair. Every remote action is an explicit payload step with a typed
// result; the enabled node is always deployed first and a failure there
// stops the sequence before the disabled node is touched.
package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/podnetlabs/podfw/internal/firewall"
	"github.com/podnetlabs/podfw/internal/podnet"
	"github.com/podnetlabs/podfw/internal/rcc"
	"github.com/podnetlabs/podfw/internal/render"
)

// Step names one payload in a deployment sequence.
type Step string

const (
	StepCreateConfig Step = "create_config"
	StepCheckConfig  Step = "check_config"
	StepProbeTable   Step = "probe_table"
	StepDeleteTable  Step = "delete_table"
	StepApplyConfig  Step = "apply_config"
	StepRemoveConfig Step = "remove_config"
	StepListTable    Step = "list_table"
)

// StepResult is the outcome of one payload on one host.
type StepResult struct {
	Step   Step
	Host   string
	Result rcc.Result
}

// failed reports whether the step should abort the node's sequence. A probe
// that ran and exited non-zero is a negative answer, not a failure.
func (s StepResult) failed() bool {
	if !s.Result.Delivered() {
		return true
	}
	if s.Step == StepProbeTable {
		return false
	}
	return s.Result.PayloadCode != rcc.PayloadSuccess
}

// NodeReport collects the steps run against one host, in execution order.
type NodeReport struct {
	Host  string
	Steps []StepResult
}

// Report covers a full pair deployment. Disabled.Steps is empty when the
// enabled node failed.
type Report struct {
	Enabled  NodeReport
	Disabled NodeReport
}

// ReadReport holds both nodes' live table text and their drift, if any.
type ReadReport struct {
	Enabled  string
	Disabled string

	// Diff is a unified diff of the two nodes' output, empty when in sync.
	Diff string
}

// Deployer runs payload sequences over a command channel.
type Deployer struct {
	runner rcc.Runner
	logger *slog.Logger
}

// NewDeployer creates a Deployer using runner for all remote execution.
func NewDeployer(runner rcc.Runner, logger *slog.Logger) *Deployer {
	return &Deployer{
		runner: runner,
		logger: logger.With("component", "deploy"),
	}
}

// Deploy compiles and renders the input, then builds it onto the pair under
// the input's own namespace. Validation errors are returned without any node
// being contacted.
func (d *Deployer) Deploy(ctx context.Context, pair podnet.Pair, in firewall.Input) (Report, []*firewall.ValidationError, error) {
	art, verrs := firewall.NewCompiler(d.logger).Compile(in)
	if len(verrs) > 0 {
		return Report{}, verrs, fmt.Errorf("deploy: input rejected with %d validation errors", len(verrs))
	}
	document, err := render.Render(art)
	if err != nil {
		return Report{}, nil, err
	}
	report, err := d.Build(ctx, pair, in.Namespace, in.Table, document)
	return report, nil, err
}

// Build stages, checks and applies the rendered document on both nodes,
// enabled first. An existing table is deleted before apply so repeated
// builds are idempotent.
func (d *Deployer) Build(ctx context.Context, pair podnet.Pair, namespace, table, document string) (Report, error) {
	var report Report

	nodeReport, err := d.buildNode(ctx, pair.Enabled, namespace, table, document)
	report.Enabled = nodeReport
	if err != nil {
		return report, err
	}

	nodeReport, err = d.buildNode(ctx, pair.Disabled, namespace, table, document)
	report.Disabled = nodeReport
	return report, err
}

// buildNode runs the full build sequence on one host. The returned report
// contains every step that ran, including the failing one.
func (d *Deployer) buildNode(ctx context.Context, host, namespace, table, document string) (NodeReport, error) {
	path := configPath(namespace, table)
	report := NodeReport{Host: host}

	steps := []struct {
		step    Step
		payload string
	}{
		{StepCreateConfig, createConfigPayload(path, document)},
		{StepCheckConfig, checkPayload(namespace, path)},
		{StepProbeTable, probeTablePayload(namespace, table)},
	}
	for _, s := range steps {
		result, err := d.runStep(ctx, &report, s.step, host, s.payload)
		if err != nil {
			return report, err
		}
		// A positive probe means a previous deployment is still loaded.
		if s.step == StepProbeTable && result.OK() {
			if _, err := d.runStep(ctx, &report, StepDeleteTable, host, deleteTablePayload(namespace, table)); err != nil {
				return report, err
			}
		}
	}

	if _, err := d.runStep(ctx, &report, StepApplyConfig, host, applyPayload(namespace, path)); err != nil {
		return report, err
	}
	if _, err := d.runStep(ctx, &report, StepRemoveConfig, host, removeConfigPayload(path)); err != nil {
		return report, err
	}

	d.logger.Info("firewall table deployed", "host", host, "namespace", namespace, "table", table)
	return report, nil
}

// Scrub removes the table from both nodes, enabled first. A node without
// the table is already scrubbed and is not an error.
func (d *Deployer) Scrub(ctx context.Context, pair podnet.Pair, namespace, table string) (Report, error) {
	var report Report

	nodeReport, err := d.scrubNode(ctx, pair.Enabled, namespace, table)
	report.Enabled = nodeReport
	if err != nil {
		return report, err
	}

	nodeReport, err = d.scrubNode(ctx, pair.Disabled, namespace, table)
	report.Disabled = nodeReport
	return report, err
}

func (d *Deployer) scrubNode(ctx context.Context, host, namespace, table string) (NodeReport, error) {
	report := NodeReport{Host: host}

	result, err := d.runStep(ctx, &report, StepProbeTable, host, probeTablePayload(namespace, table))
	if err != nil {
		return report, err
	}
	if !result.OK() {
		d.logger.Info("table not present, nothing to scrub", "host", host, "namespace", namespace, "table", table)
		return report, nil
	}

	if _, err := d.runStep(ctx, &report, StepDeleteTable, host, deleteTablePayload(namespace, table)); err != nil {
		return report, err
	}
	d.logger.Info("firewall table scrubbed", "host", host, "namespace", namespace, "table", table)
	return report, nil
}

// Read lists the live table on both nodes and diffs the two outputs. The
// nodes are expected to be identical; any drift is surfaced in the report
// for the operator rather than treated as an error.
func (d *Deployer) Read(ctx context.Context, pair podnet.Pair, namespace, table string) (ReadReport, error) {
	payload := listTablePayload(namespace, table)

	enabled := d.run(ctx, StepListTable, pair.Enabled, payload)
	if enabled.failed() {
		return ReadReport{}, stepError(enabled)
	}

	disabled := d.run(ctx, StepListTable, pair.Disabled, payload)
	if disabled.failed() {
		return ReadReport{Enabled: enabled.Result.Stdout}, stepError(disabled)
	}

	report := ReadReport{
		Enabled:  enabled.Result.Stdout,
		Disabled: disabled.Result.Stdout,
	}
	if report.Enabled != report.Disabled {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(report.Enabled),
			B:        difflib.SplitLines(report.Disabled),
			FromFile: "enabled/" + pair.Enabled,
			ToFile:   "disabled/" + pair.Disabled,
			Context:  3,
		})
		if err != nil {
			return report, fmt.Errorf("deploy: diff node output: %w", err)
		}
		report.Diff = diff
		d.logger.Warn("pod nodes have drifted", "namespace", namespace, "table", table)
	}
	return report, nil
}

// runStep executes one payload, appends its result to the node report and
// returns an error when the step aborts the sequence.
func (d *Deployer) runStep(ctx context.Context, report *NodeReport, step Step, host, payload string) (rcc.Result, error) {
	s := d.run(ctx, step, host, payload)
	report.Steps = append(report.Steps, s)
	if s.failed() {
		return s.Result, stepError(s)
	}
	return s.Result, nil
}

func (d *Deployer) run(ctx context.Context, step Step, host, payload string) StepResult {
	d.logger.Debug("running step", "step", step, "host", host)
	return StepResult{
		Step:   step,
		Host:   host,
		Result: d.runner.Run(ctx, host, payload),
	}
}

func stepError(s StepResult) error {
	if s.Result.Err != nil {
		return fmt.Errorf("deploy: %s on %s: %w", s.Step, s.Host, s.Result.Err)
	}
	return fmt.Errorf("deploy: %s on %s: payload exited %d: %s",
		s.Step, s.Host, s.Result.PayloadCode, s.Result.Stderr)
}
