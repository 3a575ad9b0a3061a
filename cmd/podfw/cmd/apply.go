package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podnetlabs/podfw/internal/deploy"
	"github.com/podnetlabs/podfw/internal/podnet"
	"github.com/podnetlabs/podfw/internal/rcc"
)

var applyCmd = &cobra.Command{
	Use:   "apply <rule-document>",
	Short: "Compile a rule document and deploy it to the HA pair",
	Long: "Validate and compile the YAML rule document, then stage, check and\n" +
		"apply the configuration on both pod nodes, enabled node first. A failure\n" +
		"on the enabled node leaves the disabled node untouched.",
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel)

	in, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	cfg, err := podnet.Parse(cfgFile)
	if err != nil {
		return err
	}
	pair, err := cfg.Pair()
	if err != nil {
		return err
	}

	runner, err := rcc.NewSSHRunner(cfg.SSH, logger)
	if err != nil {
		return err
	}

	deployer := deploy.NewDeployer(runner, logger)
	report, verrs, err := deployer.Deploy(cmd.Context(), pair, in)
	if len(verrs) > 0 {
		printValidationErrors(cmd.ErrOrStderr(), verrs)
		return fmt.Errorf("podfw apply: rule document rejected")
	}
	if err != nil {
		return fmt.Errorf("podfw apply: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "applied table %s in namespace %s\n", in.Table, in.Namespace)
	fmt.Fprintf(w, "  enabled  %s: %d steps\n", pair.Enabled, len(report.Enabled.Steps))
	fmt.Fprintf(w, "  disabled %s: %d steps\n", pair.Disabled, len(report.Disabled.Steps))
	return nil
}
