package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podnetlabs/podfw/internal/deploy"
	"github.com/podnetlabs/podfw/internal/nft"
	"github.com/podnetlabs/podfw/internal/podnet"
	"github.com/podnetlabs/podfw/internal/rcc"
)

var readLocal bool

var readCmd = &cobra.Command{
	Use:   "read <namespace> <table>",
	Short: "Show the live firewall table on both nodes",
	Long: "List the named table in the namespace on both pod nodes and report\n" +
		"any drift between them as a unified diff. With --local the table is\n" +
		"read from this node's kernel directly instead of over SSH.",
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVar(&readLocal, "local", false, "operate on the local kernel instead of the HA pair")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel)
	namespace, table := args[0], args[1]

	if readLocal {
		ctrl := nft.NewLocalController(namespace, logger)
		out, err := ctrl.ListTable(cmd.Context(), table)
		if err != nil {
			return fmt.Errorf("podfw read: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
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

	report, err := deploy.NewDeployer(runner, logger).Read(cmd.Context(), pair, namespace, table)
	if err != nil {
		return fmt.Errorf("podfw read: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "# enabled %s\n%s\n", pair.Enabled, report.Enabled)
	fmt.Fprintf(w, "# disabled %s\n%s\n", pair.Disabled, report.Disabled)
	if report.Diff != "" {
		fmt.Fprintf(w, "# nodes have drifted\n%s", report.Diff)
		return fmt.Errorf("podfw read: pod nodes have drifted")
	}
	return nil
}
