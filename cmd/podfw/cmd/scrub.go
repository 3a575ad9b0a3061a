package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podnetlabs/podfw/internal/deploy"
	"github.com/podnetlabs/podfw/internal/nft"
	"github.com/podnetlabs/podfw/internal/podnet"
	"github.com/podnetlabs/podfw/internal/rcc"
)

var scrubLocal bool

var scrubCmd = &cobra.Command{
	Use:   "scrub <namespace> <table>",
	Short: "Remove a firewall table from the HA pair",
	Long: "Delete the named table in the namespace on both pod nodes, enabled\n" +
		"node first. With --local the table is removed from this node's kernel\n" +
		"directly instead of over SSH.",
	Args: cobra.ExactArgs(2),
	RunE: runScrub,
}

func init() {
	scrubCmd.Flags().BoolVar(&scrubLocal, "local", false, "operate on the local kernel instead of the HA pair")
	rootCmd.AddCommand(scrubCmd)
}

func runScrub(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel)
	namespace, table := args[0], args[1]

	if scrubLocal {
		ctrl := nft.NewLocalController(namespace, logger)
		if err := ctrl.DeleteTable(table); err != nil {
			return fmt.Errorf("podfw scrub: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scrubbed table %s in namespace %s locally\n", table, namespace)
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

	if _, err := deploy.NewDeployer(runner, logger).Scrub(cmd.Context(), pair, namespace, table); err != nil {
		return fmt.Errorf("podfw scrub: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scrubbed table %s in namespace %s on both nodes\n", table, namespace)
	return nil
}
