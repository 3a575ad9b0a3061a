package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podnetlabs/podfw/internal/firewall"
	"github.com/podnetlabs/podfw/internal/fsutil"
	"github.com/podnetlabs/podfw/internal/render"
)

var compileOutput string

var compileCmd = &cobra.Command{
	Use:   "compile <rule-document>",
	Short: "Compile a rule document into nftables configuration",
	Long: "Validate the YAML rule document and print the rendered nftables\n" +
		"configuration. On validation failure every error is reported and no\n" +
		"configuration is produced.",
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "write the configuration to a file instead of stdout")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel)

	in, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	art, verrs := firewall.NewCompiler(logger).Compile(in)
	if len(verrs) > 0 {
		printValidationErrors(cmd.ErrOrStderr(), verrs)
		return fmt.Errorf("podfw compile: rule document rejected")
	}

	document, err := render.Render(art)
	if err != nil {
		return fmt.Errorf("podfw compile: %w", err)
	}

	if compileOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), document)
		return nil
	}

	if err := fsutil.WriteConfig(compileOutput, document); err != nil {
		return fmt.Errorf("podfw compile: %w", err)
	}
	logger.Info("configuration written", "path", compileOutput, "table", in.Table)
	return nil
}
