package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gfz-dataservices/grobi/engine"
	"github.com/gfz-dataservices/grobi/report"
)

var (
	schemaOutput string
	schemaYes    bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Analyze and upgrade DOI schema versions",
	Long: `Find DOIs still registered with a kernel-3 schema and upgrade them.

'analyze' lists every DOI of the account and classifies it without
writing. 'upgrade' runs the same analysis and then writes kernel-4 for
the DOIs that carry all required fields.

Examples:
  grobi schema analyze -o schema.csv
  grobi schema upgrade --dry-run`,
}

var schemaAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify every DOI by schema upgradeability",
	Args:  cobra.NoArgs,
	RunE:  runSchemaAnalyze,
}

var schemaUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade all upgradeable DOIs to kernel-4",
	Args:  cobra.NoArgs,
	RunE:  runSchemaUpgrade,
}

func init() {
	schemaAnalyzeCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write the analysis as CSV (default: stdout)")
	schemaUpgradeCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Compare only, never write")
	schemaUpgradeCmd.Flags().BoolVarP(&schemaYes, "yes", "y", false, "Do not ask for confirmation")
	schemaCmd.AddCommand(schemaAnalyzeCmd, schemaUpgradeCmd)
}

func analyze(ctx context.Context) (*engine.SchemaAnalysis, engine.Remote, error) {
	client, acct, err := newClient()
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(os.Stderr, "Analysiere alle DOIs von %s...\n", acct.Username)
	a, err := engine.AnalyzeSchemas(ctx, client, printProgress)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintln(os.Stderr, report.SchemaSummary(a))
	return a, client, nil
}

func runSchemaAnalyze(cmd *cobra.Command, args []string) (err error) {
	a, _, err := analyze(cmd.Context())
	if err != nil {
		return err
	}

	out := os.Stdout
	if schemaOutput != "" {
		f, createErr := os.Create(schemaOutput)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", closeErr)
			}
		}()
		out = f
	}
	return report.WriteSchemaAnalysis(out, a)
}

func runSchemaUpgrade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, client, err := analyze(ctx)
	if err != nil {
		return err
	}
	if len(a.Upgradeable) == 0 {
		fmt.Fprintln(os.Stderr, "Keine upgrade-fähigen DOIs gefunden.")
		return nil
	}
	if !updateDryRun && !schemaYes && !confirm(fmt.Sprintf("%d DOIs auf kernel-4 aktualisieren?", len(a.Upgradeable))) {
		return nil
	}

	opts := engine.Options{DryRun: updateDryRun, OnProgress: printProgress}
	res, runErr := engine.UpgradeSchemas(ctx, client, a, opts)
	if res == nil {
		return runErr
	}
	return finishRun(res, runErr, false)
}
