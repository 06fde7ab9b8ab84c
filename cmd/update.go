package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gfz-dataservices/grobi/csvparse"
	"github.com/gfz-dataservices/grobi/engine"
	"github.com/gfz-dataservices/grobi/report"
)

var (
	updateInput  string
	updateDryRun bool
	updateUseDB  bool
	updateQuiet  bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update DOI metadata from a CSV file",
	Long: `Update DOI metadata at DataCite from a CSV file.

Each DOI is fetched first and only written when the CSV differs from the
registered state. With --db, creators, contributors and publishers are
written to the SUMARIOPMD database before DataCite. Download URLs live in
the database only.

Examples:
  grobi update url -i urls.csv
  grobi update authors -i creators.csv --db --dry-run
  grobi update rights -i rights.csv --account "GFZ Test"
  grobi update downloads -i downloads.csv`,
}

func updateSubcommand(use, short string, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	c.Flags().StringVarP(&updateInput, "input", "i", "", "Input CSV file (required)")
	c.Flags().BoolVar(&updateDryRun, "dry-run", false, "Compare only, never write")
	c.Flags().BoolVarP(&updateQuiet, "quiet", "q", false, "Do not print per-DOI progress")
	_ = c.MarkFlagRequired("input")
	return c
}

func init() {
	urlCmd := updateSubcommand("url", "Update landing page URLs", func(cmd *cobra.Command, _ []string) error {
		return runUpdate(cmd, engine.URL, csvparse.ParseURLs)
	})
	authorsCmd := updateSubcommand("authors", "Update creators", func(cmd *cobra.Command, _ []string) error {
		return runUpdate(cmd, engine.Authors, csvparse.ParseAuthors)
	})
	contributorsCmd := updateSubcommand("contributors", "Update contributors", func(cmd *cobra.Command, _ []string) error {
		return runUpdate(cmd, engine.Contributors, csvparse.ParseContributors)
	})
	rightsCmd := updateSubcommand("rights", "Update rights statements", func(cmd *cobra.Command, _ []string) error {
		return runUpdate(cmd, engine.Rights, csvparse.ParseRights)
	})
	publisherCmd := updateSubcommand("publisher", "Update publishers", func(cmd *cobra.Command, _ []string) error {
		return runUpdate(cmd, engine.Publisher, csvparse.ParsePublishers)
	})

	for _, c := range []*cobra.Command{authorsCmd, contributorsCmd, publisherCmd} {
		c.Flags().BoolVar(&updateUseDB, "db", false, "Also write the SUMARIOPMD database")
	}

	downloadsCmd := updateSubcommand("downloads", "Update download URLs in the SUMARIOPMD database", runUpdateDownloads)

	updateCmd.AddCommand(urlCmd, authorsCmd, contributorsCmd, rightsCmd, publisherCmd, downloadsCmd)
}

func runUpdate[T any](cmd *cobra.Command, kind engine.Kind[T], parse func(string) (*csvparse.Result[T], error)) error {
	ctx := cmd.Context()

	parsed, err := parse(updateInput)
	if err != nil {
		return err
	}
	printParsed(parsed.Warnings, parsed.Len())

	client, acct, err := newClient()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Konto: %s (%s, %s)\n", acct.DisplayName, acct.Username, acct.APIType)

	opts := runOptions()
	storeEnabled := false
	if updateUseDB && kind.Mirror != nil {
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}
		defer s.Close()
		opts.Store = s
		storeEnabled = true
	}

	task := engine.Start(ctx, func(ctx context.Context) (*engine.BatchResult, error) {
		return engine.Run(ctx, client, kind, parsed.DOIs, parsed.Records, opts)
	}, nil)
	res, runErr := task.Wait()
	return finishRun(&res, runErr, storeEnabled)
}

func runUpdateDownloads(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	parsed, err := csvparse.ParseDownloads(updateInput)
	if err != nil {
		return err
	}
	printParsed(parsed.Warnings, parsed.Len())
	files := csvparse.Files(parsed)

	s, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := runOptions()
	task := engine.Start(ctx, func(ctx context.Context) (*engine.BatchResult, error) {
		return engine.RunDownloads(ctx, s, files, opts), nil
	}, nil)
	res, runErr := task.Wait()
	return finishRun(&res, runErr, true)
}

func printParsed(warnings []string, n int) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warnung: %s\n", w)
	}
	fmt.Fprintf(os.Stderr, "%s DOIs aus %s gelesen\n", humanize.Comma(int64(n)), updateInput)
}

func runOptions() engine.Options {
	opts := engine.Options{DryRun: updateDryRun}
	if !updateQuiet {
		opts.OnProgress = printProgress
	}
	return opts
}

// finishRun prints the summary, writes the log file and turns a cancelled
// batch into an error.
func finishRun(res *engine.BatchResult, runErr error, storeEnabled bool) error {
	run := report.NewRun(res, storeEnabled)
	printSummary(run)
	if writeLogDir != "" {
		path, err := run.WriteFile(writeLogDir)
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(os.Stderr, "Log geschrieben: %s\n", path)
	}
	if runErr != nil {
		return runErr
	}
	if res.Cancelled {
		return errors.New("abgebrochen")
	}
	return nil
}

func printSummary(run report.Run) {
	res := run.Result
	fmt.Fprintf(os.Stderr, "\n%s: %d aktualisiert, %d übersprungen, %d Fehler (%.1f%% ohne API-Aufruf)\n",
		res.Kind, res.UpdatedCount(), res.SkippedCount, res.ErrorCount, res.Efficiency())
	if incs := res.Inconsistencies(); len(incs) > 0 {
		fmt.Fprintf(os.Stderr, "KRITISCH: %d DOIs mit Datenbank/DataCite-Inkonsistenz\n", len(incs))
		for _, doi := range incs {
			fmt.Fprintf(os.Stderr, "  %s\n", doi)
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(os.Stderr, "  FEHLER %s\n", e)
	}
}
