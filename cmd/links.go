package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gfz-dataservices/grobi/linkcheck"
	"github.com/gfz-dataservices/grobi/report"
)

var linksOutput string

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Check download links of the SUMARIOPMD database",
	Long: `Check every download URL stored in the SUMARIOPMD database and write
the ones answering 404 to a CSV file.

Examples:
  grobi links -o dead_links.csv`,
	Args: cobra.NoArgs,
	RunE: runLinks,
}

func init() {
	linksCmd.Flags().StringVarP(&linksOutput, "output", "o", "dead_links.csv", "Output CSV file")
}

func runLinks(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	s, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	files, err := s.DownloadURLs(ctx)
	if err != nil {
		return err
	}
	links := linkcheck.Unique(files)
	fmt.Fprintf(os.Stderr, "Prüfe %d Download-Links...\n", len(links))

	res, err := linkcheck.Check(ctx, links, linkcheck.Options{
		Concurrency: cfg.LinkCheck.Concurrency,
		Timeout:     cfg.LinkCheck.Timeout,
		OnProgress: func(done, total int, l linkcheck.Link) {
			if done%25 == 0 || done == total {
				printProgress(done, total, l.URL)
			}
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, report.LinkSummary(res))
	if len(res.Dead) == 0 {
		return nil
	}

	f, err := os.Create(linksOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()
	if err := report.WriteDeadLinks(f, res.Dead); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Tote Links nach %s geschrieben\n", linksOutput)
	return nil
}
