package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gfz-dataservices/grobi/export"
)

var (
	exportOutput string
	exportUseDB  bool
)

var exportCmd = &cobra.Command{
	Use:   "export <kind>",
	Short: "Export the current metadata of all DOIs as CSV",
	Long: fmt.Sprintf(`Export the registered metadata of every DOI of the account.

Kinds: %s

The files use the same layout the update commands read, so an export can
be edited and fed back. With --db, contributor exports are enriched with
contact details from the SUMARIOPMD database. The downloads kind lists the
file table of the database and needs no DataCite account.

Examples:
  grobi export urls
  grobi export contributors --db -o contributors.csv
  grobi export downloads -o downloads.csv`, strings.Join(kindNames(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: kindNames(),
	RunE:      runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: <client-id>_<kind>.csv)")
	exportCmd.Flags().BoolVar(&exportUseDB, "db", false, "Enrich contributors from the SUMARIOPMD database")
}

func kindNames() []string {
	names := make([]string, len(export.Kinds))
	for i, k := range export.Kinds {
		names[i] = string(k)
	}
	return names
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind, err := export.ParseKind(args[0])
	if err != nil {
		return err
	}
	if kind.FromDatabase() {
		return runExportDownloads(cmd, kind)
	}

	client, _, err := newClient()
	if err != nil {
		return err
	}

	var contacts export.ContactSource
	if exportUseDB && kind == export.KindContributors {
		s, err := openStore(ctx, true)
		if err != nil {
			return err
		}
		defer s.Close()
		contacts = s
	}

	fmt.Fprintf(os.Stderr, "Lade alle DOIs von %s...\n", client.Username())
	dois, err := export.Collect(ctx, client)
	if err != nil {
		return err
	}

	path := exportOutput
	if path == "" {
		path = export.DefaultFilename(client.Username(), kind)
	}
	rows, err := writeExport(path, func(w io.Writer) (int, error) {
		return export.Write(ctx, w, kind, dois, contacts)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s Zeilen für %s DOIs nach %s geschrieben\n",
		humanize.Comma(int64(rows)), humanize.Comma(int64(len(dois))), path)
	return nil
}

func runExportDownloads(cmd *cobra.Command, kind export.Kind) error {
	ctx := cmd.Context()
	s, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	path := exportOutput
	if path == "" {
		path = export.DefaultFilename(cfg.Database.Name, kind)
	}
	fmt.Fprintf(os.Stderr, "Lade Dateien aus %s...\n", cfg.Database.Name)
	rows, err := writeExport(path, func(w io.Writer) (int, error) {
		return export.WriteDownloads(ctx, w, s)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s Dateien nach %s geschrieben\n", humanize.Comma(int64(rows)), path)
	return nil
}

func writeExport(path string, write func(io.Writer) (int, error)) (rows int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()
	return write(f)
}
