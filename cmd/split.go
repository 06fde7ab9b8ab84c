package cmd

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gfz-dataservices/grobi/csvsplit"
)

var (
	splitInput  string
	splitOutput string
	splitLevel  int
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a DOI CSV into one file per DOI prefix",
	Long: `Split a CSV file whose first column is DOI into one file per prefix.

Level 1 groups by registrant code (10.5880), level 2 adds the first suffix
token (10.5880/gfz), and so on up to level 4.

Examples:
  grobi split -i all_dois.csv
  grobi split -i all_dois.csv -o parts --level 3`,
	Args: cobra.NoArgs,
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().StringVarP(&splitInput, "input", "i", "", "Input CSV file (required)")
	splitCmd.Flags().StringVarP(&splitOutput, "output", "o", "", "Output directory (default: next to the input)")
	splitCmd.Flags().IntVarP(&splitLevel, "level", "l", 0, "Prefix level 1-4 (default from config)")
	_ = splitCmd.MarkFlagRequired("input")
}

func runSplit(cmd *cobra.Command, args []string) error {
	level := splitLevel
	if level == 0 {
		level = cfg.Splitter.Level
	}
	dir := splitOutput
	if dir == "" {
		dir = filepath.Dir(splitInput)
	}

	res, err := csvsplit.Split(splitInput, csvsplit.Options{
		OutputDir: dir,
		Level:     level,
		Progress: func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
		},
	})
	if err != nil {
		return err
	}

	if splitLevel != 0 && splitLevel != cfg.Splitter.Level {
		cfg.Splitter.Level = splitLevel
		if err := cfg.Save(); err != nil {
			return err
		}
	}

	for _, prefix := range slices.Sorted(maps.Keys(res.Counts)) {
		fmt.Printf("%-30s %8s  %s\n", prefix, humanize.Comma(int64(res.Counts[prefix])), res.Files[prefix])
	}
	fmt.Fprintf(os.Stderr, "%s Zeilen in %d Dateien geschrieben", humanize.Comma(int64(res.TotalRows)), len(res.Files))
	if res.Skipped > 0 {
		fmt.Fprintf(os.Stderr, ", %d übersprungen", res.Skipped)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}
