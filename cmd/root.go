// Package cmd provides CLI commands for grobi.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gfz-dataservices/grobi/config"
)

var (
	configDir   string
	accountRef  string
	writeLogDir string

	// cfg is loaded once before any subcommand runs
	cfg *config.Config
)

func setupLogger() {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "INFO"
	}

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)

	slog.SetDefault(logger)
}

var rootCmd = &cobra.Command{
	Use:   "grobi",
	Short: "Bulk-update DOI metadata at DataCite",
	Long: `GROBI updates DataCite DOI metadata in bulk from CSV files.

Landing page URLs, creators, contributors, rights and publishers are
compared against the registered state first, so only changed DOIs are
written. Creators, contributors and publishers can be mirrored into a
SUMARIOPMD database before DataCite is touched.

Examples:
  grobi accounts add "GFZ Test" -u XUVM.KDVJHQ --test
  grobi export urls -o urls.csv
  grobi update url -i urls.csv --dry-run
  grobi update authors -i creators.csv --db
  grobi split -i all_dois.csv -o parts --level 2`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configDir != "" {
			config.SetConfigDir(configDir)
		}
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context of
// the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	setupLogger()
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Configuration directory (default: ~/.grobi)")
	rootCmd.PersistentFlags().StringVarP(&accountRef, "account", "a", "", "Account id or display name (default: last used)")
	rootCmd.PersistentFlags().StringVar(&writeLogDir, "log-dir", "", "Write a detailed run log into this directory")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(configCmd)
}
