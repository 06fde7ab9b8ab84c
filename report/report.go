// Package report renders batch results as plain-text logs and CSV files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/gfz-dataservices/grobi/engine"
	"github.com/gfz-dataservices/grobi/linkcheck"
)

var rule = strings.Repeat("=", 70)

// Run describes one finished batch.
type Run struct {
	ID           string
	Started      time.Time
	StoreEnabled bool
	Result       *engine.BatchResult
}

// NewRun stamps a result with a fresh run id.
func NewRun(res *engine.BatchResult, storeEnabled bool) Run {
	return Run{
		ID:           uuid.NewString()[:8],
		Started:      time.Now(),
		StoreEnabled: storeEnabled,
		Result:       res,
	}
}

// Filename is the log file name of the run, e.g.
// grobi_creators_20260114_093000_1a2b3c4d.log.
func (r Run) Filename() string {
	kind := strings.ToLower(r.Result.Kind)
	if kind == "" {
		kind = "update"
	}
	return fmt.Sprintf("grobi_%s_%s_%s.log", kind, r.Started.Format("20060102_150405"), r.ID)
}

// Write renders the summary and itemized lists.
func (r Run) Write(w io.Writer) error {
	res := r.Result
	total := res.Total()
	b := &strings.Builder{}
	line := func(format string, args ...any) { fmt.Fprintf(b, format+"\n", args...) }

	line(rule)
	title := fmt.Sprintf("GROBI - %s Update Log", res.Kind)
	if res.DryRun {
		title += " (Testlauf)"
	}
	line(title)
	line(rule)
	line("Datum: %s", r.Started.Format("2006-01-02 15:04:05"))
	line("Lauf: %s", r.ID)
	if r.StoreEnabled {
		line("Datenbank-Synchronisation: Aktiviert")
	} else {
		line("Datenbank-Synchronisation: Deaktiviert")
	}
	line("")
	line("ZUSAMMENFASSUNG:")
	line("  Gesamt: %s DOIs", humanize.Comma(int64(total)))
	line("  Erfolgreich aktualisiert: %s", humanize.Comma(int64(res.UpdatedCount())))
	line("  Übersprungen (keine Änderungen): %s", humanize.Comma(int64(res.SkippedCount)))
	line("  Fehlgeschlagen: %s", humanize.Comma(int64(res.ErrorCount)))
	if res.Cancelled {
		line("  Abgebrochen durch Benutzer")
	}
	line("")
	line("EFFIZIENZ:")
	line("  API-Calls vermieden: %d/%d (%.1f%%)", res.SkippedCount, total, res.Efficiency())
	if n := len(res.Inconsistencies()); n > 0 {
		line("")
		line("  KRITISCHE INKONSISTENZEN: %d", n)
		line("     (Datenbank erfolgreich, DataCite fehlgeschlagen)")
	}
	line("")

	if len(res.Warnings) > 0 {
		line(rule)
		line("WARNUNGEN:")
		line(rule)
		for _, warn := range res.Warnings {
			line("  - %s", warn)
		}
		line("")
	}
	if len(res.Skipped) > 0 {
		line(rule)
		line("ÜBERSPRUNGENE DOIs (keine Änderungen):")
		line(rule)
		for _, s := range res.Skipped {
			line("  - %s", s.DOI)
			line("    Grund: %s", s.Reason)
		}
		line("")
	}
	if len(res.Errors) > 0 {
		line(rule)
		line("FEHLER:")
		line(rule)
		for _, e := range res.Errors {
			line("  - %s", e)
		}
	} else {
		line("Keine Fehler aufgetreten.")
	}
	line("")
	line(rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile writes the log into dir and returns its path.
func (r Run) WriteFile(dir string) (path string, err error) {
	path = filepath.Join(dir, r.Filename())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating log file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing log file: %w", cerr)
		}
	}()
	if err := r.Write(f); err != nil {
		return "", fmt.Errorf("writing log file: %w", err)
	}
	return path, nil
}

// WriteSchemaAnalysis writes one DOI,Schema,Status,Reason row per DOI.
func WriteSchemaAnalysis(w io.Writer, a *engine.SchemaAnalysis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"DOI", "Schema", "Status", "Reason"}); err != nil {
		return err
	}
	for _, c := range a.All() {
		if err := cw.Write([]string{c.DOI, c.SchemaVersion, c.Status.String(), c.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SchemaSummary is the one-line outcome of an analysis.
func SchemaSummary(a *engine.SchemaAnalysis) string {
	return fmt.Sprintf("Analyse abgeschlossen: %d upgrade-fähig, %d nicht upgrade-fähig, %d bereits aktuell",
		len(a.Upgradeable), len(a.NotUpgradeable), len(a.AlreadyCurrent))
}

// WriteDeadLinks writes DOI,Download_URL rows for links answering 404.
func WriteDeadLinks(w io.Writer, dead []linkcheck.Link) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"DOI", "Download_URL"}); err != nil {
		return err
	}
	for _, l := range dead {
		if err := cw.Write([]string{l.DOI, l.URL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LinkSummary is the one-line outcome of a link check.
func LinkSummary(r *linkcheck.Result) string {
	return fmt.Sprintf("Fertig: %s geprüft, %s mit 404, %s übersprungen, %s Fehler",
		humanize.Comma(int64(r.Checked)), humanize.Comma(int64(len(r.Dead))),
		humanize.Comma(int64(r.Skipped)), humanize.Comma(int64(r.Errors)))
}
