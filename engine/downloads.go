package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gfz-dataservices/grobi/store"
)

// FileStore is the file table of the database.
type FileStore interface {
	File(ctx context.Context, doi, filename string) (store.File, error)
	UpdateFile(ctx context.Context, f store.File) error
}

// Downloads labels download URL runs in results and logs.
const Downloads = "Download-URLs"

// RunDownloads updates file rows in the database only. Each entry is read
// back first and written only when a column differs. A missing row or a
// database error fails that entry and the batch goes on. Outcomes are
// keyed "<doi> / <filename>".
func RunDownloads(ctx context.Context, fs FileStore, files []store.File, opts Options) *BatchResult {
	res := &BatchResult{Kind: Downloads, DryRun: opts.DryRun}
	total := len(files)
	start := time.Now()

	callCtx := context.WithoutCancel(ctx)

	for i, f := range files {
		if ctx.Err() != nil {
			slog.Info("batch cancelled", "kind", Downloads, "processed", i, "total", total)
			res.Cancelled = true
			break
		}
		key := f.DOI + " / " + f.Filename
		progress(opts, i+1, total, fmt.Sprintf("Prüfe Datei %d/%d: %s", i+1, total, key))
		record(res, opts, processFile(callCtx, fs, key, f, opts.DryRun))
	}

	slog.Info("batch complete",
		"kind", Downloads,
		"success", res.SuccessCount,
		"skipped", res.SkippedCount,
		"errors", res.ErrorCount,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res
}

func processFile(ctx context.Context, fs FileStore, key string, desired store.File, dryRun bool) Outcome {
	cur, err := fs.File(ctx, desired.DOI, desired.Filename)
	switch {
	case errors.Is(err, store.ErrFileNotFound):
		return Outcome{DOI: key, Status: StatusFailed, Message: "Eintrag nicht in Datenbank gefunden"}
	case err != nil:
		return Outcome{DOI: key, Status: StatusFailed, Message: "Datenbankfehler - " + err.Error()}
	}

	changes := FileChanges(cur, desired)
	if len(changes) == 0 {
		return Outcome{DOI: key, Status: StatusSkipped, Message: "Keine Änderungen"}
	}
	reason := "geändert: " + strings.Join(changes, ", ")
	if dryRun {
		return Outcome{DOI: key, Status: StatusUpdated, Message: "Änderung erkannt (Testlauf): " + reason}
	}
	if err := fs.UpdateFile(ctx, desired); err != nil {
		slog.Error("file update failed", "doi", desired.DOI, "filename", desired.Filename, "err", err)
		return Outcome{DOI: key, Status: StatusFailed, Message: "Datenbankfehler - " + err.Error()}
	}
	return Outcome{DOI: key, Status: StatusUpdated, Message: "Aktualisiert (" + reason + ")"}
}

// FileChanges names the columns in which desired differs from cur. Values
// compare exactly; URLs are case-sensitive.
func FileChanges(cur, desired store.File) []string {
	var changed []string
	if cur.URL != desired.URL {
		changed = append(changed, "url")
	}
	if cur.Description != desired.Description {
		changed = append(changed, "description")
	}
	if cur.Format != desired.Format {
		changed = append(changed, "format")
	}
	if cur.Size != desired.Size {
		changed = append(changed, "size")
	}
	return changed
}
