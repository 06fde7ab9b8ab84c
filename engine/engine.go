// Package engine runs bulk DOI updates: for each DOI it fetches the current
// DataCite state, decides whether a write is needed, and performs it,
// optionally mirroring the change into the SUMARIOPMD database first.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gfz-dataservices/grobi/datacite"
	"github.com/gfz-dataservices/grobi/metadata"
	"github.com/gfz-dataservices/grobi/store"
)

// Remote is the part of the DataCite client the engine uses.
type Remote interface {
	GetDOI(ctx context.Context, doi string) (*datacite.DOI, error)
	UpdateAttributes(ctx context.Context, doi string, attrs *datacite.Attributes) error
}

// Lister walks all DOIs of an account.
type Lister interface {
	ListDOIs(ctx context.Context, fn func(datacite.DOI) error) error
}

// Store is the secondary database. Writes must be atomic per DOI.
type Store interface {
	WriteAuthors(ctx context.Context, doi string, creators []metadata.Creator) error
	WriteContributors(ctx context.Context, doi string, contributors []metadata.Contributor) error
	WritePublisher(ctx context.Context, doi string, p metadata.Publisher) error
}

// ProgressFunc receives progress after each DOI.
type ProgressFunc func(current, total int, message string)

// Options controls a run.
type Options struct {
	// DryRun fetches and compares but never writes
	DryRun bool

	// Store enables mirroring for the kinds that support it
	Store Store

	OnProgress ProgressFunc

	// OnOutcome is called once per DOI, in input order
	OnOutcome func(Outcome)
}

// Kind is the strategy for one update variant.
type Kind[T any] struct {
	// Name labels the variant in results and logs
	Name string

	// Validate rejects a desired record before comparison (optional)
	Validate func(current *datacite.Attributes, desired T) error

	// Compare reports whether a write is needed. When it is not, the
	// reason says what stayed unchanged.
	Compare func(current *datacite.Attributes, desired T, withStore bool) (changed bool, reason string)

	// Build returns the attribute set to PUT
	Build func(current *datacite.Attributes, desired T) *datacite.Attributes

	// Write overrides the plain PUT of Build's result (optional). It
	// returns the success message.
	Write func(ctx context.Context, remote Remote, doi string, current *datacite.Attributes, desired T) (string, error)

	// Mirror writes the record to the database (optional)
	Mirror func(ctx context.Context, s Store, doi string, desired T) error
}

const (
	msgNotInStore = "DOI nicht in Datenbank gefunden (nur DataCite wird aktualisiert)"
)

// Run processes dois in order. Records are looked up in records by DOI.
// Per-DOI failures end up in the result; only authentication and network
// failures abort the batch and are returned as an error together with the
// partial result. Cancelling ctx stops the batch before the next DOI; a
// request already in flight is allowed to finish.
func Run[T any](ctx context.Context, remote Remote, kind Kind[T], dois []string, records map[string]T, opts Options) (*BatchResult, error) {
	res := &BatchResult{Kind: kind.Name, DryRun: opts.DryRun}
	total := len(dois)
	withStore := opts.Store != nil && kind.Mirror != nil
	start := time.Now()

	callCtx := context.WithoutCancel(ctx)

	for i, doi := range dois {
		if ctx.Err() != nil {
			slog.Info("batch cancelled", "kind", kind.Name, "processed", i, "total", total)
			res.Cancelled = true
			break
		}
		progress(opts, i+1, total, fmt.Sprintf("Prüfe DOI %d/%d: %s", i+1, total, doi))

		desired, ok := records[doi]
		if !ok {
			record(res, opts, Outcome{DOI: doi, Status: StatusFailed, Message: "Keine Daten für DOI in der CSV-Datei"})
			continue
		}

		o, err := processOne(callCtx, remote, kind, doi, desired, opts, withStore, res)
		if err != nil {
			if o != nil {
				record(res, opts, *o)
			}
			slog.Error("batch aborted", "kind", kind.Name, "doi", doi, "err", err)
			return res, fmt.Errorf("processing %s: %w", doi, err)
		}
		record(res, opts, *o)
	}

	slog.Info("batch complete",
		"kind", kind.Name,
		"success", res.SuccessCount,
		"skipped", res.SkippedCount,
		"errors", res.ErrorCount,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// processOne applies the per-DOI state machine. A non-nil error is fatal
// to the batch; the outcome, if any, is still recorded.
func processOne[T any](ctx context.Context, remote Remote, kind Kind[T], doi string, desired T, opts Options, withStore bool, res *BatchResult) (*Outcome, error) {
	cur, err := remote.GetDOI(ctx, doi)
	if err != nil {
		if datacite.IsFatal(err) {
			return nil, err
		}
		return failed(doi, err.Error()), nil
	}

	if kind.Validate != nil {
		if err := kind.Validate(cur.Attributes, desired); err != nil {
			return failed(doi, err.Error()), nil
		}
	}

	changed, reason := kind.Compare(cur.Attributes, desired, withStore)
	if !changed {
		slog.Debug("no change", "kind", kind.Name, "doi", doi, "reason", reason)
		return &Outcome{DOI: doi, Status: StatusSkipped, Message: reason}, nil
	}
	if opts.DryRun {
		return &Outcome{DOI: doi, Status: StatusUpdated, Message: "Änderung erkannt (Testlauf): " + reason}, nil
	}

	mirrored := false
	if withStore {
		err := kind.Mirror(ctx, opts.Store, doi, desired)
		switch {
		case err == nil:
			mirrored = true
		case errors.Is(err, store.ErrResourceNotFound):
			slog.Warn("DOI not in database, updating DataCite only", "doi", doi)
			res.Warnings = append(res.Warnings, doi+": "+msgNotInStore)
		default:
			slog.Error("database update failed, DataCite left untouched", "doi", doi, "err", err)
			return failed(doi, "Datenbank-Update fehlgeschlagen - "+err.Error()), nil
		}
	}

	msg, err := write(ctx, remote, kind, doi, cur.Attributes, desired)
	if err == nil {
		if mirrored {
			msg = "Beide Systeme erfolgreich aktualisiert"
		}
		return &Outcome{DOI: doi, Status: StatusUpdated, Message: msg}, nil
	}
	if !mirrored {
		if datacite.IsFatal(err) {
			return nil, err
		}
		return failed(doi, err.Error()), nil
	}

	slog.Warn("DataCite failed after database commit, retrying", "doi", doi, "err", err)
	if _, err = write(ctx, remote, kind, doi, cur.Attributes, desired); err == nil {
		return &Outcome{DOI: doi, Status: StatusUpdated, Message: "Beide Systeme aktualisiert (DataCite nach Retry)"}, nil
	}
	slog.Error("database and DataCite diverged", "doi", doi, "err", err)
	o := &Outcome{
		DOI:    doi,
		Status: StatusFailed,
		Message: "INKONSISTENZ - Datenbank erfolgreich, DataCite fehlgeschlagen (auch nach Retry). " +
			"Manuelle Korrektur erforderlich! DataCite-Fehler: " + err.Error(),
		Inconsistent: true,
	}
	if datacite.IsFatal(err) {
		return o, err
	}
	return o, nil
}

func write[T any](ctx context.Context, remote Remote, kind Kind[T], doi string, current *datacite.Attributes, desired T) (string, error) {
	if kind.Write != nil {
		return kind.Write(ctx, remote, doi, current, desired)
	}
	if err := remote.UpdateAttributes(ctx, doi, kind.Build(current, desired)); err != nil {
		return "", err
	}
	return fmt.Sprintf("DOI %s erfolgreich aktualisiert", doi), nil
}

func failed(doi, msg string) *Outcome {
	return &Outcome{DOI: doi, Status: StatusFailed, Message: msg}
}

func record(res *BatchResult, opts Options, o Outcome) {
	res.Record(o)
	slog.Debug("outcome", "kind", res.Kind, "doi", o.DOI, "status", o.Status.String())
	if opts.OnOutcome != nil {
		opts.OnOutcome(o)
	}
}

func progress(opts Options, current, total int, msg string) {
	if opts.OnProgress != nil {
		opts.OnProgress(current, total, msg)
	}
}
