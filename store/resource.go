package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

// WritePublisher sets the publisher name of doi. The database stores the
// name only; identifier fields stay DataCite-only.
func (s *Store) WritePublisher(ctx context.Context, doi string, p metadata.Publisher) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return &Error{Op: "write publisher", DOI: doi, Err: errors.New("Publisher-Name darf nicht leer sein")}
	}
	if _, err := s.ResourceID(ctx, doi); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE resource SET publisher = ?, updated_at = NOW() WHERE identifier = ?", name, doi)
	if err != nil {
		return &Error{Op: "write publisher", DOI: doi, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Warn("publisher update touched no rows", "doi", doi)
	}
	return nil
}
