package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
)

// ErrFileNotFound is returned when a resource has no file of the given name.
var ErrFileNotFound = errors.New("Datei nicht in der Datenbank gefunden")

// File is one downloadable file of a resource. Size is zero when unknown.
type File struct {
	DOI         string
	Filename    string
	URL         string
	Description string
	Format      string
	Size        int64
}

// DownloadURLs lists every file of every resource, ordered by DOI and
// file name.
func (s *Store) DownloadURLs(ctx context.Context) (out []File, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.identifier, f.filename, f.location, f.description, f.format, f.size
		FROM resource r INNER JOIN file f ON f.resource_id = r.id
		ORDER BY r.identifier ASC, f.filename ASC`)
	if err != nil {
		return nil, &Error{Op: "read files", Err: err}
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		var f File
		var filename, location, description, format sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(&f.DOI, &filename, &location, &description, &format, &size); err != nil {
			return nil, &Error{Op: "read files", Err: err}
		}
		f.Filename, f.URL, f.Description, f.Format, f.Size = filename.String, location.String, description.String, format.String, size.Int64
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "read files", Err: err}
	}
	slog.Debug("file rows read", "count", len(out))
	return out, nil
}

// File reads the file row named filename of doi.
func (s *Store) File(ctx context.Context, doi, filename string) (File, error) {
	f := File{DOI: doi, Filename: filename}
	var location, description, format sql.NullString
	var size sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT f.location, f.description, f.format, f.size
		FROM resource r INNER JOIN file f ON f.resource_id = r.id
		WHERE r.identifier = ? AND f.filename = ? LIMIT 1`, doi, filename).
		Scan(&location, &description, &format, &size)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return File{}, ErrFileNotFound
	case err != nil:
		return File{}, &Error{Op: "read file", DOI: doi, Err: err}
	}
	f.URL, f.Description, f.Format, f.Size = location.String, description.String, format.String, size.Int64
	return f, nil
}

// UpdateFile overwrites location, description, format and size of the
// file row identified by f.DOI and f.Filename.
func (s *Store) UpdateFile(ctx context.Context, f File) error {
	return s.inTx(ctx, "update file", f.DOI, func(tx *sql.Tx, resource int64) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE file SET location = ?, description = ?, format = ?, size = ? WHERE resource_id = ? AND filename = ?",
			f.URL, f.Description, f.Format, f.Size, resource, f.Filename)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrFileNotFound
		}
		return nil
	})
}
