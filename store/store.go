// Package store mirrors metadata changes into the SUMARIOPMD MySQL
// database. Agents live in resourceagent, keyed by (resource_id, order);
// their roles in role and contact details in contactinfo.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrResourceNotFound is returned when a DOI has no resource row.
var ErrResourceNotFound = errors.New("DOI nicht in der Datenbank gefunden")

// Error wraps a failed database operation.
type Error struct {
	Op  string
	DOI string
	Err error
}

func (e *Error) Error() string {
	if e.DOI != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.DOI, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds the connection settings.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Timeout  time.Duration
}

// DSN renders c for the MySQL driver.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	mc.DBName = c.Database
	mc.Timeout = timeout
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// Store is a SUMARIOPMD connection pool.
type Store struct {
	db *sql.DB
}

// Open connects using dsn. The connection is verified lazily; call Ping
// to check credentials up front.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection and returns the server version.
func (s *Store) Ping(ctx context.Context) (string, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", &Error{Op: "ping", Err: err}
	}
	return version, nil
}

// ResourceID looks up the resource row of doi.
func (s *Store) ResourceID(ctx context.Context, doi string) (int64, error) {
	return resourceID(ctx, s.db, doi)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func resourceID(ctx context.Context, q querier, doi string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM resource WHERE identifier = ? LIMIT 1", doi).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		slog.Warn("no resource for DOI", "doi", doi)
		return 0, ErrResourceNotFound
	case err != nil:
		return 0, &Error{Op: "resource lookup", DOI: doi, Err: err}
	}
	return id, nil
}

// inTx runs fn in a transaction bound to the resource of doi and commits
// when fn succeeds.
func (s *Store) inTx(ctx context.Context, op, doi string, fn func(tx *sql.Tx, resource int64) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: op, DOI: doi, Err: err}
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("rollback failed", "op", op, "doi", doi, "err", rbErr)
		} else {
			slog.Warn("transaction rolled back", "op", op, "doi", doi)
		}
	}()

	resource, err := resourceID(ctx, tx, doi)
	if err != nil {
		return err
	}
	if err = fn(tx, resource); err != nil {
		return &Error{Op: op, DOI: doi, Err: err}
	}
	if err = tx.Commit(); err != nil {
		return &Error{Op: op, DOI: doi, Err: err}
	}
	return nil
}

// orders returns the agent orders of a resource that hold a role matching
// the given condition.
func orders(ctx context.Context, tx *sql.Tx, resource int64, roleCond string) (out []int64, err error) {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT ra.order FROM resourceagent ra
		INNER JOIN role r ON r.resourceagent_resource_id = ra.resource_id AND r.resourceagent_order = ra.order
		WHERE ra.resource_id = ? AND `+roleCond, resource)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		var o int64
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
