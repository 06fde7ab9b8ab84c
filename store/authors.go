package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

const (
	insertAgent = "INSERT INTO resourceagent (resource_id, `order`, name, firstname, lastname, identifier, identifiertype, nametype) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	insertRole  = "INSERT INTO role (role, resourceagent_resource_id, resourceagent_order) VALUES (?, ?, ?)"
)

// WriteAuthors replaces the Creator agents of doi with creators, numbered
// from 1 in list order. Roles other than Creator are left alone.
func (s *Store) WriteAuthors(ctx context.Context, doi string, creators []metadata.Creator) error {
	return s.inTx(ctx, "write authors", doi, func(tx *sql.Tx, resource int64) error {
		old, err := orders(ctx, tx, resource, "r.role = 'Creator'")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM role WHERE resourceagent_resource_id = ? AND role = 'Creator'", resource); err != nil {
			return err
		}
		for _, o := range old {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM resourceagent WHERE resource_id = ? AND `order` = ?", resource, o); err != nil {
				return err
			}
		}

		for i, c := range creators {
			order := i + 1
			given, family := strings.TrimSpace(c.GivenName), strings.TrimSpace(c.FamilyName)
			name := metadata.InvertedName(family, given)
			if family == "" {
				name = strings.TrimSpace(c.Name)
			}
			orcid := metadata.NormalizeORCID(c.NameIdentifier)
			idType := ""
			if orcid != "" {
				idType = "ORCID"
			}
			nameType := c.NameType
			if nameType == "" {
				nameType = metadata.NameTypePersonal
			}
			if _, err := tx.ExecContext(ctx, insertAgent,
				resource, order, name, nullable(given), nullable(family),
				nullable(orcid), nullable(idType), string(nameType)); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, insertRole, "Creator", resource, order); err != nil {
				return err
			}
		}
		slog.Info("database creators updated", "doi", doi, "creators", len(creators))
		return nil
	})
}
