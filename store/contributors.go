package store

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

const insertContact = "INSERT INTO contactinfo (resourceagent_resource_id, resourceagent_order, email, website, position) VALUES (?, ?, ?, ?, ?)"

// WriteContributors replaces every non-Creator agent of doi. New agents
// are appended after the highest remaining order. Each contributor gets
// one role row per type; contact details are stored for ContactPersons
// only.
func (s *Store) WriteContributors(ctx context.Context, doi string, contributors []metadata.Contributor) error {
	return s.inTx(ctx, "write contributors", doi, func(tx *sql.Tx, resource int64) error {
		old, err := orders(ctx, tx, resource, "r.role != 'Creator'")
		if err != nil {
			return err
		}
		for _, o := range old {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM contactinfo WHERE resourceagent_resource_id = ? AND resourceagent_order = ?", resource, o); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM role WHERE resourceagent_resource_id = ? AND resourceagent_order = ? AND role != 'Creator'", resource, o); err != nil {
				return err
			}
			// an agent that is also a Creator keeps its row
			var remaining int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM role WHERE resourceagent_resource_id = ? AND resourceagent_order = ?", resource, o).Scan(&remaining); err != nil {
				return err
			}
			if remaining == 0 {
				if _, err := tx.ExecContext(ctx,
					"DELETE FROM resourceagent WHERE resource_id = ? AND `order` = ?", resource, o); err != nil {
					return err
				}
			}
		}

		var next int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(`order`), 0) FROM resourceagent WHERE resource_id = ?", resource).Scan(&next); err != nil {
			return err
		}
		next++

		for _, c := range contributors {
			if err := insertContributor(ctx, tx, resource, next, c); err != nil {
				return err
			}
			next++
		}
		slog.Info("database contributors updated", "doi", doi, "contributors", len(contributors))
		return nil
	})
}

func insertContributor(ctx context.Context, tx *sql.Tx, resource, order int64, c metadata.Contributor) error {
	nameType := c.NameType
	if nameType == "" {
		nameType = metadata.NameTypePersonal
	}
	given, family := strings.TrimSpace(c.GivenName), strings.TrimSpace(c.FamilyName)
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = metadata.InvertedName(family, given)
	}
	if nameType != metadata.NameTypePersonal {
		given, family = "", ""
	}
	id := metadata.NormalizeORCID(c.NameIdentifier)

	if _, err := tx.ExecContext(ctx, insertAgent,
		resource, order, name, nullable(given), nullable(family),
		nullable(id), nullable(metadata.IdentifierType(id)), string(nameType)); err != nil {
		return err
	}

	roles := storedRoles(c.ContributorTypes)
	for _, r := range roles {
		if _, err := tx.ExecContext(ctx, insertRole, r, resource, order); err != nil {
			return err
		}
	}
	if slices.Contains(roles, "ContactPerson") && c.HasContactInfo() {
		if _, err := tx.ExecContext(ctx, insertContact, resource, order,
			nullable(c.Email), nullable(c.Website), nullable(c.Position)); err != nil {
			return err
		}
	}
	return nil
}

// storedRoles maps contributor types to role rows. Unknown types collapse
// into a single Other.
func storedRoles(types []string) []string {
	var roles []string
	for _, t := range types {
		if t != metadata.PointOfContact && !metadata.IsDataCiteContributorType(t) {
			slog.Warn("unknown contributor type, storing as Other", "type", t)
			t = "Other"
		}
		if !slices.Contains(roles, t) {
			roles = append(roles, t)
		}
	}
	if len(roles) == 0 {
		roles = []string{"Other"}
	}
	return roles
}

// Contact is the stored contact information of one agent.
type Contact struct {
	Name      string
	FirstName string
	LastName  string
	Email     string
	Website   string
	Position  string
}

// Contacts returns every agent of doi with contact details, in order.
func (s *Store) Contacts(ctx context.Context, doi string) (out []Contact, err error) {
	resource, err := s.ResourceID(ctx, doi)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ra.name, ra.firstname, ra.lastname, ci.email, ci.website, ci.position
		FROM resourceagent ra
		INNER JOIN contactinfo ci ON ci.resourceagent_resource_id = ra.resource_id AND ci.resourceagent_order = ra.order
		WHERE ra.resource_id = ? AND (ci.email IS NOT NULL OR ci.website IS NOT NULL OR ci.position IS NOT NULL)
		ORDER BY ra.order ASC`, resource)
	if err != nil {
		return nil, &Error{Op: "read contacts", DOI: doi, Err: err}
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		var name, first, last, email, website, position sql.NullString
		if err := rows.Scan(&name, &first, &last, &email, &website, &position); err != nil {
			return nil, &Error{Op: "read contacts", DOI: doi, Err: err}
		}
		out = append(out, Contact{
			Name:      name.String,
			FirstName: first.String,
			LastName:  last.String,
			Email:     email.String,
			Website:   website.String,
			Position:  position.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "read contacts", DOI: doi, Err: err}
	}
	return out, nil
}

// Matches reports whether k belongs to contributor c, by last and first
// name or, failing that, by full name.
func (k Contact) Matches(c metadata.Contributor) bool {
	if k.LastName != "" && strings.EqualFold(k.LastName, c.FamilyName) &&
		strings.EqualFold(k.FirstName, c.GivenName) {
		return true
	}
	return k.Name != "" && strings.EqualFold(strings.TrimSpace(k.Name), strings.TrimSpace(c.Name))
}
