package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gfz-dataservices/grobi/datacite"
	"github.com/gfz-dataservices/grobi/metadata"
)

// URL updates landing pages. Records are the desired URLs.
var URL = Kind[string]{
	Name: "URL",
	Compare: func(cur *datacite.Attributes, desired string, _ bool) (bool, string) {
		// paths are case-sensitive; compare against what would be sent
		current := strings.TrimSpace(cur.URL())
		desired = strings.TrimSpace(desired)
		if current == desired || current == datacite.NormalizeURL(desired) {
			return false, "URL unverändert: " + desired
		}
		return true, fmt.Sprintf("URL geändert: '%s' → '%s'", current, desired)
	},
	Build: func(cur *datacite.Attributes, desired string) *datacite.Attributes {
		return cur.WithURL(datacite.NormalizeURL(strings.TrimSpace(desired)))
	},
	Write: writeURL,
}

// writeURL sends a URL-only update. DOIs still registered with kernel-3
// are rejected by DataCite; for those the full record is upgraded to
// kernel-4 and sent again.
func writeURL(ctx context.Context, remote Remote, doi string, cur *datacite.Attributes, desired string) (string, error) {
	u := datacite.NormalizeURL(strings.TrimSpace(desired))
	err := remote.UpdateAttributes(ctx, doi, datacite.NewAttributes(nil).WithURL(u))
	if err == nil {
		return fmt.Sprintf("DOI %s erfolgreich aktualisiert", doi), nil
	}

	var apiErr *datacite.APIError
	if !errors.As(err, &apiErr) || !apiErr.SchemaOutdated() {
		return "", err
	}
	if missing := MissingRequired(cur); len(missing) > 0 {
		return "", fmt.Errorf("DOI %s kann nicht automatisch zu Schema 4 aktualisiert werden: %s", doi, strings.Join(missing, "; "))
	}
	upgraded, _ := cur.WithURL(u).WithSchemaKernel4()
	if err := remote.UpdateAttributes(ctx, doi, upgraded); err != nil {
		return "", err
	}
	return fmt.Sprintf("DOI %s erfolgreich aktualisiert (Schema automatisch auf kernel-4 aktualisiert)", doi), nil
}

// Authors rewrites creator lists. Creators can be edited and reordered but
// never added or removed.
var Authors = Kind[[]metadata.Creator]{
	Name: "Creators",
	Validate: func(cur *datacite.Attributes, desired []metadata.Creator) error {
		if n := len(cur.Objects("creators")); n != len(desired) {
			return fmt.Errorf("Anzahl der Creators stimmt nicht überein (DataCite: %d, CSV: %d). "+
				"Creators dürfen nicht hinzugefügt oder entfernt werden.", n, len(desired))
		}
		return nil
	},
	Compare: func(cur *datacite.Attributes, desired []metadata.Creator, _ bool) (bool, string) {
		return compareCreators(cur.Creators(), desired)
	},
	Build: func(cur *datacite.Attributes, desired []metadata.Creator) *datacite.Attributes {
		return cur.WithCreators(desired)
	},
	Mirror: func(ctx context.Context, s Store, doi string, desired []metadata.Creator) error {
		return s.WriteAuthors(ctx, doi, desired)
	},
}

// Contributors rewrites contributor lists. Contact details only reach the
// database.
var Contributors = Kind[[]metadata.Contributor]{
	Name: "Contributors",
	Compare: func(cur *datacite.Attributes, desired []metadata.Contributor, withStore bool) (bool, string) {
		return compareContributors(cur.Contributors(), desired, withStore)
	},
	Build: func(cur *datacite.Attributes, desired []metadata.Contributor) *datacite.Attributes {
		return cur.WithContributors(desired)
	},
	Mirror: func(ctx context.Context, s Store, doi string, desired []metadata.Contributor) error {
		return s.WriteContributors(ctx, doi, desired)
	},
}

// Rights replaces rights lists. An empty desired list removes all rights.
var Rights = Kind[[]metadata.Rights]{
	Name: "Rights",
	Compare: func(cur *datacite.Attributes, desired []metadata.Rights, _ bool) (bool, string) {
		return compareRights(cur.Rights(), desired)
	},
	Build: func(cur *datacite.Attributes, desired []metadata.Rights) *datacite.Attributes {
		return cur.WithRights(desired)
	},
}

// Publisher replaces the publisher.
var Publisher = Kind[metadata.Publisher]{
	Name: "Publisher",
	Compare: func(cur *datacite.Attributes, desired metadata.Publisher, _ bool) (bool, string) {
		return comparePublisher(cur.Publisher(), desired)
	},
	Build: func(cur *datacite.Attributes, desired metadata.Publisher) *datacite.Attributes {
		return cur.WithPublisher(desired)
	},
	Mirror: func(ctx context.Context, s Store, doi string, desired metadata.Publisher) error {
		return s.WritePublisher(ctx, doi, desired)
	},
}
