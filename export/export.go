// Package export writes the current DataCite metadata of an account as CSV
// files in the same layouts the update commands read.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/gfz-dataservices/grobi/csvparse"
	"github.com/gfz-dataservices/grobi/datacite"
	"github.com/gfz-dataservices/grobi/metadata"
	"github.com/gfz-dataservices/grobi/store"
)

// Kind names an export layout.
type Kind string

const (
	KindURLs         Kind = "urls"
	KindCreators     Kind = "creators"
	KindContributors Kind = "contributors"
	KindRights       Kind = "rights"
	KindPublisher    Kind = "publisher"
	KindDownloads    Kind = "downloads"
)

// Kinds lists every layout in display order.
var Kinds = []Kind{KindURLs, KindCreators, KindContributors, KindRights, KindPublisher, KindDownloads}

// FromDatabase reports whether k is read from SUMARIOPMD instead of DataCite.
func (k Kind) FromDatabase() bool {
	return k == KindDownloads
}

// ParseKind validates a layout name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// ContactSource supplies database contact details for contributors.
type ContactSource interface {
	Contacts(ctx context.Context, doi string) ([]store.Contact, error)
}

// FileSource lists the download files of the database.
type FileSource interface {
	DownloadURLs(ctx context.Context) ([]store.File, error)
}

// Lister walks all DOIs of an account.
type Lister interface {
	ListDOIs(ctx context.Context, fn func(datacite.DOI) error) error
}

// Collect fetches every DOI of the account in listing order.
func Collect(ctx context.Context, l Lister) ([]datacite.DOI, error) {
	var dois []datacite.DOI
	err := l.ListDOIs(ctx, func(d datacite.DOI) error {
		dois = append(dois, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dois, nil
}

// DefaultFilename derives the output name from the DataCite client id.
func DefaultFilename(clientID string, kind Kind) string {
	safe := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".-_", r)) {
			return r
		}
		return '_'
	}, clientID)
	return fmt.Sprintf("%s_%s.csv", safe, kind)
}

// Write renders dois in the given layout. contacts is only consulted for
// contributors and may be nil.
func Write(ctx context.Context, w io.Writer, kind Kind, dois []datacite.DOI, contacts ContactSource) (rows int, err error) {
	cw := csv.NewWriter(w)
	defer func() {
		cw.Flush()
		if ferr := cw.Error(); ferr != nil && err == nil {
			err = fmt.Errorf("writing csv: %w", ferr)
		}
	}()

	switch kind {
	case KindURLs:
		return writeURLs(cw, dois)
	case KindCreators:
		return writeCreators(cw, dois)
	case KindContributors:
		return writeContributors(ctx, cw, dois, contacts)
	case KindRights:
		return writeRights(cw, dois)
	case KindPublisher:
		return writePublishers(cw, dois)
	case KindDownloads:
		return 0, fmt.Errorf("export kind %q is read from the database, use WriteDownloads", kind)
	}
	return 0, fmt.Errorf("unknown export kind %q", kind)
}

func writeURLs(cw *csv.Writer, dois []datacite.DOI) (int, error) {
	if err := cw.Write(csvparse.URLHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dois {
		if d.Attributes.State() == "draft" || d.Attributes.URL() == "" {
			continue
		}
		if err := cw.Write([]string{d.ID, d.Attributes.URL()}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func writeCreators(cw *csv.Writer, dois []datacite.DOI) (int, error) {
	if err := cw.Write(csvparse.AuthorsHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dois {
		for _, c := range d.Attributes.Creators() {
			c = c.Resolved()
			row := []string{
				d.ID, c.Name, string(c.NameType), c.GivenName, c.FamilyName,
				c.NameIdentifier, c.NameIdentifierScheme, c.SchemeURI,
			}
			if err := cw.Write(row); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func writeContributors(ctx context.Context, cw *csv.Writer, dois []datacite.DOI, src ContactSource) (int, error) {
	if err := cw.Write(csvparse.ContributorsHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dois {
		contributors := d.Attributes.Contributors()
		if len(contributors) == 0 {
			continue
		}
		var contacts []store.Contact
		if src != nil {
			var err error
			contacts, err = src.Contacts(ctx, d.ID)
			if err != nil {
				// the DataCite part of the export is still useful
				slog.Warn("no database contacts for DOI", "doi", d.ID, "err", err)
			}
		}
		for _, c := range contributors {
			resolved := c.Resolved()
			if c.NameType != "" && resolved.NameType != c.NameType {
				slog.Warn("overriding registered nameType", "doi", d.ID, "name", c.Name, "from", c.NameType, "to", resolved.NameType)
			}
			c = resolved
			if isContactPerson(c) {
				for _, k := range contacts {
					if k.Matches(c) {
						c.Email, c.Website, c.Position = k.Email, k.Website, k.Position
						break
					}
				}
			}
			row := []string{
				d.ID, c.Name, string(c.NameType), c.GivenName, c.FamilyName,
				c.NameIdentifier, c.NameIdentifierScheme, c.SchemeURI,
				strings.Join(c.ContributorTypes, ", "), c.Affiliation, c.AffiliationIdentifier,
				c.Email, c.Website, c.Position,
			}
			if err := cw.Write(row); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func isContactPerson(c metadata.Contributor) bool {
	for _, t := range c.ContributorTypes {
		if t == "ContactPerson" {
			return true
		}
	}
	return false
}

// writeRights emits a placeholder row for DOIs without rights so that
// re-importing the file keeps them empty.
func writeRights(cw *csv.Writer, dois []datacite.DOI) (int, error) {
	if err := cw.Write(csvparse.RightsHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dois {
		rights := d.Attributes.Rights()
		if len(rights) == 0 {
			if err := cw.Write([]string{d.ID, "", "", "", "", "", ""}); err != nil {
				return n, err
			}
			n++
			continue
		}
		for _, r := range rights {
			row := []string{d.ID, r.Rights, r.RightsURI, r.SchemeURI, r.RightsIdentifier, r.RightsIdentifierScheme, r.Lang}
			if err := cw.Write(row); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func writePublishers(cw *csv.Writer, dois []datacite.DOI) (int, error) {
	if err := cw.Write(csvparse.PublisherHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dois {
		p := d.Attributes.Publisher()
		if p.Name == "" {
			continue
		}
		row := []string{d.ID, p.Name, p.PublisherIdentifier, p.PublisherIdentifierScheme, p.SchemeURI, p.Lang}
		if err := cw.Write(row); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// WriteDownloads renders every file row of the database, one row per file.
func WriteDownloads(ctx context.Context, w io.Writer, src FileSource) (rows int, err error) {
	files, err := src.DownloadURLs(ctx)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	defer func() {
		cw.Flush()
		if ferr := cw.Error(); ferr != nil && err == nil {
			err = fmt.Errorf("writing csv: %w", ferr)
		}
	}()

	if err := cw.Write(csvparse.DownloadsHeader); err != nil {
		return 0, err
	}
	for _, f := range files {
		row := []string{f.DOI, f.Filename, f.URL, f.Description, f.Format, strconv.FormatInt(f.Size, 10)}
		if err := cw.Write(row); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, nil
}
