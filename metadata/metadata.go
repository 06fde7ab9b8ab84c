// Package metadata defines the DOI metadata records GROBI reads from CSV
// files and writes to DataCite, together with their field validators.
package metadata

import "strings"

// NameType distinguishes people from organizations in creator and
// contributor lists.
type NameType string

const (
	NameTypePersonal       NameType = "Personal"
	NameTypeOrganizational NameType = "Organizational"
)

// Creator is one entry of a DOI's byline. Order within a list is significant.
type Creator struct {
	Name                 string
	NameType             NameType
	GivenName            string
	FamilyName           string
	NameIdentifier       string
	NameIdentifierScheme string
	SchemeURI            string
}

// Contributor is a non-byline participant with one or more typed roles.
// Email, Website and Position are only stored in the database.
type Contributor struct {
	Name                  string
	NameType              NameType
	GivenName             string
	FamilyName            string
	NameIdentifier        string
	NameIdentifierScheme  string
	SchemeURI             string
	ContributorTypes      []string
	Affiliation           string
	AffiliationIdentifier string
	Email                 string
	Website               string
	Position              string
}

// PrimaryType returns the first recognised contributor type, or "Other".
// DataCite stores a single contributorType per contributor.
func (c Contributor) PrimaryType() string {
	for _, t := range c.ContributorTypes {
		if IsDataCiteContributorType(t) {
			return t
		}
	}
	return "Other"
}

// HasContactInfo reports whether any database-only contact field is set.
func (c Contributor) HasContactInfo() bool {
	return c.Email != "" || c.Website != "" || c.Position != ""
}

// Rights is one entry of a DOI's rightsList.
type Rights struct {
	Rights                 string
	RightsURI              string
	SchemeURI              string
	RightsIdentifier       string
	RightsIdentifierScheme string
	Lang                   string
}

// IsEmpty reports whether every field is blank.
func (r Rights) IsEmpty() bool {
	return r.Rights == "" && r.RightsURI == "" && r.SchemeURI == "" &&
		r.RightsIdentifier == "" && r.RightsIdentifierScheme == "" && r.Lang == ""
}

// Publisher is the single publisher of a DOI. Since schema 4.5 DataCite
// accepts either a plain name or an object with identifier fields.
type Publisher struct {
	Name                      string
	PublisherIdentifier       string
	PublisherIdentifierScheme string
	SchemeURI                 string
	Lang                      string
}

// IsExtended reports whether the publisher needs the object form.
func (p Publisher) IsExtended() bool {
	return p.PublisherIdentifier != "" || p.PublisherIdentifierScheme != "" ||
		p.SchemeURI != "" || p.Lang != ""
}

// Normalize lower-cases and trims a field value for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
