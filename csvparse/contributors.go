package csvparse

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

// ParseContributors reads a contributors CSV. A contributor may carry
// several comma separated types; unknown types and suspicious contact
// details are reported as warnings.
func ParseContributors(path string) (*Result[[]metadata.Contributor], error) {
	rows, err := readRows(path, ContributorsHeader)
	if err != nil {
		return nil, err
	}

	res := newResult[[]metadata.Contributor]()
	for _, r := range rows {
		doi := r.get("DOI")
		if doi == "" {
			res.warn(r.line, "DOI fehlt - überspringe Zeile")
			continue
		}
		if err := checkDOI(r, doi); err != nil {
			return nil, err
		}

		nameType, err := parseNameType(r)
		if err != nil {
			return nil, err
		}

		c := metadata.Contributor{
			Name:                  r.get("Contributor Name"),
			NameType:              nameType,
			GivenName:             r.get("Given Name"),
			FamilyName:            r.get("Family Name"),
			NameIdentifier:        r.get("Name Identifier"),
			NameIdentifierScheme:  r.get("Name Identifier Scheme"),
			SchemeURI:             r.get("Scheme URI"),
			ContributorTypes:      metadata.SplitContributorTypes(r.get("Contributor Types")),
			Affiliation:           r.get("Affiliation"),
			AffiliationIdentifier: r.get("Affiliation Identifier"),
			Email:                 r.get("Email"),
			Website:               r.get("Website"),
			Position:              r.get("Position"),
		}

		if c.Name == "" {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Contributor Name fehlt für DOI '%s'.", doi),
			}
		}
		if len(c.ContributorTypes) == 0 {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Contributor Types fehlt für '%s'. Mindestens ein Typ ist erforderlich.", c.Name),
			}
		}
		if c.NameType == metadata.NameTypeOrganizational && (c.GivenName != "" || c.FamilyName != "") {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Organizational Contributor '%s' darf keine Given Name oder Family Name haben.", c.Name),
			}
		}

		for _, t := range c.ContributorTypes {
			if !metadata.IsContributorType(t) {
				res.warn(r.line, "Unbekannter Contributor Type '%s' für '%s'", t, c.Name)
			}
		}
		if (c.Email != "" || c.Website != "") && !slices.Contains(c.ContributorTypes, "ContactPerson") {
			res.warn(r.line, "'%s' hat Email/Website, aber keinen Typ 'ContactPerson'", c.Name)
		}
		if c.Email != "" && !metadata.IsEmail(c.Email) {
			res.warn(r.line, "Email-Format möglicherweise ungültig: %s", c.Email)
		}
		if c.Website != "" && !metadata.IsURL(c.Website) {
			res.warn(r.line, "Website-URL möglicherweise ungültig: %s", c.Website)
		}
		if c.NameIdentifier != "" && strings.EqualFold(c.NameIdentifierScheme, "ORCID") && !metadata.IsORCID(c.NameIdentifier) {
			res.warn(r.line, "ORCID-Format möglicherweise ungültig: %s", c.NameIdentifier)
		}

		res.put(doi, append(res.Records[doi], c))
	}

	if res.Len() == 0 {
		return nil, errEmpty()
	}
	return res, nil
}
