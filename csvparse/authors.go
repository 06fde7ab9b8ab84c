package csvparse

import (
	"fmt"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

// ParseAuthors reads an authors CSV. Creators keep their file order per DOI.
func ParseAuthors(path string) (*Result[[]metadata.Creator], error) {
	rows, err := readRows(path, AuthorsHeader)
	if err != nil {
		return nil, err
	}

	res := newResult[[]metadata.Creator]()
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

		c := metadata.Creator{
			Name:                 r.get("Creator Name"),
			NameType:             nameType,
			GivenName:            r.get("Given Name"),
			FamilyName:           r.get("Family Name"),
			NameIdentifier:       r.get("Name Identifier"),
			NameIdentifierScheme: r.get("Name Identifier Scheme"),
			SchemeURI:            r.get("Scheme URI"),
		}
		if c.Name == "" {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Creator Name fehlt für DOI '%s'. Jeder Creator muss mindestens einen Namen haben.", doi),
			}
		}
		if c.NameType == metadata.NameTypeOrganizational && (c.GivenName != "" || c.FamilyName != "") {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Organizational Creator '%s' darf keine Given Name oder Family Name haben.", c.Name),
			}
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
