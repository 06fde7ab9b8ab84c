package csvparse

import (
	"fmt"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

// ParseRights reads a rights CSV. A DOI whose only row has every rights
// field blank maps to an empty list, which requests removal of all rights.
func ParseRights(path string) (*Result[[]metadata.Rights], error) {
	rows, err := readRows(path, RightsHeader)
	if err != nil {
		return nil, err
	}

	res := newResult[[]metadata.Rights]()
	for _, r := range rows {
		doi := r.get("DOI")
		if doi == "" {
			res.warn(r.line, "DOI fehlt - überspringe Zeile")
			continue
		}
		if err := checkDOI(r, doi); err != nil {
			return nil, err
		}

		entry := metadata.Rights{
			Rights:                 r.get("rights"),
			RightsURI:              r.get("rightsUri"),
			SchemeURI:              r.get("schemeUri"),
			RightsIdentifier:       r.get("rightsIdentifier"),
			RightsIdentifierScheme: r.get("rightsIdentifierScheme"),
			Lang:                   r.get("lang"),
		}

		if strings.EqualFold(entry.RightsIdentifierScheme, "SPDX") && !metadata.IsSPDX(entry.RightsIdentifier) {
			return nil, &Error{
				Kind:    KindSPDX,
				Line:    r.line,
				Message: fmt.Sprintf("Ungültiger SPDX-Identifier '%s' für DOI '%s'", entry.RightsIdentifier, doi),
			}
		}
		if !metadata.IsLanguageCode(entry.Lang) {
			return nil, &Error{
				Kind:    KindLanguage,
				Line:    r.line,
				Message: fmt.Sprintf("Ungültiger Sprachcode '%s' für DOI '%s'. Erwartet: ISO 639-1 (z.B. 'en', 'de')", entry.Lang, doi),
			}
		}

		list, seen := res.Records[doi]
		if !seen {
			list = []metadata.Rights{}
		}
		if !entry.IsEmpty() {
			list = append(list, entry)
		}
		res.put(doi, list)
	}

	if res.Len() == 0 {
		return nil, errEmpty()
	}
	return res, nil
}
