package csvparse

import (
	"fmt"

	"github.com/gfz-dataservices/grobi/metadata"
)

// ParsePublishers reads a publisher CSV with exactly one row per DOI.
func ParsePublishers(path string) (*Result[metadata.Publisher], error) {
	rows, err := readRows(path, PublisherHeader)
	if err != nil {
		return nil, err
	}

	res := newResult[metadata.Publisher]()
	for _, r := range rows {
		doi := r.get("DOI")
		if doi == "" {
			res.warn(r.line, "DOI fehlt - überspringe Zeile")
			continue
		}
		if err := checkDOI(r, doi); err != nil {
			return nil, err
		}
		if _, dup := res.Records[doi]; dup {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("DOI '%s' kommt mehrfach vor. Pro DOI ist genau ein Publisher erlaubt.", doi),
			}
		}

		p := metadata.Publisher{
			Name:                      r.get("Publisher Name"),
			PublisherIdentifier:       r.get("Publisher Identifier"),
			PublisherIdentifierScheme: r.get("Publisher Identifier Scheme"),
			SchemeURI:                 r.get("Scheme URI"),
			Lang:                      r.get("Language"),
		}
		if p.Name == "" {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Publisher Name fehlt für DOI '%s'.", doi),
			}
		}
		if !metadata.IsLanguageCode(p.Lang) {
			res.warn(r.line, "Sprachcode '%s' ist kein ISO 639-1 Code", p.Lang)
		}

		res.put(doi, p)
	}

	if res.Len() == 0 {
		return nil, errEmpty()
	}
	return res, nil
}
