package csvparse

import (
	"fmt"

	"github.com/gfz-dataservices/grobi/metadata"
)

// ParseURLs reads a DOI,Landing_Page_URL file. Unlike the other kinds a
// row without a DOI is fatal here: its URL cannot be associated with
// anything.
func ParseURLs(path string) (*Result[string], error) {
	rows, err := readRows(path, URLHeader)
	if err != nil {
		return nil, err
	}

	res := newResult[string]()
	for _, r := range rows {
		doi := r.get("DOI")
		url := r.get("Landing_Page_URL")

		if doi == "" {
			return nil, &Error{Kind: KindValidation, Line: r.line, Message: "DOI fehlt. Jede Zeile muss eine DOI haben."}
		}
		if err := checkDOI(r, doi); err != nil {
			return nil, err
		}
		if url == "" {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Landing Page URL fehlt für DOI '%s'. Jede DOI muss eine Landing Page URL haben.", doi),
			}
		}
		if !metadata.IsURL(url) {
			return nil, &Error{
				Kind:    KindValidation,
				Line:    r.line,
				Message: fmt.Sprintf("Ungültige URL '%s'. URL muss mit http:// oder https:// beginnen.", url),
			}
		}
		if _, dup := res.Records[doi]; dup {
			res.warn(r.line, "DOI '%s' doppelt - letzte URL wird verwendet", doi)
		}
		res.put(doi, url)
	}

	if res.Len() == 0 {
		return nil, errEmpty()
	}
	return res, nil
}
