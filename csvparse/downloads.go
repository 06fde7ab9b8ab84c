package csvparse

import (
	"slices"
	"strconv"

	"github.com/gfz-dataservices/grobi/metadata"
	"github.com/gfz-dataservices/grobi/store"
)

// DownloadsHeader is the layout of the database file table export.
var DownloadsHeader = []string{"DOI", "Filename", "Download_URL", "Description", "Format", "Size_Bytes"}

// ParseDownloads reads a download URL file. A DOI may list several files.
// Rows with a bad DOI, without a file name or with a malformed URL are
// skipped with a warning; blank rows are ignored. Sizes that are not a
// non-negative integer read as 0. Blank URL, description and format are
// kept and clear the stored value.
func ParseDownloads(path string) (*Result[[]store.File], error) {
	rows, err := readRows(path, DownloadsHeader)
	if err != nil {
		return nil, err
	}

	res := newResult[[]store.File]()
	for _, r := range rows {
		if slices.IndexFunc(DownloadsHeader, func(h string) bool { return r.get(h) != "" }) < 0 {
			continue
		}
		f := store.File{
			DOI:         r.get("DOI"),
			Filename:    r.get("Filename"),
			URL:         r.get("Download_URL"),
			Description: r.get("Description"),
			Format:      r.get("Format"),
		}

		switch {
		case f.DOI == "":
			res.warn(r.line, "DOI fehlt - Zeile übersprungen")
			continue
		case !metadata.IsDOI(f.DOI):
			res.warn(r.line, "Ungültiges DOI-Format '%s' - Zeile übersprungen", f.DOI)
			continue
		case f.Filename == "":
			res.warn(r.line, "Dateiname fehlt für DOI '%s' - Zeile übersprungen", f.DOI)
			continue
		case f.URL != "" && !metadata.IsURL(f.URL):
			res.warn(r.line, "Ungültige Download-URL '%s' - Zeile übersprungen", f.URL)
			continue
		}

		if v := r.get("Size_Bytes"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			switch {
			case err != nil:
				res.warn(r.line, "Ungültige Dateigröße '%s' - 0 wird verwendet", v)
			case n < 0:
				res.warn(r.line, "Negative Dateigröße %d - 0 wird verwendet", n)
			default:
				f.Size = n
			}
		}

		files := res.Records[f.DOI]
		if i := slices.IndexFunc(files, func(x store.File) bool { return x.Filename == f.Filename }); i >= 0 {
			res.warn(r.line, "Datei '%s' für DOI '%s' doppelt - letzte Zeile wird verwendet", f.Filename, f.DOI)
			files[i] = f
		} else {
			files = append(files, f)
		}
		res.put(f.DOI, files)
	}

	if res.Len() == 0 {
		return nil, errEmpty()
	}
	return res, nil
}

// Files flattens a download result into file order by DOI.
func Files(res *Result[[]store.File]) []store.File {
	var out []store.File
	for _, doi := range res.DOIs {
		out = append(out, res.Records[doi]...)
	}
	return out
}
