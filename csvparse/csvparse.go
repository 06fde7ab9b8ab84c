// Package csvparse reads the update CSV files GROBI accepts and turns them
// into validated, DOI-keyed metadata records.
//
// Every parser follows the same contract: the file must exist and be UTF-8,
// the header must contain the kind's columns by exact name, and every field
// is trimmed before it is validated. Structural problems abort the parse;
// recoverable ones are returned as warnings next to the parsed records.
package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gfz-dataservices/grobi/metadata"
)

// Expected header rows per CSV kind. The exporters write the same headers
// so an export can be edited and fed back into an update.
var (
	URLHeader = []string{"DOI", "Landing_Page_URL"}

	AuthorsHeader = []string{
		"DOI", "Creator Name", "Name Type", "Given Name", "Family Name",
		"Name Identifier", "Name Identifier Scheme", "Scheme URI",
	}

	ContributorsHeader = []string{
		"DOI", "Contributor Name", "Name Type", "Given Name", "Family Name",
		"Name Identifier", "Name Identifier Scheme", "Scheme URI",
		"Contributor Types", "Affiliation", "Affiliation Identifier",
		"Email", "Website", "Position",
	}

	RightsHeader = []string{
		"DOI", "rights", "rightsUri", "schemeUri", "rightsIdentifier", "rightsIdentifierScheme", "lang",
	}

	PublisherHeader = []string{
		"DOI", "Publisher Name", "Publisher Identifier", "Publisher Identifier Scheme", "Scheme URI", "Language",
	}
)

// utf8BOM is stripped before the header is read.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result is an insertion-ordered mapping from DOI to its parsed records.
type Result[T any] struct {
	// DOIs lists every DOI in the order it first appeared in the file
	DOIs []string

	// Records maps each DOI to its record(s)
	Records map[string]T

	// Warnings holds non-fatal issues, in file order
	Warnings []string
}

func newResult[T any]() *Result[T] {
	return &Result[T]{Records: make(map[string]T)}
}

// Len returns the number of distinct DOIs.
func (r *Result[T]) Len() int {
	return len(r.DOIs)
}

func (r *Result[T]) put(doi string, v T) {
	if _, ok := r.Records[doi]; !ok {
		r.DOIs = append(r.DOIs, doi)
	}
	r.Records[doi] = v
}

func (r *Result[T]) warn(line int, format string, args ...any) {
	msg := fmt.Sprintf("Zeile %d: ", line) + fmt.Sprintf(format, args...)
	slog.Warn("csv warning", "line", line, "message", msg)
	r.Warnings = append(r.Warnings, msg)
}

// row gives access to one data row by column name.
type row struct {
	line   int
	fields []string
	cols   map[string]int
}

// get returns the trimmed value of column name, or "" when absent.
func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// readRows opens path, checks encoding and header, and returns the data rows.
func readRows(path string, required []string) ([]row, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindFileNotFound, Message: fmt.Sprintf("CSV-Datei nicht gefunden: %s", path)}
		}
		return nil, &Error{Kind: KindFileNotFound, Message: fmt.Sprintf("CSV-Datei kann nicht gelesen werden: %v", err)}
	}
	if info.IsDir() {
		return nil, &Error{Kind: KindFileNotFound, Message: fmt.Sprintf("Pfad ist keine Datei: %s", path)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, &Error{
			Kind:    KindEncoding,
			Message: "CSV-Datei konnte nicht gelesen werden. Stelle sicher, dass die Datei UTF-8 kodiert ist.",
		}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Allow ragged rows
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &Error{Kind: KindFormat, Message: fmt.Sprintf("Fehler beim Lesen der CSV-Datei: %v", err)}
	}
	if len(records) == 0 {
		return nil, &Error{Kind: KindFormat, Message: "CSV-Datei hat keine Header-Zeile."}
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	var missing []string
	for _, h := range required {
		if _, ok := cols[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, &Error{
			Kind: KindFormat,
			Message: fmt.Sprintf("CSV-Datei fehlen folgende Header: %s. Erwartet: %s",
				strings.Join(missing, ", "), strings.Join(required, ", ")),
		}
	}

	rows := make([]row, 0, len(records)-1)
	for i, fields := range records[1:] {
		// Line 1 is the header
		rows = append(rows, row{line: i + 2, fields: fields, cols: cols})
	}
	return rows, nil
}

// checkDOI validates the DOI of a row that carries one.
func checkDOI(r row, doi string) error {
	if !metadata.IsDOI(doi) {
		return &Error{
			Kind:    KindDOIFormat,
			Line:    r.line,
			Message: fmt.Sprintf("Ungültiges DOI-Format '%s'. Erwartetes Format: 10.X/... (wobei X ein oder mehrere Ziffern sind)", doi),
		}
	}
	return nil
}

// parseNameType applies the Personal default and rejects unknown values.
func parseNameType(r row) (metadata.NameType, error) {
	switch v := r.get("Name Type"); v {
	case "":
		return metadata.NameTypePersonal, nil
	case string(metadata.NameTypePersonal), string(metadata.NameTypeOrganizational):
		return metadata.NameType(v), nil
	default:
		return "", &Error{
			Kind:    KindValidation,
			Line:    r.line,
			Message: fmt.Sprintf("Ungültiger Name Type '%s'. Erlaubt: 'Personal' oder 'Organizational'", v),
		}
	}
}

func errEmpty() error {
	return &Error{
		Kind:    KindFormat,
		Message: "Keine gültigen Daten in der CSV-Datei gefunden. Stelle sicher, dass die Datei mindestens eine Datenzeile enthält.",
	}
}
