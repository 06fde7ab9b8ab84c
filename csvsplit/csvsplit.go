// Package csvsplit partitions a DOI CSV into one file per DOI prefix in a
// single streaming pass.
package csvsplit

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Fatal conditions. Every per-row problem is recovered by skipping the row.
var (
	ErrInputNotFound = errors.New("Eingabedatei nicht gefunden")
	ErrEmptyInput    = errors.New("CSV-Datei ist leer (keine Zeilen vorhanden)")
	ErrBadHeader     = errors.New("CSV-Datei muss 'DOI' als erste Spalte haben")
	ErrInvalidLevel  = errors.New("ungültiger Prefix-Level, muss zwischen 1 und 4 liegen")
	ErrInvalidDOI    = errors.New("ungültiges DOI-Format")
)

const (
	MinLevel = 1
	MaxLevel = 4
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures a split run.
type Options struct {
	// OutputDir receives the partial files; it is created if missing
	OutputDir string

	// Level selects the prefix granularity (1-4)
	Level int

	// Progress receives human-readable status lines (optional)
	Progress func(message string)
}

// Result summarizes a split run.
type Result struct {
	// TotalRows is the number of data rows written across all files
	TotalRows int

	// Skipped counts rows whose DOI could not be used
	Skipped int

	// Counts maps each prefix to the rows written for it
	Counts map[string]int

	// Files maps each prefix to its output path
	Files map[string]string
}

// Prefix returns the grouping key of doi at the given level. Level 1 is the
// registrant code; level n adds the first n dot-separated suffix tokens, or
// all of them when the suffix is shorter.
func Prefix(doi string, level int) (string, error) {
	if level < MinLevel || level > MaxLevel {
		return "", fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	registrant, suffix, ok := strings.Cut(doi, "/")
	if !ok || registrant == "" || suffix == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDOI, doi)
	}
	if level == 1 {
		return registrant, nil
	}
	// Only the first path segment carries the dotted tokens
	suffix, _, _ = strings.Cut(suffix, "/")
	tokens := strings.Split(suffix, ".")
	if len(tokens) > level {
		tokens = tokens[:level]
	}
	return registrant + "/" + strings.Join(tokens, "."), nil
}

// SanitizeFilename replaces characters that are not allowed in file names
// on common platforms with an underscore.
func SanitizeFilename(prefix string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, prefix)
}

type output struct {
	path string
	file *os.File
	w    *csv.Writer
}

// Split partitions inputPath by DOI prefix. Output files are named
// <input-stem>_<sanitized-prefix>.csv and share the input's header row and
// byte-order mark. Existing files with the same name are overwritten.
func Split(inputPath string, opts Options) (res *Result, err error) {
	if opts.Level < MinLevel || opts.Level > MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, opts.Level)
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}

	in, err := os.Open(inputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputPath)
		}
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing input file: %w", cerr)
		}
	}()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	br := bufio.NewReader(in)
	hasBOM := false
	if peek, _ := br.Peek(len(utf8BOM)); bytes.Equal(peek, utf8BOM) {
		hasBOM = true
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
	}

	progress(fmt.Sprintf("Lese CSV-Datei: %s", filepath.Base(inputPath)))

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), "DOI") {
		return nil, ErrBadHeader
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputs := make(map[string]*output)
	defer func() {
		for prefix, out := range outputs {
			out.w.Flush()
			if ferr := out.w.Error(); ferr != nil {
				slog.Error("flushing split file", "prefix", prefix, "err", ferr)
				if err == nil {
					err = fmt.Errorf("writing %s: %w", out.path, ferr)
				}
			}
			if cerr := out.file.Close(); cerr != nil {
				slog.Error("closing split file", "prefix", prefix, "err", cerr)
			}
		}
	}()

	res = &Result{
		Counts: make(map[string]int),
		Files:  make(map[string]string),
	}

	for {
		row, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			var perr *csv.ParseError
			if errors.As(rerr, &perr) {
				slog.Warn("skipping malformed row", "err", rerr)
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("reading input file: %w", rerr)
		}

		doi := ""
		if len(row) > 0 {
			doi = strings.TrimSpace(row[0])
		}
		if doi == "" {
			res.Skipped++
			continue
		}

		prefix, perr := Prefix(doi, opts.Level)
		if perr != nil {
			slog.Warn("skipping invalid DOI", "doi", doi, "err", perr)
			res.Skipped++
			continue
		}

		out, ok := outputs[prefix]
		if !ok {
			out, err = openOutput(opts.OutputDir, stem, prefix, header, hasBOM)
			if err != nil {
				return nil, err
			}
			outputs[prefix] = out
			res.Files[prefix] = out.path
		}
		if err := out.w.Write(row); err != nil {
			return nil, fmt.Errorf("writing %s: %w", out.path, err)
		}
		res.Counts[prefix]++
		res.TotalRows++
	}

	progress(fmt.Sprintf("Geschrieben: %d DOIs in %d Dateien", res.TotalRows, len(res.Counts)))
	if res.Skipped > 0 {
		slog.Warn("rows skipped during split", "skipped", res.Skipped)
		progress(fmt.Sprintf("%d Zeilen übersprungen (ungültige DOIs)", res.Skipped))
	}
	return res, nil
}

func openOutput(dir, stem, prefix string, header []string, bom bool) (*output, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", stem, SanitizeFilename(prefix)))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	if bom {
		if _, err := f.Write(utf8BOM); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return &output{path: path, file: f, w: w}, nil
}
