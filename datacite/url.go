package datacite

import (
	"log/slog"
	"net/url"
	"strings"
)

// NormalizeURL decodes and re-encodes the path and query of a landing page
// URL so that DataCite receives it percent-encoded exactly once. Query
// separators ('=', '&', '+') and path separators stay literal. On malformed
// escapes the input is returned unchanged.
func NormalizeURL(raw string) string {
	rest, fragment, _ := strings.Cut(raw, "#")
	base, query, _ := strings.Cut(rest, "?")

	schemeEnd := strings.Index(base, "://")
	if schemeEnd < 0 {
		return raw
	}
	prefix, path := base, ""
	if i := strings.IndexByte(base[schemeEnd+3:], '/'); i >= 0 {
		prefix, path = base[:schemeEnd+3+i], base[schemeEnd+3+i:]
	}

	decodedPath, err := url.PathUnescape(path)
	if err != nil {
		slog.Warn("could not normalize URL, using original", "url", raw, "err", err)
		return raw
	}
	decodedQuery, err := url.PathUnescape(query)
	if err != nil {
		slog.Warn("could not normalize URL, using original", "url", raw, "err", err)
		return raw
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(escape(decodedPath, "/"))
	if decodedQuery != "" {
		b.WriteByte('?')
		b.WriteString(escape(decodedQuery, "=&+"))
	}
	if fragment != "" {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

func escape(s, safe string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '.' || c == '~'
}
