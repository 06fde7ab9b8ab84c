package metadata

import (
	"regexp"
	"strings"
)

var (
	doiRegex   = regexp.MustCompile(`^10\.\d+/\S+$`)
	orcidRegex = regexp.MustCompile(`(?i)^(?:https?://orcid\.org/)?(0000-\d{4}-\d{4}-\d{3}[0-9X])$`)
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlRegex   = regexp.MustCompile(`(?i)^https?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,}\.?|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)
)

// IsDOI reports whether s has the form 10.<digits>/<suffix>.
func IsDOI(s string) bool {
	return doiRegex.MatchString(s)
}

// IsURL reports whether s is an http(s) URL with a plausible host.
func IsURL(s string) bool {
	return urlRegex.MatchString(s)
}

// IsORCID reports whether s is a bare ORCID iD or an orcid.org URL.
func IsORCID(s string) bool {
	return orcidRegex.MatchString(s)
}

// IsEmail reports whether s looks like user@domain.tld.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// NormalizeORCID strips the orcid.org URL prefix. Other identifiers are
// returned trimmed but otherwise unchanged.
func NormalizeORCID(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://orcid.org/", "http://orcid.org/"} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

// IdentifierType guesses the scheme of a name identifier stored without one.
func IdentifierType(id string) string {
	switch {
	case id == "":
		return ""
	case strings.Contains(strings.ToLower(id), "ror.org"):
		return "ROR"
	default:
		return "ORCID"
	}
}
