package metadata

import (
	"regexp"
	"strings"
)

var (
	// Name particles that belong to the family name
	particles = []string{"van", "von", "de", "del", "della", "di", "da", "le", "la", "du", "des", "den", "der", "ter", "ten", "zu"}

	// Pattern for "Last, First Middle" format
	invertedNameRegex = regexp.MustCompile(`^([^,]+),\s*(.+)$`)
)

// ParsedName holds the components of a personal name.
type ParsedName struct {
	Given  string
	Family string
}

// ParseName splits a personal name into given and family parts.
// Handles both "First Last" and "Last, First" formats.
func ParseName(name string) ParsedName {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ParsedName{}
	}

	if m := invertedNameRegex.FindStringSubmatch(name); m != nil {
		return ParsedName{
			Family: strings.TrimSpace(m[1]),
			Given:  strings.TrimSpace(m[2]),
		}
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return ParsedName{Family: parts[0]}
	}

	familyStart := len(parts) - 1
	for familyStart > 1 && isParticle(parts[familyStart-1]) {
		familyStart--
	}
	return ParsedName{
		Given:  strings.Join(parts[:familyStart], " "),
		Family: strings.Join(parts[familyStart:], " "),
	}
}

// InvertedName formats family and given name as "Last, First".
func InvertedName(family, given string) string {
	family = strings.TrimSpace(family)
	given = strings.TrimSpace(given)
	switch {
	case family == "":
		return given
	case given == "":
		return family
	default:
		return family + ", " + given
	}
}

func isParticle(word string) bool {
	lower := strings.ToLower(word)
	for _, p := range particles {
		if lower == p {
			return true
		}
	}
	return false
}
