package metadata

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keywords long enough to match inside German compounds such as
// "GeoForschungsZentrum".
var orgSubstrings = []string{
	"universität", "université", "universidad", "universidade", "università", "university", "universite",
	"institute", "institut", "instituto", "istituto",
	"zentrum", "center", "centre", "centro", "forschung",
	"laboratory", "laboratorium", "laboratorio", "laboratoire",
	"department", "abteilung", "departamento",
	"ministry", "ministerium", "ministère", "ministerio",
	"foundation", "stiftung", "fondation", "fundación",
	"gesellschaft", "association", "verband", "verein",
	"organisation", "organization", "corporation", "company", "consortium", "konsortium",
	"bibliothek", "library", "krankenhaus", "hospital",
	"geosurvey", "helmholtz", "fraunhofer",
	"landesamt", "regierungspräsidium", "geological survey", "geodynamics",
	"geophysik", "geophysics", "geowissenschaften", "geosciences", "erdbebenstation", "fachbereich",
	"observatory", "osservatorio", "observatoire", "observatorium",
	"synchrotron", "röntgenstrahlungsquelle", "meteorolog", "klimatolog",
	"hochschule", "zentralanstalt", "géothermie", "geothermie", "geomanagement", "transregio",
}

// Short keywords and acronyms that only count as whole words, so that
// "Smith" does not match "mit".
var orgWords = toSet([]string{
	"college", "school", "faculty", "fakultät",
	"agency", "agentur", "authority", "behörde",
	"office", "bureau", "service", "dienst",
	"commission", "kommission", "council", "board", "gremium", "committee", "ausschuss",
	"museum", "archive", "archiv", "klinik", "clinic", "division",
	"firma", "gmbh", "ltd", "group", "gruppe", "network", "netzwerk", "survey", "pool",
	"eth", "mit", "cnrs", "nasa", "noaa", "usgs", "csic", "csiro", "rwth", "ipgp", "gipp", "gfz", "ucl",
	"isterre", "globe", "norsar", "nve", "dmi", "smhi", "arditi", "fccn", "fct",
	"fellowship", "grant", "fund", "award",
	"staff", "team", "authorities", "isg", "platform",
	"awi", "bmkg", "ingv", "ipma", "hbo", "zamg", "eseo", "afad", "desy", "enbw", "ecw", "esg",
	"cnr", "esrf", "gvo", "petra", "imaa", "crc", "radar",
	"project", "programme", "program", "sfb", "minas",
	"caiag", "geopribor", "dekorp", "ilge", "tna",
})

// Contributor roles that are always filled by one kind of name.
var (
	organizationalRoles = []string{"HostingInstitution", "DistributionCenter", "RegistrationAgency", "RegistrationAuthority"}
	personalRoles       = []string{
		"ContactPerson", "DataCollector", "DataCurator", "DataManager", "Editor",
		"ProjectLeader", "ProjectManager", "ProjectMember", "Researcher",
		"RightsHolder", "Supervisor", "WorkPackageLeader",
	}
)

var mailboxRegex = regexp.MustCompile(`^[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+\.[a-z]{2,}$`)

// IsOrganizationName reports whether name reads as an institution, a
// project, a website or a bare mailbox. People carrying an affiliation or
// an address, like "Bindi, Dino (GFZ)" or "Simone Cesca, cesca@gfz.de",
// are not organizations.
func IsOrganizationName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || personWithContact(name) {
		return false
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	if mailboxRegex.MatchString(lower) {
		return true
	}
	for _, kw := range orgSubstrings {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, w := range words(lower) {
		if _, ok := orgWords[w]; ok {
			return true
		}
	}
	return false
}

// personWithContact matches "Family, Given", "Given Family, mail@host"
// and "Family, Given (Affiliation)".
func personWithContact(name string) bool {
	if first, rest, ok := strings.Cut(name, ","); ok {
		first, rest = strings.TrimSpace(first), strings.TrimSpace(rest)
		fw := strings.Fields(first)
		if len(fw) >= 1 && len(fw) <= 3 && allNameLike(fw) {
			if strings.Contains(rest, "@") {
				return true
			}
			if len(strings.Fields(rest)) == 1 && utf8.RuneCountInString(rest) <= 20 {
				return true
			}
		}
	}
	if before, _, ok := strings.Cut(name, "("); ok && strings.Contains(name, ")") {
		parts := strings.Split(strings.TrimSpace(before), ",")
		if len(parts) == 2 {
			p1, p2 := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			n1, n2 := len(strings.Fields(p1)), len(strings.Fields(p2))
			if n1 >= 1 && n1 <= 2 && n2 >= 1 && n2 <= 2 &&
				utf8.RuneCountInString(p1) <= 30 && utf8.RuneCountInString(p2) <= 20 {
				return true
			}
		}
	}
	return false
}

func allNameLike(ws []string) bool {
	for _, w := range ws {
		if !startsUpper(w) {
			return false
		}
		lw := strings.ToLower(w)
		for _, kw := range []string{"university", "institut", "center", "centre"} {
			if strings.Contains(lw, kw) {
				return false
			}
		}
	}
	return true
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// LooksLikePersonName accepts "Family, Given" and two to four capitalised
// words without organization keywords.
func LooksLikePersonName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.Contains(name, ",") {
		parts := strings.Split(name, ",")
		if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" && strings.TrimSpace(parts[1]) != "" {
			return true
		}
	}
	ws := strings.Fields(name)
	if len(ws) < 2 || len(ws) > 4 || IsOrganizationName(name) {
		return false
	}
	for _, w := range ws {
		if !startsUpper(w) {
			return false
		}
	}
	return true
}

// NameSignals are the facts nameType inference weighs.
type NameSignals struct {
	Name             string
	NameType         NameType // as registered, may be blank
	IdentifierScheme string
	Role             string // contributor type, blank for creators
	HasNameParts     bool
}

// InferNameType decides the nameType of a creator or contributor. ORCID
// and ROR identifiers are conclusive; organization keywords in the name
// outrank the registered value; the role and the shape of the name settle
// the rest.
func InferNameType(s NameSignals) NameType {
	switch {
	case strings.EqualFold(s.IdentifierScheme, "ORCID"):
		return NameTypePersonal
	case strings.EqualFold(s.IdentifierScheme, "ROR"):
		return NameTypeOrganizational
	case IsOrganizationName(s.Name):
		return NameTypeOrganizational
	case s.NameType != "":
		return s.NameType
	case slices.Contains(organizationalRoles, s.Role):
		return NameTypeOrganizational
	case slices.Contains(personalRoles, s.Role):
		return NameTypePersonal
	case s.HasNameParts, LooksLikePersonName(s.Name):
		return NameTypePersonal
	}
	return NameTypeOrganizational
}

// nameParts fills blank given and family names of a person from the full
// name and drops them for organizations.
func nameParts(nt NameType, name, given, family string) (string, string) {
	if nt == NameTypeOrganizational {
		return "", ""
	}
	if nt == NameTypePersonal && (given == "" || family == "") {
		p := ParseName(name)
		if given == "" {
			given = p.Given
		}
		if family == "" {
			family = p.Family
		}
	}
	return given, family
}

// Resolved fills a blank nameType and the missing name parts of a person.
// A registered nameType is kept.
func (c Creator) Resolved() Creator {
	if c.NameType == "" {
		c.NameType = InferNameType(NameSignals{
			Name:             c.Name,
			IdentifierScheme: c.NameIdentifierScheme,
			HasNameParts:     c.GivenName != "" || c.FamilyName != "",
		})
	}
	if c.NameType == NameTypePersonal {
		c.GivenName, c.FamilyName = nameParts(c.NameType, c.Name, c.GivenName, c.FamilyName)
	}
	return c
}

// Resolved infers the nameType of c, which may override the registered
// value when an identifier or the name contradicts it, and adjusts the
// name parts to match.
func (c Contributor) Resolved() Contributor {
	c.NameType = InferNameType(NameSignals{
		Name:             c.Name,
		NameType:         c.NameType,
		IdentifierScheme: c.NameIdentifierScheme,
		Role:             c.PrimaryType(),
		HasNameParts:     c.GivenName != "" || c.FamilyName != "",
	})
	c.GivenName, c.FamilyName = nameParts(c.NameType, c.Name, c.GivenName, c.FamilyName)
	return c
}
