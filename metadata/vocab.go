package metadata

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// ContributorTypes is the DataCite contributorType vocabulary.
var ContributorTypes = []string{
	"ContactPerson", "DataCollector", "DataCurator", "DataManager",
	"Distributor", "Editor", "HostingInstitution", "Producer",
	"ProjectLeader", "ProjectManager", "ProjectMember", "RegistrationAgency",
	"RegistrationAuthority", "RelatedPerson", "Researcher", "ResearchGroup",
	"RightsHolder", "Sponsor", "Supervisor", "Translator", "WorkPackageLeader", "Other",
}

// PointOfContact is a GFZ-specific role kept in the database only.
const PointOfContact = "pointOfContact"

// contributorTypeSpelling maps lower-cased accepted types to their
// vocabulary spelling.
var contributorTypeSpelling = func() map[string]string {
	m := make(map[string]string, len(ContributorTypes)+1)
	for _, t := range append(ContributorTypes, PointOfContact) {
		m[strings.ToLower(t)] = t
	}
	return m
}()

// IsDataCiteContributorType reports whether t belongs to the DataCite vocabulary.
func IsDataCiteContributorType(t string) bool {
	return slices.Contains(ContributorTypes, t)
}

// CanonicalContributorType returns the vocabulary spelling of t, matched
// case-insensitively.
func CanonicalContributorType(t string) (string, bool) {
	c, ok := contributorTypeSpelling[strings.ToLower(strings.TrimSpace(t))]
	return c, ok
}

// IsContributorType reports whether t is accepted in a contributors CSV,
// ignoring case.
func IsContributorType(t string) bool {
	_, ok := CanonicalContributorType(t)
	return ok
}

// SplitContributorTypes splits a comma separated type list and drops blanks.
// Known types are rewritten to their vocabulary spelling; unknown ones are
// kept as written.
func SplitContributorTypes(s string) []string {
	var types []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if c, ok := CanonicalContributorType(t); ok {
			t = c
		}
		types = append(types, t)
	}
	return types
}

// IsLanguageCode reports whether code is a two-letter ISO 639-1 code. An
// empty code is accepted.
func IsLanguageCode(code string) bool {
	if code == "" {
		return true
	}
	if len(code) != 2 {
		return false
	}
	_, err := language.ParseBase(strings.ToLower(code))
	return err == nil
}
