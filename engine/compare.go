package engine

import (
	"fmt"
	"strings"

	"github.com/gfz-dataservices/grobi/metadata"
)

// Fields are lower-cased and trimmed before any comparison; DataCite is
// free to change case (e.g. SPDX ids) on read.

type creatorKey struct {
	name, nameType, given, family, orcid string
}

func keyOfCreator(c metadata.Creator) creatorKey {
	k := creatorKey{
		name:     metadata.Normalize(c.Name),
		nameType: nameTypeKey(c.NameType),
		orcid:    metadata.Normalize(metadata.NormalizeORCID(c.NameIdentifier)),
	}
	if k.nameType == "personal" {
		k.given = metadata.Normalize(c.GivenName)
		k.family = metadata.Normalize(c.FamilyName)
	}
	return k
}

type contributorKey struct {
	name, nameType, given, family, contributorType, orcid string
}

func keyOfContributor(c metadata.Contributor, contributorType string) contributorKey {
	k := contributorKey{
		name:            metadata.Normalize(c.Name),
		nameType:        nameTypeKey(c.NameType),
		contributorType: metadata.Normalize(contributorType),
		orcid:           metadata.Normalize(metadata.NormalizeORCID(c.NameIdentifier)),
	}
	if k.nameType == "personal" {
		k.given = metadata.Normalize(c.GivenName)
		k.family = metadata.Normalize(c.FamilyName)
	}
	return k
}

type rightsKey struct {
	rights, uri, schemeURI, identifier, scheme, lang string
}

func keyOfRights(r metadata.Rights) rightsKey {
	return rightsKey{
		rights:     metadata.Normalize(r.Rights),
		uri:        metadata.Normalize(r.RightsURI),
		schemeURI:  metadata.Normalize(r.SchemeURI),
		identifier: metadata.Normalize(r.RightsIdentifier),
		scheme:     metadata.Normalize(r.RightsIdentifierScheme),
		lang:       metadata.Normalize(r.Lang),
	}
}

func nameTypeKey(t metadata.NameType) string {
	if t == "" {
		return "personal"
	}
	return metadata.Normalize(string(t))
}

// diffMultiset compares two lists as unordered multisets and returns how
// many entries exist only on either side.
func diffMultiset[K comparable](current, desired []K) (onlyCurrent, onlyDesired int) {
	counts := make(map[K]int, len(current))
	for _, k := range current {
		counts[k]++
	}
	for _, k := range desired {
		if counts[k] > 0 {
			counts[k]--
			continue
		}
		onlyDesired++
	}
	for _, n := range counts {
		onlyCurrent += n
	}
	return onlyCurrent, onlyDesired
}

// compareCreators compares positionally: byline order is significant.
func compareCreators(current, desired []metadata.Creator) (bool, string) {
	if len(current) != len(desired) {
		return true, fmt.Sprintf("Creator-Anzahl unterschiedlich (aktuell: %d, CSV: %d)", len(current), len(desired))
	}
	if len(current) == 0 {
		return false, "Creators unverändert (keine vorhanden)"
	}
	var changes []string
	for i := range current {
		a, b := keyOfCreator(current[i]), keyOfCreator(desired[i])
		n := i + 1
		if a.name != b.name {
			changes = append(changes, fmt.Sprintf("Creator %d: Name geändert", n))
		}
		if a.nameType != b.nameType {
			changes = append(changes, fmt.Sprintf("Creator %d: NameType geändert", n))
		}
		if a.given != b.given {
			changes = append(changes, fmt.Sprintf("Creator %d: GivenName geändert", n))
		}
		if a.family != b.family {
			changes = append(changes, fmt.Sprintf("Creator %d: FamilyName geändert", n))
		}
		if a.orcid != b.orcid {
			changes = append(changes, fmt.Sprintf("Creator %d: ORCID geändert", n))
		}
	}
	if len(changes) == 0 {
		return false, "Creators unverändert"
	}
	return true, summarize(changes)
}

func compareContributors(current, desired []metadata.Contributor, withStore bool) (bool, string) {
	var changes []string
	if withStore {
		for i, c := range desired {
			if c.HasContactInfo() {
				changes = append(changes, fmt.Sprintf("Contributor %d: Kontaktdaten (DB)", i+1))
			}
		}
	}

	switch {
	case len(current) != len(desired):
		changes = append([]string{fmt.Sprintf("Contributor-Anzahl unterschiedlich (aktuell: %d, CSV: %d)", len(current), len(desired))}, changes...)
	case len(current) > 0:
		cur := make([]contributorKey, len(current))
		for i, c := range current {
			t := "Other"
			if len(c.ContributorTypes) > 0 {
				t = c.ContributorTypes[0]
			}
			cur[i] = keyOfContributor(c, t)
		}
		want := make([]contributorKey, len(desired))
		for i, c := range desired {
			want[i] = keyOfContributor(c, c.PrimaryType())
		}
		if onlyCur, onlyWant := diffMultiset(cur, want); onlyCur+onlyWant > 0 {
			changes = append([]string{fmt.Sprintf("%d Contributors geändert", max(onlyCur, onlyWant))}, changes...)
		}
	}

	if len(changes) == 0 {
		return false, "Contributors unverändert"
	}
	return true, summarize(changes)
}

func compareRights(current, desired []metadata.Rights) (bool, string) {
	if len(current) != len(desired) {
		return true, fmt.Sprintf("Rights-Anzahl unterschiedlich (aktuell: %d, CSV: %d)", len(current), len(desired))
	}
	if len(current) == 0 {
		return false, "Rights unverändert (keine vorhanden)"
	}
	cur := make([]rightsKey, len(current))
	for i, r := range current {
		cur[i] = keyOfRights(r)
	}
	want := make([]rightsKey, len(desired))
	for i, r := range desired {
		want[i] = keyOfRights(r)
	}
	onlyCur, onlyWant := diffMultiset(cur, want)
	if onlyCur+onlyWant == 0 {
		return false, "Rights unverändert"
	}
	var changes []string
	if onlyWant > 0 {
		changes = append(changes, fmt.Sprintf("%d Rights hinzugefügt/geändert", onlyWant))
	}
	if onlyCur > 0 {
		changes = append(changes, fmt.Sprintf("%d Rights entfernt/geändert", onlyCur))
	}
	return true, strings.Join(changes, ", ")
}

func comparePublisher(current, desired metadata.Publisher) (bool, string) {
	var changes []string
	diff := func(label, a, b string) {
		if metadata.Normalize(a) != metadata.Normalize(b) {
			changes = append(changes, fmt.Sprintf("%s: '%s' → '%s'", label, a, b))
		}
	}
	diff("Name", current.Name, desired.Name)
	diff("Identifier", current.PublisherIdentifier, desired.PublisherIdentifier)
	diff("Scheme", current.PublisherIdentifierScheme, desired.PublisherIdentifierScheme)
	diff("SchemeURI", current.SchemeURI, desired.SchemeURI)
	diff("Language", current.Lang, desired.Lang)
	if len(changes) == 0 {
		return false, "Publisher unverändert"
	}
	return true, summarize(changes)
}

func summarize(changes []string) string {
	if len(changes) <= 3 {
		return strings.Join(changes, "; ")
	}
	return fmt.Sprintf("%s (+ %d weitere)", strings.Join(changes[:3], "; "), len(changes)-3)
}
