package datacite

import (
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gfz-dataservices/grobi/metadata"
)

const (
	defaultIdentifierScheme = "ORCID"
	defaultSchemeURI        = "https://orcid.org"
)

// Each With* builder returns a copy of a with exactly one attribute replaced.

// WithURL replaces the landing page URL.
func (a *Attributes) WithURL(u string) *Attributes {
	out := a.Clone()
	out.Set("url", structpb.NewStringValue(u))
	return out
}

// WithCreators replaces the creator list. Affiliations of the current
// creator at the same position are carried over, since the CSV format has
// no affiliation column for creators.
func (a *Attributes) WithCreators(creators []metadata.Creator) *Attributes {
	current := a.Objects("creators")
	values := make([]*structpb.Value, 0, len(creators))
	for i, c := range creators {
		s := object(
			"name", c.Name,
			"nameType", string(nameTypeOrDefault(c.NameType)),
		)
		if nameTypeOrDefault(c.NameType) == metadata.NameTypePersonal {
			setString(s, "givenName", c.GivenName)
			setString(s, "familyName", c.FamilyName)
		}
		if c.NameIdentifier != "" {
			s.Fields["nameIdentifiers"] = nameIdentifiers(c.NameIdentifier, c.NameIdentifierScheme, c.SchemeURI)
		}
		if i < len(current) {
			if aff, ok := current[i].Fields["affiliation"]; ok {
				s.Fields["affiliation"] = aff
			}
		}
		values = append(values, structpb.NewStructValue(s))
	}
	out := a.Clone()
	out.Set("creators", structpb.NewListValue(&structpb.ListValue{Values: values}))
	return out
}

// WithContributors replaces the contributor list. Each contributor carries
// its primary type only. Email, website and position never leave the
// database. Without a CSV affiliation the current one is kept, matched by
// ORCID first and then by name.
func (a *Attributes) WithContributors(contributors []metadata.Contributor) *Attributes {
	current := a.Objects("contributors")
	values := make([]*structpb.Value, 0, len(contributors))
	for _, c := range contributors {
		s := object(
			"name", c.Name,
			"nameType", string(nameTypeOrDefault(c.NameType)),
			"contributorType", c.PrimaryType(),
		)
		if nameTypeOrDefault(c.NameType) == metadata.NameTypePersonal {
			setString(s, "givenName", c.GivenName)
			setString(s, "familyName", c.FamilyName)
		}
		if c.NameIdentifier != "" {
			s.Fields["nameIdentifiers"] = nameIdentifiers(c.NameIdentifier, c.NameIdentifierScheme, c.SchemeURI)
		}
		switch {
		case c.Affiliation != "":
			aff := object("name", c.Affiliation)
			if c.AffiliationIdentifier != "" {
				setString(aff, "affiliationIdentifier", c.AffiliationIdentifier)
				if strings.Contains(c.AffiliationIdentifier, "ror.org") {
					setString(aff, "affiliationIdentifierScheme", "ROR")
				}
			}
			s.Fields["affiliation"] = structpb.NewListValue(&structpb.ListValue{
				Values: []*structpb.Value{structpb.NewStructValue(aff)},
			})
		default:
			if match := matchContributor(current, c); match != nil {
				if aff, ok := match.Fields["affiliation"]; ok {
					s.Fields["affiliation"] = aff
				}
			}
		}
		values = append(values, structpb.NewStructValue(s))
	}
	out := a.Clone()
	out.Set("contributors", structpb.NewListValue(&structpb.ListValue{Values: values}))
	return out
}

// WithRights replaces the rightsList. An empty list removes all rights.
func (a *Attributes) WithRights(rights []metadata.Rights) *Attributes {
	values := make([]*structpb.Value, 0, len(rights))
	for _, r := range rights {
		values = append(values, structpb.NewStructValue(object(
			"rights", r.Rights,
			"rightsUri", r.RightsURI,
			"schemeUri", r.SchemeURI,
			"rightsIdentifier", r.RightsIdentifier,
			"rightsIdentifierScheme", r.RightsIdentifierScheme,
			"lang", r.Lang,
		)))
	}
	out := a.Clone()
	out.Set("rightsList", structpb.NewListValue(&structpb.ListValue{Values: values}))
	return out
}

// WithPublisher replaces the publisher. A bare name is written as a
// string, anything richer as an object.
func (a *Attributes) WithPublisher(p metadata.Publisher) *Attributes {
	out := a.Clone()
	if !p.IsExtended() {
		out.Set("publisher", structpb.NewStringValue(p.Name))
		return out
	}
	out.Set("publisher", structpb.NewStructValue(object(
		"name", p.Name,
		"publisherIdentifier", p.PublisherIdentifier,
		"publisherIdentifierScheme", p.PublisherIdentifierScheme,
		"schemeUri", p.SchemeURI,
		"lang", p.Lang,
	)))
	return out
}

// WithSchemaKernel4 sets the kernel-4 schema version and moves Funder
// contributors, deprecated in kernel-4, to fundingReferences. It returns
// the number of migrated funders.
func (a *Attributes) WithSchemaKernel4() (*Attributes, int) {
	out := a.Clone()
	out.Set("schemaVersion", structpb.NewStringValue(SchemaKernel4))

	var kept, funding []*structpb.Value
	if list := out.fields.Fields["fundingReferences"].GetListValue(); list != nil {
		funding = append(funding, list.Values...)
	}
	migrated := 0
	if list := out.fields.Fields["contributors"].GetListValue(); list != nil {
		for _, v := range list.Values {
			c := v.GetStructValue()
			if c == nil || Field(c, "contributorType") != "Funder" {
				kept = append(kept, v)
				continue
			}
			ref := object("funderName", Field(c, "name"))
			if ids := objects(c.Fields["nameIdentifiers"]); len(ids) > 0 {
				setString(ref, "funderIdentifier", Field(ids[0], "nameIdentifier"))
				setString(ref, "funderIdentifierType", Field(ids[0], "nameIdentifierScheme"))
			}
			funding = append(funding, structpb.NewStructValue(ref))
			migrated++
		}
	}
	if migrated == 0 {
		return out, 0
	}
	if len(kept) > 0 {
		out.Set("contributors", structpb.NewListValue(&structpb.ListValue{Values: kept}))
	} else {
		out.Delete("contributors")
	}
	out.Set("fundingReferences", structpb.NewListValue(&structpb.ListValue{Values: funding}))
	return out, migrated
}

// FunderCount returns the number of contributors typed Funder.
func (a *Attributes) FunderCount() int {
	n := 0
	for _, c := range a.Objects("contributors") {
		if Field(c, "contributorType") == "Funder" {
			n++
		}
	}
	return n
}

func nameTypeOrDefault(t metadata.NameType) metadata.NameType {
	if t == "" {
		return metadata.NameTypePersonal
	}
	return t
}

func nameIdentifiers(id, scheme, schemeURI string) *structpb.Value {
	if scheme == "" {
		scheme = defaultIdentifierScheme
	}
	if schemeURI == "" && strings.EqualFold(scheme, defaultIdentifierScheme) {
		schemeURI = defaultSchemeURI
	}
	s := object(
		"nameIdentifier", id,
		"nameIdentifierScheme", scheme,
		"schemeUri", schemeURI,
	)
	return structpb.NewListValue(&structpb.ListValue{
		Values: []*structpb.Value{structpb.NewStructValue(s)},
	})
}

func matchContributor(current []*structpb.Struct, c metadata.Contributor) *structpb.Struct {
	if orcid := metadata.NormalizeORCID(c.NameIdentifier); orcid != "" {
		for _, cur := range current {
			if id := orcidIdentifier(cur); id != nil && metadata.NormalizeORCID(Field(id, "nameIdentifier")) == orcid {
				return cur
			}
		}
	}
	for _, cur := range current {
		if metadata.Normalize(Field(cur, "name")) == metadata.Normalize(c.Name) {
			return cur
		}
	}
	return nil
}

// object builds a struct from key/value pairs, leaving out empty values.
func object(kv ...string) *structpb.Struct {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		setString(s, kv[i], kv[i+1])
	}
	return s
}

func setString(s *structpb.Struct, key, value string) {
	if value != "" {
		s.Fields[key] = structpb.NewStringValue(value)
	}
}
