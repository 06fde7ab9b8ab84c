package datacite

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gfz-dataservices/grobi/metadata"
)

func mustParse(t *testing.T, s string) *Attributes {
	t.Helper()
	a, err := ParseAttributes([]byte(s))
	if err != nil {
		t.Fatalf("ParseAttributes: %v", err)
	}
	return a
}

func TestWithCreatorsKeepsAffiliationByPosition(t *testing.T) {
	a := mustParse(t, `{"creators":[{"name":"Old","affiliation":["GFZ"]},{"name":"Other"}]}`)
	out := a.WithCreators([]metadata.Creator{
		{Name: "Doe, Jane", GivenName: "Jane", FamilyName: "Doe", NameIdentifier: "0000-0001-5000-0007"},
		{Name: "GFZ", NameType: metadata.NameTypeOrganizational, GivenName: "ignored"},
	})

	creators := out.Objects("creators")
	if len(creators) != 2 {
		t.Fatalf("got %d creators", len(creators))
	}
	if Field(creators[0], "nameType") != "Personal" || Field(creators[0], "givenName") != "Jane" {
		t.Errorf("first creator = %v", creators[0])
	}
	if creators[0].Fields["affiliation"] == nil {
		t.Error("affiliation of first creator was dropped")
	}
	ids := objects(creators[0].Fields["nameIdentifiers"])
	if len(ids) != 1 || Field(ids[0], "nameIdentifierScheme") != "ORCID" || Field(ids[0], "schemeUri") != "https://orcid.org" {
		t.Errorf("name identifiers = %v", ids)
	}
	if _, ok := creators[1].Fields["givenName"]; ok {
		t.Error("organizational creator must not carry givenName")
	}
}

func TestWithContributorsUsesPrimaryType(t *testing.T) {
	a := mustParse(t, `{"contributors":[{"name":"Doe, Jane","contributorType":"ContactPerson","affiliation":[{"name":"GFZ"}]}]}`)
	out := a.WithContributors([]metadata.Contributor{{
		Name:             "Doe, Jane",
		ContributorTypes: []string{"pointOfContact", "ContactPerson", "DataCurator"},
		Email:            "jane@example.org",
	}})

	got := out.Contributors()
	if len(got) != 1 {
		t.Fatalf("got %d contributors", len(got))
	}
	if diff := cmp.Diff([]string{"ContactPerson"}, got[0].ContributorTypes); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}
	if got[0].Affiliation != "GFZ" {
		t.Errorf("affiliation = %q, want kept from current", got[0].Affiliation)
	}
	if _, ok := out.Objects("contributors")[0].Fields["email"]; ok {
		t.Error("email must never be sent to DataCite")
	}
}

func TestWithPublisherForm(t *testing.T) {
	a := NewAttributes(nil)
	if got := a.WithPublisher(metadata.Publisher{Name: "GFZ"}).Struct().Fields["publisher"].GetStringValue(); got != "GFZ" {
		t.Errorf("plain publisher = %q", got)
	}
	obj := a.WithPublisher(metadata.Publisher{Name: "GFZ", Lang: "en"}).Struct().Fields["publisher"].GetStructValue()
	if obj == nil || Field(obj, "lang") != "en" {
		t.Errorf("extended publisher = %v", obj)
	}
}

func TestWithRightsEmptyRemovesAll(t *testing.T) {
	a := mustParse(t, `{"rightsList":[{"rights":"MIT"}]}`)
	out := a.WithRights([]metadata.Rights{})
	if got := out.Rights(); len(got) != 0 {
		t.Errorf("rights = %v, want none", got)
	}
	if out.Struct().Fields["rightsList"].GetListValue() == nil {
		t.Error("rightsList must be sent as an empty list")
	}
}

func TestWithSchemaKernel4MigratesFunders(t *testing.T) {
	a := mustParse(t, `{
		"schemaVersion":"http://datacite.org/schema/kernel-3",
		"contributors":[
			{"name":"DFG","contributorType":"Funder","nameIdentifiers":[{"nameIdentifier":"https://doi.org/10.13039/501100001659","nameIdentifierScheme":"Crossref Funder ID"}]},
			{"name":"Doe, Jane","contributorType":"DataCurator"}
		],
		"fundingReferences":[{"funderName":"ERC"}]
	}`)
	if n := a.FunderCount(); n != 1 {
		t.Fatalf("FunderCount = %d", n)
	}

	out, migrated := a.WithSchemaKernel4()
	if migrated != 1 {
		t.Errorf("migrated = %d, want 1", migrated)
	}
	if out.SchemaVersion() != SchemaKernel4 {
		t.Errorf("schemaVersion = %q", out.SchemaVersion())
	}
	if got := out.Contributors(); len(got) != 1 || got[0].Name != "Doe, Jane" {
		t.Errorf("contributors = %+v", got)
	}
	refs := out.Objects("fundingReferences")
	if len(refs) != 2 {
		t.Fatalf("fundingReferences = %d, want 2", len(refs))
	}
	if Field(refs[1], "funderName") != "DFG" || Field(refs[1], "funderIdentifierType") != "Crossref Funder ID" {
		t.Errorf("migrated reference = %v", refs[1])
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://x.org/a", "https://x.org/a"},
		{"http://example.com/path?id=test:123", "http://example.com/path?id=test%3A123"},
		{"http://example.com/path?id=test%3A123", "http://example.com/path?id=test%3A123"},
		{"http://example.com/a b/c?x=1&y=a+b", "http://example.com/a%20b/c?x=1&y=a+b"},
		{"http://example.com/%2520", "http://example.com/%2520"},
		{"https://x.org/p#frag", "https://x.org/p#frag"},
		{"not a url", "not a url"},
		{"http://example.com/%zz", "http://example.com/%zz"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
