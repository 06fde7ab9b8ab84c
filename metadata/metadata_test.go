package metadata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsDOI(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"10.5880/GFZ.1.1.2021.001", true},
		{"10.1/x", true},
		{"10.12345/abc-def", true},
		{"10.5880/", false},
		{"11.5880/GFZ.1", false},
		{"10.abc/x", false},
		{"10.5880/has space", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsDOI(tt.input); got != tt.want {
				t.Errorf("IsDOI(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://dataservices.gfz-potsdam.de/panmetaworks/showshort.php?id=1", true},
		{"http://localhost:8080/path", true},
		{"http://192.168.0.1/", true},
		{"HTTPS://EXAMPLE.ORG", true},
		{"ftp://example.org/file", false},
		{"https://example", false},
		{"example.org", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsURL(tt.input); got != tt.want {
				t.Errorf("IsURL(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsORCID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"0000-0001-5000-0007", true},
		{"0000-0002-1694-233X", true},
		{"0000-0002-1694-233x", true},
		{"https://orcid.org/0000-0001-5000-0007", true},
		{"http://orcid.org/0000-0001-5000-0007", true},
		{"0000-0001-5000", false},
		{"1234-0001-5000-0007", false},
		{"not-an-orcid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsORCID(tt.input); got != tt.want {
				t.Errorf("IsORCID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"hans@gfz.de", true},
		{"first.last@sub.example.org", true},
		{"", false},
		{"not-an-email", false},
		{"@domain.com", false},
		{"user@", false},
		{"user@domain", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsEmail(tt.input); got != tt.want {
				t.Errorf("IsEmail(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeORCID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://orcid.org/0000-0001-5000-0007", "0000-0001-5000-0007"},
		{"http://orcid.org/0000-0001-5000-0007", "0000-0001-5000-0007"},
		{"  0000-0001-5000-0007 ", "0000-0001-5000-0007"},
		{"https://ror.org/04z8jg394", "https://ror.org/04z8jg394"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeORCID(tt.input); got != tt.want {
				t.Errorf("NormalizeORCID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSPDX(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"CC-BY-4.0", true},
		{"CC-BY-SA-4.0", true},
		{"CC-BY-NC-ND-4.0", true},
		{"CC0-1.0", true},
		{"MIT", true},
		{"Apache-2.0", true},
		{"GPL-3.0-only", true},
		{"cc-by-4.0", true},
		{"Cc-By-4.0", true},
		{"apache-2.0", true},
		{"", true},
		{"CC-BY", false},
		{"CC-BY-5.0", false},
		{"CC BY 4.0", false},
		{"INVALID-LICENSE", false},
		{"public-domain", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsSPDX(tt.input); got != tt.want {
				t.Errorf("IsSPDX(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsLanguageCode(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"en", true},
		{"de", true},
		{"ja", true},
		{"EN", true},
		{"", true},
		{"english", false},
		{"eng", false},
		{"xx", false},
		{"12", false},
		{"e", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsLanguageCode(tt.input); got != tt.want {
				t.Errorf("IsLanguageCode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsContributorType(t *testing.T) {
	for _, ct := range ContributorTypes {
		if !IsContributorType(ct) {
			t.Errorf("IsContributorType(%q) = false, want true", ct)
		}
	}
	if !IsContributorType("pointOfContact") {
		t.Error("pointOfContact should be accepted")
	}
	if IsContributorType("UnknownType") {
		t.Error("UnknownType should be rejected")
	}
	if IsDataCiteContributorType("pointOfContact") {
		t.Error("pointOfContact is not a DataCite contributor type")
	}
}

func TestSplitContributorTypes(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"ContactPerson, DataManager", []string{"ContactPerson", "DataManager"}},
		{"contactperson,researcher", []string{"ContactPerson", "Researcher"}},
		{"POINTOFCONTACT", []string{"pointOfContact"}},
		{" Custom , ,Other", []string{"Custom", "Other"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitContributorTypes(tt.input)); diff != "" {
				t.Errorf("SplitContributorTypes(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestPrimaryType(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  string
	}{
		{"first valid wins", []string{"ContactPerson", "DataManager"}, "ContactPerson"},
		{"skips extension", []string{"pointOfContact", "Editor"}, "Editor"},
		{"only extension", []string{"pointOfContact"}, "Other"},
		{"none", nil, "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Contributor{ContributorTypes: tt.types}
			if got := c.PrimaryType(); got != tt.want {
				t.Errorf("PrimaryType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		input      string
		wantGiven  string
		wantFamily string
	}{
		{"Müller, Hans", "Hans", "Müller"},
		{"Hans Müller", "Hans", "Müller"},
		{"Ludwig van Beethoven", "Ludwig", "van Beethoven"},
		{"Anna Maria Schmidt", "Anna Maria", "Schmidt"},
		{"Plato", "", "Plato"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseName(tt.input)
			if got.Given != tt.wantGiven {
				t.Errorf("Given = %q, want %q", got.Given, tt.wantGiven)
			}
			if got.Family != tt.wantFamily {
				t.Errorf("Family = %q, want %q", got.Family, tt.wantFamily)
			}
		})
	}
}

func TestInvertedName(t *testing.T) {
	if got := InvertedName("Müller", "Hans"); got != "Müller, Hans" {
		t.Errorf("InvertedName = %q, want %q", got, "Müller, Hans")
	}
	if got := InvertedName("Müller", ""); got != "Müller" {
		t.Errorf("InvertedName = %q, want %q", got, "Müller")
	}
}
