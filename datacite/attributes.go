package datacite

import (
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gfz-dataservices/grobi/metadata"
)

// Schema version written by the schema upgrade.
const SchemaKernel4 = "http://datacite.org/schema/kernel-4"

// Attributes is the attribute object of a DataCite DOI resource. Every field
// is kept, including the ones GROBI never reads, so that a full-object PUT
// only changes what a builder replaced.
type Attributes struct {
	fields *structpb.Struct
}

// NewAttributes wraps s. A nil s yields an empty attribute set.
func NewAttributes(s *structpb.Struct) *Attributes {
	if s == nil {
		s = &structpb.Struct{}
	}
	if s.Fields == nil {
		s.Fields = make(map[string]*structpb.Value)
	}
	return &Attributes{fields: s}
}

// ParseAttributes decodes a JSON attribute object.
func ParseAttributes(data []byte) (*Attributes, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return NewAttributes(s), nil
}

// Struct exposes the underlying value.
func (a *Attributes) Struct() *structpb.Struct { return a.fields }

// Clone returns a deep copy that builders can modify freely.
func (a *Attributes) Clone() *Attributes {
	return NewAttributes(proto.Clone(a.fields).(*structpb.Struct))
}

// MarshalJSON implements json.Marshaler.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(a.fields)
}

// Has reports whether key is present and not null.
func (a *Attributes) Has(key string) bool {
	v, ok := a.fields.Fields[key]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

// Get returns the string form of a scalar attribute.
func (a *Attributes) Get(key string) string {
	return scalar(a.fields.Fields[key])
}

// Set stores v under key.
func (a *Attributes) Set(key string, v *structpb.Value) {
	a.fields.Fields[key] = v
}

// Delete removes key.
func (a *Attributes) Delete(key string) {
	delete(a.fields.Fields, key)
}

func (a *Attributes) URL() string           { return a.Get("url") }
func (a *Attributes) SchemaVersion() string { return a.Get("schemaVersion") }
func (a *Attributes) State() string         { return a.Get("state") }

// Objects returns the object entries of a list attribute, skipping anything
// that is not an object.
func (a *Attributes) Objects(key string) []*structpb.Struct {
	return objects(a.fields.Fields[key])
}

// Creators reads the creator list. Only the first ORCID name identifier of
// each creator is kept.
func (a *Attributes) Creators() []metadata.Creator {
	var out []metadata.Creator
	for _, c := range a.Objects("creators") {
		cr := metadata.Creator{
			Name:       Field(c, "name"),
			NameType:   metadata.NameType(Field(c, "nameType")),
			GivenName:  Field(c, "givenName"),
			FamilyName: Field(c, "familyName"),
		}
		if id := orcidIdentifier(c); id != nil {
			cr.NameIdentifier = Field(id, "nameIdentifier")
			cr.NameIdentifierScheme = Field(id, "nameIdentifierScheme")
			cr.SchemeURI = Field(id, "schemeUri")
		}
		out = append(out, cr)
	}
	return out
}

// Contributors reads the contributor list. DataCite stores one
// contributorType per entry; a missing type reads as "Other".
func (a *Attributes) Contributors() []metadata.Contributor {
	var out []metadata.Contributor
	for _, c := range a.Objects("contributors") {
		ct := metadata.Contributor{
			Name:       Field(c, "name"),
			NameType:   metadata.NameType(Field(c, "nameType")),
			GivenName:  Field(c, "givenName"),
			FamilyName: Field(c, "familyName"),
		}
		if t := Field(c, "contributorType"); t != "" {
			ct.ContributorTypes = []string{t}
		} else {
			ct.ContributorTypes = []string{"Other"}
		}
		if id := orcidIdentifier(c); id != nil {
			ct.NameIdentifier = Field(id, "nameIdentifier")
			ct.NameIdentifierScheme = Field(id, "nameIdentifierScheme")
			ct.SchemeURI = Field(id, "schemeUri")
		} else if ids := objects(c.Fields["nameIdentifiers"]); len(ids) > 0 {
			ct.NameIdentifier = Field(ids[0], "nameIdentifier")
			ct.NameIdentifierScheme = Field(ids[0], "nameIdentifierScheme")
			ct.SchemeURI = Field(ids[0], "schemeUri")
		}
		ct.Affiliation, ct.AffiliationIdentifier = firstAffiliation(c)
		out = append(out, ct)
	}
	return out
}

// Rights reads the rightsList.
func (a *Attributes) Rights() []metadata.Rights {
	var out []metadata.Rights
	for _, r := range a.Objects("rightsList") {
		out = append(out, metadata.Rights{
			Rights:                 Field(r, "rights"),
			RightsURI:              Field(r, "rightsUri"),
			SchemeURI:              Field(r, "schemeUri"),
			RightsIdentifier:       Field(r, "rightsIdentifier"),
			RightsIdentifierScheme: Field(r, "rightsIdentifierScheme"),
			Lang:                   Field(r, "lang"),
		})
	}
	return out
}

// Publisher reads the publisher in either its string or object form.
func (a *Attributes) Publisher() metadata.Publisher {
	v := a.fields.Fields["publisher"]
	if obj := v.GetStructValue(); obj != nil {
		return metadata.Publisher{
			Name:                      Field(obj, "name"),
			PublisherIdentifier:       Field(obj, "publisherIdentifier"),
			PublisherIdentifierScheme: Field(obj, "publisherIdentifierScheme"),
			SchemeURI:                 Field(obj, "schemeUri"),
			Lang:                      Field(obj, "lang"),
		}
	}
	return metadata.Publisher{Name: scalar(v)}
}

// Field returns the string form of s[key].
func Field(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return scalar(s.Fields[key])
}

func scalar(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	}
	return ""
}

func objects(v *structpb.Value) []*structpb.Struct {
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]*structpb.Struct, 0, len(list.Values))
	for _, item := range list.Values {
		if s := item.GetStructValue(); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func orcidIdentifier(s *structpb.Struct) *structpb.Struct {
	for _, id := range objects(s.Fields["nameIdentifiers"]) {
		if strings.EqualFold(Field(id, "nameIdentifierScheme"), "ORCID") {
			return id
		}
	}
	return nil
}

// firstAffiliation handles both the plain string list DataCite returns by
// default and the object list returned with ?affiliation=true.
func firstAffiliation(s *structpb.Struct) (name, identifier string) {
	list := s.Fields["affiliation"].GetListValue()
	if list == nil || len(list.Values) == 0 {
		return "", ""
	}
	first := list.Values[0]
	if obj := first.GetStructValue(); obj != nil {
		return Field(obj, "name"), Field(obj, "affiliationIdentifier")
	}
	return scalar(first), ""
}
