package datacite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gfz-dataservices/grobi/metadata"
)

const sampleDOI = `{
  "data": {
    "id": "10.5880/gfz.1",
    "type": "dois",
    "attributes": {
      "doi": "10.5880/gfz.1",
      "url": "https://x.org/a",
      "schemaVersion": "http://datacite.org/schema/kernel-4",
      "publicationYear": 2021,
      "titles": [{"title": "A dataset"}],
      "creators": [
        {"name": "Doe, Jane", "nameType": "Personal", "givenName": "Jane", "familyName": "Doe",
         "affiliation": ["GFZ"],
         "nameIdentifiers": [{"nameIdentifier": "https://orcid.org/0000-0001-5000-0007", "nameIdentifierScheme": "ORCID", "schemeUri": "https://orcid.org"}]}
      ],
      "rightsList": [{"rights": "Creative Commons Attribution 4.0", "rightsIdentifier": "cc-by-4.0", "rightsIdentifierScheme": "SPDX"}],
      "publisher": {"name": "GFZ Data Services", "publisherIdentifier": "https://ror.org/04z8jg394", "lang": "en"}
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("GFZ.TEST", "secret", true, WithBaseURL(srv.URL), WithRetries(0, 0))
}

func TestGetDOI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dois/10.5880/gfz.1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "GFZ.TEST" || pass != "secret" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		if got := r.Header.Get("Accept"); got != mediaType {
			t.Errorf("Accept = %q, want %q", got, mediaType)
		}
		io.WriteString(w, sampleDOI)
	})

	doi, err := c.GetDOI(context.Background(), "10.5880/gfz.1")
	if err != nil {
		t.Fatalf("GetDOI: %v", err)
	}
	if doi.ID != "10.5880/gfz.1" {
		t.Errorf("ID = %q", doi.ID)
	}
	if got := doi.Attributes.URL(); got != "https://x.org/a" {
		t.Errorf("URL = %q", got)
	}
	if got := doi.Attributes.Get("publicationYear"); got != "2021" {
		t.Errorf("publicationYear = %q, want 2021", got)
	}

	wantCreators := []metadata.Creator{{
		Name: "Doe, Jane", NameType: metadata.NameTypePersonal, GivenName: "Jane", FamilyName: "Doe",
		NameIdentifier: "https://orcid.org/0000-0001-5000-0007", NameIdentifierScheme: "ORCID", SchemeURI: "https://orcid.org",
	}}
	if diff := cmp.Diff(wantCreators, doi.Attributes.Creators()); diff != "" {
		t.Errorf("creators mismatch (-want +got):\n%s", diff)
	}

	wantPublisher := metadata.Publisher{Name: "GFZ Data Services", PublisherIdentifier: "https://ror.org/04z8jg394", Lang: "en"}
	if diff := cmp.Diff(wantPublisher, doi.Attributes.Publisher()); diff != "" {
		t.Errorf("publisher mismatch (-want +got):\n%s", diff)
	}
	if got := doi.Attributes.Rights(); len(got) != 1 || got[0].RightsIdentifier != "cc-by-4.0" {
		t.Errorf("rights = %+v", got)
	}
}

func TestGetDOIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantFatal bool
		check     func(error) bool
	}{
		{"not found", http.StatusNotFound, false, IsNotFound},
		{"unauthorized", http.StatusUnauthorized, true, func(err error) bool {
			var e *AuthError
			return errors.As(err, &e)
		}},
		{"rate limited", http.StatusTooManyRequests, false, func(err error) bool {
			var e *APIError
			return errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests
		}},
		{"server error", http.StatusBadGateway, false, func(err error) bool {
			var e *APIError
			return errors.As(err, &e) && e.StatusCode == http.StatusBadGateway
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.GetDOI(context.Background(), "10.5880/missing")
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
			if IsFatal(err) != tt.wantFatal {
				t.Errorf("IsFatal = %v, want %v", IsFatal(err), tt.wantFatal)
			}
		})
	}
}

func TestGetDOINetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New("GFZ.TEST", "secret", false, WithBaseURL(base), WithRetries(0, 0))
	_, err := c.GetDOI(context.Background(), "10.5880/gfz.1")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %T %v, want *NetworkError", err, err)
	}
	if !IsFatal(err) {
		t.Error("network errors must be fatal")
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, sampleDOI)
	}))
	defer srv.Close()

	c := New("GFZ.TEST", "secret", false, WithBaseURL(srv.URL), WithRetries(2, time.Millisecond))
	if _, err := c.GetDOI(context.Background(), "10.5880/gfz.1"); err != nil {
		t.Fatalf("GetDOI: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestListDOIsFollowsCursor(t *testing.T) {
	var srvURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page[cursor]") == "1" {
			if got := r.URL.Query().Get("client-id"); got != "GFZ.TEST" {
				t.Errorf("client-id = %q", got)
			}
			if got := r.URL.Query().Get("page[size]"); got != "100" {
				t.Errorf("page[size] = %q", got)
			}
			io.WriteString(w, `{"data":[{"id":"10.5880/a","attributes":{"url":"https://a"}},{"id":"10.5880/b","attributes":{"url":"https://b"}}],
				"links":{"next":"`+srvURL+`/dois?page%5Bcursor%5D=abc"}}`)
			return
		}
		if got := r.URL.Query().Get("page[cursor]"); got != "abc" {
			t.Errorf("second page cursor = %q", got)
		}
		io.WriteString(w, `{"data":[{"id":"10.5880/c","attributes":{"url":"https://c"}}],"links":{}}`)
	})
	srvURL = c.BaseURL()

	var got []string
	err := c.ListDOIs(context.Background(), func(d DOI) error {
		got = append(got, d.ID+" "+d.Attributes.URL())
		return nil
	})
	if err != nil {
		t.Fatalf("ListDOIs: %v", err)
	}
	want := []string{"10.5880/a https://a", "10.5880/b https://b", "10.5880/c https://c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestListDOIsStopsOnCallbackError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"id":"10.5880/a","attributes":{}},{"id":"10.5880/b","attributes":{}}]}`)
	})
	stop := errors.New("stop")
	n := 0
	err := c.ListDOIs(context.Background(), func(DOI) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Errorf("err = %v, n = %d; want stop after one item", err, n)
	}
}

func TestUpdateAttributes(t *testing.T) {
	var received map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != mediaType {
			t.Errorf("Content-Type = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		io.WriteString(w, `{}`)
	})

	attrs, err := ParseAttributes([]byte(`{"url":"https://old","titles":[{"title":"T"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateAttributes(context.Background(), "10.5880/gfz.1", attrs.WithURL("https://new")); err != nil {
		t.Fatalf("UpdateAttributes: %v", err)
	}

	data := received["data"].(map[string]any)
	if data["type"] != "dois" {
		t.Errorf("type = %v", data["type"])
	}
	got := data["attributes"].(map[string]any)
	if got["url"] != "https://new" {
		t.Errorf("url = %v", got["url"])
	}
	if _, ok := got["titles"]; !ok {
		t.Error("untouched attributes must be sent back")
	}
	if attrs.URL() != "https://old" {
		t.Error("builder modified its receiver")
	}
}

func TestUpdateAttributesValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"errors":[{"source":"metadata","title":"DOI 10.5880/x: Schema http://datacite.org/schema/kernel-3 is no longer supported"}]}`)
	})
	err := c.UpdateAttributes(context.Background(), "10.5880/x", NewAttributes(nil))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if !apiErr.SchemaOutdated() {
		t.Errorf("SchemaOutdated = false for %q", apiErr.Detail)
	}
	if IsFatal(err) {
		t.Error("validation errors are scoped to one DOI")
	}
}

func TestWithPageSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		want string
	}{
		{"smaller page", 25, "25"},
		{"above limit ignored", 500, "100"},
		{"zero ignored", 0, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query().Get("page[size]")
				io.WriteString(w, `{"data":[]}`)
			}))
			defer srv.Close()

			c := New("GFZ.TEST", "secret", true, WithBaseURL(srv.URL), WithRetries(0, 0), WithPageSize(tt.size))
			if err := c.ListDOIs(context.Background(), func(DOI) error { return nil }); err != nil {
				t.Fatalf("ListDOIs: %v", err)
			}
			if got != tt.want {
				t.Errorf("page[size] = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDOIPathIsEscaped(t *testing.T) {
	tests := []struct {
		name     string
		doi      string
		wantPath string
	}{
		{"plain", "10.5880/gfz.1", "/dois/10.5880/gfz.1"},
		{"question mark", "10.5880/gfz?x", "/dois/10.5880/gfz?x"},
		{"hash", "10.5880/gfz#2", "/dois/10.5880/gfz#2"},
		{"slash in suffix", "10.5880/gfz/2024", "/dois/10.5880/gfz/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotQuery string
			var puts atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
				if r.Method == http.MethodPut {
					puts.Add(1)
				}
				io.WriteString(w, `{"data":{"id":"x","attributes":{}}}`)
			})
			if _, err := c.GetDOI(context.Background(), tt.doi); err != nil {
				t.Fatalf("GetDOI: %v", err)
			}
			if gotPath != tt.wantPath || gotQuery != "" {
				t.Errorf("GET path = %q query = %q, want %q and no query", gotPath, gotQuery, tt.wantPath)
			}
			if err := c.UpdateAttributes(context.Background(), tt.doi, NewAttributes(nil)); err != nil {
				t.Fatalf("UpdateAttributes: %v", err)
			}
			if gotPath != tt.wantPath || gotQuery != "" || puts.Load() != 1 {
				t.Errorf("PUT path = %q query = %q, want %q and no query", gotPath, gotQuery, tt.wantPath)
			}
		})
	}
}
