// Package datacite is a small client for the DataCite REST API: reading
// DOI attributes, listing a repository's DOIs and writing full attribute
// sets back.
package datacite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	ProductionEndpoint = "https://api.datacite.org"
	TestEndpoint       = "https://api.test.datacite.org"

	// PageSize is the largest page DataCite serves.
	PageSize = 100

	DefaultTimeout = 30 * time.Second

	mediaType = "application/vnd.api+json"
)

const (
	msgAuthFailed  = "Anmeldung fehlgeschlagen. Bitte überprüfe deinen Benutzernamen und dein Passwort."
	msgNoNetwork   = "Verbindung zur DataCite API fehlgeschlagen. Bitte überprüfe deine Internetverbindung."
	msgRateLimited = "Zu viele Anfragen. Bitte warte einen Moment und versuche es erneut."
)

// Client talks to one DataCite endpoint on behalf of one repository account.
type Client struct {
	baseURL       string
	username      string
	password      string
	httpClient    *http.Client
	limiter       *rate.Limiter
	pageSize      int
	retries       uint64
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client with its 30s timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit caps outgoing requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPageSize sets the listing page size, capped at PageSize.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= PageSize {
			c.pageSize = n
		}
	}
}

// WithRetries sets how often a 429, a 5xx or a transport failure is retried
// with exponential backoff starting at interval.
func WithRetries(n int, interval time.Duration) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = uint64(n)
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

// New creates a client for the production API, or the test API if testAPI.
func New(username, password string, testAPI bool, opts ...Option) *Client {
	c := &Client{
		baseURL:       ProductionEndpoint,
		username:      username,
		password:      password,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		pageSize:      PageSize,
		retries:       3,
		retryInterval: time.Second,
	}
	if testAPI {
		c.baseURL = TestEndpoint
	}
	for _, opt := range opts {
		opt(c)
	}
	slog.Debug("DataCite client initialized", "endpoint", c.baseURL, "client_id", username)
	return c
}

// Username returns the repository client id.
func (c *Client) Username() string { return c.username }

// BaseURL returns the endpoint in use.
func (c *Client) BaseURL() string { return c.baseURL }

// DOI is one DataCite DOI resource.
type DOI struct {
	ID         string
	Attributes *Attributes
}

type resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type,omitempty"`
	Attributes json.RawMessage `json:"attributes"`
}

type document struct {
	Data resource `json:"data"`
}

type listDocument struct {
	Data  []resource `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type errorDocument struct {
	Errors []struct {
		Source string `json:"source"`
		Title  string `json:"title"`
	} `json:"errors"`
}

type updateDocument struct {
	Data struct {
		Type       string      `json:"type"`
		Attributes *Attributes `json:"attributes"`
	} `json:"data"`
}

// doiURL is the resource URL of doi. Each path segment is escaped so that
// '?' or '#' in a suffix stay part of the DOI.
func (c *Client) doiURL(doi string) string {
	segments := strings.Split(doi, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return c.baseURL + "/dois/" + strings.Join(segments, "/")
}

// GetDOI fetches the current attributes of doi.
func (c *Client) GetDOI(ctx context.Context, doi string) (*DOI, error) {
	slog.Debug("fetching DOI metadata", "doi", doi)
	status, body, err := c.do(ctx, http.MethodGet, c.doiURL(doi), nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, &AuthError{Message: msgAuthFailed}
	case http.StatusNotFound:
		return nil, &NotFoundError{DOI: doi}
	case http.StatusTooManyRequests:
		return nil, &APIError{StatusCode: status, Message: msgRateLimited}
	default:
		return nil, &APIError{
			StatusCode: status,
			Message:    fmt.Sprintf("DataCite API Fehler (HTTP %d): %s", status, firstLine(body)),
			Body:       string(body),
		}
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &APIError{StatusCode: status, Message: fmt.Sprintf("Ungültige JSON-Antwort für DOI %s", doi)}
	}
	return decodeResource(doc.Data, doi)
}

// ListDOIs walks every DOI of the account with cursor pagination and calls
// fn for each one in API order. A non-nil error from fn stops the walk and
// is returned unchanged.
func (c *Client) ListDOIs(ctx context.Context, fn func(DOI) error) error {
	q := url.Values{}
	q.Set("client-id", c.username)
	q.Set("page[size]", strconv.Itoa(c.pageSize))
	q.Set("page[cursor]", "1")
	next := c.baseURL + "/dois?" + q.Encode()

	for page := 1; next != ""; page++ {
		status, body, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return err
		}
		switch status {
		case http.StatusOK:
		case http.StatusUnauthorized:
			return &AuthError{Message: msgAuthFailed}
		case http.StatusTooManyRequests:
			return &APIError{StatusCode: status, Message: msgRateLimited}
		default:
			return &APIError{
				StatusCode: status,
				Message:    fmt.Sprintf("DataCite API Fehler (HTTP %d): %s", status, firstLine(body)),
				Body:       string(body),
			}
		}

		var doc listDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return &APIError{StatusCode: status, Message: "Ungültige Antwort von der DataCite API (kein gültiges JSON)."}
		}
		for _, item := range doc.Data {
			d, err := decodeResource(item, item.ID)
			if err != nil {
				slog.Warn("skipping unreadable DOI entry", "doi", item.ID, "err", err)
				continue
			}
			if err := fn(*d); err != nil {
				return err
			}
		}
		slog.Info("fetched DOI page", "page", page, "count", len(doc.Data))
		next = doc.Links.Next
	}
	return nil
}

// CheckCredentials performs a one-item listing to verify the account.
func (c *Client) CheckCredentials(ctx context.Context) error {
	q := url.Values{}
	q.Set("client-id", c.username)
	q.Set("page[size]", "1")
	status, body, err := c.do(ctx, http.MethodGet, c.baseURL+"/dois?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Message: msgAuthFailed}
	}
	return &APIError{StatusCode: status, Message: fmt.Sprintf("DataCite API Fehler (HTTP %d): %s", status, firstLine(body)), Body: string(body)}
}

// UpdateAttributes PUTs attrs as the new attribute set of doi.
func (c *Client) UpdateAttributes(ctx context.Context, doi string, attrs *Attributes) error {
	var doc updateDocument
	doc.Data.Type = "dois"
	doc.Data.Attributes = attrs
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("Fehler beim Erstellen der Payload für DOI %s: %w", doi, err)
	}

	slog.Debug("updating DOI", "doi", doi, "bytes", len(payload))
	status, body, err := c.do(ctx, http.MethodPut, c.doiURL(doi), payload)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnauthorized:
		return &AuthError{Message: fmt.Sprintf("Authentifizierung fehlgeschlagen für DOI %s", doi)}
	case http.StatusForbidden:
		return &APIError{StatusCode: status, Message: fmt.Sprintf("Keine Berechtigung für DOI %s (gehört möglicherweise einem anderen Client)", doi)}
	case http.StatusNotFound:
		return &NotFoundError{DOI: doi}
	case http.StatusUnprocessableEntity:
		detail := errorDetail(body)
		return &APIError{
			StatusCode: status,
			Message:    fmt.Sprintf("Validierungsfehler für DOI %s: %s", doi, detail),
			Body:       string(body),
			Detail:     detail,
		}
	case http.StatusTooManyRequests:
		return &APIError{StatusCode: status, Message: "Zu viele Anfragen - Rate Limit erreicht"}
	}
	return &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("API Fehler (HTTP %d): %s", status, firstLine(body)),
		Body:       string(body),
	}
}

// do sends one request, retrying rate limits, server errors and transport
// failures. Any response that ends the retry loop is returned as a status
// and body; only transport failures and cancellation are errors.
func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte) (int, []byte, error) {
	var status int
	var body []byte

	op := func() error {
		status, body = 0, nil
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Accept", mediaType)
		if payload != nil {
			req.Header.Set("Content-Type", mediaType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			slog.Warn("DataCite request failed", "method", method, "url", rawURL, "err", err)
			return &NetworkError{Message: msgNoNetwork, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &NetworkError{Message: msgNoNetwork, Err: err}
		}
		status, body = resp.StatusCode, data
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			slog.Warn("DataCite request will be retried", "method", method, "status", status)
			return fmt.Errorf("HTTP %d", status)
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, c.retries), ctx))
	if err == nil {
		return status, body, nil
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return 0, nil, err
	}
	if status != 0 {
		return status, body, nil
	}
	return 0, nil, err
}

func decodeResource(r resource, doi string) (*DOI, error) {
	attrs := NewAttributes(nil)
	if len(r.Attributes) > 0 && string(r.Attributes) != "null" {
		var err error
		attrs, err = ParseAttributes(r.Attributes)
		if err != nil {
			return nil, &APIError{Message: fmt.Sprintf("Ungültige JSON-Antwort für DOI %s", doi)}
		}
	}
	id := r.ID
	if id == "" {
		id = doi
	}
	return &DOI{ID: id, Attributes: attrs}, nil
}

func errorDetail(body []byte) string {
	var doc errorDocument
	if err := json.Unmarshal(body, &doc); err == nil && len(doc.Errors) > 0 {
		if doc.Errors[0].Source != "" {
			return fmt.Sprintf("%s: %s", doc.Errors[0].Source, doc.Errors[0].Title)
		}
		return doc.Errors[0].Title
	}
	return firstLine(body)
}

func firstLine(body []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(body)), "\n")
	return line
}
