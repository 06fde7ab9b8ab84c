package datacite

import (
	"errors"
	"fmt"
	"strings"
)

// AuthError reports rejected credentials. It is fatal to a whole batch.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// NetworkError reports a transport failure: the API could not be reached
// or the connection broke mid-request. It is fatal to a whole batch.
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports a DOI that does not exist at DataCite.
type NotFoundError struct {
	DOI string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("DOI %s nicht gefunden", e.DOI)
}

// APIError is any other non-success answer, e.g. a schema validation
// rejection (422) or an exhausted rate limit (429).
type APIError struct {
	StatusCode int
	Message    string
	Body       string

	// Detail is the first error title of a 422 answer
	Detail string
}

func (e *APIError) Error() string {
	return e.Message
}

// SchemaOutdated reports a 422 rejection caused by a kernel-3 or missing
// schemaVersion, which an upgrade to kernel-4 resolves.
func (e *APIError) SchemaOutdated() bool {
	if e.StatusCode != 422 {
		return false
	}
	d := strings.ToLower(e.Detail)
	return (strings.Contains(d, "schema") && strings.Contains(d, "no longer supported")) ||
		strings.Contains(d, "no matching global declaration")
}

// IsFatal reports whether err should stop a batch instead of failing a
// single DOI.
func IsFatal(err error) bool {
	var authErr *AuthError
	var netErr *NetworkError
	return errors.As(err, &authErr) || errors.As(err, &netErr)
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
