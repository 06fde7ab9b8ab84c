package metadata

import (
	"fmt"
	"strings"
)

// ValidationIssue represents a single validation failure with context.
type ValidationIssue struct {
	Field   string // Field name (e.g., "publisher", "titles")
	Code    string // Issue code (e.g., "missing", "empty")
	Message string // Human-readable message
}

func (e ValidationIssue) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult collects validation issues for one record.
type ValidationResult struct {
	Errors []ValidationIssue
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Fields returns the names of all fields with errors, in order.
func (r *ValidationResult) Fields() []string {
	fields := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

// Summary joins the error messages with "; ".
func (r *ValidationResult) Summary() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Error returns a combined error, or nil if valid.
func (r *ValidationResult) Error() error {
	if r.IsValid() {
		return nil
	}
	return fmt.Errorf("validation failed: %s", r.Summary())
}

// AddError records an error for field.
func (r *ValidationResult) AddError(field, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Field: field, Code: code, Message: message})
}
