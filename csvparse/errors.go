package csvparse

import (
	"errors"
	"fmt"
)

// Kind classifies a parse failure.
type Kind int

const (
	KindFileNotFound Kind = iota + 1
	KindEncoding
	KindFormat
	KindDOIFormat
	KindValidation
	KindSPDX
	KindLanguage
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "file_not_found"
	case KindEncoding:
		return "encoding"
	case KindFormat:
		return "csv_format"
	case KindDOIFormat:
		return "doi_format"
	case KindValidation:
		return "validation"
	case KindSPDX:
		return "spdx"
	case KindLanguage:
		return "language"
	default:
		return "unknown"
	}
}

// Error is a fatal parse failure. Line is 0 for file-level problems.
type Error struct {
	Kind    Kind
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Zeile %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// IsKind reports whether err is a parse Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
