package formconfig

import (
	"fmt"
	"strings"
)

// ParseError reports a document that could not be decoded.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	format := e.Format
	if format == FormatAuto {
		format = "document"
	}
	return fmt.Sprintf("formconfig: parse %s: %v", format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports every structural violation found in a decoded
// configuration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "formconfig: Invalid form config: " + strings.Join(e.Errors, ", ")
}
