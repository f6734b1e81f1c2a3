// Package errors provides structured diagnostics for edit-and-continue
// sessions. Diagnostics are values appended to a caller-owned Sink; they never
// abort a generation. Diagnostics carry JSON tags for tooling output.
package errors

import (
	"fmt"
)

// ErrorCode represents a unique diagnostic code
type ErrorCode string

// ErrorCategory represents the category of a diagnostic
type ErrorCategory string

const (
	// CategoryEnc represents edit-and-continue limitations (ENC0001-0099)
	CategoryEnc ErrorCategory = "enc"
)

// ErrorSeverity indicates the severity level of a diagnostic
type ErrorSeverity string

const (
	// SeverityError indicates a diagnostic that fails the generation's build
	SeverityError ErrorSeverity = "error"
	// SeverityWarning indicates a change that was applied in a degraded way
	SeverityWarning ErrorSeverity = "warning"
	// SeverityInfo indicates informational messages
	SeverityInfo ErrorSeverity = "info"
)

// Location identifies the program element a diagnostic is about. Line and
// Column are optional; edit-and-continue diagnostics usually only carry the
// symbol.
type Location struct {
	Symbol string `json:"symbol"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// CompilerError represents a structured diagnostic with enough information
// for both human-readable output and tooling
type CompilerError struct {
	// Code is the unique diagnostic code (e.g., "ENC0001")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable identifier
	Type string `json:"type"`
	// Category is the diagnostic category
	Category ErrorCategory `json:"category"`
	// Severity is the severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the primary message
	Message string `json:"message"`
	// Location is the program element the diagnostic refers to
	Location Location `json:"location"`
	// File is the scenario or source file name (optional)
	File string `json:"file,omitempty"`
	// Generation is the ordinal of the generation being emitted (optional)
	Generation int `json:"generation,omitempty"`
	// Suggestion provides a hint for fixing the problem (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Documentation is a URL to detailed documentation
	Documentation string `json:"documentation,omitempty"`
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return e.Format()
}

// Format returns a human-readable message for terminal output
func (e *CompilerError) Format() string {
	return FormatError(e)
}

// WithFile sets the file name
func (e *CompilerError) WithFile(file string) *CompilerError {
	e.File = file
	return e
}

// WithGeneration sets the generation ordinal
func (e *CompilerError) WithGeneration(ordinal int) *CompilerError {
	e.Generation = ordinal
	return e
}

// WithSuggestion sets a suggestion for fixing the problem
func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

// Sink receives diagnostics. It is owned by the caller of a generation, who
// decides the build outcome once diagnostics are present.
type Sink interface {
	Report(diagnostic *CompilerError)
}

// Discard is a Sink that drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(*CompilerError) {}

// ErrorList is a collection of diagnostics
type ErrorList []*CompilerError

// Report appends a diagnostic; *ErrorList implements Sink
func (el *ErrorList) Report(diagnostic *CompilerError) {
	*el = append(*el, diagnostic)
}

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// HasErrors returns true if the list contains any errors (excludes warnings/info)
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if the list contains any warnings
func (el ErrorList) HasWarnings() bool {
	for _, err := range el {
		if err.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of diagnostics by severity
func (el ErrorList) ErrorCount() (errors, warnings, info int) {
	for _, err := range el {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}

// documentationURL returns the documentation URL for a diagnostic code
func documentationURL(code ErrorCode) string {
	return fmt.Sprintf("https://docs.conduit-lang.org/livepatch/diagnostics/%s", code)
}

// newError creates a new CompilerError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
	loc Location,
) *CompilerError {
	return &CompilerError{
		Code:          code,
		Type:          typ,
		Category:      category,
		Severity:      severity,
		Message:       message,
		Location:      loc,
		Documentation: documentationURL(code),
	}
}
