package errors

import (
	"fmt"
	"strings"
)

// FormatError returns a human-readable message for terminal output
func FormatError(e *CompilerError) string {
	var b strings.Builder

	icon := severityIcon(e.Severity)

	file := e.File
	if file == "" {
		file = "<session>"
	}

	categoryName := categoryDisplayName(e.Category, e.Severity)

	fmt.Fprintf(&b, "%s %s in %s", icon, categoryName, file)
	if e.Generation > 0 {
		fmt.Fprintf(&b, " (generation %d)", e.Generation)
	}
	b.WriteString("\n")

	// Location
	if e.Location.Line > 0 {
		fmt.Fprintf(&b, "Line %d, Column %d:\n", e.Location.Line, e.Location.Column)
	} else if e.Location.Symbol != "" {
		fmt.Fprintf(&b, "Symbol %s:\n", e.Location.Symbol)
	}
	fmt.Fprintf(&b, "  %s [%s]\n", e.Message, e.Code)

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n💡 %s\n", e.Suggestion)
	}

	if e.Documentation != "" {
		fmt.Fprintf(&b, "\nLearn more: %s\n", e.Documentation)
	}

	return b.String()
}

// FormatErrorList returns a formatted string of all diagnostics
func FormatErrorList(errors ErrorList) string {
	if len(errors) == 0 {
		return "no errors"
	}

	var b strings.Builder

	errCount, warnCount, infoCount := errors.ErrorCount()
	fmt.Fprintf(&b, "Generation produced %d error(s), %d warning(s), %d info\n\n",
		errCount, warnCount, infoCount)

	for i, err := range errors {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
		}
		b.WriteString(err.Format())
	}

	return b.String()
}

// FormatCompact returns a compact one-line format
func FormatCompact(e *CompilerError) string {
	where := e.Location.Symbol
	if where == "" {
		where = "<session>"
	}
	return fmt.Sprintf("%s: %s: %s [%s]", where, e.Severity, e.Message, e.Code)
}

// severityIcon returns the emoji/icon for a severity level
func severityIcon(severity ErrorSeverity) string {
	switch severity {
	case SeverityError:
		return "❌"
	case SeverityWarning:
		return "⚠️ "
	case SeverityInfo:
		return "ℹ️ "
	default:
		return "❓"
	}
}

// categoryDisplayName returns a human-readable category name
func categoryDisplayName(category ErrorCategory, severity ErrorSeverity) string {
	switch {
	case category == CategoryEnc && severity == SeverityError:
		return "Edit and Continue Error"
	case category == CategoryEnc && severity == SeverityWarning:
		return "Edit and Continue Warning"
	case category == CategoryEnc:
		return "Edit and Continue Note"
	default:
		return "Diagnostic"
	}
}
