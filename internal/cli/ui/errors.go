package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ SYMBOL NOT FOUND: Cannot find definition 'App.Program.Hepler'.
//
//	   Did you mean: App.Program.Helper?
//
//	   → See all definitions: livepatch inspect <scenario>
//	   → Get help: livepatch apply --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	// Determine colors and symbol based on level
	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelError:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	}

	// Disable colors if requested
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	// Header line with context
	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	// Consequence (if provided)
	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	// Suggestions
	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	// Help commands
	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// SymbolNotFoundError creates a standardized error for a scenario symbol path
// that names no definition
func SymbolNotFoundError(path string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "SYMBOL NOT FOUND",
		Problem:     fmt.Sprintf("Cannot find definition '%s'.", path),
		Suggestions: suggestions,
		HelpCommands: []string{
			"See all definitions: livepatch inspect <scenario>",
			"Get help: livepatch apply --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ScenarioError creates a standardized error for a scenario that cannot be
// loaded or compiled
func ScenarioError(message string, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "INVALID SCENARIO",
		Problem: message,
		HelpCommands: []string{
			"Get help: livepatch apply --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// GenerationError creates a standardized error for a generation that could
// not be begun or committed
func GenerationError(message string, consequence string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "GENERATION FAILED",
		Problem:     message,
		Consequence: consequence,
		HelpCommands: []string{
			"Trace the session: livepatch apply --verbose <scenario>",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "CONFIGURATION ERROR",
		Problem:     message,
		Suggestions: suggestions,
		HelpCommands: []string{
			"View config: cat livepatch.yml",
			"Get help: livepatch --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// Diagnostic formats an edit-and-continue diagnostic at its severity
func Diagnostic(d *diagnostics.CompilerError, noColor bool) string {
	level := ErrorLevelError
	switch d.Severity {
	case diagnostics.SeverityWarning:
		level = ErrorLevelWarning
	case diagnostics.SeverityInfo:
		level = ErrorLevelInfo
	}
	opts := ErrorOptions{
		Level:   level,
		Context: string(d.Code),
		Problem: d.Message,
		NoColor: noColor,
	}
	if d.Location.Symbol != "" {
		opts.Consequence = "at " + d.Location.Symbol
	}
	if d.Suggestion != "" {
		opts.HelpCommands = []string{d.Suggestion}
	}
	return FormatError(opts)
}

// Warning creates a standardized warning message
func Warning(message string, suggestions []string, noColor bool) string {
	opts := ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	}
	return FormatError(opts)
}
