package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
)

func TestFormatError(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "SYMBOL NOT FOUND",
				Problem: "Cannot find definition 'App.Program'.",
			},
			contains: []string{
				"❌",
				"SYMBOL NOT FOUND",
				"Cannot find definition 'App.Program'.",
			},
		},
		{
			name: "error with suggestions",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "SYMBOL NOT FOUND",
				Problem:     "Cannot find definition 'App.Progam'.",
				Suggestions: []string{"App.Program", "App.Container"},
			},
			contains: []string{
				"Did you mean: App.Program, App.Container?",
			},
		},
		{
			name: "error with help commands",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "GENERATION FAILED",
				Problem: "Commit rejected",
				HelpCommands: []string{
					"Trace the session: livepatch apply --verbose",
					"Get help: livepatch apply --help",
				},
			},
			contains: []string{
				"→ Trace the session: livepatch apply --verbose",
				"→ Get help: livepatch apply --help",
			},
		},
		{
			name: "warning message",
			opts: ErrorOptions{
				Level:   ErrorLevelWarning,
				Problem: "Update of a member with no counterpart",
			},
			contains: []string{
				"⚠️",
				"Update of a member with no counterpart",
			},
		},
		{
			name: "info message",
			opts: ErrorOptions{
				Level:   ErrorLevelInfo,
				Problem: "Member re-added after deletion",
			},
			contains: []string{
				"ℹ️",
				"Member re-added after deletion",
			},
		},
		{
			name: "error with consequence",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "INVALID SCENARIO",
				Problem:     "generation 2: unknown definition App.Missing",
				Consequence: "Generations 0 and 1 were committed",
			},
			contains: []string{
				"generation 2: unknown definition App.Missing",
				"Generations 0 and 1 were committed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatError(tt.opts)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("FormatError() output missing expected string:\nExpected to contain: %q\nGot: %q", expected, result)
				}
			}
		})
	}
}

func TestSymbolNotFoundError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := SymbolNotFoundError("App.Program.Hepler", []string{"App.Program.Helper"}, true)

	expected := []string{
		"SYMBOL NOT FOUND",
		"Cannot find definition 'App.Program.Hepler'.",
		"Did you mean: App.Program.Helper?",
		"livepatch inspect",
	}

	for _, exp := range expected {
		if !strings.Contains(result, exp) {
			t.Errorf("SymbolNotFoundError() missing expected string: %q", exp)
		}
	}

	if strings.Contains(SymbolNotFoundError("App.Nothing", nil, true), "Did you mean") {
		t.Errorf("SymbolNotFoundError() without suggestions should not suggest")
	}
}

func TestScenarioError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := ScenarioError("scenario has no generations", true)

	expected := []string{
		"❌",
		"INVALID SCENARIO",
		"scenario has no generations",
		"livepatch apply --help",
	}

	for _, exp := range expected {
		if !strings.Contains(result, exp) {
			t.Errorf("ScenarioError() missing expected string: %q", exp)
		}
	}
}

func TestGenerationError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := GenerationError("generation 2: commit failed", "Generation 1 remains the latest baseline", true)

	expected := []string{
		"GENERATION FAILED",
		"generation 2: commit failed",
		"Generation 1 remains the latest baseline",
		"--verbose",
	}

	for _, exp := range expected {
		if !strings.Contains(result, exp) {
			t.Errorf("GenerationError() missing expected string: %q", exp)
		}
	}
}

func TestDiagnostic(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		diag     *diagnostics.CompilerError
		contains []string
	}{
		{
			name:     "error",
			diag:     diagnostics.NewEmbeddedInteropReference("App.Program.Use", "Interop.IWidget"),
			contains: []string{"❌", "ENC0001", "at App.Program.Use"},
		},
		{
			name:     "warning",
			diag:     diagnostics.NewUpdateWithoutCounterpart("App.Program.extra"),
			contains: []string{"⚠️", "ENC0002", "at App.Program.extra"},
		},
		{
			name:     "info",
			diag:     diagnostics.NewMemberReadded("App.Program.Helper", 2),
			contains: []string{"ℹ️", "ENC0004", "at App.Program.Helper"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Diagnostic(tt.diag, true)
			for _, exp := range tt.contains {
				if !strings.Contains(result, exp) {
					t.Errorf("Diagnostic() missing expected string %q in %q", exp, result)
				}
			}
			if !strings.Contains(result, tt.diag.Message) {
				t.Errorf("Diagnostic() missing message %q", tt.diag.Message)
			}
		})
	}
}

func TestFormatSuccess(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := FormatSuccess("3 generations applied", true)

	if !strings.Contains(result, "✓") {
		t.Errorf("FormatSuccess() missing checkmark")
	}
	if !strings.Contains(result, "3 generations applied") {
		t.Errorf("FormatSuccess() missing message")
	}
}

func TestWriteSuccess(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	WriteSuccess(&buf, "Test success", true)

	output := buf.String()
	if !strings.Contains(output, "✓") {
		t.Errorf("WriteSuccess() missing checkmark")
	}
	if !strings.Contains(output, "Test success") {
		t.Errorf("WriteSuccess() missing message")
	}
}

func TestWarning(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := Warning("Deprecated feature", []string{"Use new API"}, true)

	expected := []string{
		"⚠️",
		"Deprecated feature",
		"Did you mean: Use new API?",
	}

	for _, exp := range expected {
		if !strings.Contains(result, exp) {
			t.Errorf("Warning() missing expected string: %q", exp)
		}
	}
}

func TestConfigError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	result := ConfigError("Invalid YAML syntax", []string{"Check indentation"}, true)

	expected := []string{
		"CONFIGURATION ERROR",
		"Invalid YAML syntax",
		"Did you mean: Check indentation?",
	}

	for _, exp := range expected {
		if !strings.Contains(result, exp) {
			t.Errorf("ConfigError() missing expected string: %q", exp)
		}
	}
}

func TestFormatErrorPrintsProblemOnce(t *testing.T) {
	tests := []struct {
		name   string
		result string
		text   string
	}{
		{
			name:   "diagnostic",
			result: Diagnostic(diagnostics.NewEmbeddedInteropReference("App.Program.Use", "Interop.IWidget"), true),
			text:   diagnostics.NewEmbeddedInteropReference("App.Program.Use", "Interop.IWidget").Message,
		},
		{
			name:   "generation error",
			result: GenerationError("generation 2: commit failed", "", true),
			text:   "generation 2: commit failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if n := strings.Count(tt.result, tt.text); n != 1 {
				t.Errorf("expected %q once, found %d times in:\n%s", tt.text, n, tt.result)
			}
		})
	}
}

func TestWarningWithoutContext(t *testing.T) {
	result := Warning("2 generation(s) applied with warnings", nil, true)

	if !strings.HasPrefix(result, "⚠️ 2 generation(s) applied with warnings\n") {
		t.Errorf("Warning() = %q", result)
	}
	if strings.Contains(result, "Did you mean") {
		t.Errorf("Warning() without suggestions should not suggest")
	}
}
