package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestErrorCodeUniqueness(t *testing.T) {
	codes := make(map[ErrorCode]bool)
	for _, code := range []ErrorCode{
		ErrEmbeddedInteropReference, ErrUpdateWithoutCounterpart,
		ErrDeleteWithoutDefinition, ErrMemberReadded,
	} {
		if codes[code] {
			t.Errorf("Duplicate error code %s", code)
		}
		if !strings.HasPrefix(string(code), "ENC") {
			t.Errorf("Code %s should use the ENC prefix", code)
		}
		codes[code] = true
	}
}

func TestErrorJSONSerialization(t *testing.T) {
	err := NewEmbeddedInteropReference("App.Program.Run", "Interop.IWidget").WithGeneration(2)

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("Marshal failed: %v", jerr)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if decoded["code"] != "ENC0001" {
		t.Errorf("Expected code ENC0001, got %v", decoded["code"])
	}
	if decoded["category"] != "enc" {
		t.Errorf("Expected category enc, got %v", decoded["category"])
	}
	if decoded["generation"] != float64(2) {
		t.Errorf("Expected generation 2, got %v", decoded["generation"])
	}
	location, ok := decoded["location"].(map[string]interface{})
	if !ok || location["symbol"] != "App.Program.Run" {
		t.Errorf("Expected symbol location, got %v", decoded["location"])
	}
	if _, present := location["line"]; present {
		t.Error("Line should be omitted when unknown")
	}
}

func TestErrorListAsSink(t *testing.T) {
	var list ErrorList
	var sink Sink = &list

	sink.Report(NewEmbeddedInteropReference("A.M", "I"))
	sink.Report(NewUpdateWithoutCounterpart("A.N"))
	sink.Report(NewMemberReadded("A.O", 1))
	Discard.Report(NewDeleteWithoutDefinition("A.P"))

	if len(list) != 3 {
		t.Fatalf("Expected 3 diagnostics, got %d", len(list))
	}

	errCount, warnCount, infoCount := list.ErrorCount()
	if errCount != 1 || warnCount != 1 || infoCount != 1 {
		t.Errorf("Expected 1/1/1, got %d/%d/%d", errCount, warnCount, infoCount)
	}
	if !list.HasErrors() || !list.HasWarnings() {
		t.Error("Expected both errors and warnings")
	}
	if (ErrorList{NewUpdateWithoutCounterpart("A.N")}).HasErrors() {
		t.Error("Warnings alone should not fail the build")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *CompilerError
		contains []string
	}{
		{
			name:     "error with suggestion",
			err:      NewEmbeddedInteropReference("App.Program.Run", "Interop.IWidget").WithFile("demo.yml").WithGeneration(1),
			contains: []string{"Edit and Continue Error in demo.yml (generation 1)", "Symbol App.Program.Run:", "[ENC0001]", "💡", "Learn more:"},
		},
		{
			name:     "warning",
			err:      NewUpdateWithoutCounterpart("App.Program.Run"),
			contains: []string{"Edit and Continue Warning in <session>", "emitted as added"},
		},
		{
			name:     "info",
			err:      NewMemberReadded("App.C.f", 1),
			contains: []string{"Edit and Continue Note in <session>", "[ENC0004]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatted := tt.err.Format()
			for _, want := range tt.contains {
				if !strings.Contains(formatted, want) {
					t.Errorf("Formatted output should contain %q:\n%s", want, formatted)
				}
			}
		})
	}
}

func TestErrorListFormatting(t *testing.T) {
	list := ErrorList{
		NewEmbeddedInteropReference("A.M", "I"),
		NewEmbeddedInteropReference("A.N", "I"),
	}

	formatted := list.Error()
	if !strings.Contains(formatted, "2 error(s)") {
		t.Error("Formatted list should contain error count")
	}
	if (ErrorList{}).Error() != "no errors" {
		t.Error("Empty list should format as 'no errors'")
	}

	compact := FormatCompact(list[0])
	if compact != "A.M: error: "+list[0].Message+" [ENC0001]" {
		t.Errorf("Unexpected compact format %q", compact)
	}
}
