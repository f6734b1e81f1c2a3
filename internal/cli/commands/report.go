package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/conduit-lang/livepatch/internal/cli/ui"
	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/scenario"
)

// definitionRow is one definition of a generation's compilation
type definitionRow struct {
	Path   string `json:"path"`
	Handle string `json:"handle"`
	Status string `json:"status"`
}

// generationReport is the printable view of one committed generation
type generationReport struct {
	Ordinal     int                          `json:"generation"`
	Label       string                       `json:"label"`
	Definitions []definitionRow              `json:"definitions"`
	Anonymous   map[string]int               `json:"anonymous_types,omitempty"`
	Slots       map[string][]int             `json:"slots,omitempty"`
	Deleted     int                          `json:"deleted"`
	Diagnostics []*diagnostics.CompilerError `json:"diagnostics,omitempty"`
	Failures    []string                     `json:"failures,omitempty"`
	BuildFailed bool                         `json:"build_failed,omitempty"`
}

// sessionReport is the JSON output of apply
type sessionReport struct {
	Scenario    string              `json:"scenario"`
	Generations []*generationReport `json:"generations"`
	Failures    []string            `json:"failures,omitempty"`
	Error       string              `json:"error,omitempty"`
}

func newGenerationReport(gr *scenario.GenerationResult) (*generationReport, error) {
	anonymous, err := gr.AnonymousIndices()
	if err != nil {
		return nil, err
	}

	r := &generationReport{
		Ordinal:     gr.Ordinal,
		Label:       gr.Label,
		Anonymous:   anonymous,
		Deleted:     len(gr.Baseline.Deleted()),
		Diagnostics: gr.Diagnostics,
		Failures:    gr.Failures,
		BuildFailed: gr.BuildFailed(),
	}
	for _, d := range gr.Compilation.Definitions() {
		h, ok := gr.Handle(d)
		if !ok {
			continue
		}
		r.Definitions = append(r.Definitions, definitionRow{
			Path:   scenario.Path(d),
			Handle: h.String(),
			Status: gr.Status(d).String(),
		})

		m, ok := d.(*symbols.Method)
		if !ok || m.StateMachine() == nil {
			continue
		}
		slots, err := gr.SlotIndices(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Label, err)
		}
		if r.Slots == nil {
			r.Slots = make(map[string][]int)
		}
		r.Slots[scenario.Path(m)] = slots
	}
	return r, nil
}

// changed returns the definitions that are not unchanged
func (r *generationReport) changed() []definitionRow {
	var out []definitionRow
	for _, d := range r.Definitions {
		if d.Status != "unchanged" {
			out = append(out, d)
		}
	}
	return out
}

// listing renders the report as plain lines, one fact per line, so two
// generations can be diffed.
func (r *generationReport) listing() string {
	var b strings.Builder
	for _, d := range r.Definitions {
		fmt.Fprintf(&b, "%s %s\n", d.Handle, d.Path)
	}
	for _, k := range sortedKeys(r.Anonymous) {
		fmt.Fprintf(&b, "anonymous %s = %d\n", k, r.Anonymous[k])
	}
	for _, k := range sortedKeys(r.Slots) {
		fmt.Fprintf(&b, "slots %s = %v\n", k, r.Slots[k])
	}
	fmt.Fprintf(&b, "deleted = %d\n", r.Deleted)
	return b.String()
}

// diffReports returns the unified diff between the listings of two
// generations, or "" when they are identical.
func diffReports(from, to *generationReport) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from.listing()),
		B:        difflib.SplitLines(to.listing()),
		FromFile: from.Label,
		ToFile:   to.Label,
		Context:  1,
	})
}

// renderDiff writes a unified diff colored by line kind
func renderDiff(w io.Writer, diff string, noColor bool) {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	if noColor {
		red.DisableColor()
		green.DisableColor()
		cyan.DisableColor()
	}

	for _, line := range difflib.SplitLines(diff) {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			fmt.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			cyan.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			red.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			green.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

func renderDefinitions(w io.Writer, rows []definitionRow, noColor bool) {
	table := ui.NewTable(w, []string{"Handle", "Definition", "Status"}, &ui.TableOptions{NoColor: noColor})
	table.ColorColumn(2, ui.StatusColor)
	for _, d := range rows {
		table.AddRow(d.Handle, d.Path, d.Status)
	}
	table.Render()
}

func renderDiagnostics(w io.Writer, diags []*diagnostics.CompilerError, noColor bool) {
	for _, d := range diags {
		fmt.Fprint(w, ui.Diagnostic(d, noColor))
	}
}

func renderFailures(w io.Writer, failures []string, noColor bool) {
	list := ui.NewList(w, noColor)
	for _, f := range failures {
		list.AddItem(f)
	}
	list.Render()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
