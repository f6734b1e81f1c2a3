package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/livepatch/internal/cli/config"
	"github.com/conduit-lang/livepatch/internal/cli/ui"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(flags *globalFlags) *cobra.Command {
	var generation int

	cmd := &cobra.Command{
		Use:   "inspect <scenario>",
		Short: "Show the identities of one generation",
		Long: `Show the identities one generation of a scenario ends up with.

inspect replays the session up to the requested generation and prints every
definition with its metadata row and status, the emission index of each
anonymous type known to the baseline, and the slot layout of every state
machine. Without --generation the last committed generation is shown.`,
		Example: `  # Show the last generation
  livepatch inspect session.yaml

  # Show the original module
  livepatch inspect session.yaml --generation 0

  # Output in JSON format for tooling
  livepatch inspect session.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync()
			return runInspect(cmd, s, args[0], generation)
		},
	}

	cmd.Flags().IntVarP(&generation, "generation", "g", -1, "Generation to show (default: the last one)")

	return cmd
}

func runInspect(cmd *cobra.Command, s *settings, path string, generation int) error {
	sc, err := loadScenario(cmd, s, path)
	if err != nil {
		return err
	}
	if generation >= len(sc.Generations) {
		return fmt.Errorf("scenario %q has %d generation(s), cannot show generation %d", sc.Name, len(sc.Generations), generation)
	}

	res, runErr := runScenario(cmd.Context(), s, sc)
	if res == nil {
		cmd.PrintErr(runFailure(runErr, "", s.noColor))
		return errReported{runErr}
	}
	if generation < 0 {
		generation = len(res.Generations) - 1
	}
	if generation >= len(res.Generations) {
		consequence := fmt.Sprintf("Only generations 0 to %d were committed.", len(res.Generations)-1)
		cmd.PrintErr(runFailure(runErr, consequence, s.noColor))
		return errReported{runErr}
	}

	r, err := newGenerationReport(res.Generations[generation])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if s.format == config.FormatJSON {
		return writeJSON(w, r)
	}

	name := sc.Name
	if name == "" {
		name = path
	}
	kv := ui.NewKeyValueTable(w, s.noColor)
	kv.AddRow("Scenario", name)
	if sc.Description != "" {
		kv.AddRow("Description", sc.Description)
	}
	kv.AddRow("Generation", r.Label)
	kv.AddRow("Definitions", strconv.Itoa(len(r.Definitions)))
	kv.AddRow("Changed", strconv.Itoa(len(r.changed())))
	kv.AddRow("Deleted members", strconv.Itoa(r.Deleted))
	kv.Render()

	fmt.Fprintln(w)
	ui.Header(w, "Definitions", s.noColor)
	renderDefinitions(w, r.Definitions, s.noColor)

	if len(r.Anonymous) > 0 {
		fmt.Fprintln(w)
		ui.Header(w, "Anonymous types", s.noColor)
		table := ui.NewTable(w, []string{"Key", "Index"}, &ui.TableOptions{NoColor: s.noColor})
		for _, k := range sortedKeys(r.Anonymous) {
			table.AddRow(k, strconv.Itoa(r.Anonymous[k]))
		}
		table.Render()
	}

	if len(r.Slots) > 0 {
		fmt.Fprintln(w)
		ui.Header(w, "State machines", s.noColor)
		table := ui.NewTable(w, []string{"Method", "Slots"}, &ui.TableOptions{NoColor: s.noColor})
		for _, k := range sortedKeys(r.Slots) {
			table.AddRow(k, fmt.Sprint(r.Slots[k]))
		}
		table.Render()
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(w)
		renderDiagnostics(w, r.Diagnostics, s.noColor)
	}
	return nil
}
