package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/livepatch/internal/cli/config"
	"github.com/conduit-lang/livepatch/internal/cli/ui"
	"github.com/conduit-lang/livepatch/internal/enc/delta"
	"github.com/conduit-lang/livepatch/internal/scenario"
)

// NewApplyCommand creates the apply command
func NewApplyCommand(flags *globalFlags) *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "apply <scenario>",
		Short: "Replay an edit session and show each generation",
		Long: `Replay the edit session described by a scenario file.

Generation 0 is emitted as the original module. Every later generation is
compiled, matched against the previous one and committed as the next
baseline. For each generation apply lists the definitions that are emitted
again or added, the diagnostics reported while matching, and any
expectation of the scenario that was not met.

apply exits with a non-zero status when a generation cannot be committed, an
expectation is not met, or a generation reports error diagnostics without
declaring them in its expectations.`,
		Example: `  # Replay a session
  livepatch apply session.yaml

  # Show what changed between consecutive generations
  livepatch apply session.yaml --diff

  # Output in JSON format for tooling
  livepatch apply session.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			defer s.logger.Sync()
			return runApply(cmd, s, args[0], showDiff)
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "Show a unified diff between consecutive generations")

	return cmd
}

func runApply(cmd *cobra.Command, s *settings, path string, showDiff bool) error {
	sc, err := loadScenario(cmd, s, path)
	if err != nil {
		return err
	}

	res, runErr := runScenario(cmd.Context(), s, sc)
	if res == nil {
		cmd.PrintErr(runFailure(runErr, "", s.noColor))
		return errReported{runErr}
	}

	reports := make([]*generationReport, 0, len(res.Generations))
	for _, gr := range res.Generations {
		r, err := newGenerationReport(gr)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	}

	var buildErr error
	if failed := res.BuildFailures(); len(failed) > 0 {
		buildErr = buildFailure(failed)
	}

	w := cmd.OutOrStdout()
	if s.format == config.FormatJSON {
		out := sessionReport{
			Scenario:    sc.Name,
			Generations: reports,
			Failures:    res.Failures(),
		}
		switch {
		case runErr != nil:
			out.Error = runErr.Error()
		case buildErr != nil:
			out.Error = buildErr.Error()
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		for i, r := range reports {
			ui.Header(w, r.Label, s.noColor)
			rows := r.Definitions
			if i > 0 {
				rows = r.changed()
			}
			if len(rows) == 0 {
				fmt.Fprintln(w, "No definitions changed")
			} else {
				renderDefinitions(w, rows, s.noColor)
			}
			if showDiff && i > 0 {
				d, err := diffReports(reports[i-1], r)
				if err != nil {
					return err
				}
				if d != "" {
					fmt.Fprintln(w)
					renderDiff(w, d, s.noColor)
				}
			}
			if len(r.Diagnostics) > 0 {
				fmt.Fprintln(w)
				renderDiagnostics(w, r.Diagnostics, s.noColor)
			}
			if len(r.Failures) > 0 {
				fmt.Fprintln(w)
				renderFailures(w, r.Failures, s.noColor)
			}
			fmt.Fprintln(w)
		}

		switch {
		case runErr != nil:
			consequence := fmt.Sprintf("%d generation(s) were committed before the failure.", len(reports))
			cmd.PrintErr(runFailure(runErr, consequence, s.noColor))
		case buildErr != nil:
			cmd.PrintErr(ui.GenerationError(buildErr.Error(), "", s.noColor))
		case res.Failed():
			// unmet expectations are already listed under their generation
		case res.Diagnostics().HasWarnings():
			fmt.Fprint(w, ui.Warning(fmt.Sprintf("%d generation(s) applied with warnings", len(reports)), nil, s.noColor))
		default:
			ui.WriteSuccess(w, fmt.Sprintf("%d generation(s) applied", len(reports)), s.noColor)
		}
	}

	if runErr != nil {
		return errReported{runErr}
	}
	if res.Failed() {
		return errReported{fmt.Errorf("%d expectation(s) not met", len(res.Failures()))}
	}
	if buildErr != nil {
		return errReported{buildErr}
	}
	return nil
}

// buildFailure describes the generations whose build failed on error
// diagnostics
func buildFailure(failed []*scenario.GenerationResult) error {
	labels := make([]string, len(failed))
	for i, g := range failed {
		errs, _, _ := g.Diagnostics.ErrorCount()
		labels[i] = fmt.Sprintf("%s (%d error diagnostic(s))", g.Label, errs)
	}
	return fmt.Errorf("build failed: %s", strings.Join(labels, ", "))
}

func loadScenario(cmd *cobra.Command, s *settings, path string) (*scenario.Scenario, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		cmd.PrintErr(ui.ScenarioError(err.Error(), s.noColor))
		return nil, errReported{err}
	}
	return sc, nil
}

func runScenario(ctx context.Context, s *settings, sc *scenario.Scenario) (*scenario.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return sc.Run(ctx,
		scenario.WithLogger(s.logger),
		scenario.WithSessionOptions(delta.WithCacheSize(s.config.Matcher.CacheSize)),
	)
}

// runFailure formats the error that stopped a scenario run
func runFailure(err error, consequence string, noColor bool) string {
	var nf *scenario.NotFoundError
	switch {
	case errors.As(err, &nf):
		return ui.SymbolNotFoundError(nf.Path, ui.SuggestPaths(nf.Path, nf.Candidates), noColor)
	case errors.Is(err, scenario.ErrInvalidScenario):
		return ui.ScenarioError(err.Error(), noColor)
	default:
		return ui.GenerationError(err.Error(), consequence, noColor)
	}
}
