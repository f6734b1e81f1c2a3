package scenario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/defmap"
	"github.com/conduit-lang/livepatch/internal/enc/delta"
)

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger  *zap.Logger
	session []delta.Option
}

// WithLogger sets the logger handed to the baseline and the session.
func WithLogger(logger *zap.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSessionOptions passes options through to the edit session.
func WithSessionOptions(opts ...delta.Option) RunOption {
	return func(c *runConfig) { c.session = append(c.session, opts...) }
}

// Result is the outcome of running a scenario.
type Result struct {
	Scenario    *Scenario
	Session     *delta.Session
	Emission    *metadata.Emission
	Generations []*GenerationResult
}

// GenerationResult is one committed generation.
type GenerationResult struct {
	Ordinal     int
	Label       string
	Compilation *symbols.Assembly
	Baseline    *baseline.Baseline

	// Map is nil for generation 0
	Map         *defmap.Map
	Diagnostics diagnostics.ErrorList

	// Failures lists unmet expectations
	Failures []string

	emission *metadata.Emission
	expect   *Expectations
}

// BuildFailed reports whether the generation reported error diagnostics
// without declaring the diagnostics it expects. Declared diagnostics are
// checked as expectations instead.
func (r *GenerationResult) BuildFailed() bool {
	if r.expect != nil && r.expect.Diagnostics != nil {
		return false
	}
	return r.Diagnostics.HasErrors()
}

// Failed reports whether any generation missed an expectation.
func (r *Result) Failed() bool {
	for _, g := range r.Generations {
		if len(g.Failures) > 0 {
			return true
		}
	}
	return false
}

// Failures returns every unmet expectation, prefixed by its generation.
func (r *Result) Failures() []string {
	var out []string
	for _, g := range r.Generations {
		for _, f := range g.Failures {
			out = append(out, g.Label+": "+f)
		}
	}
	return out
}

// BuildFailures returns the generations whose build failed on error
// diagnostics.
func (r *Result) BuildFailures() []*GenerationResult {
	var out []*GenerationResult
	for _, g := range r.Generations {
		if g.BuildFailed() {
			out = append(out, g)
		}
	}
	return out
}

// Diagnostics returns the diagnostics of every generation in order.
func (r *Result) Diagnostics() diagnostics.ErrorList {
	var out diagnostics.ErrorList
	for _, g := range r.Generations {
		out = append(out, g.Diagnostics...)
	}
	return out
}

// References builds the assemblies every compilation of the scenario
// references: the core library and, when the scenario declares any, the
// interop assembly.
func (s *Scenario) References() ([]*symbols.Assembly, error) {
	core := symbols.NewCoreLibrary()
	refs := []*symbols.Assembly{core}
	if len(s.Interop) > 0 {
		interop, err := Interop(s.Interop, core)
		if err != nil {
			return nil, err
		}
		refs = append(refs, interop)
	}
	return refs, nil
}

// Run emits generation 0 as the original module and commits every later
// generation through one edit session. A generation that fails to begin or
// commit stops the run; the generations committed so far are returned with
// the error. Unmet expectations are recorded on the result, not returned.
func (s *Scenario) Run(ctx context.Context, opts ...RunOption) (*Result, error) {
	cfg := runConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	refs, err := s.References()
	if err != nil {
		return nil, err
	}

	g0 := &s.Generations[0]
	original, err := Compile(s.Assembly, g0, refs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g0.Label(0), err)
	}
	em, err := metadata.Emit(original, uuid.New())
	if err != nil {
		return nil, fmt.Errorf("%s: emit original module: %w", g0.Label(0), err)
	}
	initial, err := baseline.NewInitial(em.Image,
		baseline.WithReferences(refs...),
		baseline.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}
	session, err := delta.NewSession(initial, append([]delta.Option{delta.WithLogger(cfg.logger)}, cfg.session...)...)
	if err != nil {
		return nil, err
	}

	res := &Result{Scenario: s, Session: session, Emission: em}
	first := &GenerationResult{
		Label:       g0.Label(0),
		Compilation: original,
		Baseline:    initial,
		emission:    em,
		expect:      g0.Expect,
	}
	first.check(g0.Expect)
	res.Generations = append(res.Generations, first)

	prev := initial
	for i := 1; i < len(s.Generations); i++ {
		g := &s.Generations[i]
		gr, err := s.runGeneration(ctx, session, prev, i, g, refs)
		if err != nil {
			return res, fmt.Errorf("%s: %w", g.Label(i), err)
		}
		res.Generations = append(res.Generations, gr)
		cfg.logger.Debug("scenario generation committed",
			zap.String("scenario", s.Name),
			zap.Int("generation", i),
			zap.Int("diagnostics", len(gr.Diagnostics)),
			zap.Int("failures", len(gr.Failures)),
		)
		for _, d := range gr.Diagnostics {
			cfg.logger.Debug("diagnostic reported", zap.String("diagnostic", diagnostics.FormatCompact(d)))
		}
		prev = gr.Baseline
	}
	return res, nil
}

func (s *Scenario) runGeneration(ctx context.Context, session *delta.Session, prev *baseline.Baseline, ordinal int, g *Generation, refs []*symbols.Assembly) (*GenerationResult, error) {
	current, err := Compile(s.Assembly, g, refs...)
	if err != nil {
		return nil, err
	}
	edits, err := resolveEdits(g.Edits, prev, current)
	if err != nil {
		return nil, err
	}

	var sink diagnostics.ErrorList
	gc, err := session.BeginGeneration(ctx, prev, current, edits, &sink)
	if err != nil {
		return nil, err
	}
	next, err := gc.Commit(ctx)
	if err != nil {
		return nil, err
	}
	if s.File != "" {
		for _, d := range sink {
			d.WithFile(s.File)
		}
	}

	gr := &GenerationResult{
		Ordinal:     ordinal,
		Label:       g.Label(ordinal),
		Compilation: current,
		Baseline:    next,
		Map:         gc.Map(),
		Diagnostics: sink,
		expect:      g.Expect,
	}
	gr.check(g.Expect)
	return gr, nil
}

// resolveEdits binds edit paths. Deleted symbols no longer exist in the
// current compilation, so deletes are resolved in the previous generation's
// universe: the decoded original module after generation 0 and the previous
// compilation after that.
func resolveEdits(specs []EditSpec, prev *baseline.Baseline, current *symbols.Assembly) ([]defmap.Edit, error) {
	var previous *symbols.Assembly
	edits := make([]defmap.Edit, 0, len(specs))
	for _, e := range specs {
		kind, err := defmap.ParseEditKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
		universe := current
		if kind == defmap.EditDelete {
			if previous == nil {
				if previous, err = previousUniverse(prev); err != nil {
					return nil, err
				}
			}
			universe = previous
		}
		sym, err := Find(universe, e.Symbol)
		if err != nil {
			return nil, err
		}
		edits = append(edits, defmap.Edit{Kind: kind, Symbol: sym})
	}
	return edits, nil
}

func previousUniverse(prev *baseline.Baseline) (*symbols.Assembly, error) {
	if prev.Ordinal() > 0 {
		return prev.Compilation(), nil
	}
	ms, err := prev.MetadataSymbols()
	if err != nil {
		return nil, err
	}
	return ms.Module.Assembly(), nil
}
