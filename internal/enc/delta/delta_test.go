package delta

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/defmap"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

type program struct {
	asm    *symbols.Assembly
	helper *symbols.Method
	xyz    *symbols.NamedType
}

func compile(core *symbols.Assembly, withHelper, withXYZ bool) *program {
	p := &program{asm: symbols.NewAssembly("App", core)}
	main := p.asm.DefineType("App", "Program", symbols.Class)
	main.AddMethod("Print").SetSignature(nil, symbols.Parameter{Name: "value", Type: core.Resolve("System.Int32")})
	if withHelper {
		p.helper = main.AddMethod("Helper").SetSignature(core.Resolve("System.String"))
	}
	p.asm.DefineAnonymousType("X", "Y")
	if withXYZ {
		p.xyz = p.asm.DefineAnonymousType("X", "Y", "Z")
	}
	return p
}

func newSession(t *testing.T, core *symbols.Assembly, opts ...Option) *Session {
	t.Helper()
	em, err := metadata.Emit(compile(core, true, false).asm, uuid.New())
	require.NoError(t, err)
	initial, err := baseline.NewInitial(em.Image, baseline.WithReferences(core))
	require.NoError(t, err)
	s, err := NewSession(initial, opts...)
	require.NoError(t, err)
	return s
}

func originalHelper(t *testing.T, b *baseline.Baseline) *symbols.Method {
	t.Helper()
	ms, err := b.MetadataSymbols()
	require.NoError(t, err)
	for _, m := range ms.Module.Assembly().LookupType("App", "Program").Methods() {
		if m.Name() == "Helper" {
			return m
		}
	}
	t.Fatal("Helper not found in original module")
	return nil
}

func TestGenerationsAccumulateHistory(t *testing.T) {
	ctx := context.Background()
	core := symbols.NewCoreLibrary()
	s := newSession(t, core)
	b0 := s.Latest()
	helperRow := metadata.MethodHandle(2).Handle()

	gen1 := compile(core, false, true)
	c1, err := s.BeginGeneration(ctx, b0, gen1.asm, []defmap.Edit{{Kind: defmap.EditDelete, Symbol: originalHelper(t, b0)}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c1.Ordinal())

	changes := c1.Changes()
	require.Len(t, changes.Deleted, 1)
	require.Len(t, changes.AnonymousTypes, 2)
	assert.Equal(t, 0, changes.AnonymousTypes[0].Index)
	assert.GreaterOrEqual(t, changes.AnonymousTypes[1].Index, 1)
	assert.Equal(t, changes, c1.Changes(), "changes are stable for the whole generation")

	b1, err := c1.Commit(ctx)
	require.NoError(t, err)
	assert.Same(t, b1, s.Latest())
	assert.Same(t, b1, c1.Committed())
	assert.Equal(t, c1.EncID(), b1.EncID())

	// the pre-commit baseline is still a valid, unchanged value
	assert.Equal(t, 0, b0.Ordinal())
	assert.False(t, b0.IsDeleted(helperRow))
	assert.Empty(t, b0.Deleted())

	prev := b1
	for ordinal := 2; ordinal <= 3; ordinal++ {
		c, err := s.BeginGeneration(ctx, prev, compile(core, false, true).asm, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, c.Changes().Definitions)
		next, err := c.Commit(ctx)
		require.NoError(t, err)
		assert.Equal(t, ordinal, next.Ordinal())
		prev = next
	}

	for _, b := range []*baseline.Baseline{b1, prev} {
		assert.True(t, b.IsDeleted(helperRow), "generation %d", b.Ordinal())
		require.Len(t, b.Deleted(), 1)
		assert.Equal(t, 1, b.Deleted()[0].Generation)
	}

	table, err := prev.Structural()
	require.NoError(t, err)
	v, ok := table.AnonymousType(structkey.KeyOfNames("X", "Y", "Z"))
	require.True(t, ok)
	assert.Equal(t, changes.AnonymousTypes[1].Index, v.Index)
}

func TestOrdinalContinuity(t *testing.T) {
	ctx := context.Background()
	core := symbols.NewCoreLibrary()
	s := newSession(t, core)
	b0 := s.Latest()

	first, err := s.BeginGeneration(ctx, b0, compile(core, true, false).asm, nil, nil)
	require.NoError(t, err)
	second, err := s.BeginGeneration(ctx, b0, compile(core, true, false).asm, nil, nil)
	require.NoError(t, err)

	_, err = first.Commit(ctx)
	require.NoError(t, err)

	_, err = first.Commit(ctx)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	_, err = second.Commit(ctx)
	assert.ErrorIs(t, err, ErrOrdinal, "a sibling generation already committed")

	_, err = s.BeginGeneration(ctx, b0, compile(core, true, false).asm, nil, nil)
	assert.ErrorIs(t, err, ErrOrdinal)

	_, err = s.BeginGeneration(ctx, nil, compile(core, true, false).asm, nil, nil)
	assert.ErrorIs(t, err, ErrOrdinal)

	other := newSession(t, core)
	_, err = s.BeginGeneration(ctx, other.Latest(), compile(core, true, false).asm, nil, nil)
	assert.ErrorIs(t, err, ErrForeignBaseline)

	_, err = NewSession(s.Latest())
	assert.ErrorIs(t, err, ErrOrdinal)
	_, err = NewSession(b0, WithCacheSize(0))
	assert.Error(t, err)
}

func TestDiagnosticsDoNotFailTheGeneration(t *testing.T) {
	ctx := context.Background()
	core := symbols.NewCoreLibrary()
	s := newSession(t, core)

	gen1 := compile(core, true, false)
	extra := gen1.asm.LookupType("App", "Program").AddField("extra", core.Resolve("System.Int64"))

	var sink diagnostics.ErrorList
	c, err := s.BeginGeneration(ctx, s.Latest(), gen1.asm, []defmap.Edit{{Kind: defmap.EditUpdate, Symbol: extra}}, &sink)
	require.NoError(t, err)
	require.Len(t, sink, 1)
	assert.Equal(t, diagnostics.ErrUpdateWithoutCounterpart, sink[0].Code)

	_, err = c.Commit(ctx)
	require.NoError(t, err)
}

func TestInvalidEditsAbortTheGeneration(t *testing.T) {
	ctx := context.Background()
	core := symbols.NewCoreLibrary()
	s := newSession(t, core)
	gen1 := compile(core, true, false)

	_, err := s.BeginGeneration(ctx, s.Latest(), gen1.asm, []defmap.Edit{
		{Kind: defmap.EditUpdate, Symbol: gen1.helper},
		{Kind: defmap.EditInsert, Symbol: gen1.helper},
	}, nil)
	assert.ErrorIs(t, err, defmap.ErrDuplicateEdit)
	assert.Equal(t, 0, s.Latest().Ordinal())
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	core := symbols.NewCoreLibrary()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer tp.Shutdown(ctx)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	logs, recorded := observer.New(zapcore.InfoLevel)

	s := newSession(t, core, WithTracerProvider(tp), WithMeterProvider(mp), WithLogger(zap.New(logs)))
	c, err := s.BeginGeneration(ctx, s.Latest(), compile(core, true, true).asm, nil, nil)
	require.NoError(t, err)
	_, err = c.Commit(ctx)
	require.NoError(t, err)

	var names []string
	for _, span := range spans.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"Session.BeginGeneration", "Context.Commit"}, names)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "livepatch_generations_committed_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), total)

	committed := recorded.FilterMessage("committed generation").All()
	require.Len(t, committed, 1)
	assert.Equal(t, int64(1), committed[0].ContextMap()["generation"])
}
