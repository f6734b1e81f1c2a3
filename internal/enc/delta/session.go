// Package delta drives the generations of an edit session. A Session tracks
// the latest committed baseline; each generation is begun against it, exposes
// its change set to the delta writer and is committed into the next baseline.
package delta

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/defmap"
	"github.com/conduit-lang/livepatch/internal/enc/matcher"
)

const instrumentationName = "github.com/conduit-lang/livepatch/internal/enc/delta"

var (
	// ErrOrdinal is returned when a generation is begun or committed against a
	// baseline that is not the latest generation of the session.
	ErrOrdinal = errors.New("delta: baseline is not the latest generation")
	// ErrForeignBaseline is returned for baselines of another session.
	ErrForeignBaseline = errors.New("delta: baseline belongs to another session")
	// ErrAlreadyCommitted is returned when a generation is committed twice.
	ErrAlreadyCommitted = errors.New("delta: generation already committed")
)

// Session is one edit session over an original module.
type Session struct {
	mu      sync.Mutex
	initial *baseline.Baseline
	latest  *baseline.Baseline

	logger    *zap.Logger
	tracer    trace.Tracer
	cacheSize int

	committed metric.Int64Counter
	changed   metric.Int64Histogram
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	logger    *zap.Logger
	tracers   trace.TracerProvider
	meters    metric.MeterProvider
	cacheSize int
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *sessionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider sets the provider of the spans recorded around each
// generation. The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *sessionConfig) {
		if tp != nil {
			c.tracers = tp
		}
	}
}

// WithMeterProvider sets the provider of the session metrics. The global
// provider is used by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *sessionConfig) {
		if mp != nil {
			c.meters = mp
		}
	}
}

// WithCacheSize bounds the translation caches of each generation's matchers.
func WithCacheSize(size int) Option {
	return func(c *sessionConfig) { c.cacheSize = size }
}

// NewSession starts a session whose first generation follows initial.
func NewSession(initial *baseline.Baseline, opts ...Option) (*Session, error) {
	if initial == nil {
		return nil, fmt.Errorf("%w: initial baseline is required", ErrOrdinal)
	}
	if initial.Ordinal() != 0 {
		return nil, fmt.Errorf("%w: session must start at generation 0, got %d", ErrOrdinal, initial.Ordinal())
	}
	c := sessionConfig{
		logger:    zap.NewNop(),
		tracers:   otel.GetTracerProvider(),
		meters:    otel.GetMeterProvider(),
		cacheSize: matcher.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.cacheSize <= 0 {
		return nil, fmt.Errorf("delta: cache size must be positive, got %d", c.cacheSize)
	}

	meter := c.meters.Meter(instrumentationName)
	committed, err := meter.Int64Counter("livepatch_generations_committed_total",
		metric.WithDescription("Number of committed generations"))
	if err != nil {
		return nil, err
	}
	changed, err := meter.Int64Histogram("livepatch_generation_changed_definitions",
		metric.WithDescription("Updated and added definitions per committed generation"))
	if err != nil {
		return nil, err
	}

	return &Session{
		initial:   initial,
		latest:    initial,
		logger:    c.logger,
		tracer:    c.tracers.Tracer(instrumentationName),
		cacheSize: c.cacheSize,
		committed: committed,
		changed:   changed,
	}, nil
}

// Initial returns the generation-0 baseline.
func (s *Session) Initial() *baseline.Baseline { return s.initial }

// Latest returns the most recently committed baseline.
func (s *Session) Latest() *baseline.Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// BeginGeneration resolves the definitions of current against prev, which
// must be the latest baseline of the session. Recoverable diagnostics go to
// sink; the returned error is reserved for invariant violations and
// malformed metadata.
func (s *Session) BeginGeneration(ctx context.Context, prev *baseline.Baseline, current *symbols.Assembly, edits []defmap.Edit, sink diagnostics.Sink) (*Context, error) {
	_, span := s.tracer.Start(ctx, "Session.BeginGeneration")
	defer span.End()

	fail := func(err error) (*Context, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.checkLatest(prev); err != nil {
		return fail(err)
	}
	if prev.Ordinal() > 0 && prev.Compilation() == nil {
		return fail(fmt.Errorf("%w: generation %d has no compilation", ErrOrdinal, prev.Ordinal()))
	}
	ordinal := prev.Ordinal() + 1
	span.SetAttributes(
		attribute.Int("livepatch.generation", ordinal),
		attribute.Int("livepatch.edits", len(edits)),
	)

	m, err := defmap.Build(defmap.Input{
		Previous:  prev,
		Current:   current,
		Edits:     edits,
		Sink:      sink,
		Logger:    s.logger.With(zap.Int("generation", ordinal)),
		CacheSize: s.cacheSize,
	})
	if err != nil {
		return fail(fmt.Errorf("generation %d: %w", ordinal, err))
	}

	changes := m.Changes()
	span.SetAttributes(
		attribute.Int("livepatch.changed", len(changes.Definitions)),
		attribute.Int("livepatch.deleted", len(changes.Deleted)),
	)
	s.logger.Debug("generation begun",
		zap.Int("generation", ordinal),
		zap.Int("changed", len(changes.Definitions)),
		zap.Int("deleted", len(changes.Deleted)),
		zap.Int("anonymousTypes", len(changes.AnonymousTypes)),
	)

	return &Context{
		session:  s,
		previous: prev,
		ordinal:  ordinal,
		encID:    uuid.New(),
		m:        m,
	}, nil
}

// checkLatest validates that prev is the latest baseline of the session.
func (s *Session) checkLatest(prev *baseline.Baseline) error {
	if prev == nil {
		return fmt.Errorf("%w: previous baseline is required", ErrOrdinal)
	}
	if prev.Initial() != s.initial {
		return ErrForeignBaseline
	}
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	if prev != latest {
		return fmt.Errorf("%w: got generation %d, latest is %d", ErrOrdinal, prev.Ordinal(), latest.Ordinal())
	}
	return nil
}
