// Package matcher maps the symbols of a compilation onto another symbol
// universe: the decoded original module or the compilation of the previous
// generation.
//
// Source-named definitions match by qualified name, arity and signature.
// Synthesized types match by structural key through the other universe's
// structural table. Constructed types are translated deeply: the definition
// and every type argument, recursively. A symbol with no counterpart maps to
// nothing; that is the expected outcome for new symbols.
package matcher

import (
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

// DefaultCacheSize bounds the memo of translated composite types.
const DefaultCacheSize = 4096

// ErrNoUniverse is returned when a matcher is created without a target assembly.
var ErrNoUniverse = errors.New("matcher: other universe has no assembly")

// Universe is the target side of a mapping.
type Universe struct {
	Assembly   *symbols.Assembly
	Structural *structkey.Table
}

// Stats reports memo effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
}

// Matcher maps symbols of a source compilation into another universe. It is
// safe for concurrent use; results depend only on the two universes.
type Matcher struct {
	source *symbols.Assembly
	other  Universe
	logger *zap.Logger

	mu   sync.Mutex
	defs map[symbols.Symbol]symbols.Symbol

	composite *lru.Cache
	hits      atomic.Int64
	misses    atomic.Int64
}

type config struct {
	cacheSize int
	logger    *zap.Logger
}

// Option configures a Matcher.
type Option func(*config)

// WithCacheSize sets the number of translated composite types kept in memory.
func WithCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a matcher from source into other.
func New(source *symbols.Assembly, other Universe, opts ...Option) (*Matcher, error) {
	if other.Assembly == nil {
		return nil, ErrNoUniverse
	}
	cfg := config{cacheSize: DefaultCacheSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cache, err := lru.New(cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	if other.Structural == nil {
		other.Structural = structkey.Empty
	}
	return &Matcher{
		source:    source,
		other:     other,
		logger:    cfg.logger,
		defs:      make(map[symbols.Symbol]symbols.Symbol),
		composite: cache,
	}, nil
}

// Source returns the assembly symbols are mapped from.
func (m *Matcher) Source() *symbols.Assembly { return m.source }

// Other returns the target universe.
func (m *Matcher) Other() Universe { return m.other }

// Stats returns memo hit and miss counts for composite types.
func (m *Matcher) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load()}
}

// MapSymbol maps any symbol: definitions through MapDefinition, type
// expressions through MapType.
func (m *Matcher) MapSymbol(s symbols.Symbol) (symbols.Symbol, bool) {
	if symbols.IsDefinition(s) {
		return m.MapDefinition(s)
	}
	if t, ok := s.(symbols.Type); ok {
		mapped := m.MapType(t)
		return mapped, mapped != nil
	}
	return nil, false
}

// MapDefinition maps a type or member definition.
func (m *Matcher) MapDefinition(s symbols.Symbol) (symbols.Symbol, bool) {
	m.mu.Lock()
	mapped, ok := m.defs[s]
	m.mu.Unlock()
	if ok {
		return mapped, mapped != nil
	}

	mapped = m.matchDefinition(s)

	m.mu.Lock()
	if prior, ok := m.defs[s]; ok {
		mapped = prior
	} else {
		m.defs[s] = mapped
	}
	m.mu.Unlock()
	return mapped, mapped != nil
}

// MapType deeply translates a type expression. It returns nil if the
// definition of the type or of any nested argument has no counterpart.
func (m *Matcher) MapType(t symbols.Type) symbols.Type {
	switch v := t.(type) {
	case nil:
		return nil
	case *symbols.NamedType:
		if v.IsDefinition() {
			if def := m.mapNamedDefinition(v); def != nil {
				return def
			}
			return nil
		}
	case *symbols.TypeParameter:
		return m.mapTypeParameter(v)
	}

	if cached, ok := m.composite.Get(t); ok {
		m.hits.Add(1)
		if cached == nil {
			return nil
		}
		return cached.(symbols.Type)
	}
	m.misses.Add(1)

	mapped := m.translate(t)
	if mapped == nil {
		m.composite.Add(t, nil)
		return nil
	}
	m.composite.Add(t, mapped)
	return mapped
}

func (m *Matcher) translate(t symbols.Type) symbols.Type {
	switch v := t.(type) {
	case *symbols.NamedType:
		def := m.mapNamedDefinition(v.Definition())
		if def == nil {
			return nil
		}
		args := make([]symbols.Type, len(v.TypeArguments()))
		for i, a := range v.TypeArguments() {
			if args[i] = m.MapType(a); args[i] == nil {
				return nil
			}
		}
		if def.Arity() != len(args) {
			return nil
		}
		return def.Construct(args...)
	case *symbols.ArrayType:
		elem := m.MapType(v.Elem())
		if elem == nil {
			return nil
		}
		return symbols.NewArray(elem, v.Rank())
	case *symbols.PointerType:
		elem := m.MapType(v.Elem())
		if elem == nil {
			return nil
		}
		return symbols.NewPointer(elem)
	default:
		return nil
	}
}

func (m *Matcher) mapNamedDefinition(t *symbols.NamedType) *symbols.NamedType {
	mapped, ok := m.MapDefinition(t)
	if !ok {
		return nil
	}
	return mapped.(*symbols.NamedType)
}

func (m *Matcher) mapTypeParameter(p *symbols.TypeParameter) symbols.Type {
	if method := p.DeclaringMethod(); method != nil {
		mapped, ok := m.MapDefinition(method)
		if !ok {
			return nil
		}
		params := mapped.(*symbols.Method).TypeParameters()
		if p.Ordinal() >= len(params) {
			return nil
		}
		return params[p.Ordinal()]
	}
	owner := m.mapNamedDefinition(p.DeclaringType())
	if owner == nil || p.Ordinal() >= owner.Arity() {
		return nil
	}
	return owner.TypeParameters()[p.Ordinal()]
}
