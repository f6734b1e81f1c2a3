// Package baseline holds the immutable state an edit session needs to emit
// the next generation: the original module, the compilation of the previous
// generation and the history of synthesized and deleted members.
//
// Every baseline of a session shares the hydrated symbols of the original
// module. They are computed lazily, at most once, on first access from any
// generation.
package baseline

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/history"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

var (
	// ErrNoMetadata is returned when an initial baseline is created without a reader.
	ErrNoMetadata = errors.New("baseline: original module reader is required")
	// ErrIndexReused is returned when a generation binds a structural index
	// that already belongs to a different shape.
	ErrIndexReused = errors.New("baseline: structural index reused")
)

// Slot is a hoisted variable field of a state machine. Types are kept in
// signature form so slots of different generations compare directly. Retired
// slots no longer hold a variable; their index is never handed out again.
type Slot struct {
	Name    string
	Index   int
	Type    *metadata.SigType
	Retired bool
}

// SynthesizedMember is a member the compiler added to a container in some generation.
type SynthesizedMember struct {
	Container  metadata.Handle
	Member     metadata.Handle
	Name       string
	Generation int
}

// DeletedMember is a member removed from a container in some generation. Shape
// is the canonical signature of the member in handle space; a later insert
// with the same container, name and shape reuses Handle.
type DeletedMember struct {
	Container  metadata.Handle
	Handle     metadata.Handle
	Kind       symbols.Kind
	Name       string
	Shape      string
	Generation int
}

// MetadataSymbols is the original module hydrated into its own universe,
// together with its structural table and the state machine layouts it
// declares.
type MetadataSymbols struct {
	Module     *metadata.Module
	Structural *structkey.Table
	slots      map[metadata.Handle][]Slot
}

// Slots returns the layout of the state machine of a method of the original
// module, keyed by method handle.
func (ms *MetadataSymbols) Slots(method metadata.Handle) ([]Slot, bool) {
	s, ok := ms.slots[method]
	return s, ok
}

// origin is shared by every baseline derived from one initial baseline.
type origin struct {
	reader metadata.Reader
	refs   []*symbols.Assembly
	logger *zap.Logger

	cell       atomic.Pointer[MetadataSymbols]
	group      singleflight.Group
	hydrations atomic.Int64
}

// Baseline is the immutable state of one generation.
type Baseline struct {
	origin  *origin
	initial *Baseline

	ordinal     int
	encID       uuid.UUID
	compilation *symbols.Assembly

	structural  *structkey.Table
	definitions map[symbols.Symbol]metadata.Handle
	rows        map[metadata.Table]int
	slots       map[metadata.Handle][]Slot
	synthesized *history.List[SynthesizedMember]
	deleted     *history.List[DeletedMember]
}

// Option configures an initial baseline.
type Option func(*origin)

// WithLogger sets the logger used while hydrating the original module.
func WithLogger(logger *zap.Logger) Option {
	return func(o *origin) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReferences sets the assemblies the original module references. They
// are shared with every compilation of the session.
func WithReferences(refs ...*symbols.Assembly) Option {
	return func(o *origin) {
		o.refs = append(o.refs, refs...)
	}
}

// NewInitial creates the generation-0 baseline of a module. The module tables
// are not read until MetadataSymbols is first called.
func NewInitial(r metadata.Reader, opts ...Option) (*Baseline, error) {
	if r == nil {
		return nil, ErrNoMetadata
	}
	o := &origin{reader: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	rows := make(map[metadata.Table]int, len(metadata.Tables))
	for _, t := range metadata.Tables {
		rows[t] = r.RowCount(t)
	}
	b := &Baseline{
		origin: o,
		encID:  uuid.Nil,
		rows:   rows,
	}
	b.initial = b
	return b, nil
}

// Ordinal returns the generation number; 0 is the original module.
func (b *Baseline) Ordinal() int { return b.ordinal }

// EncID identifies the generation; it is uuid.Nil for the original module.
func (b *Baseline) EncID() uuid.UUID { return b.encID }

// Initial returns the generation-0 baseline of the session.
func (b *Baseline) Initial() *Baseline { return b.initial }

// ModuleVersionID returns the id of the original module.
func (b *Baseline) ModuleVersionID() uuid.UUID { return b.origin.reader.ModuleVersionID() }

// Original returns the reader of the original module.
func (b *Baseline) Original() metadata.Reader { return b.origin.reader }

// References returns the assemblies shared by every universe of the session.
func (b *Baseline) References() []*symbols.Assembly { return b.origin.refs }

// Compilation returns the compilation that produced this generation, or nil
// for the original module.
func (b *Baseline) Compilation() *symbols.Assembly { return b.compilation }

// RowCount returns the number of rows of a table after this generation.
func (b *Baseline) RowCount(t metadata.Table) int { return b.rows[t] }

// Definition returns the row of a definition of this generation's compilation.
func (b *Baseline) Definition(s symbols.Symbol) (metadata.Handle, bool) {
	h, ok := b.definitions[s]
	return h, ok
}

// Definitions returns the number of definitions recorded for the compilation.
func (b *Baseline) Definitions() int { return len(b.definitions) }

// Synthesized returns the synthesized members of a container, most recent first.
func (b *Baseline) Synthesized(container metadata.Handle) []SynthesizedMember {
	var out []SynthesizedMember
	b.synthesized.Each(func(m SynthesizedMember) bool {
		if m.Container == container {
			out = append(out, m)
		}
		return true
	})
	return out
}

// SynthesizedHistory returns every synthesized member, oldest first.
func (b *Baseline) SynthesizedHistory() []SynthesizedMember { return b.synthesized.Slice() }

// Deleted returns every deleted member, oldest first.
func (b *Baseline) Deleted() []DeletedMember { return b.deleted.Slice() }

// IsDeleted reports whether a row was deleted by this or an earlier generation.
func (b *Baseline) IsDeleted(h metadata.Handle) bool {
	return b.deleted.Contains(func(m DeletedMember) bool { return m.Handle == h })
}

// FindDeleted returns the most recent deletion matching a container, name and shape.
func (b *Baseline) FindDeleted(container metadata.Handle, name, shape string) (DeletedMember, bool) {
	var found DeletedMember
	ok := b.deleted.Contains(func(m DeletedMember) bool {
		if m.Container == container && m.Name == name && m.Shape == shape {
			found = m
			return true
		}
		return false
	})
	return found, ok
}

// Structural returns the structural table naming the synthesized types known
// to this generation. For the original module it is extracted from metadata.
func (b *Baseline) Structural() (*structkey.Table, error) {
	if b.ordinal == 0 {
		ms, err := b.MetadataSymbols()
		if err != nil {
			return nil, err
		}
		return ms.Structural, nil
	}
	return b.structural, nil
}

// Slots returns the state machine layout of a method as of this generation.
func (b *Baseline) Slots(method metadata.Handle) ([]Slot, bool, error) {
	if s, ok := b.slots[method]; ok {
		return s, true, nil
	}
	ms, err := b.MetadataSymbols()
	if err != nil {
		return nil, false, err
	}
	s, ok := ms.Slots(method)
	return s, ok, nil
}

// MetadataSymbols returns the hydrated original module. Concurrent first
// callers share a single hydration and all observe the same published value.
// A failed hydration publishes nothing and is retried by later callers.
func (b *Baseline) MetadataSymbols() (*MetadataSymbols, error) {
	o := b.origin
	if ms := o.cell.Load(); ms != nil {
		return ms, nil
	}
	v, err, _ := o.group.Do("metadata", func() (any, error) {
		if ms := o.cell.Load(); ms != nil {
			return ms, nil
		}
		ms, err := o.hydrate()
		if err != nil {
			return nil, err
		}
		if !o.cell.CompareAndSwap(nil, ms) {
			ms = o.cell.Load()
		}
		return ms, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MetadataSymbols), nil
}

func (o *origin) hydrate() (*MetadataSymbols, error) {
	o.hydrations.Add(1)

	mod, err := metadata.Decode(o.reader, o.refs...)
	if err != nil {
		return nil, fmt.Errorf("decode original module: %w", err)
	}
	table, err := structkey.Extract(o.reader, mod.TypeOf, o.logger)
	if err != nil {
		return nil, fmt.Errorf("extract structural table: %w", err)
	}
	slots, err := stateMachineSlots(o.reader)
	if err != nil {
		return nil, fmt.Errorf("read state machine layouts: %w", err)
	}

	o.logger.Debug("hydrated original module",
		zap.String("assembly", o.reader.AssemblyName()),
		zap.Int("anonymousTypes", len(table.AnonymousTypes())),
		zap.Int("stateMachines", len(slots)),
	)
	return &MetadataSymbols{Module: mod, Structural: table, slots: slots}, nil
}
