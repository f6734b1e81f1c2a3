// Package defmap resolves the identity of every definition of a generation's
// compilation. Each definition is carried over, updated or added; carried and
// updated definitions keep the row they were first emitted with, added ones
// get a fresh row or re-claim the row of a member deleted earlier. The map
// also names anonymous templates, lays out state machine slots and records
// deletions for the next baseline.
package defmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/matcher"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

var (
	// ErrInvalidInput is returned when the previous baseline or compilation is missing.
	ErrInvalidInput = errors.New("defmap: previous baseline and current compilation are required")
	// ErrInvalidEdit is returned for edits whose symbol belongs to the wrong universe.
	ErrInvalidEdit = errors.New("defmap: invalid edit")
	// ErrDuplicateEdit is returned when two edits name the same symbol.
	ErrDuplicateEdit = errors.New("defmap: symbol edited twice")
)

// Input is everything one generation's definition map is built from.
type Input struct {
	Previous *baseline.Baseline
	Current  *symbols.Assembly
	Edits    []Edit

	// Sink receives recoverable diagnostics; nil discards them
	Sink diagnostics.Sink

	Logger    *zap.Logger
	CacheSize int
}

// Definition is the resolved identity of one current definition.
type Definition struct {
	Symbol symbols.Symbol
	Handle metadata.Handle
	Status Status

	// Previous is the counterpart in the original module or the previous
	// compilation; nil for added definitions.
	Previous symbols.Symbol

	// Readded is set when the definition re-claims the row of a member
	// deleted by an earlier generation.
	Readded bool
}

// SlotAssignment places one hoisted variable of a state machine.
type SlotAssignment struct {
	Variable string
	Index    int
	Type     *metadata.SigType
	Reused   bool
}

// AnonymousType is the emitted identity of an anonymous type template.
type AnonymousType struct {
	Key    structkey.Key
	Name   string
	Index  int
	Type   *symbols.NamedType
	Handle metadata.Handle
	New    bool
}

// Changes is the read-only view of a generation handed to the delta writer.
type Changes struct {
	// Definitions lists updated and added definitions in declaration order
	Definitions []Definition

	// TopLevelTypes lists the top-level types containing a changed definition
	TopLevelTypes []*symbols.NamedType

	Deleted        []baseline.DeletedMember
	StateMachines  map[*symbols.Method][]SlotAssignment
	AnonymousTypes []AnonymousType
}

// Map is the definition map of one generation. It is immutable once built.
type Map struct {
	previous   *baseline.Baseline
	current    *symbols.Assembly
	toMetadata *matcher.Matcher
	toPrevious *matcher.Matcher

	defs  map[symbols.Symbol]*Definition
	order []*Definition
	names map[*symbols.NamedType]string

	additions structkey.Additions
	anonymous []AnonymousType
	deleted   []baseline.DeletedMember
	slots     map[*symbols.Method][]SlotAssignment
	layouts   map[metadata.Handle][]baseline.Slot
	added     map[metadata.Table]int

	changes Changes
}

// Build resolves every definition of in.Current against in.Previous.
// Malformed original metadata and invalid edits are fatal; missing
// counterparts and fresh slots are ordinary outcomes.
func Build(in Input) (*Map, error) {
	if in.Previous == nil || in.Current == nil {
		return nil, ErrInvalidInput
	}
	if in.Logger == nil {
		in.Logger = zap.NewNop()
	}
	if in.Sink == nil {
		in.Sink = diagnostics.Discard
	}
	if in.CacheSize <= 0 {
		in.CacheSize = matcher.DefaultCacheSize
	}

	ms, err := in.Previous.MetadataSymbols()
	if err != nil {
		return nil, err
	}
	prevTable, err := in.Previous.Structural()
	if err != nil {
		return nil, err
	}

	opts := []matcher.Option{matcher.WithCacheSize(in.CacheSize), matcher.WithLogger(in.Logger)}
	toMetadata, err := matcher.New(in.Current, matcher.Universe{Assembly: ms.Module.Assembly(), Structural: ms.Structural}, opts...)
	if err != nil {
		return nil, err
	}
	var toPrevious *matcher.Matcher
	if in.Previous.Ordinal() > 0 {
		toPrevious, err = matcher.New(in.Current, matcher.Universe{Assembly: in.Previous.Compilation(), Structural: prevTable}, opts...)
		if err != nil {
			return nil, err
		}
	}

	sigs, err := lru.New(in.CacheSize)
	if err != nil {
		return nil, err
	}

	b := &builder{
		in:        in,
		module:    ms.Module,
		prevTable: prevTable,
		sigs:      sigs,
		m: &Map{
			previous:   in.Previous,
			current:    in.Current,
			toMetadata: toMetadata,
			toPrevious: toPrevious,
			defs:       make(map[symbols.Symbol]*Definition),
			names:      make(map[*symbols.NamedType]string),
			additions: structkey.Additions{
				AnonymousTypes:       make(map[structkey.Key]structkey.Value),
				AnonymousDelegates:   make(map[string]structkey.Value),
				SynthesizedDelegates: make(map[string]structkey.Value),
			},
			slots:   make(map[*symbols.Method][]SlotAssignment),
			layouts: make(map[metadata.Handle][]baseline.Slot),
			added:   make(map[metadata.Table]int),
		},
	}

	if b.edits, err = indexEdits(in.Edits, in.Current); err != nil {
		return nil, err
	}
	steps := []func() error{
		b.resolveTypes,
		b.nameTemplates,
		b.resolveMembers,
		b.applyDeletes,
		b.allocateSlots,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	b.reportInterop()
	b.m.changes = b.m.collectChanges()
	return b.m, nil
}

func indexEdits(edits []Edit, current *symbols.Assembly) (map[symbols.Symbol]EditKind, error) {
	out := make(map[symbols.Symbol]EditKind, len(edits))
	for _, e := range edits {
		if e.Symbol == nil {
			return nil, fmt.Errorf("%w: %s edit without symbol", ErrInvalidEdit, e.Kind)
		}
		if _, dup := out[e.Symbol]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEdit, e.Symbol)
		}
		if !symbols.IsDefinition(e.Symbol) {
			return nil, fmt.Errorf("%w: %s is not a definition", ErrInvalidEdit, e.Symbol)
		}
		inCurrent := e.Symbol.ContainingAssembly() == current
		if e.Kind == EditDelete && inCurrent {
			return nil, fmt.Errorf("%w: deleted %s still belongs to the current compilation", ErrInvalidEdit, e.Symbol)
		}
		if e.Kind != EditDelete && !inCurrent {
			return nil, fmt.Errorf("%w: %s %s does not belong to the current compilation", ErrInvalidEdit, e.Kind, e.Symbol)
		}
		out[e.Symbol] = e.Kind
	}
	return out, nil
}

// Lookup returns the resolved identity of a current definition.
func (m *Map) Lookup(s symbols.Symbol) (Definition, bool) {
	d, ok := m.defs[s]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

// Name returns the metadata name of a current type, including names assigned
// to anonymous templates by this generation.
func (m *Map) Name(t *symbols.NamedType) string {
	if n, ok := m.names[t]; ok {
		return n
	}
	return t.MetadataName()
}

// Slots returns the slot assignments of an emitted state machine method.
func (m *Map) Slots(method *symbols.Method) ([]SlotAssignment, bool) {
	s, ok := m.slots[method]
	return s, ok
}

// Changes returns the generation's change set.
func (m *Map) Changes() Changes { return m.changes }

// ToMetadata returns the matcher into the original module.
func (m *Map) ToMetadata() *matcher.Matcher { return m.toMetadata }

// ToPrevious returns the matcher into the previous compilation, or nil when
// the previous generation is the original module.
func (m *Map) ToPrevious() *matcher.Matcher { return m.toPrevious }

// Update returns what this generation contributes to the next baseline.
func (m *Map) Update(encID uuid.UUID) baseline.Update {
	defs := make(map[symbols.Symbol]metadata.Handle, len(m.defs))
	for s, d := range m.defs {
		defs[s] = d.Handle
	}
	var synthesized []baseline.SynthesizedMember
	for _, d := range m.order {
		if d.Status != StatusAdded || !isSynthesized(d.Symbol) {
			continue
		}
		var container metadata.Handle
		if c := d.Symbol.ContainingType(); c != nil {
			container = m.defs[c].Handle
		}
		synthesized = append(synthesized, baseline.SynthesizedMember{
			Container: container,
			Member:    d.Handle,
			Name:      m.symbolName(d.Symbol),
		})
	}
	added := make(map[metadata.Table]int, len(m.added))
	for t, n := range m.added {
		added[t] = n
	}
	return baseline.Update{
		EncID:       encID,
		Compilation: m.current,
		Structural:  m.additions,
		Definitions: defs,
		AddedRows:   added,
		Slots:       m.layouts,
		Synthesized: synthesized,
		Deleted:     append([]baseline.DeletedMember(nil), m.deleted...),
	}
}

func (m *Map) symbolName(s symbols.Symbol) string {
	if t, ok := s.(*symbols.NamedType); ok {
		return m.Name(t)
	}
	return s.Name()
}

func isSynthesized(s symbols.Symbol) bool {
	if t, ok := s.(*symbols.NamedType); ok && t.Synthesized() != symbols.NotSynthesized {
		return true
	}
	if c := s.ContainingType(); c != nil && c.Synthesized() != symbols.NotSynthesized {
		return true
	}
	return generatednames.IsGenerated(s.Name())
}

func (m *Map) collectChanges() Changes {
	c := Changes{
		Deleted:        append([]baseline.DeletedMember(nil), m.deleted...),
		StateMachines:  m.slots,
		AnonymousTypes: m.anonymous,
	}
	seen := make(map[*symbols.NamedType]bool)
	for _, d := range m.order {
		if d.Status == StatusUnchanged {
			continue
		}
		c.Definitions = append(c.Definitions, *d)
		top := outermost(d.Symbol)
		if top != nil && !seen[top] {
			seen[top] = true
			c.TopLevelTypes = append(c.TopLevelTypes, top)
		}
	}
	sort.SliceStable(c.TopLevelTypes, func(i, j int) bool {
		return m.defs[c.TopLevelTypes[i]].Handle.Row < m.defs[c.TopLevelTypes[j]].Handle.Row
	})
	return c
}

func outermost(s symbols.Symbol) *symbols.NamedType {
	t, ok := s.(*symbols.NamedType)
	if !ok {
		t = s.ContainingType()
	}
	for t != nil && t.ContainingType() != nil {
		t = t.ContainingType()
	}
	return t
}
