package structkey

import (
	"sort"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// Value is the identity bound to a structural key: the emitted name, the
// permanent emission index, the type in the universe that recorded it and
// its type definition row.
type Value struct {
	Name   string
	Index  int
	Type   *symbols.NamedType
	Handle metadata.TypeDefHandle
}

// AnonymousTypeEntry pairs an anonymous type key with its value.
type AnonymousTypeEntry struct {
	Key   Key
	Value Value
}

// Table holds the three structural maps. A Table is immutable; Extend returns
// a new table.
type Table struct {
	anonymousTypes       map[Key]Value
	anonymousDelegates   map[string]Value
	synthesizedDelegates map[string]Value
}

// Empty is the table of a module without synthesized types.
var Empty = &Table{
	anonymousTypes:       map[Key]Value{},
	anonymousDelegates:   map[string]Value{},
	synthesizedDelegates: map[string]Value{},
}

// AnonymousType looks up an anonymous type by key.
func (t *Table) AnonymousType(k Key) (Value, bool) {
	v, ok := t.anonymousTypes[k]
	return v, ok
}

// AnonymousDelegate looks up an anonymous delegate by its indexed name.
func (t *Table) AnonymousDelegate(name string) (Value, bool) {
	v, ok := t.anonymousDelegates[name]
	return v, ok
}

// SynthesizedDelegate looks up a synthesized delegate by its literal name.
func (t *Table) SynthesizedDelegate(name string) (Value, bool) {
	v, ok := t.synthesizedDelegates[name]
	return v, ok
}

// AnonymousTypes returns the anonymous type entries ordered by index.
func (t *Table) AnonymousTypes() []AnonymousTypeEntry {
	out := make([]AnonymousTypeEntry, 0, len(t.anonymousTypes))
	for k, v := range t.anonymousTypes {
		out = append(out, AnonymousTypeEntry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value.Index < out[j].Value.Index })
	return out
}

// AnonymousDelegates returns the anonymous delegates ordered by index.
func (t *Table) AnonymousDelegates() []Value {
	return sortedValues(t.anonymousDelegates, func(a, b Value) bool { return a.Index < b.Index })
}

// SynthesizedDelegates returns the synthesized delegates ordered by name.
func (t *Table) SynthesizedDelegates() []Value {
	return sortedValues(t.synthesizedDelegates, func(a, b Value) bool { return a.Name < b.Name })
}

func sortedValues(m map[string]Value, less func(a, b Value) bool) []Value {
	out := make([]Value, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// NextAnonymousTypeIndex returns one past the largest anonymous type index.
func (t *Table) NextAnonymousTypeIndex() int {
	next := 0
	for _, v := range t.anonymousTypes {
		if v.Index >= next {
			next = v.Index + 1
		}
	}
	return next
}

// NextAnonymousDelegateIndex returns one past the largest anonymous delegate index.
func (t *Table) NextAnonymousDelegateIndex() int {
	next := 0
	for _, v := range t.anonymousDelegates {
		if v.Index >= next {
			next = v.Index + 1
		}
	}
	return next
}

// Len returns the total number of entries.
func (t *Table) Len() int {
	return len(t.anonymousTypes) + len(t.anonymousDelegates) + len(t.synthesizedDelegates)
}

// Additions are the structural entries introduced by one generation.
type Additions struct {
	AnonymousTypes       map[Key]Value
	AnonymousDelegates   map[string]Value
	SynthesizedDelegates map[string]Value
}

// Extend returns a table holding the entries of t overlaid with add. The
// receiver is not modified.
func (t *Table) Extend(add Additions) *Table {
	out := &Table{
		anonymousTypes:       make(map[Key]Value, len(t.anonymousTypes)+len(add.AnonymousTypes)),
		anonymousDelegates:   make(map[string]Value, len(t.anonymousDelegates)+len(add.AnonymousDelegates)),
		synthesizedDelegates: make(map[string]Value, len(t.synthesizedDelegates)+len(add.SynthesizedDelegates)),
	}
	for k, v := range t.anonymousTypes {
		out.anonymousTypes[k] = v
	}
	for k, v := range add.AnonymousTypes {
		out.anonymousTypes[k] = v
	}
	copyValues(out.anonymousDelegates, t.anonymousDelegates, add.AnonymousDelegates)
	copyValues(out.synthesizedDelegates, t.synthesizedDelegates, add.SynthesizedDelegates)
	return out
}

func copyValues(dst map[string]Value, srcs ...map[string]Value) {
	for _, src := range srcs {
		for k, v := range src {
			dst[k] = v
		}
	}
}

// FromAssembly builds the structural table of the templates a compilation
// declares, naming them by declaration order the way the emitter does. It is
// the live counterpart of Extract for universes that were never emitted.
func FromAssembly(asm *symbols.Assembly) *Table {
	t := &Table{
		anonymousTypes:       make(map[Key]Value),
		anonymousDelegates:   make(map[string]Value),
		synthesizedDelegates: make(map[string]Value),
	}
	var types, delegates int
	for _, typ := range asm.Types() {
		switch typ.Synthesized() {
		case symbols.AnonymousType:
			if k, ok := AnonymousTypeKey(typ); ok {
				if _, dup := t.anonymousTypes[k]; !dup {
					t.anonymousTypes[k] = Value{Name: generatednames.AnonymousTypeName(types), Index: types, Type: typ}
				}
			}
			types++
		case symbols.AnonymousDelegate:
			name := generatednames.AnonymousDelegateName(delegates)
			t.anonymousDelegates[name] = Value{Name: name, Index: delegates, Type: typ}
			delegates++
		case symbols.SynthesizedDelegate:
			t.synthesizedDelegates[typ.MetadataName()] = Value{Name: typ.MetadataName(), Type: typ}
		}
	}
	return t
}
