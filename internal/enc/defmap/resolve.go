package defmap

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

type builder struct {
	in        Input
	module    *metadata.Module
	prevTable *structkey.Table
	sigs      *lru.Cache
	edits     map[symbols.Symbol]EditKind
	m         *Map
}

func (b *builder) generation() int { return b.in.Previous.Ordinal() + 1 }

func (b *builder) report(d *diagnostics.CompilerError) {
	b.in.Sink.Report(d.WithGeneration(b.generation()))
}

// resolveTypes assigns a row to every type definition. Containers come before
// their nested types, so members and nested types can rely on the row of
// their container.
func (b *builder) resolveTypes() error {
	for _, t := range b.in.Current.AllTypes() {
		if d, ok := b.structuralCounterpart(t); ok {
			b.m.defs[t] = d
			continue
		}
		d, err := b.resolve(t)
		if err != nil {
			return err
		}
		b.m.defs[t] = d
	}
	return nil
}

// structuralCounterpart handles templates that have no counterpart in the
// previous compilation but whose shape was emitted by an earlier generation.
// The emitted type definition still exists and is carried over unchanged.
func (b *builder) structuralCounterpart(t *symbols.NamedType) (*Definition, bool) {
	if t.ContainingType() != nil || b.hasCounterpart(t) {
		return nil, false
	}
	var v structkey.Value
	var ok bool
	switch t.Synthesized() {
	case symbols.AnonymousType:
		key, keyed := structkey.AnonymousTypeKey(t)
		if !keyed {
			return nil, false
		}
		v, ok = b.prevTable.AnonymousType(key)
	case symbols.SynthesizedDelegate:
		v, ok = b.prevTable.SynthesizedDelegate(t.MetadataName())
	}
	if !ok || v.Handle == 0 {
		return nil, false
	}
	return &Definition{Symbol: t, Handle: v.Handle.Handle(), Status: StatusUnchanged, Previous: v.Type}, true
}

func (b *builder) hasCounterpart(s symbols.Symbol) bool {
	_, _, ok := b.counterpart(s)
	return ok
}

// counterpart finds the previous definition of a current definition and its
// row. The previous compilation is consulted first; the original module
// covers generation 1 and definitions the previous compilation did not see.
// Rows deleted by an earlier generation are never counterparts.
func (b *builder) counterpart(s symbols.Symbol) (symbols.Symbol, metadata.Handle, bool) {
	if b.m.toPrevious != nil {
		if p, ok := b.m.toPrevious.MapDefinition(s); ok {
			if h, ok := b.in.Previous.Definition(p); ok {
				return p, h, true
			}
		}
	}
	if p, ok := b.m.toMetadata.MapDefinition(s); ok {
		if h, ok := b.module.HandleOf(p); ok && !b.in.Previous.IsDeleted(h) {
			return p, h, true
		}
	}
	return nil, metadata.Handle{}, false
}

// resolve classifies one definition against its edit.
func (b *builder) resolve(s symbols.Symbol) (*Definition, error) {
	kind := b.edits[s]
	if p, h, ok := b.counterpart(s); ok {
		d := &Definition{Symbol: s, Handle: h, Previous: p, Status: StatusUnchanged}
		if kind == EditUpdate || kind == EditInsert {
			d.Status = StatusUpdated
		}
		return d, nil
	}

	deleted, ok, err := b.deletedRow(s)
	if err != nil {
		return nil, err
	}
	if ok {
		b.report(diagnostics.NewMemberReadded(s.String(), deleted.Generation))
		b.in.Logger.Debug("re-adding deleted member",
			zap.Stringer("symbol", s),
			zap.Stringer("handle", deleted.Handle),
			zap.Int("deletedIn", deleted.Generation),
		)
		return &Definition{Symbol: s, Handle: deleted.Handle, Status: StatusUpdated, Readded: true}, nil
	}

	if kind == EditUpdate {
		b.report(diagnostics.NewUpdateWithoutCounterpart(s.String()))
	}
	return &Definition{Symbol: s, Handle: b.allocate(tableOf(s)), Status: StatusAdded}, nil
}

// deletedRow looks up a deletion recorded for the same container, name and
// shape as s.
func (b *builder) deletedRow(s symbols.Symbol) (baseline.DeletedMember, bool, error) {
	var container metadata.Handle
	if c := s.ContainingType(); c != nil {
		d, ok := b.m.defs[c]
		if !ok {
			return baseline.DeletedMember{}, false, nil
		}
		container = d.Handle
	}
	shape, err := shapeOf(s, b.in.Current, b.currentResolver)
	if err != nil {
		return baseline.DeletedMember{}, false, err
	}
	m, ok := b.in.Previous.FindDeleted(container, s.Name(), shape)
	return m, ok, nil
}

// allocate hands out the next row of a table.
func (b *builder) allocate(t metadata.Table) metadata.Handle {
	b.m.added[t]++
	return metadata.Handle{Table: t, Row: uint32(b.in.Previous.RowCount(t) + b.m.added[t])}
}

// resolveMembers resolves fields, methods and properties and records the
// declaration order of every definition.
func (b *builder) resolveMembers() error {
	for _, s := range b.in.Current.Definitions() {
		d, ok := b.m.defs[s]
		if !ok {
			var err error
			if d, err = b.resolve(s); err != nil {
				return err
			}
			b.m.defs[s] = d
		}
		b.m.order = append(b.m.order, d)
		if d.Status == StatusAdded {
			b.allocateGenericParameters(s)
		}
	}
	return nil
}

func (b *builder) allocateGenericParameters(s symbols.Symbol) {
	var n int
	switch v := s.(type) {
	case *symbols.NamedType:
		n = v.Arity()
	case *symbols.Method:
		n = v.Arity()
	}
	for i := 0; i < n; i++ {
		b.allocate(metadata.TableGenericParam)
	}
}

// nameTemplates assigns metadata names to the anonymous types and anonymous
// delegates of the compilation. Shapes already known keep their name and
// index; new shapes continue after the largest index ever handed out.
func (b *builder) nameTemplates() error {
	nextType := b.prevTable.NextAnonymousTypeIndex()
	nextDelegate := b.prevTable.NextAnonymousDelegateIndex()

	for _, t := range b.in.Current.Types() {
		d := b.m.defs[t]
		handle := metadata.TypeDefHandle(d.Handle.Row)

		switch t.Synthesized() {
		case symbols.AnonymousType:
			key, ok := structkey.AnonymousTypeKey(t)
			if !ok {
				return fmt.Errorf("%w: anonymous type %s has no property names", ErrInvalidInput, t)
			}
			if v, dup := b.m.additions.AnonymousTypes[key]; dup {
				b.m.names[t] = v.Name
				continue
			}
			v, known := b.prevTable.AnonymousType(key)
			if !known {
				v = structkey.Value{Name: generatednames.AnonymousTypeName(nextType), Index: nextType}
				nextType++
			}
			v.Type, v.Handle = t, handle
			b.m.additions.AnonymousTypes[key] = v
			b.m.names[t] = v.Name
			b.m.anonymous = append(b.m.anonymous, AnonymousType{
				Key:    key,
				Name:   v.Name,
				Index:  v.Index,
				Type:   t,
				Handle: d.Handle,
				New:    !known,
			})

		case symbols.AnonymousDelegate:
			v, known := b.previousDelegate(handle)
			if !known {
				v = structkey.Value{Name: generatednames.AnonymousDelegateName(nextDelegate), Index: nextDelegate}
				nextDelegate++
			}
			v.Type, v.Handle = t, handle
			b.m.additions.AnonymousDelegates[v.Name] = v
			b.m.names[t] = v.Name

		case symbols.SynthesizedDelegate:
			name := t.MetadataName()
			b.m.additions.SynthesizedDelegates[name] = structkey.Value{Name: name, Type: t, Handle: handle}
		}
	}
	return nil
}

// previousDelegate returns the structural entry of an anonymous delegate
// already emitted under the given row.
func (b *builder) previousDelegate(h metadata.TypeDefHandle) (structkey.Value, bool) {
	for _, v := range b.prevTable.AnonymousDelegates() {
		if v.Handle == h {
			return v, true
		}
	}
	return structkey.Value{}, false
}

// applyDeletes records every deleted definition of the previous generation.
func (b *builder) applyDeletes() error {
	for _, e := range b.in.Edits {
		if e.Kind != EditDelete {
			continue
		}
		h, ok := b.previousHandle(e.Symbol)
		if !ok {
			b.report(diagnostics.NewDeleteWithoutDefinition(e.Symbol.String()))
			continue
		}
		var container metadata.Handle
		if c := e.Symbol.ContainingType(); c != nil {
			container, _ = b.previousHandle(c)
		}
		shape, err := shapeOf(e.Symbol, e.Symbol.ContainingAssembly(), b.previousResolver)
		if err != nil {
			return fmt.Errorf("encode deleted %s: %w", e.Symbol, err)
		}
		b.m.deleted = append(b.m.deleted, baseline.DeletedMember{
			Container: container,
			Handle:    h,
			Kind:      e.Symbol.Kind(),
			Name:      e.Symbol.Name(),
			Shape:     shape,
		})
	}
	return nil
}

// previousHandle returns the row of a definition of the previous generation's
// universe: the previous compilation, or the decoded original module.
func (b *builder) previousHandle(s symbols.Symbol) (metadata.Handle, bool) {
	if h, ok := b.in.Previous.Definition(s); ok {
		return h, true
	}
	return b.module.HandleOf(s)
}

func (b *builder) previousResolver(def *symbols.NamedType) (metadata.TypeDefHandle, bool) {
	h, ok := b.previousHandle(def)
	if !ok || h.Table != metadata.TableTypeDef {
		return 0, false
	}
	return metadata.TypeDefHandle(h.Row), true
}

func (b *builder) currentResolver(def *symbols.NamedType) (metadata.TypeDefHandle, bool) {
	d, ok := b.m.defs[def]
	if !ok || d.Handle.Table != metadata.TableTypeDef {
		return 0, false
	}
	return metadata.TypeDefHandle(d.Handle.Row), true
}

// encode translates a current type expression into handle space. Results are
// memoized per type expression.
func (b *builder) encode(t symbols.Type) (*metadata.SigType, error) {
	if t == nil {
		return nil, nil
	}
	if v, ok := b.sigs.Get(t); ok {
		return v.(*metadata.SigType), nil
	}
	sig, err := metadata.EncodeType(t, b.in.Current, b.currentResolver)
	if err != nil {
		return nil, err
	}
	b.sigs.Add(t, sig)
	return sig, nil
}

func tableOf(s symbols.Symbol) metadata.Table {
	switch s.(type) {
	case *symbols.Field:
		return metadata.TableField
	case *symbols.Method:
		return metadata.TableMethod
	case *symbols.Property:
		return metadata.TableProperty
	default:
		return metadata.TableTypeDef
	}
}

// shapeOf returns the canonical handle-space form of a definition, used to
// recognize a deleted member when it is inserted again.
func shapeOf(s symbols.Symbol, home *symbols.Assembly, resolve metadata.TypeResolver) (string, error) {
	switch v := s.(type) {
	case *symbols.NamedType:
		return fmt.Sprintf("type`%d", v.Arity()), nil
	case *symbols.Field:
		sig, err := metadata.EncodeType(v.Type(), home, resolve)
		if err != nil {
			return "", err
		}
		return "field:" + sig.String(), nil
	case *symbols.Property:
		sig, err := metadata.EncodeType(v.Type(), home, resolve)
		if err != nil {
			return "", err
		}
		return "property:" + sig.String(), nil
	case *symbols.Method:
		sig, err := metadata.EncodeMethodSignature(v, home, resolve)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("method`%d:%t:%s", v.Arity(), v.IsStatic(), sig), nil
	default:
		return "", fmt.Errorf("%w: %s has no shape", ErrInvalidEdit, s)
	}
}
