package metadata

import (
	"github.com/google/uuid"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// Emission is the result of emitting a compilation as the initial module.
type Emission struct {
	Image *Image

	// Handles maps every definition of the compilation to its row
	Handles map[symbols.Symbol]Handle

	// Names holds the metadata names assigned to unnamed templates
	// (anonymous types and anonymous delegates).
	Names map[*symbols.NamedType]string
}

// Emit writes the initial module of a compilation. Anonymous types and
// anonymous delegates are named by their declaration order; every method with
// hoisted state gets a state machine type nested in its container.
func Emit(asm *symbols.Assembly, mvid uuid.UUID) (*Emission, error) {
	e := &emitter{
		asm:     asm,
		b:       NewBuilder(asm.Name(), mvid),
		types:   make(map[*symbols.NamedType]TypeDefHandle),
		handles: make(map[symbols.Symbol]Handle),
		names:   make(map[*symbols.NamedType]string),
	}
	e.nameTemplates()

	for _, t := range asm.AllTypes() {
		e.defineType(t)
	}
	for _, t := range asm.AllTypes() {
		if err := e.defineMembers(t); err != nil {
			return nil, err
		}
	}
	for _, t := range asm.AllTypes() {
		for _, m := range t.Methods() {
			if m.StateMachine() != nil {
				if err := e.defineStateMachine(m); err != nil {
					return nil, err
				}
			}
		}
	}
	return &Emission{Image: e.b.Image(), Handles: e.handles, Names: e.names}, nil
}

type emitter struct {
	asm     *symbols.Assembly
	b       *Builder
	types   map[*symbols.NamedType]TypeDefHandle
	handles map[symbols.Symbol]Handle
	names   map[*symbols.NamedType]string
}

func (e *emitter) nameTemplates() {
	var types, delegates int
	for _, t := range e.asm.Types() {
		switch t.Synthesized() {
		case symbols.AnonymousType:
			e.names[t] = generatednames.AnonymousTypeName(types)
			types++
		case symbols.AnonymousDelegate:
			e.names[t] = generatednames.AnonymousDelegateName(delegates)
			delegates++
		}
	}
}

func (e *emitter) resolve(def *symbols.NamedType) (TypeDefHandle, bool) {
	h, ok := e.types[def]
	return h, ok
}

func (e *emitter) defineType(t *symbols.NamedType) {
	name := t.MetadataName()
	if n, ok := e.names[t]; ok {
		name = n
	}
	var enclosing TypeDefHandle
	if c := t.ContainingType(); c != nil {
		enclosing = e.types[c]
	}
	h := e.b.AddTypeDefinition(t.Namespace(), name, TypeAttributesOf(t), enclosing)
	for _, p := range t.TypeParameters() {
		e.b.AddGenericParameter(h.Handle(), p.Name())
	}
	e.types[t] = h
	e.handles[t] = h.Handle()
}

func (e *emitter) defineMembers(t *symbols.NamedType) error {
	parent := e.types[t]
	for _, f := range t.Fields() {
		sig, err := EncodeType(f.Type(), e.asm, e.resolve)
		if err != nil {
			return err
		}
		e.handles[f] = e.b.AddField(parent, f.Name(), sig).Handle()
	}
	for _, m := range t.Methods() {
		names := make([]string, len(m.Parameters()))
		for i, p := range m.Parameters() {
			names[i] = p.Name
		}
		var attrs MethodAttributes
		if m.IsStatic() {
			attrs |= MethodStatic
		}
		h := e.b.AddMethod(parent, m.Name(), attrs, names...)
		for _, p := range m.TypeParameters() {
			e.b.AddGenericParameter(h.Handle(), p.Name())
		}
		sig, err := EncodeMethodSignature(m, e.asm, e.resolve)
		if err != nil {
			return err
		}
		e.b.SetMethodSignature(h, sig)
		e.handles[m] = h.Handle()
	}
	for _, p := range t.Properties() {
		sig, err := EncodeType(p.Type(), e.asm, e.resolve)
		if err != nil {
			return err
		}
		e.handles[p] = e.b.AddProperty(parent, p.Name(), sig).Handle()
	}
	return nil
}

func (e *emitter) defineStateMachine(m *symbols.Method) error {
	row := e.handles[m].Row
	parent := e.types[m.ContainingType()]
	h := e.b.AddTypeDefinition("", generatednames.StateMachineTypeName(m.Name(), row), TypeCompilerGenerated, parent)
	for slot, v := range m.StateMachine().Variables {
		sig, err := EncodeType(v.Type, e.asm, e.resolve)
		if err != nil {
			return err
		}
		e.b.AddField(h, generatednames.HoistedFieldName(v.Name, slot), sig)
	}
	return nil
}

// TypeAttributesOf returns the definition flags of a type.
func TypeAttributesOf(t *symbols.NamedType) TypeAttributes {
	var attrs TypeAttributes
	switch t.TypeKind() {
	case symbols.Interface:
		attrs |= TypeInterface
	case symbols.Struct:
		attrs |= TypeValueType
	case symbols.Delegate:
		attrs |= TypeDelegate
	case symbols.Enum:
		attrs |= TypeEnum
	}
	if t.IsEmbeddedInterop() {
		attrs |= TypeEmbeddedInterop
	}
	if t.Synthesized() != symbols.NotSynthesized {
		attrs |= TypeCompilerGenerated
	}
	return attrs
}
