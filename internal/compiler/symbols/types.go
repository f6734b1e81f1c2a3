package symbols

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
)

// NamedType is a class, struct, interface, delegate or enum. A NamedType is
// either a definition or a construction of a generic definition with type
// arguments.
type NamedType struct {
	name       string
	namespace  string
	kind       TypeKind
	synth      SynthesizedKind
	assembly   *Assembly
	container  *NamedType
	definition *NamedType
	typeParams []*TypeParameter
	typeArgs   []Type

	members    []Symbol
	nested     []*NamedType
	fields     []*Field
	methods    []*Method
	properties []*Property

	// ordered property names of an anonymous type template
	anonymousFields []string
	embedded        bool
}

func newNamedType(asm *Assembly, container *NamedType, namespace, name string, kind TypeKind, synth SynthesizedKind, typeParams []string) *NamedType {
	t := &NamedType{
		name:      name,
		namespace: namespace,
		kind:      kind,
		synth:     synth,
		assembly:  asm,
		container: container,
	}
	t.definition = t
	for i, p := range typeParams {
		t.typeParams = append(t.typeParams, &TypeParameter{name: p, ordinal: i, ownerType: t})
	}
	return t
}

func (t *NamedType) Kind() Kind                    { return KindNamedType }
func (t *NamedType) Name() string                  { return t.name }
func (t *NamedType) Namespace() string             { return t.namespace }
func (t *NamedType) TypeKind() TypeKind            { return t.kind }
func (t *NamedType) Synthesized() SynthesizedKind  { return t.synth }
func (t *NamedType) ContainingType() *NamedType    { return t.container }
func (t *NamedType) ContainingAssembly() *Assembly { return t.assembly }
func (t *NamedType) Definition() *NamedType        { return t.definition }
func (t *NamedType) IsDefinition() bool            { return t.definition == t }
func (t *NamedType) IsEmbeddedInterop() bool       { return t.definition.embedded }
func (t *NamedType) isType()                       {}

// Arity returns the number of type parameters of the definition.
func (t *NamedType) Arity() int { return len(t.definition.typeParams) }

// MetadataName returns the name with its arity suffix, e.g. "List`1".
// Compiler-generated names are emitted verbatim.
func (t *NamedType) MetadataName() string {
	if t.synth != NotSynthesized {
		return t.name
	}
	return generatednames.MangleName(t.name, t.Arity())
}

// TypeParameters returns the type parameters of the definition.
func (t *NamedType) TypeParameters() []*TypeParameter { return t.definition.typeParams }

// TypeArguments returns the type arguments of a constructed type, or nil.
func (t *NamedType) TypeArguments() []Type { return t.typeArgs }

// IsConstructed reports whether t is a generic definition applied to arguments.
func (t *NamedType) IsConstructed() bool { return t.definition != t }

// NestedTypes, Fields, Methods and Properties return the members of the
// definition in declaration order. Constructed types share their definition's
// members without substitution.
func (t *NamedType) NestedTypes() []*NamedType { return t.definition.nested }
func (t *NamedType) Fields() []*Field          { return t.definition.fields }
func (t *NamedType) Methods() []*Method        { return t.definition.methods }
func (t *NamedType) Properties() []*Property   { return t.definition.properties }

// Members returns all members, nested types included, in declaration order.
func (t *NamedType) Members() []Symbol { return t.definition.members }

// MembersNamed returns the members with the given simple name.
func (t *NamedType) MembersNamed(name string) []Symbol {
	var out []Symbol
	for _, m := range t.definition.members {
		if m.Name() == name {
			out = append(out, m)
		}
	}
	return out
}

// NestedType finds a nested type by simple name and arity.
func (t *NamedType) NestedType(name string, arity int) *NamedType {
	for _, n := range t.definition.nested {
		if n.name == name && n.Arity() == arity {
			return n
		}
	}
	return nil
}

// AnonymousFields returns the ordered property names of an anonymous type template.
func (t *NamedType) AnonymousFields() []string { return t.definition.anonymousFields }

// Invoke returns the Invoke method of a delegate type, or nil.
func (t *NamedType) Invoke() *Method {
	if t.kind != Delegate {
		return nil
	}
	for _, m := range t.definition.methods {
		if m.name == "Invoke" {
			return m
		}
	}
	return nil
}

// SetEmbeddedInterop marks a definition as an interop type embedded into
// referencing assemblies.
func (t *NamedType) SetEmbeddedInterop(embedded bool) *NamedType {
	t.definition.embedded = embedded
	return t
}

// Construct applies type arguments to a generic definition. It panics if t is
// not a definition or the number of arguments does not match its arity.
func (t *NamedType) Construct(args ...Type) *NamedType {
	if !t.IsDefinition() {
		panic(fmt.Sprintf("symbols: construct of non-definition %s", t))
	}
	if len(args) != len(t.typeParams) {
		panic(fmt.Sprintf("symbols: %s expects %d type arguments, got %d", t, len(t.typeParams), len(args)))
	}
	return &NamedType{
		name:       t.name,
		namespace:  t.namespace,
		kind:       t.kind,
		synth:      t.synth,
		assembly:   t.assembly,
		container:  t.container,
		definition: t,
		typeArgs:   append([]Type(nil), args...),
	}
}

// Equals reports whether two named types are the same definition with
// structurally equal type arguments.
func (t *NamedType) Equals(other Type) bool {
	o, ok := other.(*NamedType)
	if !ok {
		return false
	}
	if t == o {
		return true
	}
	if t.definition != o.definition || len(t.typeArgs) != len(o.typeArgs) {
		return false
	}
	if t.IsDefinition() != o.IsDefinition() {
		return false
	}
	for i := range t.typeArgs {
		if !t.typeArgs[i].Equals(o.typeArgs[i]) {
			return false
		}
	}
	return true
}

// FullName returns the namespace-qualified name, including containing types.
func (t *NamedType) FullName() string {
	var b strings.Builder
	if t.container != nil {
		b.WriteString(t.container.FullName())
		b.WriteByte('.')
	} else if t.namespace != "" {
		b.WriteString(t.namespace)
		b.WriteByte('.')
	}
	b.WriteString(t.displayName())
	return b.String()
}

func (t *NamedType) displayName() string {
	if t.name != "" {
		return t.name
	}
	switch t.definition.synth {
	case AnonymousType:
		return "<anonymous {" + strings.Join(t.definition.anonymousFields, ", ") + "}>"
	case AnonymousDelegate:
		return "<anonymous delegate>"
	default:
		return "<unnamed>"
	}
}

func (t *NamedType) String() string {
	name := t.FullName()
	switch {
	case len(t.typeArgs) > 0:
		args := make([]string, len(t.typeArgs))
		for i, a := range t.typeArgs {
			args[i] = a.String()
		}
		return name + "<" + strings.Join(args, ", ") + ">"
	case len(t.typeParams) > 0:
		params := make([]string, len(t.typeParams))
		for i, p := range t.typeParams {
			params[i] = p.name
		}
		return name + "<" + strings.Join(params, ", ") + ">"
	default:
		return name
	}
}

func (t *NamedType) addMember(m Symbol) {
	t.members = append(t.members, m)
	switch v := m.(type) {
	case *NamedType:
		t.nested = append(t.nested, v)
	case *Field:
		t.fields = append(t.fields, v)
	case *Method:
		t.methods = append(t.methods, v)
	case *Property:
		t.properties = append(t.properties, v)
	}
}

// DefineNestedType declares a nested type.
func (t *NamedType) DefineNestedType(name string, kind TypeKind, typeParams ...string) *NamedType {
	return t.defineNested(name, kind, NotSynthesized, typeParams)
}

// DefineDisplayClass declares the closure display class for the given method
// and closure scope ordinals.
func (t *NamedType) DefineDisplayClass(methodOrdinal, closureOrdinal int) *NamedType {
	return t.defineNested(generatednames.DisplayClassName(methodOrdinal, closureOrdinal), Class, DisplayClass, nil)
}

// DefineSynthesizedNestedType declares a compiler-generated nested type with an explicit name.
func (t *NamedType) DefineSynthesizedNestedType(name string, kind TypeKind, synth SynthesizedKind) *NamedType {
	return t.defineNested(name, kind, synth, nil)
}

func (t *NamedType) defineNested(name string, kind TypeKind, synth SynthesizedKind, typeParams []string) *NamedType {
	n := newNamedType(t.assembly, t, "", name, kind, synth, typeParams)
	t.addMember(n)
	return n
}

// AddField declares a field.
func (t *NamedType) AddField(name string, typ Type) *Field {
	f := &Field{name: name, container: t, typ: typ}
	t.addMember(f)
	return f
}

// AddMethod declares a method with optional method type parameters. The
// signature is set separately so it can refer to those type parameters.
func (t *NamedType) AddMethod(name string, typeParams ...string) *Method {
	m := &Method{name: name, container: t}
	for i, p := range typeParams {
		m.typeParams = append(m.typeParams, &TypeParameter{name: p, ordinal: i, ownerMethod: m})
	}
	t.addMember(m)
	return m
}

// AddProperty declares a property.
func (t *NamedType) AddProperty(name string, typ Type) *Property {
	p := &Property{name: name, container: t, typ: typ}
	t.addMember(p)
	return p
}

// TypeParameter is a generic parameter of a type or a method.
type TypeParameter struct {
	name        string
	ordinal     int
	ownerType   *NamedType
	ownerMethod *Method
}

func (p *TypeParameter) Kind() Kind                 { return KindTypeParameter }
func (p *TypeParameter) Name() string               { return p.name }
func (p *TypeParameter) Ordinal() int               { return p.ordinal }
func (p *TypeParameter) DeclaringType() *NamedType  { return p.ownerType }
func (p *TypeParameter) DeclaringMethod() *Method   { return p.ownerMethod }
func (p *TypeParameter) Equals(other Type) bool     { return Type(p) == other }
func (p *TypeParameter) String() string             { return p.name }
func (p *TypeParameter) isType()                    {}

func (p *TypeParameter) ContainingType() *NamedType {
	if p.ownerMethod != nil {
		return p.ownerMethod.container
	}
	return p.ownerType
}

func (p *TypeParameter) ContainingAssembly() *Assembly {
	if c := p.ContainingType(); c != nil {
		return c.assembly
	}
	return nil
}

// ArrayType is a single or multi-dimensional array.
type ArrayType struct {
	elem Type
	rank int
}

// NewArray returns an array of elem with the given rank (1 for vectors).
func NewArray(elem Type, rank int) *ArrayType {
	if rank < 1 {
		rank = 1
	}
	return &ArrayType{elem: elem, rank: rank}
}

func (a *ArrayType) Kind() Kind                    { return KindArray }
func (a *ArrayType) Name() string                  { return "" }
func (a *ArrayType) Elem() Type                    { return a.elem }
func (a *ArrayType) Rank() int                     { return a.rank }
func (a *ArrayType) ContainingType() *NamedType    { return nil }
func (a *ArrayType) ContainingAssembly() *Assembly { return a.elem.ContainingAssembly() }
func (a *ArrayType) isType()                       {}

func (a *ArrayType) Equals(other Type) bool {
	o, ok := other.(*ArrayType)
	return ok && a.rank == o.rank && a.elem.Equals(o.elem)
}

func (a *ArrayType) String() string {
	return a.elem.String() + "[" + strings.Repeat(",", a.rank-1) + "]"
}

// PointerType is an unmanaged pointer.
type PointerType struct {
	elem Type
}

// NewPointer returns a pointer to elem.
func NewPointer(elem Type) *PointerType { return &PointerType{elem: elem} }

func (p *PointerType) Kind() Kind                    { return KindPointer }
func (p *PointerType) Name() string                  { return "" }
func (p *PointerType) Elem() Type                    { return p.elem }
func (p *PointerType) ContainingType() *NamedType    { return nil }
func (p *PointerType) ContainingAssembly() *Assembly { return p.elem.ContainingAssembly() }
func (p *PointerType) String() string                { return p.elem.String() + "*" }
func (p *PointerType) isType()                       {}

func (p *PointerType) Equals(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && p.elem.Equals(o.elem)
}
