package symbols

import "strings"

// Field is a field declared on a named type.
type Field struct {
	name      string
	container *NamedType
	typ       Type
}

func (f *Field) Kind() Kind                    { return KindField }
func (f *Field) Name() string                  { return f.name }
func (f *Field) Type() Type                    { return f.typ }
func (f *Field) ContainingType() *NamedType    { return f.container }
func (f *Field) ContainingAssembly() *Assembly { return f.container.assembly }
func (f *Field) String() string                { return f.container.FullName() + "." + f.name }

// Parameter is a method parameter.
type Parameter struct {
	Name string
	Type Type
}

// StateMachineKind distinguishes the lowering applied to a resumable method.
type StateMachineKind int

const (
	Async StateMachineKind = iota
	Iterator
)

func (k StateMachineKind) String() string {
	if k == Iterator {
		return "iterator"
	}
	return "async"
}

// HoistedVariable is a local variable whose value must survive suspension and
// therefore lives in a field of the method's state machine.
type HoistedVariable struct {
	Name string
	Type Type
}

// StateMachineInfo describes the state the front end hoisted out of a
// resumable method body. The state machine type itself is materialized when
// the method is emitted.
type StateMachineInfo struct {
	Kind      StateMachineKind
	Variables []HoistedVariable
}

// Method is a method declared on a named type.
type Method struct {
	name         string
	container    *NamedType
	typeParams   []*TypeParameter
	params       []Parameter
	returns      Type
	static       bool
	stateMachine *StateMachineInfo
	references   []Type
}

func (m *Method) Kind() Kind                         { return KindMethod }
func (m *Method) Name() string                       { return m.name }
func (m *Method) ContainingType() *NamedType         { return m.container }
func (m *Method) ContainingAssembly() *Assembly      { return m.container.assembly }
func (m *Method) TypeParameters() []*TypeParameter   { return m.typeParams }
func (m *Method) Arity() int                         { return len(m.typeParams) }
func (m *Method) Parameters() []Parameter            { return m.params }
func (m *Method) IsStatic() bool                     { return m.static }
func (m *Method) StateMachine() *StateMachineInfo    { return m.stateMachine }
func (m *Method) BodyReferences() []Type             { return m.references }

// ReturnType returns the return type, or nil for methods returning void.
func (m *Method) ReturnType() Type { return m.returns }

// SetSignature sets the return type (nil for void) and parameters.
func (m *Method) SetSignature(returns Type, params ...Parameter) *Method {
	m.returns = returns
	m.params = append([]Parameter(nil), params...)
	return m
}

// SetStatic marks the method static.
func (m *Method) SetStatic(static bool) *Method {
	m.static = static
	return m
}

// SetStateMachine records the hoisted variables of a resumable method.
func (m *Method) SetStateMachine(kind StateMachineKind, vars ...HoistedVariable) *Method {
	m.stateMachine = &StateMachineInfo{Kind: kind, Variables: append([]HoistedVariable(nil), vars...)}
	return m
}

// AddBodyReferences records types referenced from the method body.
func (m *Method) AddBodyReferences(types ...Type) *Method {
	m.references = append(m.references, types...)
	return m
}

// Signature returns a display form of the signature, e.g. "Map<T>(List<T>, int): T".
func (m *Method) Signature() string {
	var b strings.Builder
	b.WriteString(m.name)
	if len(m.typeParams) > 0 {
		names := make([]string, len(m.typeParams))
		for i, p := range m.typeParams {
			names[i] = p.name
		}
		b.WriteString("<" + strings.Join(names, ", ") + ">")
	}
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type.String())
	}
	b.WriteByte(')')
	if m.returns != nil {
		b.WriteString(": " + m.returns.String())
	}
	return b.String()
}

func (m *Method) String() string { return m.container.FullName() + "." + m.Signature() }

// Property is a property declared on a named type.
type Property struct {
	name      string
	container *NamedType
	typ       Type
}

func (p *Property) Kind() Kind                    { return KindProperty }
func (p *Property) Name() string                  { return p.name }
func (p *Property) Type() Type                    { return p.typ }
func (p *Property) ContainingType() *NamedType    { return p.container }
func (p *Property) ContainingAssembly() *Assembly { return p.container.assembly }
func (p *Property) String() string                { return p.container.FullName() + "." + p.name }
