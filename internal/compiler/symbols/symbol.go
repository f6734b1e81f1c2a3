// Package symbols models the bound program elements the edit-and-continue
// layer consumes from the front end: assemblies, named and constructed types,
// type parameters, arrays, pointers and the members declared on types.
//
// A symbol tree is built once through the Define*/Add* methods and is treated
// as immutable afterwards. Definitions are compared by identity; constructed,
// array and pointer types are compared structurally through Type.Equals.
package symbols

// Kind identifies the kind of a symbol.
type Kind int

const (
	KindNamedType Kind = iota
	KindTypeParameter
	KindArray
	KindPointer
	KindField
	KindMethod
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindNamedType:
		return "type"
	case KindTypeParameter:
		return "type parameter"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	default:
		return "unknown"
	}
}

// Symbol is any program element of a compilation or a decoded module.
type Symbol interface {
	// Kind returns the kind of the symbol
	Kind() Kind

	// Name returns the simple name, without generic arity or arguments
	Name() string

	// ContainingType returns the type that declares the symbol, or nil
	ContainingType() *NamedType

	// ContainingAssembly returns the assembly the symbol belongs to. Arrays and
	// pointers report the assembly of their element type.
	ContainingAssembly() *Assembly

	// String returns a display form used in logs and diagnostics
	String() string
}

// Type is a symbol that can appear in a type expression.
type Type interface {
	Symbol

	// Equals reports structural equality. Definitions are equal only to
	// themselves; constructed types compare their definition and every
	// type argument recursively.
	Equals(other Type) bool

	isType()
}

// TypeKind distinguishes the flavors of named types.
type TypeKind int

const (
	Class TypeKind = iota
	Struct
	Interface
	Delegate
	Enum
)

func (k TypeKind) String() string {
	switch k {
	case Class:
		return "class"
	case Struct:
		return "struct"
	case Interface:
		return "interface"
	case Delegate:
		return "delegate"
	case Enum:
		return "enum"
	default:
		return "unknown"
	}
}

// SynthesizedKind identifies types the compiler creates without a source name.
type SynthesizedKind int

const (
	NotSynthesized SynthesizedKind = iota
	// AnonymousType is a record-like type keyed by its ordered property names
	AnonymousType
	// AnonymousDelegate is a delegate whose name is an emission index
	AnonymousDelegate
	// SynthesizedDelegate is a delegate whose name encodes its shape
	SynthesizedDelegate
	// DisplayClass holds variables captured by closures
	DisplayClass
	// StateMachine holds the hoisted variables of an async or iterator method
	StateMachine
)

func (k SynthesizedKind) String() string {
	switch k {
	case NotSynthesized:
		return "source"
	case AnonymousType:
		return "anonymous type"
	case AnonymousDelegate:
		return "anonymous delegate"
	case SynthesizedDelegate:
		return "synthesized delegate"
	case DisplayClass:
		return "display class"
	case StateMachine:
		return "state machine"
	default:
		return "unknown"
	}
}

// IsDefinition reports whether s is a definition that can own a metadata row
// (named type definitions and members). Constructed types, arrays, pointers and
// type parameters are not definitions.
func IsDefinition(s Symbol) bool {
	switch v := s.(type) {
	case *NamedType:
		return v.IsDefinition()
	case *Field, *Method, *Property:
		return true
	default:
		return false
	}
}
