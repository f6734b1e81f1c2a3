package metadata

import (
	"strconv"
	"strings"
)

// SigKind identifies the shape of a signature node.
type SigKind uint8

const (
	// SigTypeDef references a type definition of the module by handle
	SigTypeDef SigKind = iota + 1
	// SigExternal references a type of a referenced assembly by name
	SigExternal
	// SigGenericInst applies Args to the generic definition in Elem
	SigGenericInst
	// SigVar is a generic parameter of the enclosing type
	SigVar
	// SigMVar is a generic parameter of the enclosing method
	SigMVar
	// SigArray is an array of Elem with rank Index
	SigArray
	// SigPointer is a pointer to Elem
	SigPointer
)

// SigType is a node of a type signature. Signatures are the comparison
// universe of the module: two type expressions from different compilations
// denote the same emitted type exactly when their signatures are Equal.
type SigType struct {
	Kind SigKind

	// TypeDef is set for SigTypeDef.
	TypeDef TypeDefHandle

	// Scope, Namespace and Name are set for SigExternal. Name is the metadata name.
	Scope     string
	Namespace string
	Name      string

	// Index is the generic parameter ordinal for SigVar/SigMVar and the rank for SigArray.
	Index int

	Elem *SigType
	Args []*SigType
}

// Equal reports deep structural equality.
func (s *SigType) Equal(o *SigType) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SigTypeDef:
		return s.TypeDef == o.TypeDef
	case SigExternal:
		return s.Scope == o.Scope && s.Namespace == o.Namespace && s.Name == o.Name
	case SigVar, SigMVar:
		return s.Index == o.Index
	case SigArray:
		return s.Index == o.Index && s.Elem.Equal(o.Elem)
	case SigPointer:
		return s.Elem.Equal(o.Elem)
	case SigGenericInst:
		if !s.Elem.Equal(o.Elem) || len(s.Args) != len(o.Args) {
			return false
		}
		for i := range s.Args {
			if !s.Args[i].Equal(o.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (s *SigType) String() string {
	if s == nil {
		return "void"
	}
	switch s.Kind {
	case SigTypeDef:
		return "typedef#" + strconv.FormatUint(uint64(s.TypeDef), 10)
	case SigExternal:
		name := s.Name
		if s.Namespace != "" {
			name = s.Namespace + "." + name
		}
		return "[" + s.Scope + "]" + name
	case SigVar:
		return "!" + strconv.Itoa(s.Index)
	case SigMVar:
		return "!!" + strconv.Itoa(s.Index)
	case SigArray:
		return s.Elem.String() + "[" + strings.Repeat(",", s.Index-1) + "]"
	case SigPointer:
		return s.Elem.String() + "*"
	case SigGenericInst:
		args := make([]string, len(s.Args))
		for i, a := range s.Args {
			args[i] = a.String()
		}
		return s.Elem.String() + "<" + strings.Join(args, ",") + ">"
	default:
		return "?"
	}
}

// TypeDefSig returns a signature referencing a type definition.
func TypeDefSig(h TypeDefHandle) *SigType { return &SigType{Kind: SigTypeDef, TypeDef: h} }

// ExternalSig returns a signature referencing a type of another assembly.
func ExternalSig(scope, namespace, metadataName string) *SigType {
	return &SigType{Kind: SigExternal, Scope: scope, Namespace: namespace, Name: metadataName}
}

// GenericInstSig returns a signature applying args to a generic definition.
func GenericInstSig(def *SigType, args ...*SigType) *SigType {
	return &SigType{Kind: SigGenericInst, Elem: def, Args: args}
}

// VarSig returns a type generic parameter reference.
func VarSig(index int) *SigType { return &SigType{Kind: SigVar, Index: index} }

// MVarSig returns a method generic parameter reference.
func MVarSig(index int) *SigType { return &SigType{Kind: SigMVar, Index: index} }

// ArraySig returns an array signature.
func ArraySig(elem *SigType, rank int) *SigType { return &SigType{Kind: SigArray, Elem: elem, Index: rank} }

// PointerSig returns a pointer signature.
func PointerSig(elem *SigType) *SigType { return &SigType{Kind: SigPointer, Elem: elem} }

// MethodSignature is the return type (nil for void) and parameter types of a method.
type MethodSignature struct {
	Return     *SigType
	Parameters []*SigType
}

// Equal reports deep equality of two method signatures.
func (m MethodSignature) Equal(o MethodSignature) bool {
	if !m.Return.Equal(o.Return) || len(m.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range m.Parameters {
		if !m.Parameters[i].Equal(o.Parameters[i]) {
			return false
		}
	}
	return true
}

func (m MethodSignature) String() string {
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		params[i] = p.String()
	}
	return "(" + strings.Join(params, ",") + ")" + m.Return.String()
}
