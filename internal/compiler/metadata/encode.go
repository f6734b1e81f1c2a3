package metadata

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// ErrUnresolvedType is returned when a definition of the module being encoded
// has no type definition row.
var ErrUnresolvedType = errors.New("metadata: type has no definition row")

// TypeResolver maps a type definition of the encoded assembly to its row.
type TypeResolver func(def *symbols.NamedType) (TypeDefHandle, bool)

// EncodeType translates a type expression into a signature. Definitions owned
// by home are resolved through resolve; definitions of any other assembly are
// encoded by scope and name.
func EncodeType(t symbols.Type, home *symbols.Assembly, resolve TypeResolver) (*SigType, error) {
	switch v := t.(type) {
	case nil:
		return nil, nil
	case *symbols.TypeParameter:
		if v.DeclaringMethod() != nil {
			return MVarSig(v.Ordinal()), nil
		}
		return VarSig(v.Ordinal()), nil
	case *symbols.ArrayType:
		elem, err := EncodeType(v.Elem(), home, resolve)
		if err != nil {
			return nil, err
		}
		return ArraySig(elem, v.Rank()), nil
	case *symbols.PointerType:
		elem, err := EncodeType(v.Elem(), home, resolve)
		if err != nil {
			return nil, err
		}
		return PointerSig(elem), nil
	case *symbols.NamedType:
		def, err := encodeDefinition(v.Definition(), home, resolve)
		if err != nil {
			return nil, err
		}
		if !v.IsConstructed() {
			return def, nil
		}
		args := make([]*SigType, len(v.TypeArguments()))
		for i, a := range v.TypeArguments() {
			if args[i], err = EncodeType(a, home, resolve); err != nil {
				return nil, err
			}
		}
		return GenericInstSig(def, args...), nil
	default:
		return nil, fmt.Errorf("metadata: cannot encode %T", t)
	}
}

func encodeDefinition(def *symbols.NamedType, home *symbols.Assembly, resolve TypeResolver) (*SigType, error) {
	if def.ContainingAssembly() == home {
		h, ok := resolve(def)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedType, def)
		}
		return TypeDefSig(h), nil
	}
	namespace, name := externalName(def)
	return ExternalSig(def.ContainingAssembly().Name(), namespace, name), nil
}

// externalName returns the namespace of the outermost type and the
// slash-separated metadata names of the nesting chain.
func externalName(def *symbols.NamedType) (string, string) {
	name := def.MetadataName()
	for c := def.ContainingType(); c != nil; c = c.ContainingType() {
		name = c.MetadataName() + "/" + name
		def = c
	}
	return def.Namespace(), name
}

// EncodeMethodSignature translates the return and parameter types of a method.
func EncodeMethodSignature(m *symbols.Method, home *symbols.Assembly, resolve TypeResolver) (MethodSignature, error) {
	ret, err := EncodeType(m.ReturnType(), home, resolve)
	if err != nil {
		return MethodSignature{}, err
	}
	sig := MethodSignature{Return: ret, Parameters: make([]*SigType, len(m.Parameters()))}
	for i, p := range m.Parameters() {
		if sig.Parameters[i], err = EncodeType(p.Type, home, resolve); err != nil {
			return MethodSignature{}, err
		}
	}
	return sig, nil
}
