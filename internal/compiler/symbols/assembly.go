package symbols

import (
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
)

// Assembly is a symbol universe: the types of one compilation or one decoded
// module, plus the assemblies it references. Types from referenced assemblies
// are shared by identity between every universe that references them.
type Assembly struct {
	name       string
	references []*Assembly
	types      []*NamedType
	byName     map[string]*NamedType
}

// NewAssembly creates an empty assembly.
func NewAssembly(name string, references ...*Assembly) *Assembly {
	return &Assembly{
		name:       name,
		references: append([]*Assembly(nil), references...),
		byName:     make(map[string]*NamedType),
	}
}

// Name returns the assembly name.
func (a *Assembly) Name() string { return a.name }

// References returns the referenced assemblies.
func (a *Assembly) References() []*Assembly { return a.references }

// Sees reports whether other is the assembly itself or one of its references.
func (a *Assembly) Sees(other *Assembly) bool {
	if a == other {
		return true
	}
	for _, r := range a.references {
		if r == other {
			return true
		}
	}
	return false
}

// Reference returns the referenced assembly with the given name, or nil.
func (a *Assembly) Reference(name string) *Assembly {
	for _, r := range a.references {
		if r.name == name {
			return r
		}
	}
	return nil
}

// Types returns the top-level types in declaration order.
func (a *Assembly) Types() []*NamedType { return a.types }

// AllTypes returns every type definition, nested types following their
// container, in declaration order.
func (a *Assembly) AllTypes() []*NamedType {
	var out []*NamedType
	var walk func(t *NamedType)
	walk = func(t *NamedType) {
		out = append(out, t)
		for _, n := range t.nested {
			walk(n)
		}
	}
	for _, t := range a.types {
		walk(t)
	}
	return out
}

// Definitions returns every definition of the assembly: each type followed by
// its fields, methods and properties, nested types after their container.
func (a *Assembly) Definitions() []Symbol {
	var out []Symbol
	for _, t := range a.AllTypes() {
		out = append(out, t)
		for _, m := range t.members {
			if _, nested := m.(*NamedType); nested {
				continue
			}
			out = append(out, m)
		}
	}
	return out
}

// LookupType finds a top-level type by namespace and metadata name ("List`1").
func (a *Assembly) LookupType(namespace, metadataName string) *NamedType {
	return a.byName[qualify(namespace, metadataName)]
}

// Resolve finds a top-level type by its qualified metadata name, searching the
// assembly first and then its references.
func (a *Assembly) Resolve(qualifiedName string) *NamedType {
	if t, ok := a.byName[qualifiedName]; ok {
		return t
	}
	for _, r := range a.references {
		if t, ok := r.byName[qualifiedName]; ok {
			return t
		}
	}
	return nil
}

// DefineType declares a top-level type.
func (a *Assembly) DefineType(namespace, name string, kind TypeKind, typeParams ...string) *NamedType {
	t := newNamedType(a, nil, namespace, name, kind, NotSynthesized, typeParams)
	a.addType(t)
	return t
}

// DefineSynthesizedType declares a top-level compiler-generated type with a known name.
func (a *Assembly) DefineSynthesizedType(name string, kind TypeKind, synth SynthesizedKind, typeParams ...string) *NamedType {
	t := newNamedType(a, nil, "", name, kind, synth, typeParams)
	a.addType(t)
	return t
}

// DefineAnonymousType declares an anonymous type template with one type
// parameter per property. Templates are unnamed until emission assigns an
// index, so they are not reachable through LookupType.
func (a *Assembly) DefineAnonymousType(fields ...string) *NamedType {
	params := make([]string, len(fields))
	for i, f := range fields {
		params[i] = generatednames.AnonymousTypeParameterName(f)
	}
	t := newNamedType(a, nil, "", "", Class, AnonymousType, params)
	t.anonymousFields = append([]string(nil), fields...)
	for i, f := range fields {
		t.AddProperty(f, t.typeParams[i])
	}
	a.types = append(a.types, t)
	return t
}

// DefineAnonymousDelegate declares an anonymous delegate template. Its Invoke
// method is declared by the caller on the returned type.
func (a *Assembly) DefineAnonymousDelegate(typeParams ...string) *NamedType {
	t := newNamedType(a, nil, "", "", Delegate, AnonymousDelegate, typeParams)
	a.types = append(a.types, t)
	return t
}

// DefineDecodedType declares a type read back from metadata. Top-level types
// pass a nil container. Anonymous type templates recover their property names
// from their generic parameter names when those are well formed.
func (a *Assembly) DefineDecodedType(container *NamedType, namespace, name string, kind TypeKind, synth SynthesizedKind, typeParams ...string) *NamedType {
	if container != nil {
		return container.defineNested(name, kind, synth, typeParams)
	}
	t := newNamedType(a, nil, namespace, name, kind, synth, typeParams)
	if synth == AnonymousType {
		fields := make([]string, 0, len(typeParams))
		for _, p := range typeParams {
			f, ok := generatednames.ParseAnonymousTypeParameterName(p)
			if !ok {
				fields = nil
				break
			}
			fields = append(fields, f)
		}
		t.anonymousFields = fields
	}
	a.addType(t)
	return t
}

func (a *Assembly) addType(t *NamedType) {
	a.types = append(a.types, t)
	a.byName[qualify(t.namespace, t.MetadataName())] = t
}

func qualify(namespace, metadataName string) string {
	if namespace == "" {
		return metadataName
	}
	return namespace + "." + metadataName
}

// SplitQualifiedName splits "System.Collections.Generic.List`1" into its
// namespace and metadata name.
func SplitQualifiedName(qualified string) (string, string) {
	i := strings.LastIndexByte(qualified, '.')
	if i < 0 {
		return "", qualified
	}
	return qualified[:i], qualified[i+1:]
}
