package defmap

import (
	diagnostics "github.com/conduit-lang/livepatch/internal/compiler/errors"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// reportInterop reports added members that reference embedded interop types
// anywhere in their signature or body, including nested type arguments.
func (b *builder) reportInterop() {
	for _, d := range b.m.order {
		if d.Status != StatusAdded {
			continue
		}
		seen := make(map[*symbols.NamedType]bool)
		for _, t := range referencedTypes(d.Symbol) {
			walkInterop(t, func(interop *symbols.NamedType) {
				if seen[interop] {
					return
				}
				seen[interop] = true
				b.report(diagnostics.NewEmbeddedInteropReference(d.Symbol.String(), interop.FullName()))
			})
		}
	}
}

func referencedTypes(s symbols.Symbol) []symbols.Type {
	switch v := s.(type) {
	case *symbols.Field:
		return []symbols.Type{v.Type()}
	case *symbols.Property:
		return []symbols.Type{v.Type()}
	case *symbols.Method:
		out := []symbols.Type{v.ReturnType()}
		for _, p := range v.Parameters() {
			out = append(out, p.Type)
		}
		return append(out, v.BodyReferences()...)
	default:
		return nil
	}
}

func walkInterop(t symbols.Type, found func(*symbols.NamedType)) {
	switch v := t.(type) {
	case *symbols.NamedType:
		if v.IsEmbeddedInterop() {
			found(v.Definition())
		}
		for _, a := range v.TypeArguments() {
			walkInterop(a, found)
		}
	case *symbols.ArrayType:
		walkInterop(v.Elem(), found)
	case *symbols.PointerType:
		walkInterop(v.Elem(), found)
	}
}
