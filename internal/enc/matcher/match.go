package matcher

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

func (m *Matcher) matchDefinition(s symbols.Symbol) symbols.Symbol {
	switch v := s.(type) {
	case *symbols.NamedType:
		if t := m.matchType(v); t != nil {
			return t
		}
	case *symbols.Field:
		if f := m.matchField(v); f != nil {
			return f
		}
	case *symbols.Method:
		if method := m.matchMethod(v); method != nil {
			return method
		}
	case *symbols.Property:
		if p := m.matchProperty(v); p != nil {
			return p
		}
	}
	return nil
}

func (m *Matcher) matchType(t *symbols.NamedType) *symbols.NamedType {
	if t.ContainingAssembly() != m.source {
		// referenced assemblies are shared by identity between universes
		if m.other.Assembly.Sees(t.ContainingAssembly()) {
			return t
		}
		return nil
	}

	var candidate *symbols.NamedType
	if container := t.ContainingType(); container != nil {
		otherContainer := m.mapNamedDefinition(container)
		if otherContainer == nil {
			return nil
		}
		candidate = otherContainer.NestedType(t.Name(), t.Arity())
	} else {
		switch t.Synthesized() {
		case symbols.AnonymousType:
			candidate = m.matchAnonymousType(t)
		case symbols.AnonymousDelegate:
			candidate = m.matchAnonymousDelegate(t)
		case symbols.SynthesizedDelegate:
			if v, ok := m.other.Structural.SynthesizedDelegate(t.MetadataName()); ok {
				candidate = m.owned(v)
			}
		default:
			candidate = m.other.Assembly.LookupType(t.Namespace(), t.MetadataName())
		}
	}

	if candidate == nil || candidate.TypeKind() != t.TypeKind() || candidate.Arity() != t.Arity() {
		return nil
	}
	return candidate
}

// owned returns the type of a structural value when it belongs to the other
// universe. Tables carry entries of older generations whose types live in
// universes the matcher does not target.
func (m *Matcher) owned(v structkey.Value) *symbols.NamedType {
	if v.Type == nil || v.Type.ContainingAssembly() != m.other.Assembly {
		return nil
	}
	return v.Type
}

func (m *Matcher) matchAnonymousType(t *symbols.NamedType) *symbols.NamedType {
	key, ok := structkey.AnonymousTypeKey(t)
	if !ok {
		return nil
	}
	v, ok := m.other.Structural.AnonymousType(key)
	if !ok {
		m.logger.Debug("anonymous type has no counterpart", zap.Stringer("key", key))
		return nil
	}
	return m.owned(v)
}

// matchAnonymousDelegate finds the anonymous delegate of the other universe
// with the same arity and Invoke signature. Indices are not compared: they
// are assigned per compilation and carry no identity.
func (m *Matcher) matchAnonymousDelegate(t *symbols.NamedType) *symbols.NamedType {
	invoke := t.Invoke()
	for _, v := range m.other.Structural.AnonymousDelegates() {
		candidate := m.owned(v)
		if candidate == nil || candidate.Arity() != t.Arity() {
			continue
		}
		other := candidate.Invoke()
		if invoke == nil || other == nil {
			if invoke == nil && other == nil {
				return candidate
			}
			continue
		}
		if m.sameSignature(invoke, other) {
			return candidate
		}
	}
	return nil
}

func (m *Matcher) matchField(f *symbols.Field) *symbols.Field {
	container := m.mapNamedDefinition(f.ContainingType())
	if container == nil {
		return nil
	}
	for _, candidate := range container.Fields() {
		if candidate.Name() == f.Name() && m.sameType(f.Type(), candidate.Type()) {
			return candidate
		}
	}
	return nil
}

func (m *Matcher) matchProperty(p *symbols.Property) *symbols.Property {
	container := m.mapNamedDefinition(p.ContainingType())
	if container == nil {
		return nil
	}
	for _, candidate := range container.Properties() {
		if candidate.Name() == p.Name() && m.sameType(p.Type(), candidate.Type()) {
			return candidate
		}
	}
	return nil
}

func (m *Matcher) matchMethod(method *symbols.Method) *symbols.Method {
	container := m.mapNamedDefinition(method.ContainingType())
	if container == nil {
		return nil
	}
	for _, candidate := range container.Methods() {
		if candidate.Name() != method.Name() || candidate.Arity() != method.Arity() || candidate.IsStatic() != method.IsStatic() {
			continue
		}
		if m.sameSignature(method, candidate) {
			return candidate
		}
	}
	return nil
}

func (m *Matcher) sameSignature(a, b *symbols.Method) bool {
	if len(a.Parameters()) != len(b.Parameters()) || !m.sameType(a.ReturnType(), b.ReturnType()) {
		return false
	}
	for i, p := range a.Parameters() {
		if !m.sameType(p.Type, b.Parameters()[i].Type) {
			return false
		}
	}
	return true
}

// sameType compares a source type expression with a type expression of the
// other universe. Generic parameters are open references and compare by
// position and owner kind; everything else compares through the mapping of
// its definition.
func (m *Matcher) sameType(src, dst symbols.Type) bool {
	if src == nil || dst == nil {
		return src == nil && dst == nil
	}
	switch s := src.(type) {
	case *symbols.TypeParameter:
		d, ok := dst.(*symbols.TypeParameter)
		return ok && s.Ordinal() == d.Ordinal() && (s.DeclaringMethod() == nil) == (d.DeclaringMethod() == nil)
	case *symbols.ArrayType:
		d, ok := dst.(*symbols.ArrayType)
		return ok && s.Rank() == d.Rank() && m.sameType(s.Elem(), d.Elem())
	case *symbols.PointerType:
		d, ok := dst.(*symbols.PointerType)
		return ok && m.sameType(s.Elem(), d.Elem())
	case *symbols.NamedType:
		d, ok := dst.(*symbols.NamedType)
		if !ok || len(s.TypeArguments()) != len(d.TypeArguments()) {
			return false
		}
		def := m.mapNamedDefinition(s.Definition())
		if def == nil || def != d.Definition() {
			return false
		}
		for i, a := range s.TypeArguments() {
			if !m.sameType(a, d.TypeArguments()[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
