package structkey

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// Resolver hydrates a type definition row into a live symbol.
type Resolver func(h metadata.TypeDefHandle) (*symbols.NamedType, bool)

// Extract scans the top-level, non-namespaced type definitions of a module
// once and builds its structural table. Entries whose names or generic
// parameter names do not follow the generated-name convention, and entries
// whose key was already seen, are skipped individually. Errors are returned
// only when the tables themselves cannot be read.
func Extract(r metadata.Reader, resolve Resolver, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Table{
		anonymousTypes:       make(map[Key]Value),
		anonymousDelegates:   make(map[string]Value),
		synthesizedDelegates: make(map[string]Value),
	}

	for _, h := range r.TypeDefinitions() {
		def, err := r.TypeDefinition(h)
		if err != nil {
			return nil, err
		}
		if def.Enclosing != 0 {
			continue
		}
		namespace, err := r.String(def.Namespace)
		if err != nil {
			return nil, err
		}
		if namespace != "" {
			continue
		}
		if !r.StartsWith(def.Name, generatednames.AnonymousPrefix) &&
			!r.StartsWith(def.Name, generatednames.ActionDelegatePrefix) &&
			!r.StartsWith(def.Name, generatednames.FuncDelegatePrefix) {
			continue
		}

		metadataName, err := r.String(def.Name)
		if err != nil {
			return nil, err
		}
		name, _ := generatednames.UnmangleName(metadataName)

		if index, ok := generatednames.ParseAnonymousTypeIndex(name); ok {
			key, ok, err := anonymousTypeKey(r, def)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Debug("skipping anonymous type with unparsable parameter names", zap.String("type", metadataName))
				continue
			}
			if _, dup := t.anonymousTypes[key]; dup {
				logger.Debug("skipping duplicate anonymous type key", zap.String("type", metadataName), zap.Stringer("key", key))
				continue
			}
			v, err := value(resolve, h, name, index)
			if err != nil {
				return nil, err
			}
			t.anonymousTypes[key] = v
			continue
		}

		if index, ok := generatednames.ParseAnonymousDelegateIndex(name); ok {
			if _, dup := t.anonymousDelegates[name]; dup {
				continue
			}
			v, err := value(resolve, h, name, index)
			if err != nil {
				return nil, err
			}
			t.anonymousDelegates[name] = v
			continue
		}

		if generatednames.IsSynthesizedDelegateName(metadataName) {
			if _, dup := t.synthesizedDelegates[metadataName]; dup {
				continue
			}
			v, err := value(resolve, h, metadataName, 0)
			if err != nil {
				return nil, err
			}
			t.synthesizedDelegates[metadataName] = v
			continue
		}

		logger.Debug("skipping unrecognized generated type", zap.String("type", metadataName))
	}
	return t, nil
}

func anonymousTypeKey(r metadata.Reader, def metadata.TypeDefinition) (Key, bool, error) {
	fields := make([]Field, 0, len(def.GenericParameters))
	for _, gh := range def.GenericParameters {
		gp, err := r.GenericParameter(gh)
		if err != nil {
			return Key{}, false, err
		}
		pname, err := r.String(gp.Name)
		if err != nil {
			return Key{}, false, err
		}
		field, ok := generatednames.ParseAnonymousTypeParameterName(pname)
		if !ok {
			return Key{}, false, nil
		}
		fields = append(fields, Field{Name: field})
	}
	return NewKey(fields...), true, nil
}

func value(resolve Resolver, h metadata.TypeDefHandle, name string, index int) (Value, error) {
	typ, ok := resolve(h)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s does not decode", metadata.ErrMalformed, h.Handle())
	}
	return Value{Name: name, Index: index, Type: typ, Handle: h}, nil
}
