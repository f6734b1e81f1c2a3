package metadata

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// Module is an emitted module hydrated into its own symbol universe. The
// universe is distinct from the compilation that produced the module, but
// shares the referenced assemblies passed to Decode.
type Module struct {
	reader   Reader
	assembly *symbols.Assembly
	types    map[TypeDefHandle]*symbols.NamedType
	symbols  map[Handle]symbols.Symbol
	handles  map[symbols.Symbol]Handle
}

// Assembly returns the decoded universe.
func (m *Module) Assembly() *symbols.Assembly { return m.assembly }

// Reader returns the tables the module was decoded from.
func (m *Module) Reader() Reader { return m.reader }

// TypeOf returns the decoded type of a type definition row.
func (m *Module) TypeOf(h TypeDefHandle) (*symbols.NamedType, bool) {
	t, ok := m.types[h]
	return t, ok
}

// SymbolOf returns the decoded definition of a row.
func (m *Module) SymbolOf(h Handle) (symbols.Symbol, bool) {
	s, ok := m.symbols[h]
	return s, ok
}

// HandleOf returns the row of a decoded definition.
func (m *Module) HandleOf(s symbols.Symbol) (Handle, bool) {
	h, ok := m.handles[s]
	return h, ok
}

// Decode hydrates the tables of r into a new symbol universe. External
// signatures are resolved against refs by assembly name.
func Decode(r Reader, refs ...*symbols.Assembly) (*Module, error) {
	d := &decoder{
		r: r,
		m: &Module{
			reader:   r,
			assembly: symbols.NewAssembly(r.AssemblyName(), refs...),
			types:    make(map[TypeDefHandle]*symbols.NamedType),
			symbols:  make(map[Handle]symbols.Symbol),
			handles:  make(map[symbols.Symbol]Handle),
		},
		visiting: make(map[TypeDefHandle]bool),
	}
	for _, h := range r.TypeDefinitions() {
		if _, err := d.defineType(h); err != nil {
			return nil, err
		}
	}
	for _, h := range r.TypeDefinitions() {
		if err := d.defineMembers(h); err != nil {
			return nil, err
		}
	}
	return d.m, nil
}

type decoder struct {
	r        Reader
	m        *Module
	visiting map[TypeDefHandle]bool
}

func (d *decoder) record(s symbols.Symbol, h Handle) {
	d.m.symbols[h] = s
	d.m.handles[s] = h
}

func (d *decoder) defineType(h TypeDefHandle) (*symbols.NamedType, error) {
	if t, ok := d.m.types[h]; ok {
		return t, nil
	}
	if d.visiting[h] {
		return nil, fmt.Errorf("%w: %s encloses itself", ErrMalformed, h.Handle())
	}
	d.visiting[h] = true
	defer delete(d.visiting, h)

	def, err := d.r.TypeDefinition(h)
	if err != nil {
		return nil, err
	}
	var container *symbols.NamedType
	if def.Enclosing != 0 {
		if container, err = d.defineType(def.Enclosing); err != nil {
			return nil, err
		}
	}
	namespace, err := d.r.String(def.Namespace)
	if err != nil {
		return nil, err
	}
	metadataName, err := d.r.String(def.Name)
	if err != nil {
		return nil, err
	}
	params, err := d.genericParameterNames(def.GenericParameters)
	if err != nil {
		return nil, err
	}

	synth := synthesizedKindOf(metadataName, container != nil)
	name := metadataName
	if synth == symbols.NotSynthesized {
		simple, arity := generatednames.UnmangleName(metadataName)
		if arity != len(params) {
			return nil, fmt.Errorf("%w: %s %q declares %d generic parameters", ErrMalformed, h.Handle(), metadataName, len(params))
		}
		name = simple
	}

	t := d.m.assembly.DefineDecodedType(container, namespace, name, typeKindOf(def.Attributes), synth, params...)
	if def.Attributes&TypeEmbeddedInterop != 0 {
		t.SetEmbeddedInterop(true)
	}
	d.m.types[h] = t
	d.record(t, h.Handle())
	return t, nil
}

func (d *decoder) genericParameterNames(handles []GenericParamHandle) ([]string, error) {
	names := make([]string, len(handles))
	for i, gh := range handles {
		gp, err := d.r.GenericParameter(gh)
		if err != nil {
			return nil, err
		}
		if gp.Index != i {
			return nil, fmt.Errorf("%w: %s has index %d at position %d", ErrMalformed, gh.Handle(), gp.Index, i)
		}
		if names[i], err = d.r.String(gp.Name); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func synthesizedKindOf(name string, nested bool) symbols.SynthesizedKind {
	switch {
	case strings.HasPrefix(name, generatednames.AnonymousTypePrefix) && !nested:
		return symbols.AnonymousType
	case strings.HasPrefix(name, generatednames.AnonymousDelegatePrefix) && !nested:
		return symbols.AnonymousDelegate
	case generatednames.IsSynthesizedDelegateName(name):
		return symbols.SynthesizedDelegate
	case generatednames.IsDisplayClassName(name):
		return symbols.DisplayClass
	}
	if _, _, ok := generatednames.ParseStateMachineTypeName(name); ok {
		return symbols.StateMachine
	}
	return symbols.NotSynthesized
}

func typeKindOf(attrs TypeAttributes) symbols.TypeKind {
	switch {
	case attrs&TypeInterface != 0:
		return symbols.Interface
	case attrs&TypeDelegate != 0:
		return symbols.Delegate
	case attrs&TypeEnum != 0:
		return symbols.Enum
	case attrs&TypeValueType != 0:
		return symbols.Struct
	default:
		return symbols.Class
	}
}

func (d *decoder) defineMembers(h TypeDefHandle) error {
	t := d.m.types[h]
	def, err := d.r.TypeDefinition(h)
	if err != nil {
		return err
	}
	for _, fh := range def.Fields {
		fd, err := d.r.FieldDefinition(fh)
		if err != nil {
			return err
		}
		name, err := d.r.String(fd.Name)
		if err != nil {
			return err
		}
		typ, err := d.decodeType(fd.Signature, t, nil)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", t, name, err)
		}
		d.record(t.AddField(name, typ), fh.Handle())
	}
	for _, mh := range def.Methods {
		if err := d.defineMethod(t, mh); err != nil {
			return err
		}
	}
	for _, ph := range def.Properties {
		pd, err := d.r.PropertyDefinition(ph)
		if err != nil {
			return err
		}
		name, err := d.r.String(pd.Name)
		if err != nil {
			return err
		}
		typ, err := d.decodeType(pd.Signature, t, nil)
		if err != nil {
			return fmt.Errorf("property %s.%s: %w", t, name, err)
		}
		d.record(t.AddProperty(name, typ), ph.Handle())
	}
	return nil
}

func (d *decoder) defineMethod(t *symbols.NamedType, mh MethodHandle) error {
	md, err := d.r.MethodDefinition(mh)
	if err != nil {
		return err
	}
	name, err := d.r.String(md.Name)
	if err != nil {
		return err
	}
	params, err := d.genericParameterNames(md.GenericParameters)
	if err != nil {
		return err
	}
	m := t.AddMethod(name, params...)
	m.SetStatic(md.Attributes&MethodStatic != 0)

	ret, err := d.decodeType(md.Signature.Return, t, m)
	if err != nil {
		return fmt.Errorf("method %s.%s: %w", t, name, err)
	}
	if len(md.ParameterNames) != len(md.Signature.Parameters) {
		return fmt.Errorf("%w: %s names %d of %d parameters", ErrMalformed, mh.Handle(), len(md.ParameterNames), len(md.Signature.Parameters))
	}
	ps := make([]symbols.Parameter, len(md.Signature.Parameters))
	for i, sig := range md.Signature.Parameters {
		if ps[i].Name, err = d.r.String(md.ParameterNames[i]); err != nil {
			return err
		}
		if ps[i].Type, err = d.decodeType(sig, t, m); err != nil {
			return fmt.Errorf("method %s.%s: %w", t, name, err)
		}
	}
	m.SetSignature(ret, ps...)
	d.record(m, mh.Handle())
	return nil
}

// decodeType translates a signature into the decoded universe. Var and MVar
// resolve against the generic parameters of owner and method.
func (d *decoder) decodeType(sig *SigType, owner *symbols.NamedType, method *symbols.Method) (symbols.Type, error) {
	if sig == nil {
		return nil, nil
	}
	switch sig.Kind {
	case SigTypeDef:
		t, ok := d.m.types[sig.TypeDef]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadHandle, sig.TypeDef.Handle())
		}
		return t, nil
	case SigExternal:
		return d.resolveExternal(sig)
	case SigVar:
		params := owner.TypeParameters()
		if sig.Index < 0 || sig.Index >= len(params) {
			return nil, fmt.Errorf("%w: !%d outside %s", ErrMalformed, sig.Index, owner)
		}
		return params[sig.Index], nil
	case SigMVar:
		if method == nil || sig.Index < 0 || sig.Index >= method.Arity() {
			return nil, fmt.Errorf("%w: !!%d outside method scope", ErrMalformed, sig.Index)
		}
		return method.TypeParameters()[sig.Index], nil
	case SigArray:
		elem, err := d.decodeType(sig.Elem, owner, method)
		if err != nil {
			return nil, err
		}
		return symbols.NewArray(elem, sig.Index), nil
	case SigPointer:
		elem, err := d.decodeType(sig.Elem, owner, method)
		if err != nil {
			return nil, err
		}
		return symbols.NewPointer(elem), nil
	case SigGenericInst:
		elem, err := d.decodeType(sig.Elem, owner, method)
		if err != nil {
			return nil, err
		}
		def, ok := elem.(*symbols.NamedType)
		if !ok || !def.IsDefinition() || def.Arity() != len(sig.Args) {
			return nil, fmt.Errorf("%w: cannot instantiate %s with %d arguments", ErrMalformed, sig.Elem, len(sig.Args))
		}
		args := make([]symbols.Type, len(sig.Args))
		for i, a := range sig.Args {
			if args[i], err = d.decodeType(a, owner, method); err != nil {
				return nil, err
			}
		}
		return def.Construct(args...), nil
	default:
		return nil, fmt.Errorf("%w: signature kind %d", ErrMalformed, sig.Kind)
	}
}

func (d *decoder) resolveExternal(sig *SigType) (symbols.Type, error) {
	scope := d.m.assembly.Reference(sig.Scope)
	if scope == nil {
		return nil, fmt.Errorf("%w: unknown assembly %q", ErrMalformed, sig.Scope)
	}
	path := strings.Split(sig.Name, "/")
	t := scope.LookupType(sig.Namespace, path[0])
	for _, nested := range path[1:] {
		if t == nil {
			break
		}
		name, arity := generatednames.UnmangleName(nested)
		t = t.NestedType(name, arity)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrMalformed, sig)
	}
	return t, nil
}
