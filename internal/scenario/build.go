package scenario

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

// InteropAssembly is the name of the assembly holding a scenario's interop types.
const InteropAssembly = "Interop"

func parseTypeKind(s string) (symbols.TypeKind, error) {
	switch strings.ToLower(s) {
	case "", "class":
		return symbols.Class, nil
	case "struct":
		return symbols.Struct, nil
	case "interface":
		return symbols.Interface, nil
	case "delegate":
		return symbols.Delegate, nil
	case "enum":
		return symbols.Enum, nil
	default:
		return 0, fmt.Errorf("unknown type kind %q", s)
	}
}

// Interop defines the embedded interop interfaces named by their qualified names.
func Interop(names []string, refs ...*symbols.Assembly) (*symbols.Assembly, error) {
	asm := symbols.NewAssembly(InteropAssembly, refs...)
	for _, n := range names {
		ns, name := symbols.SplitQualifiedName(n)
		if ns == "" || name == "" {
			return nil, fmt.Errorf("%w: interop type %q must be namespace-qualified", ErrInvalidScenario, n)
		}
		asm.DefineType(ns, name, symbols.Interface).SetEmbeddedInterop(true)
	}
	return asm, nil
}

// Compile builds the compilation of one generation.
func Compile(name string, g *Generation, refs ...*symbols.Assembly) (*symbols.Assembly, error) {
	c := &compiler{
		asm:       symbols.NewAssembly(name, refs...),
		anonymous: make(map[structkey.Key]*symbols.NamedType),
	}
	for _, fields := range g.Anonymous {
		c.anonymousType(fields)
	}
	for i := range g.Types {
		if err := c.declare(&g.Types[i], nil); err != nil {
			return nil, err
		}
	}
	for i := range g.Delegates {
		if err := c.declareDelegate(&g.Delegates[i]); err != nil {
			return nil, err
		}
	}
	for _, p := range c.pending {
		if err := p(); err != nil {
			return nil, err
		}
	}
	return c.asm, nil
}

// compiler declares every type of a generation first and binds members
// afterwards, so member types may refer to types declared later.
type compiler struct {
	asm       *symbols.Assembly
	anonymous map[structkey.Key]*symbols.NamedType
	pending   []func() error
}

func (c *compiler) anonymousType(fields []string) *symbols.NamedType {
	key := structkey.KeyOfNames(fields...)
	if t, ok := c.anonymous[key]; ok {
		return t
	}
	t := c.asm.DefineAnonymousType(fields...)
	c.anonymous[key] = t
	return t
}

func (c *compiler) declare(spec *TypeSpec, container *symbols.NamedType) error {
	kind, err := parseTypeKind(spec.Kind)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidScenario, spec.Name, err)
	}

	var t *symbols.NamedType
	if container == nil {
		ns, name := symbols.SplitQualifiedName(spec.Name)
		t = c.asm.DefineType(ns, name, kind, spec.TypeParams...)
	} else {
		t = container.DefineNestedType(spec.Name, kind, spec.TypeParams...)
	}

	for _, cl := range spec.Closures {
		dc := t.DefineDisplayClass(cl.Method, cl.Closure)
		fields := cl.Fields
		c.pending = append(c.pending, func() error {
			return c.defineFields(dc, fields, typeScope(t))
		})
	}
	for i := range spec.Nested {
		if err := c.declare(&spec.Nested[i], t); err != nil {
			return err
		}
	}

	c.pending = append(c.pending, func() error { return c.defineMembers(t, spec) })
	return nil
}

func (c *compiler) declareDelegate(spec *DelegateSpec) error {
	var d *symbols.NamedType
	switch spec.Kind {
	case "anonymous":
		d = c.asm.DefineAnonymousDelegate(spec.TypeParams...)
	case "action", "func":
		name := generatednames.SynthesizedDelegateName(spec.Kind == "func", spec.ByRefMask)
		d = c.asm.DefineSynthesizedType(name, symbols.Delegate, symbols.SynthesizedDelegate, spec.TypeParams...)
	default:
		return fmt.Errorf("%w: unknown delegate kind %q", ErrInvalidScenario, spec.Kind)
	}
	c.pending = append(c.pending, func() error {
		invoke := d.AddMethod("Invoke")
		return c.defineSignature(invoke, spec.Returns, spec.Params, typeScope(d))
	})
	return nil
}

func (c *compiler) defineMembers(t *symbols.NamedType, spec *TypeSpec) error {
	sc := typeScope(t)
	if err := c.defineFields(t, spec.Fields, sc); err != nil {
		return err
	}
	for _, p := range spec.Properties {
		typ, err := c.bindString(p.Type, sc)
		if err != nil {
			return memberError(t, p.Name, err)
		}
		t.AddProperty(p.Name, typ)
	}
	for i := range spec.Methods {
		if err := c.defineMethod(t, &spec.Methods[i], sc); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) defineFields(t *symbols.NamedType, fields []MemberSpec, sc scope) error {
	for _, f := range fields {
		typ, err := c.bindString(f.Type, sc)
		if err != nil {
			return memberError(t, f.Name, err)
		}
		t.AddField(f.Name, typ)
	}
	return nil
}

func (c *compiler) defineMethod(t *symbols.NamedType, spec *MethodSpec, sc scope) error {
	m := t.AddMethod(spec.Name, spec.TypeParams...)
	m.SetStatic(spec.Static)
	sc = sc.with(m.TypeParameters())

	if err := c.defineSignature(m, spec.Returns, spec.Params, sc); err != nil {
		return err
	}

	kind, hoisted := symbols.Async, spec.Async
	if len(spec.Iterator) > 0 {
		kind, hoisted = symbols.Iterator, spec.Iterator
	}
	if len(hoisted) > 0 {
		vars := make([]symbols.HoistedVariable, len(hoisted))
		for i, v := range hoisted {
			typ, err := c.bindString(v.Type, sc)
			if err != nil {
				return memberError(t, spec.Name+"/"+v.Name, err)
			}
			vars[i] = symbols.HoistedVariable{Name: v.Name, Type: typ}
		}
		m.SetStateMachine(kind, vars...)
	}

	for _, r := range spec.References {
		typ, err := c.bindString(r, sc)
		if err != nil {
			return memberError(t, spec.Name, err)
		}
		m.AddBodyReferences(typ)
	}
	return nil
}

func (c *compiler) defineSignature(m *symbols.Method, returns string, params []MemberSpec, sc scope) error {
	var ret symbols.Type
	if returns != "" && returns != "void" {
		var err error
		if ret, err = c.bindString(returns, sc); err != nil {
			return memberError(m.ContainingType(), m.Name(), err)
		}
	}
	ps := make([]symbols.Parameter, len(params))
	for i, p := range params {
		typ, err := c.bindString(p.Type, sc)
		if err != nil {
			return memberError(m.ContainingType(), m.Name()+"("+p.Name+")", err)
		}
		ps[i] = symbols.Parameter{Name: p.Name, Type: typ}
	}
	m.SetSignature(ret, ps...)
	return nil
}

func memberError(t *symbols.NamedType, member string, err error) error {
	return fmt.Errorf("%w: %s.%s: %v", ErrInvalidScenario, t.FullName(), member, err)
}

// scope is the list of type parameters visible at a point, innermost last.
type scope []*symbols.TypeParameter

func typeScope(t *symbols.NamedType) scope {
	var chain []*symbols.NamedType
	for n := t; n != nil; n = n.ContainingType() {
		chain = append(chain, n)
	}
	var sc scope
	for i := len(chain) - 1; i >= 0; i-- {
		sc = append(sc, chain[i].TypeParameters()...)
	}
	return sc
}

func (sc scope) with(params []*symbols.TypeParameter) scope {
	return append(append(scope(nil), sc...), params...)
}

func (sc scope) lookup(name string) *symbols.TypeParameter {
	for i := len(sc) - 1; i >= 0; i-- {
		if sc[i].Name() == name {
			return sc[i]
		}
	}
	return nil
}

func (c *compiler) bindString(expr string, sc scope) (symbols.Type, error) {
	if expr == "" {
		return nil, fmt.Errorf("missing type")
	}
	e, err := ParseTypeExpr(expr)
	if err != nil {
		return nil, err
	}
	return c.bind(e, sc)
}

// bind resolves a type expression. Unqualified names are looked up as type
// parameters, then keywords, then by simple name in the compilation and its
// references in that order.
func (c *compiler) bind(e *TypeExpr, sc scope) (symbols.Type, error) {
	switch {
	case e.Elem != nil:
		elem, err := c.bind(e.Elem, sc)
		if err != nil {
			return nil, err
		}
		if e.Rank == 0 {
			return symbols.NewPointer(elem), nil
		}
		return symbols.NewArray(elem, e.Rank), nil
	case e.Fields != nil:
		return c.anonymousType(e.Fields), nil
	}

	if len(e.Args) == 0 {
		if p := sc.lookup(e.Name); p != nil {
			return p, nil
		}
		if q, ok := symbols.Keywords[e.Name]; ok {
			if t := c.asm.Resolve(q); t != nil {
				return t, nil
			}
			return nil, fmt.Errorf("keyword %q requires the core library", e.Name)
		}
	}

	def, err := c.lookup(e.Name, len(e.Args))
	if err != nil {
		return nil, err
	}
	if len(e.Args) == 0 {
		return def, nil
	}
	args := make([]symbols.Type, len(e.Args))
	for i, a := range e.Args {
		if args[i], err = c.bind(a, sc); err != nil {
			return nil, err
		}
	}
	return def.Construct(args...), nil
}

// lookup finds a type definition by name and arity. Nested types follow their
// container after a '/'; containers carry their arity as a metadata suffix
// ("App.Outer`1/Inner") and the last segment takes the arity of the expression.
func (c *compiler) lookup(name string, arity int) (*symbols.NamedType, error) {
	parts := strings.Split(name, "/")
	segment := func(i int) (string, int) {
		if i == len(parts)-1 {
			return parts[i], arity
		}
		return generatednames.UnmangleName(parts[i])
	}

	outer, a := segment(0)
	t := c.lookupTopLevel(outer, a)
	if t == nil {
		return nil, fmt.Errorf("unknown type %s", generatednames.MangleName(outer, a))
	}
	for i := 1; i < len(parts); i++ {
		part, a := segment(i)
		n := t.NestedType(part, a)
		if n == nil {
			return nil, fmt.Errorf("type %s has no nested type %s", t.FullName(), generatednames.MangleName(part, a))
		}
		t = n
	}
	return t, nil
}

func (c *compiler) lookupTopLevel(name string, arity int) *symbols.NamedType {
	qualified := strings.Contains(name, ".")
	search := func(asm *symbols.Assembly) *symbols.NamedType {
		for _, t := range asm.Types() {
			if t.Name() == "" || t.Arity() != arity {
				continue
			}
			if (qualified && t.FullName() == name) || (!qualified && t.Name() == name) {
				return t
			}
		}
		return nil
	}
	if t := search(c.asm); t != nil {
		return t
	}
	for _, r := range c.asm.References() {
		if t := search(r); t != nil {
			return t
		}
	}
	return nil
}
