package metadata

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

func sampleCompilation(core *symbols.Assembly) *symbols.Assembly {
	asm := symbols.NewAssembly("App", core)
	intType := core.Resolve("System.Int32")
	list := core.Resolve("System.Collections.Generic.List`1")
	task := core.Resolve("System.Threading.Tasks.Task")

	program := asm.DefineType("App", "Program", symbols.Class)
	program.AddField("count", intType)
	mapper := program.AddMethod("Map", "T")
	mapper.SetSignature(mapper.TypeParameters()[0], symbols.Parameter{Name: "items", Type: list.Construct(mapper.TypeParameters()[0])})
	run := program.AddMethod("RunAsync").SetStatic(true)
	run.SetSignature(task)
	run.SetStateMachine(symbols.Async, symbols.HoistedVariable{Name: "total", Type: intType})

	box := asm.DefineType("App", "Box", symbols.Class, "T")
	box.AddProperty("Value", box.TypeParameters()[0])
	box.DefineNestedType("Inner", symbols.Struct)

	asm.DefineAnonymousType("X", "Y")
	asm.DefineAnonymousType("Name")
	return asm
}

func TestEmitAssignsRowsInDeclarationOrder(t *testing.T) {
	core := symbols.NewCoreLibrary()
	asm := sampleCompilation(core)

	em, err := Emit(asm, uuid.New())
	require.NoError(t, err)
	img := em.Image

	program := asm.LookupType("App", "Program")
	assert.Equal(t, TypeDefHandle(1).Handle(), em.Handles[program])
	assert.Equal(t, "<>f__AnonymousType0", em.Names[asm.Types()[2]])
	assert.Equal(t, "<>f__AnonymousType1", em.Names[asm.Types()[3]])

	// Program, Box, Inner, two anonymous types and the state machine of RunAsync
	assert.Equal(t, 6, img.RowCount(TableTypeDef))
	assert.Equal(t, 2, img.RowCount(TableMethod))

	sm, err := img.TypeDefinition(6)
	require.NoError(t, err)
	name, err := img.String(sm.Name)
	require.NoError(t, err)
	assert.Equal(t, "<RunAsync>d__2", name)
	assert.Equal(t, TypeDefHandle(1), sm.Enclosing)
	require.Len(t, sm.Fields, 1)

	field, err := img.FieldDefinition(sm.Fields[0])
	require.NoError(t, err)
	assert.True(t, img.StartsWith(field.Name, "<total>5__"))
}

func TestDecodeBuildsDistinctUniverse(t *testing.T) {
	core := symbols.NewCoreLibrary()
	asm := sampleCompilation(core)

	em, err := Emit(asm, uuid.New())
	require.NoError(t, err)

	mod, err := Decode(em.Image, core)
	require.NoError(t, err)

	decoded := mod.Assembly().LookupType("App", "Program")
	require.NotNil(t, decoded)
	assert.NotSame(t, asm.LookupType("App", "Program"), decoded)

	h, ok := mod.HandleOf(decoded)
	require.True(t, ok)
	assert.Equal(t, TypeDefHandle(1).Handle(), h)

	methods := decoded.Methods()
	require.Len(t, methods, 2)
	assert.Equal(t, "Map", methods[0].Name())
	assert.Equal(t, 1, methods[0].Arity())
	assert.True(t, methods[1].IsStatic())

	// external references map to the shared core library by identity
	param := methods[0].Parameters()[0].Type.(*symbols.NamedType)
	assert.Same(t, core.Resolve("System.Collections.Generic.List`1"), param.Definition())
	assert.Same(t, methods[0].TypeParameters()[0], param.TypeArguments()[0])

	box := mod.Assembly().LookupType("App", "Box`1")
	require.NotNil(t, box)
	assert.NotNil(t, box.NestedType("Inner", 0))

	anon, ok := mod.TypeOf(4)
	require.True(t, ok)
	assert.Equal(t, symbols.AnonymousType, anon.Synthesized())
	assert.Equal(t, []string{"X", "Y"}, anon.AnonymousFields())

	sm := decoded.NestedType("<RunAsync>d__2", 0)
	require.NotNil(t, sm)
	assert.Equal(t, symbols.StateMachine, sm.Synthesized())
}

func TestDecodeRejectsMalformedImages(t *testing.T) {
	core := symbols.NewCoreLibrary()

	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{
			name: "dangling type reference",
			build: func(b *Builder) {
				h := b.AddTypeDefinition("App", "C", 0, 0)
				b.AddField(h, "f", TypeDefSig(42))
			},
		},
		{
			name: "arity mismatch",
			build: func(b *Builder) {
				b.AddTypeDefinition("App", "C`2", 0, 0)
			},
		},
		{
			name: "unknown scope",
			build: func(b *Builder) {
				h := b.AddTypeDefinition("App", "C", 0, 0)
				b.AddField(h, "f", ExternalSig("Missing", "System", "Int32"))
			},
		},
		{
			name: "type parameter out of range",
			build: func(b *Builder) {
				h := b.AddTypeDefinition("App", "C", 0, 0)
				b.AddField(h, "f", VarSig(0))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("App", uuid.New())
			tt.build(b)
			_, err := Decode(b.Image(), core)
			assert.Error(t, err)
		})
	}
}

func TestImageBadHandles(t *testing.T) {
	img := NewBuilder("App", uuid.Nil).Image()

	_, err := img.TypeDefinition(1)
	assert.ErrorIs(t, err, ErrBadHandle)
	_, err = img.String(7)
	assert.ErrorIs(t, err, ErrBadHandle)
	assert.False(t, img.StartsWith(7, ""))
	assert.Equal(t, 0, img.RowCount(TableField))
}

func TestSigTypeEqual(t *testing.T) {
	list := ExternalSig("System.Runtime", "System.Collections.Generic", "List`1")

	assert.True(t, GenericInstSig(list, TypeDefSig(3)).Equal(GenericInstSig(list, TypeDefSig(3))))
	assert.False(t, GenericInstSig(list, TypeDefSig(3)).Equal(GenericInstSig(list, TypeDefSig(4))))
	assert.False(t, VarSig(0).Equal(MVarSig(0)))
	assert.True(t, (*SigType)(nil).Equal(nil))
	assert.Equal(t, "[System.Runtime]System.Collections.Generic.List`1<typedef#3>", GenericInstSig(list, TypeDefSig(3)).String())
}
