package structkey

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

func addAnonymous(b *metadata.Builder, namespace, name string, params ...string) metadata.TypeDefHandle {
	h := b.AddTypeDefinition(namespace, name, metadata.TypeCompilerGenerated, 0)
	for _, p := range params {
		b.AddGenericParameter(h.Handle(), p)
	}
	return h
}

func extractFrom(t *testing.T, b *metadata.Builder) (*Table, *metadata.Module) {
	t.Helper()
	img := b.Image()
	mod, err := metadata.Decode(img, symbols.NewCoreLibrary())
	require.NoError(t, err)
	table, err := Extract(img, mod.TypeOf, zap.NewNop())
	require.NoError(t, err)
	return table, mod
}

func TestExtractRecoversAnonymousTypeKeys(t *testing.T) {
	b := metadata.NewBuilder("App", uuid.New())
	first := addAnonymous(b, "", "<>f__AnonymousType0`2", "<X>j__TPar", "<Y>j__TPar")
	addAnonymous(b, "", "<>f__AnonymousType1#1", "<X>j__TPar")
	addAnonymous(b, "", "<>f__AnonymousType2", "T")
	addAnonymous(b, "App", "<>f__AnonymousType3", "<Z>j__TPar")
	addAnonymous(b, "", "<>f__AnonymousType4", "<X>j__TPar", "<Y>j__TPar")
	addAnonymous(b, "", "<>f__AnonymousType5", "<Name>j__TPar")
	b.AddTypeDefinition("App", "Program", 0, 0)

	table, mod := extractFrom(t, b)

	v, ok := table.AnonymousType(KeyOfNames("X", "Y"))
	require.True(t, ok)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, "<>f__AnonymousType0", v.Name)
	assert.Equal(t, first, v.Handle)
	typ, _ := mod.TypeOf(first)
	assert.Same(t, typ, v.Type)

	v, ok = table.AnonymousType(KeyOfNames("Name"))
	require.True(t, ok)
	assert.Equal(t, 5, v.Index)

	_, ok = table.AnonymousType(KeyOfNames("X"))
	assert.False(t, ok, "submission suffixed names are skipped")
	_, ok = table.AnonymousType(KeyOfNames("Z"))
	assert.False(t, ok, "namespaced types are skipped")

	assert.Len(t, table.AnonymousTypes(), 2)
	assert.Equal(t, 6, table.NextAnonymousTypeIndex())
}

func TestExtractDelegates(t *testing.T) {
	b := metadata.NewBuilder("App", uuid.New())
	addAnonymous(b, "", "<>A{00000000}", "T1")
	addAnonymous(b, "", "<>F{00000002}", "T1", "TResult")
	addAnonymous(b, "", "<>f__AnonymousDelegate3", "T1")
	addAnonymous(b, "", "<>f__AnonymousDelegate0")
	addAnonymous(b, "", "<>f__AnonymousDelegateX")

	table, _ := extractFrom(t, b)

	_, ok := table.SynthesizedDelegate("<>A{00000000}")
	assert.True(t, ok)
	v, ok := table.SynthesizedDelegate("<>F{00000002}")
	require.True(t, ok)
	assert.Equal(t, "<>F{00000002}", v.Name)

	v, ok = table.AnonymousDelegate("<>f__AnonymousDelegate3")
	require.True(t, ok)
	assert.Equal(t, 3, v.Index)

	delegates := table.AnonymousDelegates()
	require.Len(t, delegates, 2)
	assert.Equal(t, 0, delegates[0].Index)
	assert.Equal(t, 4, table.NextAnonymousDelegateIndex())
	assert.Equal(t, 4, table.Len())
}

func TestExtractFailsOnUndecodableType(t *testing.T) {
	b := metadata.NewBuilder("App", uuid.New())
	addAnonymous(b, "", "<>f__AnonymousType0", "<X>j__TPar")
	img := b.Image()

	none := func(metadata.TypeDefHandle) (*symbols.NamedType, bool) { return nil, false }
	_, err := Extract(img, none, nil)
	assert.ErrorIs(t, err, metadata.ErrMalformed)
}

func TestKeyEncoding(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		want   string
	}{
		{"empty", nil, "{}"},
		{"plain", []Field{{Name: "X"}, {Name: "Y"}}, "{X, Y}"},
		{"key field", []Field{{Name: "Id", IsKey: true}}, "{key Id}"},
		{"colon in name", []Field{{Name: "a:b"}, {Name: "1"}}, "{a:b, 1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKey(tt.fields...)
			assert.Equal(t, tt.want, k.String())
			assert.Equal(t, len(tt.fields), len(k.Fields()))
			assert.Equal(t, k, NewKey(k.Fields()...))
		})
	}

	assert.NotEqual(t, KeyOfNames("X", "Y"), KeyOfNames("Y", "X"))
	assert.NotEqual(t, KeyOfNames("X", "Y"), KeyOfNames("XY"))
}

func TestAnonymousTypeKeyOfTemplate(t *testing.T) {
	asm := symbols.NewAssembly("App", symbols.NewCoreLibrary())
	anon := asm.DefineAnonymousType("X", "Y")

	k, ok := AnonymousTypeKey(anon)
	require.True(t, ok)
	assert.Equal(t, KeyOfNames("X", "Y"), k)

	_, ok = AnonymousTypeKey(asm.DefineType("App", "C", symbols.Class))
	assert.False(t, ok)
}

func TestExtendLeavesReceiverUntouched(t *testing.T) {
	base := Empty.Extend(Additions{AnonymousTypes: map[Key]Value{KeyOfNames("X"): {Name: "<>f__AnonymousType0"}}})
	next := base.Extend(Additions{AnonymousTypes: map[Key]Value{KeyOfNames("Y"): {Name: "<>f__AnonymousType1", Index: 1}}})

	assert.Len(t, base.AnonymousTypes(), 1)
	assert.Len(t, next.AnonymousTypes(), 2)
	assert.Equal(t, 0, Empty.Len())
}
