package metadata

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TypeAttributes are the flags of a type definition.
type TypeAttributes uint32

const (
	TypeInterface TypeAttributes = 1 << iota
	TypeValueType
	TypeDelegate
	TypeEnum
	TypeEmbeddedInterop
	TypeCompilerGenerated
)

// MethodAttributes are the flags of a method definition.
type MethodAttributes uint32

const (
	MethodStatic MethodAttributes = 1 << iota
)

// TypeDefinition is a row of the TypeDef table.
type TypeDefinition struct {
	Namespace         StringHandle
	Name              StringHandle
	Attributes        TypeAttributes
	Enclosing         TypeDefHandle
	GenericParameters []GenericParamHandle
	Fields            []FieldHandle
	Methods           []MethodHandle
	Properties        []PropertyHandle
}

// FieldDefinition is a row of the Field table.
type FieldDefinition struct {
	Parent    TypeDefHandle
	Name      StringHandle
	Signature *SigType
}

// MethodDefinition is a row of the MethodDef table.
type MethodDefinition struct {
	Parent            TypeDefHandle
	Name              StringHandle
	Attributes        MethodAttributes
	GenericParameters []GenericParamHandle
	ParameterNames    []StringHandle
	Signature         MethodSignature
}

// PropertyDefinition is a row of the Property table.
type PropertyDefinition struct {
	Parent    TypeDefHandle
	Name      StringHandle
	Signature *SigType
}

// GenericParameter is a row of the GenericParam table.
type GenericParameter struct {
	Owner Handle
	Index int
	Name  StringHandle
}

// Reader gives random access to the tables of an emitted module. The module is
// assumed resident; implementations perform no I/O.
type Reader interface {
	ModuleVersionID() uuid.UUID
	AssemblyName() string

	// TypeDefinitions enumerates every type definition in row order
	TypeDefinitions() []TypeDefHandle
	TypeDefinition(h TypeDefHandle) (TypeDefinition, error)
	FieldDefinition(h FieldHandle) (FieldDefinition, error)
	MethodDefinition(h MethodHandle) (MethodDefinition, error)
	PropertyDefinition(h PropertyHandle) (PropertyDefinition, error)
	GenericParameter(h GenericParamHandle) (GenericParameter, error)

	// String resolves a string heap handle
	String(h StringHandle) (string, error)

	// StartsWith compares a heap string against a prefix without materializing
	// it for the caller. Invalid handles never match.
	StartsWith(h StringHandle, prefix string) bool

	// RowCount returns the number of rows in a table
	RowCount(t Table) int
}

// Image is an in-memory module. It is immutable once built.
type Image struct {
	mvid          uuid.UUID
	assembly      string
	strings       []string
	typeDefs      []TypeDefinition
	fields        []FieldDefinition
	methods       []MethodDefinition
	properties    []PropertyDefinition
	genericParams []GenericParameter
}

var _ Reader = (*Image)(nil)

func (img *Image) ModuleVersionID() uuid.UUID { return img.mvid }
func (img *Image) AssemblyName() string       { return img.assembly }

func (img *Image) TypeDefinitions() []TypeDefHandle {
	out := make([]TypeDefHandle, len(img.typeDefs))
	for i := range img.typeDefs {
		out[i] = TypeDefHandle(i + 1)
	}
	return out
}

func (img *Image) TypeDefinition(h TypeDefHandle) (TypeDefinition, error) {
	if h == 0 || int(h) > len(img.typeDefs) {
		return TypeDefinition{}, fmt.Errorf("%w: %s", ErrBadHandle, h.Handle())
	}
	return img.typeDefs[h-1], nil
}

func (img *Image) FieldDefinition(h FieldHandle) (FieldDefinition, error) {
	if h == 0 || int(h) > len(img.fields) {
		return FieldDefinition{}, fmt.Errorf("%w: %s", ErrBadHandle, h.Handle())
	}
	return img.fields[h-1], nil
}

func (img *Image) MethodDefinition(h MethodHandle) (MethodDefinition, error) {
	if h == 0 || int(h) > len(img.methods) {
		return MethodDefinition{}, fmt.Errorf("%w: %s", ErrBadHandle, h.Handle())
	}
	return img.methods[h-1], nil
}

func (img *Image) PropertyDefinition(h PropertyHandle) (PropertyDefinition, error) {
	if h == 0 || int(h) > len(img.properties) {
		return PropertyDefinition{}, fmt.Errorf("%w: %s", ErrBadHandle, h.Handle())
	}
	return img.properties[h-1], nil
}

func (img *Image) GenericParameter(h GenericParamHandle) (GenericParameter, error) {
	if h == 0 || int(h) > len(img.genericParams) {
		return GenericParameter{}, fmt.Errorf("%w: %s", ErrBadHandle, h.Handle())
	}
	return img.genericParams[h-1], nil
}

func (img *Image) String(h StringHandle) (string, error) {
	if int(h) >= len(img.strings) {
		return "", fmt.Errorf("%w: string #%d", ErrBadHandle, h)
	}
	return img.strings[h], nil
}

func (img *Image) StartsWith(h StringHandle, prefix string) bool {
	if int(h) >= len(img.strings) {
		return false
	}
	return strings.HasPrefix(img.strings[h], prefix)
}

func (img *Image) RowCount(t Table) int {
	switch t {
	case TableTypeDef:
		return len(img.typeDefs)
	case TableField:
		return len(img.fields)
	case TableMethod:
		return len(img.methods)
	case TableProperty:
		return len(img.properties)
	case TableGenericParam:
		return len(img.genericParams)
	default:
		return 0
	}
}

// Builder accumulates the tables of an Image. Parent handles passed to the
// Add methods must come from the same builder.
type Builder struct {
	img      *Image
	interned map[string]StringHandle
}

// NewBuilder starts an image for the named assembly.
func NewBuilder(assembly string, mvid uuid.UUID) *Builder {
	return &Builder{
		img: &Image{
			mvid:     mvid,
			assembly: assembly,
			strings:  []string{""},
		},
		interned: map[string]StringHandle{"": 0},
	}
}

// String interns s in the string heap.
func (b *Builder) String(s string) StringHandle {
	if h, ok := b.interned[s]; ok {
		return h
	}
	h := StringHandle(len(b.img.strings))
	b.img.strings = append(b.img.strings, s)
	b.interned[s] = h
	return h
}

// AddTypeDefinition appends a type definition row.
func (b *Builder) AddTypeDefinition(namespace, metadataName string, attrs TypeAttributes, enclosing TypeDefHandle) TypeDefHandle {
	b.img.typeDefs = append(b.img.typeDefs, TypeDefinition{
		Namespace:  b.String(namespace),
		Name:       b.String(metadataName),
		Attributes: attrs,
		Enclosing:  enclosing,
	})
	return TypeDefHandle(len(b.img.typeDefs))
}

// AddGenericParameter appends a generic parameter to a type or method definition.
func (b *Builder) AddGenericParameter(owner Handle, name string) GenericParamHandle {
	h := GenericParamHandle(len(b.img.genericParams) + 1)
	var index int
	switch owner.Table {
	case TableTypeDef:
		def := &b.img.typeDefs[owner.Row-1]
		index = len(def.GenericParameters)
		def.GenericParameters = append(def.GenericParameters, h)
	case TableMethod:
		def := &b.img.methods[owner.Row-1]
		index = len(def.GenericParameters)
		def.GenericParameters = append(def.GenericParameters, h)
	default:
		panic(fmt.Sprintf("metadata: generic parameter owner %s", owner))
	}
	b.img.genericParams = append(b.img.genericParams, GenericParameter{Owner: owner, Index: index, Name: b.String(name)})
	return h
}

// AddField appends a field to a type definition.
func (b *Builder) AddField(parent TypeDefHandle, name string, sig *SigType) FieldHandle {
	b.img.fields = append(b.img.fields, FieldDefinition{Parent: parent, Name: b.String(name), Signature: sig})
	h := FieldHandle(len(b.img.fields))
	def := &b.img.typeDefs[parent-1]
	def.Fields = append(def.Fields, h)
	return h
}

// AddMethod appends a method to a type definition. The signature may be set
// later with SetMethodSignature once its generic parameters exist.
func (b *Builder) AddMethod(parent TypeDefHandle, name string, attrs MethodAttributes, parameterNames ...string) MethodHandle {
	names := make([]StringHandle, len(parameterNames))
	for i, n := range parameterNames {
		names[i] = b.String(n)
	}
	b.img.methods = append(b.img.methods, MethodDefinition{
		Parent:         parent,
		Name:           b.String(name),
		Attributes:     attrs,
		ParameterNames: names,
	})
	h := MethodHandle(len(b.img.methods))
	def := &b.img.typeDefs[parent-1]
	def.Methods = append(def.Methods, h)
	return h
}

// SetMethodSignature sets the signature of a method row.
func (b *Builder) SetMethodSignature(h MethodHandle, sig MethodSignature) {
	b.img.methods[h-1].Signature = sig
}

// AddProperty appends a property to a type definition.
func (b *Builder) AddProperty(parent TypeDefHandle, name string, sig *SigType) PropertyHandle {
	b.img.properties = append(b.img.properties, PropertyDefinition{Parent: parent, Name: b.String(name), Signature: sig})
	h := PropertyHandle(len(b.img.properties))
	def := &b.img.typeDefs[parent-1]
	def.Properties = append(def.Properties, h)
	return h
}

// Image returns the built image. The builder must not be used afterwards.
func (b *Builder) Image() *Image {
	img := b.img
	b.img = nil
	return img
}
