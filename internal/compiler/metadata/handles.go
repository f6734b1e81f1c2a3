// Package metadata is the binary symbol table of an emitted module: string
// heap, type/field/method/property/generic-parameter tables and signature
// trees. It provides the random-access Reader the edit-and-continue layer
// consumes, an in-memory Image implementing it, an emitter that produces the
// generation-0 image from a compilation, and a decoder hydrating an image into
// its own symbol universe.
package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrBadHandle is returned when a handle does not address a row of its table.
	ErrBadHandle = errors.New("metadata: handle out of range")
	// ErrMalformed is returned when table contents are inconsistent.
	ErrMalformed = errors.New("metadata: malformed image")
)

// Table identifies a definition table.
type Table uint8

const (
	TableTypeDef Table = iota + 1
	TableField
	TableMethod
	TableProperty
	TableGenericParam
)

// Tables lists the definition tables in a stable order.
var Tables = []Table{TableTypeDef, TableField, TableMethod, TableProperty, TableGenericParam}

func (t Table) String() string {
	switch t {
	case TableTypeDef:
		return "TypeDef"
	case TableField:
		return "Field"
	case TableMethod:
		return "MethodDef"
	case TableProperty:
		return "Property"
	case TableGenericParam:
		return "GenericParam"
	default:
		return fmt.Sprintf("Table(%d)", uint8(t))
	}
}

// Handle is the permanent identity of a definition row. Rows are 1-based and
// are never reused, so a handle identifies the same definition in every
// generation emitted against the module.
type Handle struct {
	Table Table
	Row   uint32
}

// IsNil reports whether the handle addresses no row.
func (h Handle) IsNil() bool { return h.Row == 0 }

func (h Handle) String() string {
	if h.IsNil() {
		return h.Table.String() + "#nil"
	}
	return fmt.Sprintf("%s#%d", h.Table, h.Row)
}

// StringHandle indexes the string heap; 0 is the empty string.
type StringHandle uint32

// Typed row handles.
type (
	TypeDefHandle      uint32
	FieldHandle        uint32
	MethodHandle       uint32
	PropertyHandle     uint32
	GenericParamHandle uint32
)

func (h TypeDefHandle) Handle() Handle      { return Handle{Table: TableTypeDef, Row: uint32(h)} }
func (h FieldHandle) Handle() Handle        { return Handle{Table: TableField, Row: uint32(h)} }
func (h MethodHandle) Handle() Handle       { return Handle{Table: TableMethod, Row: uint32(h)} }
func (h PropertyHandle) Handle() Handle     { return Handle{Table: TableProperty, Row: uint32(h)} }
func (h GenericParamHandle) Handle() Handle { return Handle{Table: TableGenericParam, Row: uint32(h)} }
