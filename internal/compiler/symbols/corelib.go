package symbols

// CoreLibraryName is the name of the assembly returned by NewCoreLibrary.
const CoreLibraryName = "System.Runtime"

// NewCoreLibrary builds the minimal runtime library every compilation and
// decoded module references. A session creates it once and shares it, which
// is what lets references into it map to themselves across universes.
func NewCoreLibrary() *Assembly {
	core := NewAssembly(CoreLibraryName)

	core.DefineType("System", "Object", Class)
	core.DefineType("System", "String", Class)
	core.DefineType("System", "Boolean", Struct)
	core.DefineType("System", "Int32", Struct)
	core.DefineType("System", "Int64", Struct)
	core.DefineType("System", "Double", Struct)
	core.DefineType("System", "Nullable", Struct, "T")

	core.DefineType("System.Threading.Tasks", "Task", Class)
	core.DefineType("System.Threading.Tasks", "Task", Class, "TResult")

	core.DefineType("System.Collections.Generic", "List", Class, "T")
	core.DefineType("System.Collections.Generic", "IEnumerable", Interface, "T")
	core.DefineType("System.Collections.Generic", "Dictionary", Class, "TKey", "TValue")
	core.DefineType("System.Collections.Generic", "KeyValuePair", Struct, "TKey", "TValue")

	return core
}

// Keyword aliases understood by type-expression front ends, mapped to the
// qualified metadata names of core library types.
var Keywords = map[string]string{
	"object": "System.Object",
	"string": "System.String",
	"bool":   "System.Boolean",
	"int":    "System.Int32",
	"long":   "System.Int64",
	"double": "System.Double",
}
