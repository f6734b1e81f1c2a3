// Package structkey recovers the structural identity of compiler-synthesized
// types. Anonymous types have no stable source name, so they are identified
// by the ordered names of their properties; synthesized delegates by their
// literal generated name; anonymous delegates by their emission index.
//
// The naming convention itself lives in generatednames; this package is the
// only consumer that interprets it for matching purposes.
package structkey

import (
	"strconv"
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// Field is one component of an anonymous type key.
type Field struct {
	Name       string
	IsKey      bool
	IgnoreCase bool
}

// Key is the canonical, order-sensitive descriptor of an anonymous type. Keys
// are comparable and can be used directly as map keys.
type Key struct {
	encoded string
}

// NewKey builds a key from ordered fields.
func NewKey(fields ...Field) Key {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(strconv.Itoa(len(f.Name)))
		b.WriteByte(':')
		b.WriteString(f.Name)
		b.WriteByte(flagByte(f.IsKey))
		b.WriteByte(flagByte(f.IgnoreCase))
	}
	return Key{encoded: b.String()}
}

// KeyOfNames builds the key of an anonymous type with plain (non-key,
// case-sensitive) properties.
func KeyOfNames(names ...string) Key {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n}
	}
	return NewKey(fields...)
}

// AnonymousTypeKey returns the key of an anonymous type template of any
// universe. It reports false for other types and for templates whose property
// names are unknown.
func AnonymousTypeKey(t *symbols.NamedType) (Key, bool) {
	def := t.Definition()
	if def.Synthesized() != symbols.AnonymousType {
		return Key{}, false
	}
	fields := def.AnonymousFields()
	if fields == nil && def.Arity() > 0 {
		return Key{}, false
	}
	return KeyOfNames(fields...), true
}

func flagByte(b bool) byte {
	if b {
		return '1'
	}
	return '0'
}

// Fields decodes the ordered fields of the key.
func (k Key) Fields() []Field {
	var out []Field
	s := k.encoded
	for s != "" {
		i := strings.IndexByte(s, ':')
		n, _ := strconv.Atoi(s[:i])
		s = s[i+1:]
		out = append(out, Field{Name: s[:n], IsKey: s[n] == '1', IgnoreCase: s[n+1] == '1'})
		s = s[n+2:]
	}
	return out
}

func (k Key) String() string {
	fields := k.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name
		if f.IsKey {
			parts[i] = "key " + parts[i]
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
