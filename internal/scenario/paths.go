package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

// Path returns the name a scenario uses for a definition. Types use their
// full name and members append their name to their container's path.
// Unnamed anonymous type templates use their key, e.g. "{X, Y}".
func Path(s symbols.Symbol) string {
	if t, ok := s.(*symbols.NamedType); ok {
		if t.Name() == "" && t.Synthesized() == symbols.AnonymousType {
			return structkey.KeyOfNames(t.AnonymousFields()...).String()
		}
		return t.FullName()
	}
	if c := s.ContainingType(); c != nil {
		return Path(c) + "." + s.Name()
	}
	return s.Name()
}

// Find returns the definition of asm at path. A "#n" suffix selects the n-th
// definition (0-based, in declaration order) sharing the path, which is how
// overloads are told apart.
func Find(asm *symbols.Assembly, path string) (symbols.Symbol, error) {
	base, ordinal := path, 0
	if i := strings.LastIndexByte(path, '#'); i >= 0 {
		n, err := strconv.Atoi(path[i+1:])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad overload suffix in %q", ErrInvalidScenario, path)
		}
		base, ordinal = path[:i], n
	}
	seen := 0
	for _, d := range asm.Definitions() {
		if Path(d) != base {
			continue
		}
		if seen == ordinal {
			return d, nil
		}
		seen++
	}
	return nil, &NotFoundError{Assembly: asm.Name(), Path: path, Candidates: paths(asm)}
}

// NotFoundError reports a path that names no definition. Candidates holds
// every path the assembly defines.
type NotFoundError struct {
	Assembly   string
	Path       string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s has no definition %s", ErrInvalidScenario, e.Assembly, e.Path)
}

func (e *NotFoundError) Unwrap() error { return ErrInvalidScenario }

func paths(asm *symbols.Assembly) []string {
	defs := asm.Definitions()
	out := make([]string, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		p := Path(d)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
