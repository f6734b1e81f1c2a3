// Package scenario describes edit sessions as YAML files. A scenario lists the
// compilations of successive generations together with the edits between them
// and, optionally, the identities each generation is expected to produce.
// Scenarios drive the apply and inspect commands and serve as end-to-end
// fixtures for the session.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/livepatch/internal/enc/defmap"
)

// ErrInvalidScenario wraps every validation and binding failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// DefaultAssembly is the compilation name used when a scenario names none.
const DefaultAssembly = "App"

// Scenario is a parsed scenario file.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Assembly names every compilation of the session
	Assembly string `yaml:"assembly,omitempty"`

	// Interop lists qualified interface names defined once in an "Interop"
	// assembly as embedded interop types
	Interop []string `yaml:"interop,omitempty"`

	Generations []Generation `yaml:"generations"`

	// File is the path the scenario was loaded from, if any
	File string `yaml:"-"`
}

// Generation is the compilation of one generation and the edits that lead to
// it from the previous one. Generation 0 is the original module and has no edits.
type Generation struct {
	Name string `yaml:"name,omitempty"`

	// Anonymous lists anonymous types by their ordered property names; types
	// used only in type expressions are declared on first use
	Anonymous [][]string `yaml:"anonymous,omitempty"`

	Delegates []DelegateSpec `yaml:"delegates,omitempty"`
	Types     []TypeSpec     `yaml:"types"`
	Edits     []EditSpec     `yaml:"edits,omitempty"`

	Expect *Expectations `yaml:"expect,omitempty"`
}

// TypeSpec declares a named type. Name is namespace-qualified for top-level
// types and simple for nested ones.
type TypeSpec struct {
	Name       string        `yaml:"name"`
	Kind       string        `yaml:"kind,omitempty"`
	TypeParams []string      `yaml:"typeParams,omitempty"`
	Fields     []MemberSpec  `yaml:"fields,omitempty"`
	Properties []MemberSpec  `yaml:"properties,omitempty"`
	Methods    []MethodSpec  `yaml:"methods,omitempty"`
	Closures   []ClosureSpec `yaml:"closures,omitempty"`
	Nested     []TypeSpec    `yaml:"nested,omitempty"`
}

// MemberSpec is a name and a type expression.
type MemberSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// MethodSpec declares a method. Async and Iterator list the variables hoisted
// into the method's state machine; at most one of them may be set.
type MethodSpec struct {
	Name       string       `yaml:"name"`
	TypeParams []string     `yaml:"typeParams,omitempty"`
	Returns    string       `yaml:"returns,omitempty"`
	Params     []MemberSpec `yaml:"params,omitempty"`
	Static     bool         `yaml:"static,omitempty"`
	Async      []MemberSpec `yaml:"async,omitempty"`
	Iterator   []MemberSpec `yaml:"iterator,omitempty"`

	// References are type expressions used in the method body
	References []string `yaml:"references,omitempty"`
}

// ClosureSpec declares the display class of one closure scope.
type ClosureSpec struct {
	Method  int          `yaml:"method"`
	Closure int          `yaml:"closure"`
	Fields  []MemberSpec `yaml:"fields,omitempty"`
}

// DelegateSpec declares a compiler-generated delegate. Kind "anonymous"
// declares an anonymous delegate; "action" and "func" declare a synthesized
// delegate named after its shape.
type DelegateSpec struct {
	Kind       string       `yaml:"kind"`
	ByRefMask  uint32       `yaml:"byRefMask,omitempty"`
	TypeParams []string     `yaml:"typeParams,omitempty"`
	Returns    string       `yaml:"returns,omitempty"`
	Params     []MemberSpec `yaml:"params,omitempty"`
}

// EditSpec names an edited symbol by path: "App.Program" for a type,
// "App.Program.Run" for a member and "App.Program.Run#1" for the second
// member of that name.
type EditSpec struct {
	Kind   string `yaml:"kind"`
	Symbol string `yaml:"symbol"`
}

// Expectations are checked against a generation once it is committed.
type Expectations struct {
	// Diagnostics lists the codes reported for the generation, in any order
	Diagnostics []string `yaml:"diagnostics,omitempty"`

	// Status maps symbol paths to unchanged, updated or added
	Status map[string]string `yaml:"status,omitempty"`

	// Anonymous maps anonymous type keys such as "{X, Y}" to their index
	Anonymous map[string]int `yaml:"anonymous,omitempty"`

	// Slots maps method paths to the slot index of each hoisted variable
	Slots map[string][]int `yaml:"slots,omitempty"`

	// Deleted is the number of members in the deletion history
	Deleted *int `yaml:"deleted,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.File = path
	return s, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if s.Assembly == "" {
		s.Assembly = DefaultAssembly
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the parts of a scenario that do not need symbol binding.
func (s *Scenario) Validate() error {
	if len(s.Generations) == 0 {
		return fmt.Errorf("%w: at least one generation is required", ErrInvalidScenario)
	}
	if len(s.Generations[0].Edits) > 0 {
		return fmt.Errorf("%w: generation 0 is the original module and cannot have edits", ErrInvalidScenario)
	}
	for i, g := range s.Generations {
		if err := g.validate(); err != nil {
			return fmt.Errorf("%w: generation %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

func (g *Generation) validate() error {
	for _, e := range g.Edits {
		if e.Symbol == "" {
			return errors.New("edit without symbol")
		}
		if _, err := defmap.ParseEditKind(e.Kind); err != nil {
			return err
		}
	}
	for _, d := range g.Delegates {
		switch d.Kind {
		case "anonymous", "action", "func":
		default:
			return fmt.Errorf("unknown delegate kind %q", d.Kind)
		}
	}
	var walk func(types []TypeSpec) error
	walk = func(types []TypeSpec) error {
		for _, t := range types {
			if t.Name == "" {
				return errors.New("type without name")
			}
			if _, err := parseTypeKind(t.Kind); err != nil {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			for _, m := range t.Methods {
				if m.Name == "" {
					return fmt.Errorf("%s: method without name", t.Name)
				}
				if len(m.Async) > 0 && len(m.Iterator) > 0 {
					return fmt.Errorf("%s.%s: method cannot be both async and an iterator", t.Name, m.Name)
				}
			}
			if err := walk(t.Nested); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(g.Types)
}

// Label returns the generation name, or its ordinal.
func (g *Generation) Label(ordinal int) string {
	if g.Name != "" {
		return g.Name
	}
	return fmt.Sprintf("generation %d", ordinal)
}
