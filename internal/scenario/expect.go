package scenario

import (
	"fmt"
	"slices"
	"sort"

	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
	"github.com/conduit-lang/livepatch/internal/enc/defmap"
)

func (r *GenerationResult) failf(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

func (r *GenerationResult) check(e *Expectations) {
	if e == nil {
		return
	}

	if e.Diagnostics != nil {
		got := make([]string, len(r.Diagnostics))
		for i, d := range r.Diagnostics {
			got[i] = string(d.Code)
		}
		want := append([]string(nil), e.Diagnostics...)
		sort.Strings(got)
		sort.Strings(want)
		if !slices.Equal(got, want) {
			r.failf("diagnostics: want %v, got %v", want, got)
		}
	}

	for _, path := range sortedKeys(e.Status) {
		want := e.Status[path]
		sym, err := Find(r.Compilation, path)
		if err != nil {
			r.failf("status of %s: %v", path, err)
			continue
		}
		if got := r.Status(sym).String(); got != want {
			r.failf("status of %s: want %s, got %s", path, want, got)
		}
	}

	if len(e.Anonymous) > 0 {
		indices, err := r.AnonymousIndices()
		if err != nil {
			r.failf("anonymous types: %v", err)
		}
		for _, key := range sortedKeys(e.Anonymous) {
			want := e.Anonymous[key]
			got, ok := indices[key]
			switch {
			case !ok:
				r.failf("anonymous type %s: not emitted", key)
			case got != want:
				r.failf("anonymous type %s: want index %d, got %d", key, want, got)
			}
		}
	}

	for _, path := range sortedKeys(e.Slots) {
		want := e.Slots[path]
		sym, err := Find(r.Compilation, path)
		if err != nil {
			r.failf("slots of %s: %v", path, err)
			continue
		}
		method, ok := sym.(*symbols.Method)
		if !ok {
			r.failf("slots of %s: not a method", path)
			continue
		}
		got, err := r.SlotIndices(method)
		if err != nil {
			r.failf("slots of %s: %v", path, err)
			continue
		}
		if !slices.Equal(got, want) {
			r.failf("slots of %s: want %v, got %v", path, want, got)
		}
	}

	if e.Deleted != nil {
		if got := len(r.Baseline.Deleted()); got != *e.Deleted {
			r.failf("deleted members: want %d, got %d", *e.Deleted, got)
		}
	}
}

// Status returns the status of a definition of the generation's compilation.
// Every definition of generation 0 is unchanged.
func (r *GenerationResult) Status(s symbols.Symbol) defmap.Status {
	if r.Map == nil {
		return defmap.StatusUnchanged
	}
	d, _ := r.Map.Lookup(s)
	return d.Status
}

// Handle returns the row of a definition of the generation's compilation.
func (r *GenerationResult) Handle(s symbols.Symbol) (metadata.Handle, bool) {
	if r.Map == nil {
		h, ok := r.emission.Handles[s]
		return h, ok
	}
	d, ok := r.Map.Lookup(s)
	return d.Handle, ok
}

// AnonymousIndices maps the key of every anonymous type known after the
// generation to its emission index.
func (r *GenerationResult) AnonymousIndices() (map[string]int, error) {
	table, err := r.Baseline.Structural()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, e := range table.AnonymousTypes() {
		out[e.Key.String()] = e.Value.Index
	}
	return out, nil
}

// SlotIndices returns the slot index of each hoisted variable of method, in
// variable order. Emitted methods report their fresh assignment; other
// methods report the layout recorded for their row.
func (r *GenerationResult) SlotIndices(method *symbols.Method) ([]int, error) {
	sm := method.StateMachine()
	if sm == nil {
		return nil, fmt.Errorf("%s has no state machine", method)
	}
	if r.Map != nil {
		if assigned, ok := r.Map.Slots(method); ok {
			out := make([]int, len(assigned))
			for i, a := range assigned {
				out[i] = a.Index
			}
			return out, nil
		}
	}

	h, ok := r.Handle(method)
	if !ok {
		return nil, fmt.Errorf("%s has no row", method)
	}
	layout, ok, err := r.Baseline.Slots(h)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s has no recorded layout", method)
	}
	out := make([]int, 0, len(sm.Variables))
	for _, v := range sm.Variables {
		idx := slices.IndexFunc(layout, func(s baseline.Slot) bool { return !s.Retired && s.Name == v.Name })
		if idx < 0 {
			return nil, fmt.Errorf("%s: variable %s has no slot", method, v.Name)
		}
		out = append(out, layout[idx].Index)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
