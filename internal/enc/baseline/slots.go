package baseline

import (
	"sort"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
)

// stateMachineSlots recovers the hoisted variable layouts of the state
// machine types declared by a module. Fields that do not follow the hoisted
// field naming are not slots and are ignored.
func stateMachineSlots(r metadata.Reader) (map[metadata.Handle][]Slot, error) {
	out := make(map[metadata.Handle][]Slot)
	for _, h := range r.TypeDefinitions() {
		def, err := r.TypeDefinition(h)
		if err != nil {
			return nil, err
		}
		if def.Enclosing == 0 {
			continue
		}
		name, err := r.String(def.Name)
		if err != nil {
			return nil, err
		}
		_, row, ok := generatednames.ParseStateMachineTypeName(name)
		if !ok {
			continue
		}
		var slots []Slot
		for _, fh := range def.Fields {
			fd, err := r.FieldDefinition(fh)
			if err != nil {
				return nil, err
			}
			fname, err := r.String(fd.Name)
			if err != nil {
				return nil, err
			}
			variable, index, ok := generatednames.ParseHoistedFieldName(fname)
			if !ok {
				continue
			}
			slots = append(slots, Slot{Name: variable, Index: index, Type: fd.Signature})
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i].Index < slots[j].Index })
		out[metadata.MethodHandle(row).Handle()] = slots
	}
	return out, nil
}
