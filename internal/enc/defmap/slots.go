package defmap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/baseline"
)

// allocateSlots lays out the state machines of emitted methods. A hoisted
// variable reuses the slot of the same-named variable of the previous layout
// only when both types are equal in handle space; anything else, including a
// type that cannot be encoded, gets a fresh slot. Fresh slots never take an
// index any earlier layout used.
func (b *builder) allocateSlots() error {
	for _, d := range b.m.order {
		method, ok := d.Symbol.(*symbols.Method)
		if !ok || method.StateMachine() == nil || d.Status == StatusUnchanged {
			continue
		}

		var previous []baseline.Slot
		hadLayout := false
		if d.Status == StatusUpdated {
			var err error
			if previous, hadLayout, err = b.in.Previous.Slots(d.Handle); err != nil {
				return err
			}
		}
		if !hadLayout {
			b.allocate(metadata.TableTypeDef)
		}

		next := 0
		for _, s := range previous {
			if s.Index >= next {
				next = s.Index + 1
			}
		}
		// inserted methods start over even when a counterpart exists
		reusable := previous
		if b.edits[method] == EditInsert {
			reusable = nil
		}

		used := make(map[int]bool)
		var assigned []SlotAssignment
		for _, v := range method.StateMachine().Variables {
			sig, err := b.encode(v.Type)
			if err != nil {
				b.in.Logger.Debug("hoisted variable type cannot be encoded",
					zap.Stringer("method", method),
					zap.String("variable", v.Name),
					zap.Error(err),
				)
				sig = nil
			}

			if slot, ok := reuse(reusable, used, v.Name, sig); ok {
				used[slot.Index] = true
				assigned = append(assigned, SlotAssignment{Variable: v.Name, Index: slot.Index, Type: sig, Reused: true})
				continue
			}

			if old, ok := sameName(reusable, used, v.Name); ok {
				b.in.Logger.Debug("allocating fresh slot",
					zap.Stringer("method", method),
					zap.String("variable", v.Name),
					zap.Stringer("previous", old.Type),
					zap.Stringer("current", sig),
				)
			}
			used[next] = true
			assigned = append(assigned, SlotAssignment{Variable: v.Name, Index: next, Type: sig})
			b.allocate(metadata.TableField)
			next++
		}

		b.m.slots[method] = assigned
		b.m.layouts[d.Handle] = layout(assigned, previous, used)
	}
	return nil
}

func reuse(previous []baseline.Slot, used map[int]bool, name string, sig *metadata.SigType) (baseline.Slot, bool) {
	if sig == nil {
		return baseline.Slot{}, false
	}
	for _, s := range previous {
		if s.Name == name && !s.Retired && !used[s.Index] && s.Type.Equal(sig) {
			return s, true
		}
	}
	return baseline.Slot{}, false
}

func sameName(previous []baseline.Slot, used map[int]bool, name string) (baseline.Slot, bool) {
	for _, s := range previous {
		if s.Name == name && !s.Retired && !used[s.Index] {
			return s, true
		}
	}
	return baseline.Slot{}, false
}

// layout returns the slots of the new layout ordered by index. Previous slots
// that no variable took over stay in the layout as retired.
func layout(assigned []SlotAssignment, previous []baseline.Slot, used map[int]bool) []baseline.Slot {
	out := make([]baseline.Slot, 0, len(assigned)+len(previous))
	for _, a := range assigned {
		out = append(out, baseline.Slot{Name: a.Variable, Index: a.Index, Type: a.Type})
	}
	for _, s := range previous {
		if !used[s.Index] {
			s.Retired = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
