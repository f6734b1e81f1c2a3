package baseline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/conduit-lang/livepatch/internal/compiler/generatednames"
	"github.com/conduit-lang/livepatch/internal/compiler/metadata"
	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
	"github.com/conduit-lang/livepatch/internal/enc/structkey"
)

// ErrNoCompilation is returned when a generation is committed without its compilation.
var ErrNoCompilation = errors.New("baseline: generation compilation is required")

// Update is what one generation contributes to the baseline that follows it.
type Update struct {
	EncID       uuid.UUID
	Compilation *symbols.Assembly

	// Structural holds the structural entries first named by the generation
	// together with entries re-bound to the generation's types.
	Structural structkey.Additions

	// Definitions maps every definition of the compilation to its row
	Definitions map[symbols.Symbol]metadata.Handle

	// AddedRows counts the rows allocated per table
	AddedRows map[metadata.Table]int

	// Slots holds the state machine layouts of methods emitted by the generation
	Slots map[metadata.Handle][]Slot

	Synthesized []SynthesizedMember
	Deleted     []DeletedMember
}

// Next returns the baseline of the generation following b. The receiver is
// left untouched and stays valid.
func (b *Baseline) Next(u Update) (*Baseline, error) {
	if u.Compilation == nil {
		return nil, ErrNoCompilation
	}
	prev, err := b.Structural()
	if err != nil {
		return nil, err
	}
	if err := checkIndexPermanence(prev, u.Structural); err != nil {
		return nil, err
	}

	rows := make(map[metadata.Table]int, len(b.rows))
	for t, n := range b.rows {
		rows[t] = n + u.AddedRows[t]
	}
	slots := make(map[metadata.Handle][]Slot, len(b.slots)+len(u.Slots))
	for h, s := range b.slots {
		slots[h] = s
	}
	for h, s := range u.Slots {
		slots[h] = append([]Slot(nil), s...)
	}
	definitions := make(map[symbols.Symbol]metadata.Handle, len(u.Definitions))
	for s, h := range u.Definitions {
		definitions[s] = h
	}

	ordinal := b.ordinal + 1
	synthesized := b.synthesized
	for _, m := range u.Synthesized {
		m.Generation = ordinal
		synthesized = synthesized.Push(m)
	}
	deleted := b.deleted
	for _, m := range u.Deleted {
		m.Generation = ordinal
		deleted = deleted.Push(m)
	}

	return &Baseline{
		origin:      b.origin,
		initial:     b.initial,
		ordinal:     ordinal,
		encID:       u.EncID,
		compilation: u.Compilation,
		structural:  prev.Extend(u.Structural),
		definitions: definitions,
		rows:        rows,
		slots:       slots,
		synthesized: synthesized,
		deleted:     deleted,
	}, nil
}

// checkIndexPermanence rejects additions that move a known shape to another
// index or bind an index already owned by a different shape.
func checkIndexPermanence(prev *structkey.Table, add structkey.Additions) error {
	owners := make(map[int]structkey.Key)
	for _, e := range prev.AnonymousTypes() {
		owners[e.Value.Index] = e.Key
	}
	for k, v := range add.AnonymousTypes {
		if old, ok := prev.AnonymousType(k); ok && old.Index != v.Index {
			return fmt.Errorf("%w: %s moved from %d to %d", ErrIndexReused, k, old.Index, v.Index)
		}
		if owner, ok := owners[v.Index]; ok && owner != k {
			return fmt.Errorf("%w: index %d of %s claimed by %s", ErrIndexReused, v.Index, owner, k)
		}
		owners[v.Index] = k
		if want := generatednames.AnonymousTypeName(v.Index); v.Name != want {
			return fmt.Errorf("%w: %s named %q at index %d", ErrIndexReused, k, v.Name, v.Index)
		}
	}
	for name, v := range add.AnonymousDelegates {
		if want := generatednames.AnonymousDelegateName(v.Index); name != want {
			return fmt.Errorf("%w: anonymous delegate %q at index %d", ErrIndexReused, name, v.Index)
		}
	}
	return nil
}
