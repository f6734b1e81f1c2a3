package defmap

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/livepatch/internal/compiler/symbols"
)

// EditKind classifies a source-level edit reported by the front end.
type EditKind int

const (
	EditNone EditKind = iota
	EditInsert
	EditUpdate
	EditDelete
)

func (k EditKind) String() string {
	switch k {
	case EditInsert:
		return "insert"
	case EditUpdate:
		return "update"
	case EditDelete:
		return "delete"
	default:
		return "none"
	}
}

// ParseEditKind parses the lowercase name of an edit kind.
func ParseEditKind(s string) (EditKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return EditNone, nil
	case "insert":
		return EditInsert, nil
	case "update":
		return EditUpdate, nil
	case "delete":
		return EditDelete, nil
	default:
		return EditNone, fmt.Errorf("unknown edit kind %q", s)
	}
}

// Edit is one edit record. Symbol belongs to the current compilation, except
// for deletes, whose symbol belongs to the universe of the previous
// generation (the decoded original module when the previous generation is 0).
type Edit struct {
	Kind   EditKind
	Symbol symbols.Symbol
}

// Status is the outcome of resolving one current definition.
type Status int

const (
	// StatusUnchanged definitions keep their row and are not emitted
	StatusUnchanged Status = iota
	// StatusUpdated definitions keep their row and are emitted again. A
	// definition inserted with the shape of a deleted one is an update of the
	// deleted row.
	StatusUpdated
	// StatusAdded definitions get a fresh row
	StatusAdded
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusAdded:
		return "added"
	default:
		return "unchanged"
	}
}
