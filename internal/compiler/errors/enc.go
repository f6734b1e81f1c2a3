package errors

import "fmt"

// Edit-and-continue diagnostic codes (ENC0001-0099)
const (
	// ErrEmbeddedInteropReference indicates an added member references an embedded interop type
	ErrEmbeddedInteropReference ErrorCode = "ENC0001"
	// ErrUpdateWithoutCounterpart indicates an update whose symbol has no previous definition
	ErrUpdateWithoutCounterpart ErrorCode = "ENC0002"
	// ErrDeleteWithoutDefinition indicates a delete of a symbol the baseline never emitted
	ErrDeleteWithoutDefinition ErrorCode = "ENC0003"
	// ErrMemberReadded indicates a deleted member was inserted again and keeps its row
	ErrMemberReadded ErrorCode = "ENC0004"
)

// NewEmbeddedInteropReference creates an ENC0001 error
func NewEmbeddedInteropReference(member, interopType string) *CompilerError {
	return newError(
		ErrEmbeddedInteropReference,
		"embedded_interop_reference",
		CategoryEnc,
		SeverityError,
		fmt.Sprintf("Cannot continue: added member '%s' references embedded interop type '%s'", member, interopType),
		Location{Symbol: member},
	).WithSuggestion("Reference the interop assembly without embedding its types, then restart the session")
}

// NewUpdateWithoutCounterpart creates an ENC0002 warning
func NewUpdateWithoutCounterpart(member string) *CompilerError {
	return newError(
		ErrUpdateWithoutCounterpart,
		"update_without_counterpart",
		CategoryEnc,
		SeverityWarning,
		fmt.Sprintf("'%s' was reported as updated but has no previous definition; it is emitted as added", member),
		Location{Symbol: member},
	)
}

// NewDeleteWithoutDefinition creates an ENC0003 warning
func NewDeleteWithoutDefinition(member string) *CompilerError {
	return newError(
		ErrDeleteWithoutDefinition,
		"delete_without_definition",
		CategoryEnc,
		SeverityWarning,
		fmt.Sprintf("'%s' was reported as deleted but the baseline has no definition for it; the delete is ignored", member),
		Location{Symbol: member},
	)
}

// NewMemberReadded creates an ENC0004 info
func NewMemberReadded(member string, generation int) *CompilerError {
	return newError(
		ErrMemberReadded,
		"member_readded",
		CategoryEnc,
		SeverityInfo,
		fmt.Sprintf("'%s' was deleted in generation %d and is added back under its original definition", member, generation),
		Location{Symbol: member},
	)
}
