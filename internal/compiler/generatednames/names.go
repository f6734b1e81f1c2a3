// Package generatednames owns the naming convention the compiler uses for the
// types and fields it synthesizes (anonymous types, delegates, closure display
// classes, state machines and their hoisted fields).
//
// Every other package formats and parses these names through this package only,
// so the convention can change without touching the matcher or definition map.
package generatednames

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// AnonymousPrefix is shared by anonymous types and anonymous delegates
	// emitted without a module id.
	AnonymousPrefix = "<>f__Anonymous"
	// AnonymousTypePrefix prefixes record-like anonymous type names.
	AnonymousTypePrefix = AnonymousPrefix + "Type"
	// AnonymousDelegatePrefix prefixes anonymous delegates with indexed names.
	AnonymousDelegatePrefix = AnonymousPrefix + "Delegate"
	// ActionDelegatePrefix prefixes synthesized delegates that return no value.
	ActionDelegatePrefix = "<>A"
	// FuncDelegatePrefix prefixes synthesized delegates that return a value.
	FuncDelegatePrefix = "<>F"

	anonymousTypeParameterSuffix = ">j__TPar"
	displayClassPrefix           = "<>c__DisplayClass"
	stateMachineMarker           = ">d__"
	hoistedLocalMarker           = ">5__"
	arityMarker                  = '`'
)

// AnonymousTypeName returns the unmangled name of the anonymous type with the given index.
func AnonymousTypeName(index int) string {
	return AnonymousTypePrefix + strconv.Itoa(index)
}

// AnonymousDelegateName returns the unmangled name of the anonymous delegate with the given index.
func AnonymousDelegateName(index int) string {
	return AnonymousDelegatePrefix + strconv.Itoa(index)
}

// ParseAnonymousTypeIndex extracts the index from an unmangled anonymous type name.
// Names carrying a submission suffix ("<>f__AnonymousType0#1") are rejected.
func ParseAnonymousTypeIndex(name string) (int, bool) {
	return parseIndex(name, AnonymousTypePrefix)
}

// ParseAnonymousDelegateIndex extracts the index from an unmangled anonymous delegate name.
func ParseAnonymousDelegateIndex(name string) (int, bool) {
	return parseIndex(name, AnonymousDelegatePrefix)
}

func parseIndex(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	digits := name[len(prefix):]
	if !isDigits(digits) {
		return 0, false
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// AnonymousTypeParameterName returns the generic parameter name that carries
// the given anonymous type property name.
func AnonymousTypeParameterName(field string) string {
	return "<" + field + anonymousTypeParameterSuffix
}

// ParseAnonymousTypeParameterName recovers the property name from a generic
// parameter name of an anonymous type.
func ParseAnonymousTypeParameterName(name string) (string, bool) {
	if !strings.HasPrefix(name, "<") || !strings.HasSuffix(name, anonymousTypeParameterSuffix) {
		return "", false
	}
	field := name[1 : len(name)-len(anonymousTypeParameterSuffix)]
	if field == "" || strings.ContainsAny(field, "<>") {
		return "", false
	}
	return field, true
}

// SynthesizedDelegateName returns the name of a synthesized delegate. The
// prefix encodes whether the delegate returns a value and the braces hold the
// by-ref parameter bit mask, so the name alone identifies the delegate shape.
func SynthesizedDelegateName(returnsValue bool, byRefMask uint32) string {
	prefix := ActionDelegatePrefix
	if returnsValue {
		prefix = FuncDelegatePrefix
	}
	return fmt.Sprintf("%s{%08x}", prefix, byRefMask)
}

// IsSynthesizedDelegateName reports whether a metadata name belongs to the
// synthesized delegate family.
func IsSynthesizedDelegateName(name string) bool {
	return strings.HasPrefix(name, ActionDelegatePrefix) || strings.HasPrefix(name, FuncDelegatePrefix)
}

// DisplayClassName returns the name of the closure display class created for
// the given method and closure scope ordinals.
func DisplayClassName(methodOrdinal, closureOrdinal int) string {
	return fmt.Sprintf("%s%d_%d", displayClassPrefix, methodOrdinal, closureOrdinal)
}

// IsDisplayClassName reports whether a name belongs to a closure display class.
func IsDisplayClassName(name string) bool {
	return strings.HasPrefix(name, displayClassPrefix)
}

// StateMachineTypeName returns the name of the state machine type of a method.
// The method row is permanent across generations, which keeps the name stable.
func StateMachineTypeName(method string, methodRow uint32) string {
	return fmt.Sprintf("<%s%s%d", method, stateMachineMarker, methodRow)
}

// ParseStateMachineTypeName recovers the method name and row from a state machine type name.
func ParseStateMachineTypeName(name string) (string, uint32, bool) {
	if !strings.HasPrefix(name, "<") {
		return "", 0, false
	}
	i := strings.LastIndex(name, stateMachineMarker)
	if i <= 1 {
		return "", 0, false
	}
	digits := name[i+len(stateMachineMarker):]
	if !isDigits(digits) {
		return "", 0, false
	}
	row, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return "", 0, false
	}
	return name[1:i], uint32(row), true
}

// HoistedFieldName returns the name of the state machine field holding a hoisted variable.
func HoistedFieldName(variable string, slot int) string {
	return fmt.Sprintf("<%s%s%d", variable, hoistedLocalMarker, slot)
}

// ParseHoistedFieldName recovers the variable name and slot index from a hoisted field name.
func ParseHoistedFieldName(name string) (string, int, bool) {
	if !strings.HasPrefix(name, "<") {
		return "", 0, false
	}
	i := strings.LastIndex(name, hoistedLocalMarker)
	if i <= 1 {
		return "", 0, false
	}
	digits := name[i+len(hoistedLocalMarker):]
	if !isDigits(digits) {
		return "", 0, false
	}
	slot, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	return name[1:i], slot, true
}

// MangleName appends the generic arity suffix used in metadata.
func MangleName(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + string(arityMarker) + strconv.Itoa(arity)
}

// UnmangleName strips a well-formed arity suffix from a metadata name. Names
// without one, or with a malformed one, are returned unchanged with arity 0.
func UnmangleName(metadataName string) (string, int) {
	i := strings.LastIndexByte(metadataName, arityMarker)
	if i < 0 {
		return metadataName, 0
	}
	digits := metadataName[i+1:]
	if !isDigits(digits) || digits[0] == '0' {
		return metadataName, 0
	}
	arity, err := strconv.Atoi(digits)
	if err != nil {
		return metadataName, 0
	}
	return metadataName[:i], arity
}

// IsGenerated reports whether a name was produced by the compiler rather than
// written in source.
func IsGenerated(name string) bool {
	return strings.HasPrefix(name, "<")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
