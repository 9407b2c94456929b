package mapping

import (
	"errors"
	"fmt"
)

// Sentinel errors for field resolution failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrMissingSource indicates a field spec has no usable source.
	ErrMissingSource = errors.New("mapping: field spec missing source")

	// ErrUnresolvedSource indicates a source path did not resolve
	// against the record.
	ErrUnresolvedSource = errors.New("mapping: unresolved source path")

	// ErrUnknownStructure indicates a structure string survived
	// configuration validation without a matching strategy.
	ErrUnknownStructure = errors.New("mapping: unknown field structure")
)

// FieldMappingError wraps a failure inside one field's resolution with
// the field name, the record's reference code, and the offending
// template when one was involved. It is fatal for the enclosing
// record, which aborts the whole run: a compliance artifact is either
// complete or absent, never partial.
type FieldMappingError struct {
	Field    string
	Ref      string
	Template string
	Err      error
}

func (e *FieldMappingError) Error() string {
	msg := fmt.Sprintf("mapping: field %q", e.Field)
	if e.Ref != "" {
		msg += fmt.Sprintf(" (record %s)", e.Ref)
	}
	if e.Template != "" {
		msg += fmt.Sprintf(" template %q", e.Template)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldMappingError) Unwrap() error { return e.Err }
