package styleconfig

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrParse indicates the document is not valid YAML.
	ErrParse = errors.New("styleconfig: invalid style document")

	// ErrMissingSection indicates a required section or key is absent.
	ErrMissingSection = errors.New("styleconfig: missing required section")

	// ErrUnknownStructure indicates a field spec declares an
	// unrecognized structural kind.
	ErrUnknownStructure = errors.New("styleconfig: unknown field structure")

	// ErrUnknownTransform indicates a field spec references a
	// transform name that is neither built in nor declared in the
	// style's transforms section.
	ErrUnknownTransform = errors.New("styleconfig: undefined transform reference")

	// ErrExtends indicates the extends chain could not be resolved
	// (no source, unresolvable base, or a cycle).
	ErrExtends = errors.New("styleconfig: unresolvable extends reference")
)

// ConfigError carries the field and detail of a load-time failure.
// Load-time errors are fatal before any mapping begins.
type ConfigError struct {
	// Field is the field-mapping name at fault, when one is involved.
	Field string

	// Detail describes the failure.
	Detail string

	// Err is the sentinel category.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%v: field %q: %s", e.Err, e.Field, e.Detail)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.Err }
