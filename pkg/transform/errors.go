package transform

import (
	"errors"
	"fmt"
)

// ErrUnknownTransform indicates a transform name is not registered.
// Callers should use errors.Is() to check for it.
var ErrUnknownTransform = errors.New("transform: unknown transform")

// TransformError reports an unregistered transform name.
type TransformError struct {
	// Name is the transform name that failed to resolve.
	Name string

	// Field is the output field being resolved, when known.
	Field string
}

func (e *TransformError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("transform: unknown transform %q for field %q", e.Name, e.Field)
	}
	return fmt.Sprintf("transform: unknown transform %q", e.Name)
}

func (e *TransformError) Unwrap() error { return ErrUnknownTransform }
