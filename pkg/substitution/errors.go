package substitution

import (
	"errors"
	"fmt"
)

// ErrUnresolvedVariable indicates a template referenced a variable the
// context cannot resolve. Callers should use errors.Is() to check for it.
var ErrUnresolvedVariable = errors.New("substitution: unresolved variable")

// SubstitutionError reports an unresolved template variable with the
// template text that referenced it.
type SubstitutionError struct {
	Variable string
	Template string
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("substitution: unresolved variable %q in template %q", e.Variable, e.Template)
}

func (e *SubstitutionError) Unwrap() error { return ErrUnresolvedVariable }
