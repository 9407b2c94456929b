package benchmark

import "errors"

// Sentinel errors for record validation failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrMissingField indicates a required record field was empty.
	ErrMissingField = errors.New("benchmark: missing required field")

	// ErrDuplicateRef indicates two recommendations share a reference
	// code; every record must map to exactly one output rule.
	ErrDuplicateRef = errors.New("benchmark: duplicate recommendation ref")

	// ErrDecode indicates the benchmark document could not be parsed.
	ErrDecode = errors.New("benchmark: invalid benchmark document")
)
