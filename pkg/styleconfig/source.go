package styleconfig

import (
	"fmt"
	"io/fs"
)

// Source supplies the documents that extends references resolve
// against. Names are style names, not paths; the caller decides what
// they mean.
type Source interface {
	Resolve(name string) ([]byte, error)
}

// FSSource resolves style names against a filesystem, mapping a name
// to Pattern with the name substituted (default "%s.yaml").
type FSSource struct {
	FS      fs.FS
	Pattern string
}

// Resolve reads the document for a style name.
func (s FSSource) Resolve(name string) ([]byte, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = "%s.yaml"
	}
	return fs.ReadFile(s.FS, fmt.Sprintf(pattern, name))
}

// MapSource resolves style names from an in-memory map. Useful in
// tests and for callers that assemble documents themselves.
type MapSource map[string][]byte

// Resolve returns the document for a style name.
func (s MapSource) Resolve(name string) ([]byte, error) {
	doc, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("styleconfig: no document for style %q", name)
	}
	return doc, nil
}
