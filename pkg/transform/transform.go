// Package transform provides named, pure text transformations applied
// to record fields during mapping.
//
// Transforms are registered on an injected Registry rather than a
// process-wide singleton, so independently-configured engines can carry
// different transform sets in one process. Every transform is total on
// empty input: it returns "" and never fails.
package transform

import (
	"sort"
)

// Func is a pure text transformation.
type Func func(string) string

// Registry holds named transforms.
type Registry struct {
	transforms map[string]Func
}

// NewRegistry creates a registry with the built-in transforms
// registered under their config-visible names.
func NewRegistry() *Registry {
	r := &Registry{transforms: make(map[string]Func)}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	builtins := map[string]Func{
		"none":                   func(s string) string { return s },
		"strip_markup":           StripMarkup,
		"strip_markup_keep_code": StripMarkupKeepCode,
		"markup_to_text":         MarkupToText,
	}
	for name, fn := range builtins {
		r.transforms[name] = fn
	}
}

// Register adds a transform, replacing any existing one with the same
// name.
func (r *Registry) Register(name string, fn Func) {
	r.transforms[name] = fn
}

// Alias registers name as another name for an existing transform.
// Unknown targets return a *TransformError.
func (r *Registry) Alias(name, target string) error {
	fn, ok := r.transforms[target]
	if !ok {
		return &TransformError{Name: target}
	}
	r.transforms[name] = fn
	return nil
}

// Has reports whether a transform is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.transforms[name]
	return ok
}

// Names returns all registered transform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the named transform over value. Empty input yields ""
// without consulting the transform. An unregistered name yields a
// *TransformError.
func (r *Registry) Apply(name, value string) (string, error) {
	fn, ok := r.transforms[name]
	if !ok {
		return "", &TransformError{Name: name}
	}
	if value == "" {
		return "", nil
	}
	return fn(value), nil
}
