// Package substitution resolves {name} and {name.attr} tokens in
// mapping templates against a per-record context.
//
// The token language is deliberately a narrow tokenizer plus a
// dotted-path resolver, not an expression language. An unresolved
// variable fails fast with a *SubstitutionError; the legacy
// blank-on-miss behavior is an explicit opt-in via
// Context.BlankOnMissing.
package substitution

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/benchmap/benchmap/pkg/benchmark"
)

// tokenRE matches {name} and {name.attr} tokens. Path segments after
// the first may be numeric list indexes.
var tokenRE = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\}`)

// Context carries the per-record bindings templates resolve against.
// A Context is record-scoped: build one per record, discard it after
// the record's rule is produced. Loop bindings are layered on with
// WithBinding, which never mutates the parent.
type Context struct {
	// BlankOnMissing substitutes "" for unresolved variables instead
	// of failing. Off by default; fail-fast is the contract for
	// compliance artifacts.
	BlankOnMissing bool

	bindings map[string]any
	memo     *refMemo
}

// refMemo caches the normalized reference code. Shared across derived
// contexts so the normalization happens once per record.
type refMemo struct {
	ref        string
	normalized string
	computed   bool
	calls      int
}

// NewContext builds the base context for one record: the platform
// token, the record's scalar fields under their config names, the
// owning benchmark under "benchmark", and the record's collections.
func NewContext(b *benchmark.Benchmark, rec *benchmark.Recommendation) *Context {
	platform := b.Platform
	if platform == "" {
		platform = benchmark.DerivePlatform(b.Title)
	}

	bindings := map[string]any{
		"platform":          platform,
		"ref":               rec.Ref,
		"title":             rec.Title,
		"url":               rec.URL,
		"assessment_status": rec.AssessmentStatus,
		"description":       rec.Description,
		"rationale":         rec.Rationale,
		"impact":            rec.Impact,
		"audit":             rec.Audit,
		"remediation":       rec.Remediation,
		"default_value":     rec.DefaultValue,
		"additional_info":   rec.AdditionalInfo,
		"references":        rec.References,
		"profiles":          rec.Profiles,
		"nist_controls":     rec.NISTControls,
		"controls":          Bind(rec.Controls),
		"attack":            Bind(rec.ATTACK),
		"benchmark": map[string]any{
			"id":       b.ID,
			"title":    b.Title,
			"version":  b.Version,
			"platform": platform,
		},
	}

	return &Context{
		bindings: bindings,
		memo:     &refMemo{ref: rec.Ref},
	}
}

// WithBinding returns a derived context with one additional binding.
// The parent context and its bindings are untouched; the normalized-ref
// cache is shared.
func (c *Context) WithBinding(name string, value any) *Context {
	derived := &Context{
		BlankOnMissing: c.BlankOnMissing,
		bindings:       make(map[string]any, len(c.bindings)+1),
		memo:           c.memo,
	}
	for k, v := range c.bindings {
		derived.bindings[k] = v
	}
	derived.bindings[name] = Bind(value)
	return derived
}

// NormalizeCalls reports how many times the reference code has been
// normalized for this record. It exists so tests can assert the value
// is computed once and cached.
func (c *Context) NormalizeCalls() int { return c.memo.calls }

// refNormalized returns the cached normalized reference code,
// computing it on first use.
func (c *Context) refNormalized() string {
	if !c.memo.computed {
		c.memo.normalized = NormalizeRef(c.memo.ref)
		c.memo.computed = true
		c.memo.calls++
	}
	return c.memo.normalized
}

// NormalizeRef converts a dotted reference code to its identifier-safe
// form: "3.1.1" becomes "3_1_1".
func NormalizeRef(ref string) string {
	return strings.ReplaceAll(ref, ".", "_")
}

// Lookup resolves a dotted variable path to its string form.
func (c *Context) Lookup(path string) (string, bool) {
	value, ok := c.Value(path)
	if !ok {
		return "", false
	}
	return stringify(value), true
}

// Value resolves a dotted variable path to the raw bound value. Field
// mapping strategies use this to reach collections; templates go
// through Lookup.
func (c *Context) Value(path string) (any, bool) {
	segments := strings.Split(path, ".")
	if segments[0] == "ref_normalized" && len(segments) == 1 {
		return c.refNormalized(), true
	}
	value, ok := c.bindings[segments[0]]
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		value, ok = step(value, seg)
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// step resolves one path segment against a bound value.
func step(value any, seg string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		next, ok := v[seg]
		return next, ok
	case map[string]string:
		next, ok := v[seg]
		return next, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	case []string:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	default:
		return nil, false
	}
}

// stringify renders a terminal value as template text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// Bind normalizes a value into the shapes the resolver understands.
// Record types become maps keyed by their config names; slices are
// bound element-wise; scalars pass through.
func Bind(value any) any {
	switch v := value.(type) {
	case benchmark.Control:
		return map[string]any{
			"framework": v.Framework,
			"version":   v.Version,
			"control":   v.Control,
			"title":     v.Title,
			"ig1":       v.IG1,
			"ig2":       v.IG2,
			"ig3":       v.IG3,
		}
	case benchmark.ATTACKMapping:
		return map[string]any{
			"techniques":  v.Techniques,
			"tactics":     v.Tactics,
			"mitigations": v.Mitigations,
		}
	case []benchmark.Control:
		bound := make([]any, len(v))
		for i := range v {
			bound[i] = Bind(v[i])
		}
		return bound
	default:
		return v
	}
}

// HasTokens reports whether s contains at least one template token.
func HasTokens(s string) bool {
	return tokenRE.MatchString(s)
}

// Substitute resolves every token in template against ctx. The first
// unresolved variable fails the whole template unless
// ctx.BlankOnMissing is set.
func Substitute(template string, ctx *Context) (string, error) {
	var firstErr error
	out := tokenRE.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := ctx.Lookup(name)
		if !ok {
			if ctx.BlankOnMissing {
				return ""
			}
			if firstErr == nil {
				firstErr = &SubstitutionError{Variable: name, Template: template}
			}
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
