// Package xccdf defines the schema-shaped output object graph the
// mapping engine assembles. The graph is pure data: an external
// schema-aware serializer owns namespace management, schema-version
// element construction, and final XML rendering.
package xccdf

// OutputBenchmark is the assembled export for one benchmark. Rules
// accumulate in record order; the graph is handed off only when
// complete — a failed run never yields a partial benchmark.
type OutputBenchmark struct {
	// ExportID identifies this export run for downstream tracing.
	ExportID string `json:"export_id"`

	// Style and SchemaVersion echo the driving configuration.
	Style         string `json:"style"`
	SchemaVersion string `json:"schema_version"`

	Title   string `json:"title"`
	Version string `json:"version"`

	// Fields holds benchmark-level values in declared order.
	Fields []Field `json:"fields,omitempty"`

	// Profiles precede groups in the schema.
	Profiles []*Profile `json:"profiles,omitempty"`

	// Groups holds one group per record, each wrapping one rule.
	Groups []*Group `json:"groups"`
}

// Group wraps a single rule, mirroring the one-group-per-rule layout
// benchmark consumers expect.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Rule  *Rule  `json:"rule"`
}

// Rule is the output for one recommendation record.
type Rule struct {
	ID       string `json:"id"`
	Severity string `json:"severity,omitempty"`
	Weight   string `json:"weight,omitempty"`
	Selected bool   `json:"selected"`

	// Fields holds resolved values in the order the configuration
	// declared them.
	Fields []Field `json:"fields"`
}

// Field pairs an output field name with its resolved value and any
// resolved element attributes.
type Field struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
	Attrs []Attr `json:"attrs,omitempty"`
}

// Profile selects a subset of rules at benchmark level.
type Profile struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Selects     []Select `json:"selects"`
}

// Select references one rule from a profile.
type Select struct {
	IDRef    string `json:"idref"`
	Selected bool   `json:"selected"`
}
