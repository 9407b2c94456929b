// Package styleconfig loads the declarative mapping configuration that
// drives a benchmark export style.
//
// A style document is YAML authored out-of-band. It may extend another
// style: the child document is merged over its base at load time —
// scalar sections overridden, map sections merged key-wise with child
// precedence — into one immutable Config that is never re-resolved per
// record. Field specs stay declarative here; pkg/mapping compiles them
// into its closed variant.
package styleconfig

import "github.com/benchmap/benchmap/pkg/correlation"

// Structure discriminator values for field specs.
const (
	StructureSimple      = "simple"
	StructureComposite   = "composite"
	StructureEmbedded    = "embedded_tags"
	StructureIdentList   = "ident_from_list"
	StructureNested      = "nested_from_config"
	StructureProfiles    = "profiles_from_rules"
	StructureCorrelation = "correlation_idents"
)

// knownStructures guards the declarative surface; pkg/mapping switches
// exhaustively over the compiled variant.
var knownStructures = map[string]bool{
	StructureSimple:      true,
	StructureComposite:   true,
	StructureEmbedded:    true,
	StructureIdentList:   true,
	StructureNested:      true,
	StructureProfiles:    true,
	StructureCorrelation: true,
}

// Config is a fully merged, validated style configuration. Read-only
// after Load; safe to share across concurrently-running exports.
type Config struct {
	// Style is the style name, e.g. "disa" or "cis".
	Style string

	// SchemaVersion is the target schema version, e.g. "1.1.4".
	SchemaVersion string

	// BenchmarkFields holds benchmark-level field specs in document
	// order.
	BenchmarkFields []Field

	// RuleIDTemplate renders each rule's identifier, e.g.
	// "xccdf_org.cisecurity_{platform}_rule_{ref_normalized}".
	RuleIDTemplate string

	// RuleDefaults are attributes applied to every rule.
	RuleDefaults RuleDefaults

	// Fields holds per-rule field specs in document order.
	Fields []Field

	// Transforms maps style-local transform aliases to registered
	// transform names.
	Transforms map[string]string

	// Correlation configures identifier lookup and deduplication.
	Correlation CorrelationSettings

	// Namespaces maps prefixes to namespace URIs for nested elements.
	// The external serializer owns declaration and placement.
	Namespaces map[string]string

	// Profiles holds profile definitions in document order.
	Profiles []ProfileDef
}

// Field pairs an output field name with its declarative spec.
type Field struct {
	Name string
	Spec RawFieldSpec
}

// RuleDefaults are the default rule attributes for a style.
type RuleDefaults struct {
	Severity string `yaml:"severity,omitempty"`
	Weight   string `yaml:"weight,omitempty"`
	Selected bool   `yaml:"selected,omitempty"`
}

// CorrelationSettings configures the correlation pass.
type CorrelationSettings struct {
	Enabled bool
	Extract correlation.ExtractMode
}

// ProfileDef defines one output profile and the applicability tokens
// that select records into it.
type ProfileDef struct {
	ID          string
	Title       string   `yaml:"title,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Match       []string `yaml:"match"`
}

// RawFieldSpec is the declarative, data-only description of how one
// output field derives from a source record. Which keys apply depends
// on Structure; an empty Structure means "simple".
type RawFieldSpec struct {
	Structure string `yaml:"structure,omitempty"`

	// Simple / ident_from_list / nested_from_config source.
	Source    string            `yaml:"source_field,omitempty"`
	Transform string            `yaml:"transform,omitempty"`
	Attrs     map[string]string `yaml:"attributes,omitempty"`

	// Composite.
	Sources   []RawSource `yaml:"sources,omitempty"`
	Separator string      `yaml:"separator,omitempty"`

	// Embedded tags.
	Tags []RawTag `yaml:"tags,omitempty"`

	// Ident list templates.
	System        string            `yaml:"system,omitempty"`
	Value         string            `yaml:"value,omitempty"`
	AttrTemplates map[string]string `yaml:"attr_templates,omitempty"`

	// Nested tree.
	Root       string     `yaml:"root,omitempty"`
	Namespace  string     `yaml:"namespace,omitempty"`
	Prefix     string     `yaml:"prefix,omitempty"`
	AllowEmpty bool       `yaml:"allow_empty,omitempty"`
	GroupBy    string     `yaml:"group_by,omitempty"`
	Group      *RawNode   `yaml:"group,omitempty"`
	Item       *RawNode   `yaml:"item,omitempty"`
	Children   []*RawNode `yaml:"children,omitempty"`
}

// RawSource is one source+transform pair inside a composite spec.
type RawSource struct {
	Source    string `yaml:"source_field"`
	Transform string `yaml:"transform,omitempty"`
}

// RawTag is one named sub-tag inside an embedded_tags spec. A tag is
// either static Content or a composite-like join of Sources.
type RawTag struct {
	Name      string      `yaml:"name"`
	Optional  bool        `yaml:"optional,omitempty"`
	Content   string      `yaml:"content,omitempty"`
	Sources   []RawSource `yaml:"sources,omitempty"`
	Separator string      `yaml:"separator,omitempty"`
}

// RawNode is one element template inside a nested_from_config tree.
// Attribute values and Content are substitution templates evaluated
// with {item.*}, {group_key} and {group_count} loop bindings.
type RawNode struct {
	Element string            `yaml:"element"`
	Attrs   map[string]string `yaml:"attributes,omitempty"`
	Content string            `yaml:"content,omitempty"`
	ForEach bool              `yaml:"for_each,omitempty"`

	Children []*RawNode `yaml:"children,omitempty"`
}

// StructureKind returns the effective structure of a spec, defaulting
// an empty discriminator to "simple".
func (s RawFieldSpec) StructureKind() string {
	if s.Structure == "" {
		return StructureSimple
	}
	return s.Structure
}
