package styleconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/benchmap/benchmap/pkg/correlation"
	"github.com/benchmap/benchmap/pkg/transform"
)

// Options tune loading. The zero value is usable.
type Options struct {
	// Source resolves extends references. A document with no extends
	// loads without one; a document with extends and no Source fails.
	Source Source

	// KnownTransforms names the transforms the engine's registry will
	// provide. Empty means the built-in registry's names.
	KnownTransforms []string
}

// Load parses a style document, resolves its extends chain, merges
// child over base, and validates the result. Pure parse: the only
// side effects are Source reads for extends targets.
func Load(data []byte, opts *Options) (*Config, error) {
	if opts == nil {
		opts = &Options{}
	}
	doc, err := loadChain(data, opts.Source, map[string]bool{})
	if err != nil {
		return nil, err
	}
	cfg := doc.toConfig()
	if err := validate(cfg, opts.KnownTransforms); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadChain parses one document and merges it over its base, guarding
// against extends cycles.
func loadChain(data []byte, src Source, visiting map[string]bool) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Detail: err.Error(), Err: ErrParse}
	}
	if doc.Extends == "" {
		return &doc, nil
	}
	if src == nil {
		return nil, &ConfigError{
			Detail: fmt.Sprintf("document extends %q but no source was provided", doc.Extends),
			Err:    ErrExtends,
		}
	}
	if visiting[doc.Extends] {
		return nil, &ConfigError{
			Detail: fmt.Sprintf("extends cycle through %q", doc.Extends),
			Err:    ErrExtends,
		}
	}
	visiting[doc.Extends] = true
	baseData, err := src.Resolve(doc.Extends)
	if err != nil {
		return nil, &ConfigError{
			Detail: fmt.Sprintf("resolving base style %q: %v", doc.Extends, err),
			Err:    ErrExtends,
		}
	}
	base, err := loadChain(baseData, src, visiting)
	if err != nil {
		return nil, err
	}
	return merge(base, &doc), nil
}

// document is the raw YAML shape of one style file.
type document struct {
	Extends       string            `yaml:"extends,omitempty"`
	Style         string            `yaml:"style,omitempty"`
	SchemaVersion string            `yaml:"schema_version,omitempty"`
	Benchmark     specMap           `yaml:"benchmark,omitempty"`
	Rule          ruleDoc           `yaml:"rule,omitempty"`
	FieldMappings specMap           `yaml:"field_mappings,omitempty"`
	Transforms    map[string]string `yaml:"transforms,omitempty"`
	Correlation   correlationDoc    `yaml:"correlation,omitempty"`
	Namespaces    map[string]string `yaml:"namespaces,omitempty"`
	Profiles      profileMap        `yaml:"profiles,omitempty"`
}

type ruleDoc struct {
	IDTemplate string      `yaml:"id_template,omitempty"`
	Defaults   defaultsDoc `yaml:"defaults,omitempty"`
}

type defaultsDoc struct {
	Severity string `yaml:"severity,omitempty"`
	Weight   string `yaml:"weight,omitempty"`
	Selected *bool  `yaml:"selected,omitempty"`
}

type correlationDoc struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Extract string `yaml:"extract,omitempty"`
}

// specMap is a field-name → spec mapping that remembers document
// order; resolution order is declared order.
type specMap struct {
	Order []string
	Specs map[string]RawFieldSpec
}

func (m *specMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %v", node.Kind)
	}
	m.Specs = make(map[string]RawFieldSpec, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var spec RawFieldSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		m.Order = append(m.Order, key)
		m.Specs[key] = spec
	}
	return nil
}

// profileMap is a profile-id → definition mapping in document order.
type profileMap struct {
	Order []string
	Defs  map[string]ProfileDef
}

func (m *profileMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %v", node.Kind)
	}
	m.Defs = make(map[string]ProfileDef, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var def ProfileDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("profile %q: %w", key, err)
		}
		def.ID = key
		m.Order = append(m.Order, key)
		m.Defs[key] = def
	}
	return nil
}

// merge layers child over base: scalars overridden when the child sets
// them, map sections merged key-wise with child precedence.
func merge(base, child *document) *document {
	out := *base
	out.Extends = ""

	if child.Style != "" {
		out.Style = child.Style
	}
	if child.SchemaVersion != "" {
		out.SchemaVersion = child.SchemaVersion
	}
	if child.Rule.IDTemplate != "" {
		out.Rule.IDTemplate = child.Rule.IDTemplate
	}
	if child.Rule.Defaults.Severity != "" {
		out.Rule.Defaults.Severity = child.Rule.Defaults.Severity
	}
	if child.Rule.Defaults.Weight != "" {
		out.Rule.Defaults.Weight = child.Rule.Defaults.Weight
	}
	if child.Rule.Defaults.Selected != nil {
		out.Rule.Defaults.Selected = child.Rule.Defaults.Selected
	}
	if child.Correlation.Enabled != nil {
		out.Correlation.Enabled = child.Correlation.Enabled
	}
	if child.Correlation.Extract != "" {
		out.Correlation.Extract = child.Correlation.Extract
	}

	out.Benchmark = mergeSpecs(base.Benchmark, child.Benchmark)
	out.FieldMappings = mergeSpecs(base.FieldMappings, child.FieldMappings)
	out.Transforms = mergeStrings(base.Transforms, child.Transforms)
	out.Namespaces = mergeStrings(base.Namespaces, child.Namespaces)
	out.Profiles = mergeProfiles(base.Profiles, child.Profiles)

	return &out
}

// mergeSpecs keeps base keys in base order, child-only keys appended
// in child order; a child spec replaces the base spec wholesale.
func mergeSpecs(base, child specMap) specMap {
	if child.Specs == nil {
		return base
	}
	if base.Specs == nil {
		return child
	}
	out := specMap{Specs: make(map[string]RawFieldSpec, len(base.Specs)+len(child.Specs))}
	for _, name := range base.Order {
		out.Order = append(out.Order, name)
		if spec, ok := child.Specs[name]; ok {
			out.Specs[name] = spec
		} else {
			out.Specs[name] = base.Specs[name]
		}
	}
	for _, name := range child.Order {
		if _, ok := base.Specs[name]; ok {
			continue
		}
		out.Order = append(out.Order, name)
		out.Specs[name] = child.Specs[name]
	}
	return out
}

func mergeStrings(base, child map[string]string) map[string]string {
	if len(child) == 0 {
		return base
	}
	if len(base) == 0 {
		return child
	}
	out := make(map[string]string, len(base)+len(child))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range child {
		out[k] = v
	}
	return out
}

func mergeProfiles(base, child profileMap) profileMap {
	if child.Defs == nil {
		return base
	}
	if base.Defs == nil {
		return child
	}
	out := profileMap{Defs: make(map[string]ProfileDef, len(base.Defs)+len(child.Defs))}
	for _, id := range base.Order {
		out.Order = append(out.Order, id)
		if def, ok := child.Defs[id]; ok {
			out.Defs[id] = def
		} else {
			out.Defs[id] = base.Defs[id]
		}
	}
	for _, id := range child.Order {
		if _, ok := base.Defs[id]; ok {
			continue
		}
		out.Order = append(out.Order, id)
		out.Defs[id] = child.Defs[id]
	}
	return out
}

// toConfig converts the merged document into the immutable Config.
func (d *document) toConfig() *Config {
	cfg := &Config{
		Style:          d.Style,
		SchemaVersion:  d.SchemaVersion,
		RuleIDTemplate: d.Rule.IDTemplate,
		RuleDefaults: RuleDefaults{
			Severity: d.Rule.Defaults.Severity,
			Weight:   d.Rule.Defaults.Weight,
		},
		Transforms: d.Transforms,
		Namespaces: d.Namespaces,
	}
	if d.Rule.Defaults.Selected != nil {
		cfg.RuleDefaults.Selected = *d.Rule.Defaults.Selected
	}
	if d.Correlation.Enabled != nil {
		cfg.Correlation.Enabled = *d.Correlation.Enabled
	}
	cfg.Correlation.Extract = correlation.ExtractMode(d.Correlation.Extract)
	if cfg.Correlation.Extract == "" {
		cfg.Correlation.Extract = correlation.ExtractPrimary
	}
	for _, name := range d.Benchmark.Order {
		cfg.BenchmarkFields = append(cfg.BenchmarkFields, Field{Name: name, Spec: d.Benchmark.Specs[name]})
	}
	for _, name := range d.FieldMappings.Order {
		cfg.Fields = append(cfg.Fields, Field{Name: name, Spec: d.FieldMappings.Specs[name]})
	}
	for _, id := range d.Profiles.Order {
		cfg.Profiles = append(cfg.Profiles, d.Profiles.Defs[id])
	}
	return cfg
}

// validate enforces required sections, structure kinds, transform
// references and correlation settings on the merged config.
func validate(cfg *Config, knownTransforms []string) error {
	if cfg.Style == "" {
		return &ConfigError{Detail: "style", Err: ErrMissingSection}
	}
	if cfg.SchemaVersion == "" {
		return &ConfigError{Detail: "schema_version", Err: ErrMissingSection}
	}
	if cfg.RuleIDTemplate == "" {
		return &ConfigError{Detail: "rule.id_template", Err: ErrMissingSection}
	}
	if len(cfg.Fields) == 0 {
		return &ConfigError{Detail: "field_mappings", Err: ErrMissingSection}
	}
	if !cfg.Correlation.Extract.Valid() {
		return &ConfigError{
			Detail: fmt.Sprintf("correlation.extract %q (want %q or %q)",
				cfg.Correlation.Extract, correlation.ExtractPrimary, correlation.ExtractAll),
			Err: ErrMissingSection,
		}
	}

	known := make(map[string]bool)
	if len(knownTransforms) == 0 {
		knownTransforms = transform.NewRegistry().Names()
	}
	for _, name := range knownTransforms {
		known[name] = true
	}
	for alias, target := range cfg.Transforms {
		if !known[target] {
			return &ConfigError{
				Detail: fmt.Sprintf("transform alias %q targets undefined transform %q", alias, target),
				Err:    ErrUnknownTransform,
			}
		}
	}
	for alias := range cfg.Transforms {
		known[alias] = true
	}

	check := func(fields []Field) error {
		for _, f := range fields {
			if !knownStructures[f.Spec.StructureKind()] {
				return &ConfigError{
					Field:  f.Name,
					Detail: fmt.Sprintf("structure %q", f.Spec.Structure),
					Err:    ErrUnknownStructure,
				}
			}
			for _, t := range f.Spec.transformRefs() {
				if !known[t] {
					return &ConfigError{
						Field:  f.Name,
						Detail: fmt.Sprintf("transform %q", t),
						Err:    ErrUnknownTransform,
					}
				}
			}
		}
		return nil
	}
	if err := check(cfg.BenchmarkFields); err != nil {
		return err
	}
	return check(cfg.Fields)
}

// transformRefs collects every transform name a spec references.
func (s RawFieldSpec) transformRefs() []string {
	var refs []string
	if s.Transform != "" {
		refs = append(refs, s.Transform)
	}
	for _, src := range s.Sources {
		if src.Transform != "" {
			refs = append(refs, src.Transform)
		}
	}
	for _, tag := range s.Tags {
		for _, src := range tag.Sources {
			if src.Transform != "" {
				refs = append(refs, src.Transform)
			}
		}
	}
	return refs
}
