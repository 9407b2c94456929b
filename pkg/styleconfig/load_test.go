package styleconfig

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchmap/benchmap/pkg/correlation"
)

const baseStyle = `
style: cis
schema_version: "1.1.4"
benchmark:
  title:
    source_field: benchmark.title
rule:
  id_template: "xccdf_org.cisecurity_{platform}_rule_{ref_normalized}"
  defaults:
    severity: medium
    weight: "10.0"
    selected: true
field_mappings:
  title:
    source_field: title
  description:
    source_field: description
    transform: strip_markup
  fixtext:
    source_field: remediation
    transform: markup_to_text
transforms:
  clean: strip_markup
correlation:
  enabled: true
  extract: all
profiles:
  level-1-server:
    title: Level 1 - Server
    match: ["Level 1 - Server"]
  level-2-server:
    match: ["Level 2 - Server"]
`

func TestLoadBaseStyle(t *testing.T) {
	cfg, err := Load([]byte(baseStyle), nil)
	require.NoError(t, err)

	assert.Equal(t, "cis", cfg.Style)
	assert.Equal(t, "1.1.4", cfg.SchemaVersion)
	assert.Equal(t, "xccdf_org.cisecurity_{platform}_rule_{ref_normalized}", cfg.RuleIDTemplate)
	assert.Equal(t, "medium", cfg.RuleDefaults.Severity)
	assert.Equal(t, "10.0", cfg.RuleDefaults.Weight)
	assert.True(t, cfg.RuleDefaults.Selected)
	assert.True(t, cfg.Correlation.Enabled)
	assert.Equal(t, correlation.ExtractAll, cfg.Correlation.Extract)

	require.Len(t, cfg.BenchmarkFields, 1)
	assert.Equal(t, "title", cfg.BenchmarkFields[0].Name)
	assert.Equal(t, "benchmark.title", cfg.BenchmarkFields[0].Spec.Source)

	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "level-1-server", cfg.Profiles[0].ID)
	assert.Equal(t, "Level 1 - Server", cfg.Profiles[0].Title)
	assert.Equal(t, "level-2-server", cfg.Profiles[1].ID)
	assert.Empty(t, cfg.Profiles[1].Title)
}

// TestLoadFieldOrder verifies field specs keep their document order;
// resolution order is declared order.
func TestLoadFieldOrder(t *testing.T) {
	cfg, err := Load([]byte(baseStyle), nil)
	require.NoError(t, err)

	require.Len(t, cfg.Fields, 3)
	assert.Equal(t, "title", cfg.Fields[0].Name)
	assert.Equal(t, "description", cfg.Fields[1].Name)
	assert.Equal(t, "fixtext", cfg.Fields[2].Name)
	assert.Equal(t, "strip_markup", cfg.Fields[1].Spec.Transform)
}

func TestLoadExtends(t *testing.T) {
	child := []byte(`
extends: cis
style: cis-strict
transforms:
  tidy: markup_to_text
field_mappings:
  description:
    source_field: rationale
  check:
    source_field: audit
`)
	src := MapSource{"cis": []byte(baseStyle)}

	cfg, err := Load(child, &Options{Source: src})
	require.NoError(t, err)

	// Scalars: overridden where the child sets them, inherited elsewhere.
	assert.Equal(t, "cis-strict", cfg.Style)
	assert.Equal(t, "1.1.4", cfg.SchemaVersion)
	assert.Equal(t, "medium", cfg.RuleDefaults.Severity)
	assert.True(t, cfg.Correlation.Enabled)

	// Base order preserved, overridden spec replaced wholesale,
	// child-only fields appended.
	require.Len(t, cfg.Fields, 4)
	assert.Equal(t, "title", cfg.Fields[0].Name)
	assert.Equal(t, "description", cfg.Fields[1].Name)
	assert.Equal(t, "rationale", cfg.Fields[1].Spec.Source)
	assert.Empty(t, cfg.Fields[1].Spec.Transform, "replacement is wholesale, not key-merge")
	assert.Equal(t, "fixtext", cfg.Fields[2].Name)
	assert.Equal(t, "check", cfg.Fields[3].Name)

	// Untouched base profiles and transforms survive; the child's
	// addition merges in.
	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "strip_markup", cfg.Transforms["clean"])
	assert.Equal(t, "markup_to_text", cfg.Transforms["tidy"])
}

func TestLoadExtendsChain(t *testing.T) {
	grandchild := []byte(`
extends: cis-strict
rule:
  defaults:
    severity: high
`)
	src := MapSource{
		"cis": []byte(baseStyle),
		"cis-strict": []byte(`
extends: cis
style: cis-strict
correlation:
  enabled: false
`),
	}

	cfg, err := Load(grandchild, &Options{Source: src})
	require.NoError(t, err)
	assert.Equal(t, "cis-strict", cfg.Style)
	assert.Equal(t, "high", cfg.RuleDefaults.Severity)
	assert.Equal(t, "10.0", cfg.RuleDefaults.Weight)
	assert.False(t, cfg.Correlation.Enabled)
}

func TestLoadExtendsNoSource(t *testing.T) {
	_, err := Load([]byte("extends: cis\n"), nil)
	assert.ErrorIs(t, err, ErrExtends)
}

func TestLoadExtendsUnknownBase(t *testing.T) {
	_, err := Load([]byte("extends: nowhere\n"), &Options{Source: MapSource{}})
	assert.ErrorIs(t, err, ErrExtends)
}

func TestLoadExtendsCycle(t *testing.T) {
	src := MapSource{
		"a": []byte("extends: b\nstyle: a\n"),
		"b": []byte("extends: a\nstyle: b\n"),
	}
	_, err := Load([]byte("extends: a\n"), &Options{Source: src})
	assert.ErrorIs(t, err, ErrExtends)
}

func TestLoadParseError(t *testing.T) {
	_, err := Load([]byte("field_mappings: [unterminated\n"), nil)
	assert.ErrorIs(t, err, ErrParse)
}

func TestLoadMissingSections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"style", "schema_version: \"1.0\"\nrule:\n  id_template: r_{ref}\nfield_mappings:\n  title:\n    source_field: title\n"},
		{"schema_version", "style: cis\nrule:\n  id_template: r_{ref}\nfield_mappings:\n  title:\n    source_field: title\n"},
		{"rule.id_template", "style: cis\nschema_version: \"1.0\"\nfield_mappings:\n  title:\n    source_field: title\n"},
		{"field_mappings", "style: cis\nschema_version: \"1.0\"\nrule:\n  id_template: r_{ref}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc), nil)
			require.ErrorIs(t, err, ErrMissingSection)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestLoadUnknownStructure(t *testing.T) {
	doc := []byte(`
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
field_mappings:
  widget:
    structure: sideways
    source_field: title
`)
	_, err := Load(doc, nil)
	require.ErrorIs(t, err, ErrUnknownStructure)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "widget", ce.Field)
}

func TestLoadUnknownTransform(t *testing.T) {
	doc := []byte(`
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
field_mappings:
  description:
    source_field: description
    transform: launder
`)
	_, err := Load(doc, nil)
	require.ErrorIs(t, err, ErrUnknownTransform)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "description", ce.Field)
}

// TestLoadTransformAlias verifies style-local aliases satisfy field
// references, and that aliases must target a real transform.
func TestLoadTransformAlias(t *testing.T) {
	doc := []byte(`
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
transforms:
  clean: strip_markup
field_mappings:
  description:
    source_field: description
    transform: clean
`)
	cfg, err := Load(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "strip_markup", cfg.Transforms["clean"])

	bad := []byte(`
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
transforms:
  clean: launder
field_mappings:
  title:
    source_field: title
`)
	_, err = Load(bad, nil)
	assert.ErrorIs(t, err, ErrUnknownTransform)
}

func TestLoadInvalidExtract(t *testing.T) {
	doc := []byte(`
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
correlation:
  extract: everything
field_mappings:
  title:
    source_field: title
`)
	_, err := Load(doc, nil)
	assert.ErrorIs(t, err, ErrMissingSection)
}

// TestLoadCompositeTransformRefs verifies transforms referenced inside
// composite sources and embedded tags are validated too.
func TestLoadCompositeTransformRefs(t *testing.T) {
	doc := []byte(`
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
field_mappings:
  discussion:
    structure: composite
    separator: "\n\n"
    sources:
      - source_field: description
        transform: bogus
      - source_field: rationale
`)
	_, err := Load(doc, nil)
	require.ErrorIs(t, err, ErrUnknownTransform)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "discussion", ce.Field)
}

func TestStructureKindDefault(t *testing.T) {
	assert.Equal(t, StructureSimple, RawFieldSpec{}.StructureKind())
	assert.Equal(t, StructureNested, RawFieldSpec{Structure: StructureNested}.StructureKind())
}

func TestFSSource(t *testing.T) {
	fsys := fstest.MapFS{
		"styles/cis.yaml": &fstest.MapFile{Data: []byte(baseStyle)},
	}

	doc, err := FSSource{FS: fsys, Pattern: "styles/%s.yaml"}.Resolve("cis")
	require.NoError(t, err)
	assert.Equal(t, []byte(baseStyle), doc)

	_, err = FSSource{FS: fsys}.Resolve("cis")
	assert.Error(t, err, "default pattern looks in the root")
}

func TestMapSourceMissing(t *testing.T) {
	_, err := MapSource{}.Resolve("ghost")
	assert.Error(t, err)
}
