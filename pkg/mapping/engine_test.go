package mapping

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchmap/benchmap/pkg/benchmark"
	"github.com/benchmap/benchmap/pkg/correlation"
	"github.com/benchmap/benchmap/pkg/styleconfig"
	"github.com/benchmap/benchmap/pkg/substitution"
	"github.com/benchmap/benchmap/pkg/xccdf"
)

const engineStyle = `
style: cis
schema_version: "1.1.4"
benchmark:
  title:
    source_field: benchmark.title
  version:
    source_field: benchmark.version
rule:
  id_template: "xccdf_org.cisecurity_{platform}_rule_{ref_normalized}"
  defaults:
    severity: medium
    weight: "10.0"
    selected: true
transforms:
  clean: strip_markup
field_mappings:
  title:
    source_field: title
  description:
    source_field: description
    transform: clean
  ident:
    structure: ident_from_list
    source_field: attack.techniques
    system: "https://attack.mitre.org"
    value: "{item}"
  nist:
    structure: correlation_idents
    system: "https://cyber.mil/cci"
correlation:
  enabled: true
  extract: all
profiles:
  level-1-server:
    match: ["Level 1"]
  level-2-server:
    match: ["Level 2 - Server"]
`

func engineBenchmark() *benchmark.Benchmark {
	return &benchmark.Benchmark{
		ID:      "cis_ubuntu_22.04",
		Title:   "Ubuntu Linux 22.04 LTS Benchmark",
		Version: "2.0.0",
		Recommendations: []benchmark.Recommendation{
			{
				Ref:          "3.1.1",
				Title:        "Ensure packet redirect sending is disabled",
				Description:  "<p>Disable sending of <b>redirects</b>.</p>",
				Controls:     []benchmark.Control{{Version: "8", Control: "4.8"}},
				ATTACK:       benchmark.ATTACKMapping{Techniques: []string{"T1095"}},
				NISTControls: []string{"CM-7", "SI-3"},
				Profiles:     []string{"Level 1 - Server"},
			},
			{
				Ref:         "3.1.2",
				Title:       "Ensure bogus interfaces are not accepted",
				Description: "Reject bogus packets.",
				Profiles:    []string{"Level 1 - Workstation"},
			},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func loadEngineConfig(t *testing.T, doc string) *styleconfig.Config {
	t.Helper()
	cfg, err := styleconfig.Load([]byte(doc), nil)
	require.NoError(t, err)
	return cfg
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := loadEngineConfig(t, engineStyle)
	table := correlation.NewTable(map[string]correlation.Entry{
		"4.8": {Primary: correlation.Identifier{Value: "CCI-000381", Target: "CM-7(5)"}},
	})
	svc := correlation.NewService(table, cfg.Correlation.Extract, quietLogger())

	engine, err := NewEngine(cfg, nil, svc, quietLogger())
	require.NoError(t, err)
	return engine
}

// TestEngineMap is the end-to-end pass: one group per record, fields in
// declared order, profiles assembled from rule applicability.
func TestEngineMap(t *testing.T) {
	engine := newTestEngine(t)

	out, err := engine.Map(engineBenchmark())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, "cis", out.Style)
	assert.Equal(t, "1.1.4", out.SchemaVersion)
	assert.Equal(t, "Ubuntu Linux 22.04 LTS Benchmark", out.Title)
	assert.Equal(t, "2.0.0", out.Version)
	assert.Len(t, out.ExportID, 36, "export id is a UUID")

	// Benchmark-level fields.
	require.Len(t, out.Fields, 2)
	assert.Equal(t, "title", out.Fields[0].Name)
	assert.Equal(t, xccdf.Text("Ubuntu Linux 22.04 LTS Benchmark"), out.Fields[0].Value)
	assert.Equal(t, xccdf.Text("2.0.0"), out.Fields[1].Value)

	// One group per record, in record order.
	require.Len(t, out.Groups, 2)
	first := out.Groups[0]
	assert.Equal(t, "xccdf_org.cisecurity_ubuntu_group_3_1_1", first.ID)
	assert.Equal(t, "Ensure packet redirect sending is disabled", first.Title)

	rule := first.Rule
	require.NotNil(t, rule)
	assert.Equal(t, "xccdf_org.cisecurity_ubuntu_rule_3_1_1", rule.ID)
	assert.Equal(t, "medium", rule.Severity)
	assert.Equal(t, "10.0", rule.Weight)
	assert.True(t, rule.Selected)

	require.Len(t, rule.Fields, 4)
	assert.Equal(t, "title", rule.Fields[0].Name)
	assert.Equal(t, "description", rule.Fields[1].Name)
	assert.Equal(t, xccdf.Text("Disable sending of redirects."), rule.Fields[1].Value)

	idents, ok := rule.Fields[2].Value.(xccdf.IdentList)
	require.True(t, ok)
	require.Len(t, idents, 1)
	assert.Equal(t, "T1095", idents[0].Value)

	set, ok := rule.Fields[3].Value.(xccdf.CorrelationSet)
	require.True(t, ok)
	require.Len(t, set.Idents, 1)
	assert.Equal(t, "CCI-000381", set.Idents[0].Value)
	assert.Equal(t, xccdf.ReferenceList{"SI-3"}, set.References)

	assert.Equal(t, "xccdf_org.cisecurity_ubuntu_group_3_1_2", out.Groups[1].ID)
}

// TestEngineMapProfiles verifies token matching by equality or
// substring, selects in record order, and omission of profiles that
// select nothing.
func TestEngineMapProfiles(t *testing.T) {
	engine := newTestEngine(t)

	out, err := engine.Map(engineBenchmark())
	require.NoError(t, err)

	// "Level 1" matches both records by substring; "Level 2 - Server"
	// matches nothing and its profile is dropped.
	require.Len(t, out.Profiles, 1)
	profile := out.Profiles[0]
	assert.Equal(t, "level-1-server", profile.ID)
	assert.Equal(t, "Level 1 Server", profile.Title, "default title derived from the id")
	require.Len(t, profile.Selects, 2)
	assert.Equal(t, "xccdf_org.cisecurity_ubuntu_rule_3_1_1", profile.Selects[0].IDRef)
	assert.Equal(t, "xccdf_org.cisecurity_ubuntu_rule_3_1_2", profile.Selects[1].IDRef)
	assert.True(t, profile.Selects[0].Selected)
}

func TestEngineMapInvalidBenchmark(t *testing.T) {
	engine := newTestEngine(t)

	out, err := engine.Map(&benchmark.Benchmark{Title: " "})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, benchmark.ErrMissingField)
}

// TestEngineMapAbortsOnFieldError verifies the run aborts with no
// partial output when any field of any record fails.
func TestEngineMapAbortsOnFieldError(t *testing.T) {
	engine := newTestEngine(t)
	b := engineBenchmark()
	b.Recommendations[1].Description = "See {no_such_variable} for details."

	out, err := engine.Map(b)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, substitution.ErrUnresolvedVariable)

	var fe *FieldMappingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "description", fe.Field)
	assert.Equal(t, "3.1.2", fe.Ref)
}

func TestEngineMapRuleIDTemplateError(t *testing.T) {
	doc := `
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{no_such_variable}"
field_mappings:
  title:
    source_field: title
`
	engine, err := NewEngine(loadEngineConfig(t, doc), nil, nil, quietLogger())
	require.NoError(t, err)

	out, err := engine.Map(engineBenchmark())
	require.Error(t, err)
	assert.Nil(t, out)

	var fe *FieldMappingError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "rule.id", fe.Field)
	assert.Equal(t, "3.1.1", fe.Ref)
}

// TestEngineMapDuplicateRuleID verifies a template that collapses two
// records onto one identifier fails the run.
func TestEngineMapDuplicateRuleID(t *testing.T) {
	doc := `
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{platform}"
field_mappings:
  title:
    source_field: title
`
	engine, err := NewEngine(loadEngineConfig(t, doc), nil, nil, quietLogger())
	require.NoError(t, err)

	out, err := engine.Map(engineBenchmark())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "duplicate rule id")
}

// TestEngineCorrelationDisabled verifies a style with correlation off
// never consults the service, even when one is wired.
func TestEngineCorrelationDisabled(t *testing.T) {
	doc := `
style: cis
schema_version: "1.0"
rule:
  id_template: "r_{ref_normalized}"
field_mappings:
  nist:
    structure: correlation_idents
    system: "https://cyber.mil/cci"
correlation:
  enabled: false
`
	table := correlation.NewTable(map[string]correlation.Entry{
		"4.8": {Primary: correlation.Identifier{Value: "CCI-000381", Target: "CM-7(5)"}},
	})
	svc := correlation.NewService(table, correlation.ExtractAll, quietLogger())

	engine, err := NewEngine(loadEngineConfig(t, doc), nil, svc, quietLogger())
	require.NoError(t, err)

	out, err := engine.Map(engineBenchmark())
	require.NoError(t, err)

	set, ok := out.Groups[0].Rule.Fields[0].Value.(xccdf.CorrelationSet)
	require.True(t, ok)
	assert.Empty(t, set.Idents)
	assert.Equal(t, xccdf.ReferenceList{"CM-7", "SI-3"}, set.References)
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	engine := newTestEngine(t)
	b := engineBenchmark()

	first, err := engine.Map(b)
	require.NoError(t, err)
	second, err := engine.Map(b)
	require.NoError(t, err)

	// Everything except the per-run export id must match.
	assert.NotEqual(t, first.ExportID, second.ExportID)
	first.ExportID = ""
	second.ExportID = ""
	assert.Equal(t, first, second)
}

func TestNewEngineBadAlias(t *testing.T) {
	cfg := loadEngineConfig(t, engineStyle)
	cfg.Transforms = map[string]string{"clean": "no_such_transform"}

	_, err := NewEngine(cfg, nil, nil, quietLogger())
	assert.Error(t, err)
}
