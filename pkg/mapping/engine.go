package mapping

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/benchmap/benchmap/pkg/benchmark"
	"github.com/benchmap/benchmap/pkg/correlation"
	"github.com/benchmap/benchmap/pkg/styleconfig"
	"github.com/benchmap/benchmap/pkg/substitution"
	"github.com/benchmap/benchmap/pkg/transform"
	"github.com/benchmap/benchmap/pkg/xccdf"
)

// Engine maps one benchmark to its output graph under a loaded style
// configuration. An Engine is read-only after construction and may be
// shared; each Map call owns its per-record contexts and output.
type Engine struct {
	cfg    *styleconfig.Config
	mapper *Mapper
	logger *slog.Logger

	benchFields []compiledField
	ruleFields  []compiledField
}

type compiledField struct {
	name string
	spec FieldSpec
}

// NewEngine compiles the configuration's field specs and wires the
// collaborators. A nil registry gets the built-in transforms; style
// transform aliases are registered on it. A nil correlation service
// downgrades the correlation strategy to reference-only output. A nil
// logger uses slog.Default.
func NewEngine(cfg *styleconfig.Config, registry *transform.Registry, corr *correlation.Service, logger *slog.Logger) (*Engine, error) {
	if registry == nil {
		registry = transform.NewRegistry()
	}
	for alias, target := range cfg.Transforms {
		if err := registry.Alias(alias, target); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Correlation.Enabled {
		corr = nil
	}

	e := &Engine{
		cfg:    cfg,
		mapper: &Mapper{Transforms: registry, Correlation: corr},
		logger: logger,
	}

	var err error
	e.benchFields, err = compileFields(cfg.BenchmarkFields)
	if err != nil {
		return nil, err
	}
	e.ruleFields, err = compileFields(cfg.Fields)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func compileFields(fields []styleconfig.Field) ([]compiledField, error) {
	compiled := make([]compiledField, 0, len(fields))
	for _, f := range fields {
		spec, err := CompileSpec(f.Name, f.Spec)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledField{name: f.Name, spec: spec})
	}
	return compiled, nil
}

// Map transforms a benchmark into its output graph. On any field
// failure the whole run aborts with that error; callers receive either
// a complete OutputBenchmark or nothing.
func (e *Engine) Map(b *benchmark.Benchmark) (*xccdf.OutputBenchmark, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	e.logger.Info("mapping benchmark",
		"style", e.cfg.Style,
		"title", b.Title,
		"records", len(b.Recommendations))

	out := &xccdf.OutputBenchmark{
		ExportID:      uuid.NewString(),
		Style:         e.cfg.Style,
		SchemaVersion: e.cfg.SchemaVersion,
		Title:         b.Title,
		Version:       b.Version,
	}

	// Benchmark-level fields resolve once, against an empty record.
	var blank benchmark.Recommendation
	benchCtx := substitution.NewContext(b, &blank)
	for _, f := range e.benchFields {
		if f.spec.Kind == KindProfiles {
			continue
		}
		field, err := e.mapper.Resolve(f.name, f.spec, &blank, benchCtx)
		if err != nil {
			return nil, err
		}
		if field.Value == nil {
			continue
		}
		out.Fields = append(out.Fields, field)
	}

	ruleIDs := make([]string, len(b.Recommendations))
	seenIDs := make(map[string]struct{}, len(b.Recommendations))
	for i := range b.Recommendations {
		rec := &b.Recommendations[i]
		ctx := substitution.NewContext(b, rec)

		ruleID, err := substitution.Substitute(e.cfg.RuleIDTemplate, ctx)
		if err != nil {
			return nil, wrapFieldError("rule.id", rec.Ref, err)
		}
		if _, dup := seenIDs[ruleID]; dup {
			return nil, wrapFieldError("rule.id", rec.Ref,
				fmt.Errorf("mapping: duplicate rule id %q", ruleID))
		}
		seenIDs[ruleID] = struct{}{}
		ruleIDs[i] = ruleID

		rule := &xccdf.Rule{
			ID:       ruleID,
			Severity: e.cfg.RuleDefaults.Severity,
			Weight:   e.cfg.RuleDefaults.Weight,
			Selected: e.cfg.RuleDefaults.Selected,
		}
		for _, f := range e.ruleFields {
			if f.spec.Kind == KindProfiles {
				continue
			}
			field, err := e.mapper.Resolve(f.name, f.spec, rec, ctx)
			if err != nil {
				return nil, err
			}
			if field.Value == nil {
				continue
			}
			rule.Fields = append(rule.Fields, field)
		}

		out.Groups = append(out.Groups, &xccdf.Group{
			ID:    groupID(ruleID),
			Title: rec.Title,
			Rule:  rule,
		})
		e.logger.Debug("mapped rule", "ref", rec.Ref, "rule", ruleID)
	}

	out.Profiles = e.buildProfiles(b, ruleIDs)

	e.logger.Info("mapping complete",
		"rules", len(out.Groups),
		"profiles", len(out.Profiles))
	return out, nil
}

// groupID derives the wrapping group's identifier from the rule id.
func groupID(ruleID string) string {
	if strings.Contains(ruleID, "_rule_") {
		return strings.Replace(ruleID, "_rule_", "_group_", 1)
	}
	return "group_" + ruleID
}

// buildProfiles selects records into each configured profile. A record
// matches when any of the profile's tokens equals or is contained in
// one of its applicability entries; records matching nothing appear in
// no profile. Profiles with no matches are omitted.
func (e *Engine) buildProfiles(b *benchmark.Benchmark, ruleIDs []string) []*xccdf.Profile {
	if len(e.cfg.Profiles) == 0 {
		return nil
	}
	titler := cases.Title(language.English)
	var profiles []*xccdf.Profile
	for _, def := range e.cfg.Profiles {
		var selects []xccdf.Select
		for i := range b.Recommendations {
			if profileApplies(def.Match, b.Recommendations[i].Profiles) {
				selects = append(selects, xccdf.Select{IDRef: ruleIDs[i], Selected: true})
			}
		}
		if len(selects) == 0 {
			continue
		}
		title := def.Title
		if title == "" {
			title = titler.String(strings.ReplaceAll(def.ID, "-", " "))
		}
		profiles = append(profiles, &xccdf.Profile{
			ID:          def.ID,
			Title:       title,
			Description: def.Description,
			Selects:     selects,
		})
	}
	return profiles
}

// profileApplies matches configured tokens against a record's
// applicability list by equality or substring.
func profileApplies(tokens, applicability []string) bool {
	for _, tok := range tokens {
		for _, entry := range applicability {
			if entry == tok || strings.Contains(entry, tok) {
				return true
			}
		}
	}
	return false
}
