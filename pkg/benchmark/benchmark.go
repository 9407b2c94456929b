// Package benchmark provides the input record model for compliance
// benchmarks: a benchmark document with its ordered recommendations,
// control-framework citations, and profile applicability lists.
//
// Records are plain data. Every other package treats them as read-only;
// mapping a benchmark never mutates its source records.
package benchmark

import (
	"fmt"
	"strings"
)

// Benchmark is one compliance benchmark document.
type Benchmark struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`

	// Platform is the short platform token derived from the title
	// (see DerivePlatform). Empty until derived by the caller.
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`

	// Recommendations holds the benchmark's records in document order.
	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
}

// Recommendation is one benchmark record.
type Recommendation struct {
	// Ref is the dotted reference code, e.g. "3.1.1".
	Ref   string `json:"ref" yaml:"ref"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`

	// AssessmentStatus is "Automated" or "Manual".
	AssessmentStatus string `json:"assessment_status,omitempty" yaml:"assessment_status,omitempty"`

	// Free-text fields. These may carry markup; transforms decide what
	// survives into the output.
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	Rationale      string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Impact         string `json:"impact,omitempty" yaml:"impact,omitempty"`
	Audit          string `json:"audit,omitempty" yaml:"audit,omitempty"`
	Remediation    string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	DefaultValue   string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	AdditionalInfo string `json:"additional_info,omitempty" yaml:"additional_info,omitempty"`
	References     string `json:"references,omitempty" yaml:"references,omitempty"`

	// Controls lists the publisher's own control-framework citations.
	Controls []Control `json:"controls,omitempty" yaml:"controls,omitempty"`

	// ATTACK carries MITRE ATT&CK technique/tactic/mitigation lists.
	ATTACK ATTACKMapping `json:"attack,omitempty" yaml:"attack,omitempty"`

	// NISTControls lists cited external-standard control identifiers,
	// e.g. "CM-7", "AC-2(1)".
	NISTControls []string `json:"nist_controls,omitempty" yaml:"nist_controls,omitempty"`

	// Profiles lists the applicability profile names, e.g.
	// "Level 1 - Server".
	Profiles []string `json:"profiles,omitempty" yaml:"profiles,omitempty"`
}

// Control is one internal control-framework citation.
type Control struct {
	Framework string `json:"framework,omitempty" yaml:"framework,omitempty"`
	Version   string `json:"version" yaml:"version"`
	Control   string `json:"control" yaml:"control"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`

	// Implementation-group applicability flags.
	IG1 bool `json:"ig1" yaml:"ig1"`
	IG2 bool `json:"ig2" yaml:"ig2"`
	IG3 bool `json:"ig3" yaml:"ig3"`
}

// ATTACKMapping holds MITRE ATT&CK cross references for one record.
type ATTACKMapping struct {
	Techniques  []string `json:"techniques,omitempty" yaml:"techniques,omitempty"`
	Tactics     []string `json:"tactics,omitempty" yaml:"tactics,omitempty"`
	Mitigations []string `json:"mitigations,omitempty" yaml:"mitigations,omitempty"`
}

// Validate checks the invariants mapping relies on: a non-empty title,
// a non-empty Ref on every recommendation, and Ref uniqueness.
func (b *Benchmark) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	seen := make(map[string]struct{}, len(b.Recommendations))
	for i := range b.Recommendations {
		ref := b.Recommendations[i].Ref
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("%w: recommendation %d has no ref", ErrMissingField, i)
		}
		if _, dup := seen[ref]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateRef, ref)
		}
		seen[ref] = struct{}{}
	}
	return nil
}

// DerivePlatform returns the platform token inferred from a benchmark
// title: the first whitespace-separated word, lowercased. An empty
// title yields "".
func DerivePlatform(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
