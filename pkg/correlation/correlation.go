// Package correlation maps internal control-framework citations to
// external correlation identifiers and removes redundant direct
// citations.
//
// A record cites internal control ids (e.g. "4.8") and external
// standard identifiers (e.g. "CM-7"). The correlation table maps each
// internal id to a primary correlation identifier plus supporting ones,
// each targeting a specific external identifier. Deduplicate emits the
// minimal non-redundant union: every reachable correlation identifier,
// plus only the cited externals not already covered by one of them.
package correlation

import (
	"log/slog"
	"strings"
)

// Identifier is one correlation identifier and the external-standard
// control it targets.
type Identifier struct {
	// Value is the correlation identifier itself, e.g. "CCI-000381".
	Value string `json:"value" yaml:"value"`

	// Target is the external control the identifier maps to, possibly
	// more granular than the citation, e.g. "CM-7(5)".
	Target string `json:"target" yaml:"target"`
}

// Entry is the correlation-table row for one internal control id.
type Entry struct {
	Primary    Identifier   `json:"primary" yaml:"primary"`
	Supporting []Identifier `json:"supporting,omitempty" yaml:"supporting,omitempty"`
}

// Table maps internal control ids to correlation entries. Read-only
// after construction.
type Table struct {
	entries map[string]Entry
}

// NewTable builds a table from a prepared entry map.
func NewTable(entries map[string]Entry) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for id, e := range entries {
		t.entries[id] = e
	}
	return t
}

// Lookup returns the entry for an internal control id.
func (t *Table) Lookup(id string) (Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// ExtractMode selects which identifiers an entry contributes.
type ExtractMode string

const (
	// ExtractPrimary contributes only the primary identifier.
	ExtractPrimary ExtractMode = "primary"

	// ExtractAll contributes the primary and supporting identifiers.
	ExtractAll ExtractMode = "all"
)

// Valid reports whether the mode is recognized.
func (m ExtractMode) Valid() bool {
	return m == ExtractPrimary || m == ExtractAll
}

// Result is the deduplicated output for one record.
type Result struct {
	// Identifiers holds every collected correlation identifier in
	// first-seen order, deduplicated by value. Never shrinks once an
	// identifier is included.
	Identifiers []Identifier

	// Uncovered holds the cited external identifiers not covered by
	// any collected identifier's target, in citation order.
	Uncovered []string
}

// Service performs lookup and deduplication against one table.
type Service struct {
	table  *Table
	mode   ExtractMode
	logger *slog.Logger
}

// NewService creates a service. A nil logger uses slog.Default; an
// invalid mode falls back to ExtractPrimary.
func NewService(table *Table, mode ExtractMode, logger *slog.Logger) *Service {
	if !mode.Valid() {
		mode = ExtractPrimary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{table: table, mode: mode, logger: logger}
}

// Deduplicate resolves the record's internal citations and drops the
// cited external identifiers their targets already cover.
//
// An internal id missing from the table is logged at Warn and skipped;
// its absence never aborts the record. With no internal ids at all the
// lookup is skipped and every cited external comes back uncovered.
func (s *Service) Deduplicate(internalIDs, citedExternal []string) Result {
	if len(internalIDs) == 0 {
		return Result{Uncovered: append([]string(nil), citedExternal...)}
	}

	var collected []Identifier
	seen := make(map[string]struct{})
	for _, id := range internalIDs {
		entry, ok := s.table.Lookup(id)
		if !ok {
			s.logger.Warn("correlation entry not found, citing externals directly",
				"control", id)
			continue
		}
		candidates := []Identifier{entry.Primary}
		if s.mode == ExtractAll {
			candidates = append(candidates, entry.Supporting...)
		}
		for _, c := range candidates {
			if _, dup := seen[c.Value]; dup {
				continue
			}
			seen[c.Value] = struct{}{}
			collected = append(collected, c)
		}
	}

	var uncovered []string
	for _, cited := range citedExternal {
		if !coveredBy(collected, cited) {
			uncovered = append(uncovered, cited)
		}
	}

	return Result{Identifiers: collected, Uncovered: uncovered}
}

// coveredBy reports whether any collected identifier's target covers
// the cited external identifier.
func coveredBy(collected []Identifier, cited string) bool {
	for _, id := range collected {
		if Covers(id.Target, cited) {
			return true
		}
	}
	return false
}

// Covers reports whether a mapped target covers a cited external
// identifier. Coverage is hierarchical and directional: a target that
// is an enhancement or sub-control of the citation covers it; a target
// equal to or broader than a more specific citation does not, and
// enhancement numbers must agree when the citation carries one.
//
//	Covers("CM-7(5)", "CM-7")    == true
//	Covers("CM-7.1",  "CM-7")    == true
//	Covers("CM-7",    "CM-7.1")  == false
//	Covers("CM-7(5)", "CM-7(4)") == false
func Covers(target, cited string) bool {
	tb, te := splitEnhancement(target)
	cb, ce := splitEnhancement(cited)
	if !hierarchicalPrefix(tb, cb) {
		return false
	}
	if ce != "" && ce != te {
		return false
	}
	return true
}

// hierarchicalPrefix reports whether base identifier b sits at or below
// base identifier prefix p in the control hierarchy. Sub-control
// boundaries are respected: "CM-70" is not under "CM-7".
func hierarchicalPrefix(b, p string) bool {
	if b == p {
		return true
	}
	return strings.HasPrefix(b, p+".")
}

// Base strips one parenthetical enhancement suffix:
// "CM-7(5)" becomes "CM-7"; "CM-7.1" is unchanged.
func Base(id string) string {
	b, _ := splitEnhancement(id)
	return b
}

// Family strips both the enhancement suffix and any dotted sub-control
// tail: "CM-7.1(5)" becomes "CM-7".
func Family(id string) string {
	b := Base(id)
	if i := strings.IndexByte(b, '.'); i > 0 {
		// Keep the control-number dot out of the family only when the
		// dot follows the numeric control part, e.g. "CM-7.1".
		if j := strings.IndexByte(b, '-'); j >= 0 && i > j {
			return b[:i]
		}
	}
	return b
}

// splitEnhancement separates a trailing "(n)" enhancement from an
// identifier. Malformed suffixes are left on the base.
func splitEnhancement(id string) (base, enhancement string) {
	id = strings.TrimSpace(id)
	if !strings.HasSuffix(id, ")") {
		return id, ""
	}
	open := strings.LastIndexByte(id, '(')
	if open <= 0 {
		return id, ""
	}
	return id[:open], id[open+1 : len(id)-1]
}
