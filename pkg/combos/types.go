package combos

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category identifies the kind of band combination.
type Category string

const (
	CategoryLTECA Category = "lte_ca" // LTE carrier aggregation
	CategoryNRCA  Category = "nr_ca"  // NR carrier aggregation
	CategoryENDC  Category = "endc"   // E-UTRA/NR dual connectivity
	CategoryNRDC  Category = "nr_dc"  // NR dual connectivity
)

// Categories returns every combination category in a fixed iteration order.
func Categories() []Category {
	return []Category{CategoryLTECA, CategoryNRCA, CategoryENDC, CategoryNRDC}
}

// Source identifies where combination data came from.
type Source string

const (
	SourceDefinition Source = "definition" // configured band plan
	SourceDeviceLog  Source = "device_log" // runtime capture of built combinations
	SourceCapability Source = "capability" // advertised capability export
	SourceControl    Source = "control"    // control files (pruning, feature flags)
)

// DiscrepancyKind classifies a finding between two sources.
type DiscrepancyKind string

const (
	KindMissingDownstream DiscrepancyKind = "missing_downstream"    // defined but not built
	KindExtraDownstream   DiscrepancyKind = "extra_downstream"      // built but not defined
	KindMissingInAdvert   DiscrepancyKind = "missing_in_advertised" // built but not advertised
	KindExtraInAdvert     DiscrepancyKind = "extra_in_advertised"   // advertised but not built
	KindPrunedByControl   DiscrepancyKind = "pruned_by_control_file"
	KindBCSMismatch       DiscrepancyKind = "bcs_mismatch"
)

// DiscrepancyKinds returns every discrepancy kind in a fixed iteration order.
func DiscrepancyKinds() []DiscrepancyKind {
	return []DiscrepancyKind{
		KindMissingDownstream,
		KindExtraDownstream,
		KindMissingInAdvert,
		KindExtraInAdvert,
		KindPrunedByControl,
		KindBCSMismatch,
	}
}

// Severity ranks how actionable a discrepancy is.
type Severity string

const (
	SeverityExpected Severity = "expected"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities returns every severity level ordered from least to most actionable.
func Severities() []Severity {
	return []Severity{SeverityExpected, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Rank returns a sortable priority for the severity. Higher means more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityExpected:
		return 0
	}
	return -1
}

// ReasonCategory classifies why a discrepancy exists.
type ReasonCategory string

const (
	ReasonRegional   ReasonCategory = "regional"
	ReasonRegulatory ReasonCategory = "regulatory"
	ReasonHWVariant  ReasonCategory = "hw_variant"
	ReasonPolicy     ReasonCategory = "policy"
	ReasonControl    ReasonCategory = "control"
)

// BandComponent is one band reference within a combination. The MIMO layer
// count is informational only and excluded from identity.
type BandComponent struct {
	Band       int
	Class      string
	MIMOLayers int
	NR         bool
}

// String renders the component token, e.g. "66A" or "n77A".
func (c BandComponent) String() string {
	if c.NR {
		return fmt.Sprintf("n%d%s", c.Band, c.Class)
	}
	return fmt.Sprintf("%d%s", c.Band, c.Class)
}

// Combo is a carrier aggregation or dual connectivity combination.
type Combo struct {
	Category   Category
	Components []BandComponent
	BCS        []int // sorted unique bandwidth-combination-set values, nil if absent
	Fallback   []int
	Source     Source
	Raw        string
}

// Key derives the normalized comparison key: components sorted legacy-first,
// then by band number, then by class, joined with "-". The key is insensitive
// to the input component order.
func (c Combo) Key() string {
	sorted := make([]BandComponent, len(c.Components))
	copy(sorted, c.Components)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.NR != b.NR {
			return !a.NR
		}
		if a.Band != b.Band {
			return a.Band < b.Band
		}
		return a.Class < b.Class
	})

	tokens := make([]string, len(sorted))
	for i, comp := range sorted {
		tokens[i] = comp.String()
	}
	return strings.Join(tokens, "-")
}

// LegacyComponents returns the non-NR components.
func (c Combo) LegacyComponents() []BandComponent {
	var out []BandComponent
	for _, comp := range c.Components {
		if !comp.NR {
			out = append(out, comp)
		}
	}
	return out
}

// NRComponents returns the NR components.
func (c Combo) NRComponents() []BandComponent {
	var out []BandComponent
	for _, comp := range c.Components {
		if comp.NR {
			out = append(out, comp)
		}
	}
	return out
}

// ComboSet is a collection of combinations from one source and one category,
// keyed by normalized key. Adding a combination with an existing key replaces
// the previous entry (last write wins).
type ComboSet struct {
	Source   Source
	Category Category
	Combos   map[string]Combo
}

// NewComboSet creates an empty ComboSet for the given source and category.
func NewComboSet(source Source, category Category) ComboSet {
	return ComboSet{
		Source:   source,
		Category: category,
		Combos:   make(map[string]Combo),
	}
}

// Add inserts the combination under its normalized key, stamping the set's
// source onto it. Last write wins on duplicate keys.
func (s *ComboSet) Add(c Combo) {
	c.Source = s.Source
	c.Category = s.Category
	s.Combos[c.Key()] = c
}

// Get returns the combination for the key, if present.
func (s ComboSet) Get(key string) (Combo, bool) {
	c, ok := s.Combos[key]
	return c, ok
}

// Len returns the number of combinations in the set.
func (s ComboSet) Len() int {
	return len(s.Combos)
}

// Keys returns the normalized keys in sorted order.
func (s ComboSet) Keys() []string {
	keys := make([]string, 0, len(s.Combos))
	for k := range s.Combos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ComparisonResult holds the set reconciliation of two ComboSets.
// Key slices are sorted for deterministic output.
type ComparisonResult struct {
	SourceA       Source
	SourceB       Source
	Category      Category
	Common        []string
	OnlyInA       []string
	OnlyInB       []string
	BCSMismatches []Discrepancy
}

// TotalDiscrepancies counts all findings in this comparison.
func (r ComparisonResult) TotalDiscrepancies() int {
	return len(r.OnlyInA) + len(r.OnlyInB) + len(r.BCSMismatches)
}

// MatchPercentage is the share of keys common to both sides over the union.
// An empty union counts as a full match.
func (r ComparisonResult) MatchPercentage() float64 {
	total := len(r.Common) + len(r.OnlyInA) + len(r.OnlyInB)
	if total == 0 {
		return 100.0
	}
	return float64(len(r.Common)) / float64(total) * 100.0
}

// ReasoningResult explains why a discrepancy exists.
type ReasoningResult struct {
	HasExplanation    bool
	Reason            ReasonCategory
	Explanation       string
	SourceFile        string
	Severity          Severity
	RecommendedAction string
}

// Discrepancy is one finding between two sources.
type Discrepancy struct {
	Kind    DiscrepancyKind
	Combo   Combo
	SourceA Source
	SourceB Source
	Details string
	Reason  *ReasoningResult
}

// Severity returns the reasoned severity, or medium when not yet enriched.
func (d Discrepancy) Severity() Severity {
	if d.Reason != nil {
		return d.Reason.Severity
	}
	return SeverityMedium
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: %s (%s vs %s)", d.Kind, d.Combo.Key(), d.SourceA, d.SourceB)
}

// CategoryCounts holds per-source combination counts for one category.
type CategoryCounts struct {
	Definition int
	Realized   int
	Advertised int
}

// Summary aggregates counters over a finished analysis.
type Summary struct {
	TotalBySource map[Source]int
	ByCategory    map[Category]CategoryCounts
	ByKind        map[DiscrepancyKind]int
	BySeverity    map[Severity]int

	DefinitionVsRealizedMatch float64
	RealizedVsAdvertisedMatch float64

	LegacyBands  []int
	NextGenBands []int
}

// AnalysisResult is the top-level aggregate of one analysis run. All fields
// are built once during the run and read-only afterwards.
type AnalysisResult struct {
	ID         string
	Timestamp  time.Time
	InputFiles map[Source]string

	Definition map[Category]ComboSet
	Realized   map[Category]ComboSet
	Advertised map[Category]ComboSet

	DefinitionVsRealized map[Category]ComparisonResult
	RealizedVsAdvertised map[Category]ComparisonResult

	Discrepancies []Discrepancy

	// Warnings records every non-fatal problem encountered: parse errors,
	// skipped rule files, absent sources. An empty category with warnings
	// attached is not a clean result.
	Warnings []string

	Summary Summary
}

// DiscrepanciesByKind returns the findings of one kind, in result order.
func (r *AnalysisResult) DiscrepanciesByKind(kind DiscrepancyKind) []Discrepancy {
	var out []Discrepancy
	for _, d := range r.Discrepancies {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// DiscrepanciesBySeverity returns the findings at one severity, in result order.
func (r *AnalysisResult) DiscrepanciesBySeverity(severity Severity) []Discrepancy {
	var out []Discrepancy
	for _, d := range r.Discrepancies {
		if d.Severity() == severity {
			out = append(out, d)
		}
	}
	return out
}

// DiscrepanciesByCategory returns the findings for one combination category.
func (r *AnalysisResult) DiscrepanciesByCategory(category Category) []Discrepancy {
	var out []Discrepancy
	for _, d := range r.Discrepancies {
		if d.Combo.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// HighPriority returns critical and high severity findings, critical first.
func (r *AnalysisResult) HighPriority() []Discrepancy {
	var out []Discrepancy
	for _, d := range r.Discrepancies {
		if sev := d.Severity(); sev == SeverityCritical || sev == SeverityHigh {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity().Rank() > out[j].Severity().Rank()
	})
	return out
}
