package combos

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// AnalyzeParams carries the parsed inputs for one analysis run. Advertised
// collections and pruned keys are optional; an absent advertised source skips
// the second comparison stage instead of failing.
type AnalyzeParams struct {
	Definition map[Category]ComboSet
	Realized   map[Category]ComboSet
	Advertised map[Category]ComboSet
	PrunedKeys map[string]bool
	InputFiles map[Source]string
	Warnings   []string
}

// Analyze reconciles the parsed collections category by category and
// assembles the full result. Each category is analyzed independently, so a
// missing or empty source for one category never blocks the others.
func Analyze(params AnalyzeParams) (*AnalysisResult, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		ID:         id,
		Timestamp:  time.Now(),
		InputFiles: params.InputFiles,
		Definition: normalizeAll(params.Definition, SourceDefinition),
		Realized:   normalizeAll(params.Realized, SourceDeviceLog),
		Warnings:   params.Warnings,
	}
	if params.Advertised != nil {
		result.Advertised = normalizeAll(params.Advertised, SourceCapability)
	}

	var discrepancies []Discrepancy

	defVsReal, found := CompareDefinitionVsRealized(result.Definition, result.Realized)
	result.DefinitionVsRealized = defVsReal
	discrepancies = append(discrepancies, found...)

	if result.Advertised != nil {
		realVsAdv, found := CompareRealizedVsAdvertised(result.Realized, result.Advertised)
		result.RealizedVsAdvertised = realVsAdv
		discrepancies = append(discrepancies, found...)
	}

	// A combination gone missing because a control file pruned it has a
	// confirmed mechanical cause. Re-label before any reasoning runs.
	if len(params.PrunedKeys) > 0 {
		for i, d := range discrepancies {
			if d.Kind != KindMissingDownstream {
				continue
			}
			if params.PrunedKeys[d.Combo.Key()] {
				discrepancies[i].Kind = KindPrunedByControl
				discrepancies[i].Details = "combination removed by control file pruning list"
			}
		}
	}

	result.Discrepancies = discrepancies
	result.Summary = buildSummary(result)

	return result, nil
}

// normalizeAll normalizes every set and guarantees an entry per category so
// downstream stages never see a nil collection.
func normalizeAll(sets map[Category]ComboSet, source Source) map[Category]ComboSet {
	out := make(map[Category]ComboSet, len(Categories()))
	for _, category := range Categories() {
		if set, ok := sets[category]; ok && set.Combos != nil {
			out[category] = NormalizeSet(set)
		} else {
			out[category] = NewComboSet(source, category)
		}
	}
	return out
}

func buildSummary(result *AnalysisResult) Summary {
	summary := Summary{
		TotalBySource: make(map[Source]int),
		ByCategory:    make(map[Category]CategoryCounts),
		ByKind:        make(map[DiscrepancyKind]int),
		BySeverity:    make(map[Severity]int),
	}

	for _, category := range Categories() {
		counts := CategoryCounts{
			Definition: result.Definition[category].Len(),
			Realized:   result.Realized[category].Len(),
		}
		if result.Advertised != nil {
			counts.Advertised = result.Advertised[category].Len()
		}
		summary.ByCategory[category] = counts

		summary.TotalBySource[SourceDefinition] += counts.Definition
		summary.TotalBySource[SourceDeviceLog] += counts.Realized
		summary.TotalBySource[SourceCapability] += counts.Advertised
	}

	for _, d := range result.Discrepancies {
		summary.ByKind[d.Kind]++
		summary.BySeverity[d.Severity()]++
	}

	summary.DefinitionVsRealizedMatch = AverageMatchPercentage(result.DefinitionVsRealized)
	if result.RealizedVsAdvertised != nil {
		summary.RealizedVsAdvertisedMatch = AverageMatchPercentage(result.RealizedVsAdvertised)
	}

	summary.LegacyBands, summary.NextGenBands = UniqueBands(
		result.Definition, result.Realized, result.Advertised,
	)

	return summary
}

// RefreshSummary recomputes the summary counters. Call after reasoning has
// attached severities so the severity distribution reflects the final state.
func (r *AnalysisResult) RefreshSummary() {
	r.Summary = buildSummary(r)
}
