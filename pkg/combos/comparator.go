package combos

import (
	"fmt"
	"sort"
)

// Compare reconciles two ComboSets of the same category. Keys are partitioned
// into common, only-in-A and only-in-B; combinations present on both sides
// with disagreeing BCS values become bcs_mismatch findings. All key slices in
// the result are sorted.
func Compare(a, b ComboSet) ComparisonResult {
	result := ComparisonResult{
		SourceA:  a.Source,
		SourceB:  b.Source,
		Category: a.Category,
	}

	for key, comboA := range a.Combos {
		comboB, ok := b.Combos[key]
		if !ok {
			result.OnlyInA = append(result.OnlyInA, key)
			continue
		}
		result.Common = append(result.Common, key)

		if !BCSEqual(comboA.BCS, comboB.BCS) {
			result.BCSMismatches = append(result.BCSMismatches, Discrepancy{
				Kind:    KindBCSMismatch,
				Combo:   comboA,
				SourceA: a.Source,
				SourceB: b.Source,
				Details: fmt.Sprintf("BCS mismatch: %v vs %v", comboA.BCS, comboB.BCS),
			})
		}
	}
	for key := range b.Combos {
		if _, ok := a.Combos[key]; !ok {
			result.OnlyInB = append(result.OnlyInB, key)
		}
	}

	sort.Strings(result.Common)
	sort.Strings(result.OnlyInA)
	sort.Strings(result.OnlyInB)
	sort.SliceStable(result.BCSMismatches, func(i, j int) bool {
		return result.BCSMismatches[i].Combo.Key() < result.BCSMismatches[j].Combo.Key()
	})

	return result
}

// CompareDefinitionVsRealized reconciles the configured band plan against the
// combinations the device actually built, per category. Combinations defined
// but not built become missing_downstream findings; combinations built but
// never defined become extra_downstream findings.
func CompareDefinitionVsRealized(definition, realized map[Category]ComboSet) (map[Category]ComparisonResult, []Discrepancy) {
	results := make(map[Category]ComparisonResult, len(Categories()))
	var discrepancies []Discrepancy

	for _, category := range Categories() {
		defSet := setOrEmpty(definition, SourceDefinition, category)
		realSet := setOrEmpty(realized, SourceDeviceLog, category)

		comparison := Compare(defSet, realSet)
		results[category] = comparison

		for _, key := range comparison.OnlyInA {
			combo := defSet.Combos[key]
			discrepancies = append(discrepancies, Discrepancy{
				Kind:    KindMissingDownstream,
				Combo:   combo,
				SourceA: SourceDefinition,
				SourceB: SourceDeviceLog,
				Details: "combination defined in band plan but not built by device",
			})
		}
		for _, key := range comparison.OnlyInB {
			combo := realSet.Combos[key]
			discrepancies = append(discrepancies, Discrepancy{
				Kind:    KindExtraDownstream,
				Combo:   combo,
				SourceA: SourceDefinition,
				SourceB: SourceDeviceLog,
				Details: "combination built by device but not present in band plan",
			})
		}
		discrepancies = append(discrepancies, comparison.BCSMismatches...)
	}

	return results, discrepancies
}

// CompareRealizedVsAdvertised reconciles built combinations against the
// advertised capability export, per category. Built-but-not-advertised
// becomes missing_in_advertised; advertised-but-not-built becomes
// extra_in_advertised.
func CompareRealizedVsAdvertised(realized, advertised map[Category]ComboSet) (map[Category]ComparisonResult, []Discrepancy) {
	results := make(map[Category]ComparisonResult, len(Categories()))
	var discrepancies []Discrepancy

	for _, category := range Categories() {
		realSet := setOrEmpty(realized, SourceDeviceLog, category)
		advSet := setOrEmpty(advertised, SourceCapability, category)

		comparison := Compare(realSet, advSet)
		results[category] = comparison

		for _, key := range comparison.OnlyInA {
			combo := realSet.Combos[key]
			discrepancies = append(discrepancies, Discrepancy{
				Kind:    KindMissingInAdvert,
				Combo:   combo,
				SourceA: SourceDeviceLog,
				SourceB: SourceCapability,
				Details: "combination built by device but not advertised",
			})
		}
		for _, key := range comparison.OnlyInB {
			combo := advSet.Combos[key]
			discrepancies = append(discrepancies, Discrepancy{
				Kind:    KindExtraInAdvert,
				Combo:   combo,
				SourceA: SourceDeviceLog,
				SourceB: SourceCapability,
				Details: "combination advertised but not built by device",
			})
		}
		discrepancies = append(discrepancies, comparison.BCSMismatches...)
	}

	return results, discrepancies
}

// AverageMatchPercentage averages the per-category match rates, skipping
// categories whose union of keys is empty. Returns 100 when every category
// is empty.
func AverageMatchPercentage(results map[Category]ComparisonResult) float64 {
	var sum float64
	var counted int
	for _, result := range results {
		if len(result.Common)+len(result.OnlyInA)+len(result.OnlyInB) == 0 {
			continue
		}
		sum += result.MatchPercentage()
		counted++
	}
	if counted == 0 {
		return 100.0
	}
	return sum / float64(counted)
}

func setOrEmpty(sets map[Category]ComboSet, source Source, category Category) ComboSet {
	if set, ok := sets[category]; ok && set.Combos != nil {
		return set
	}
	return NewComboSet(source, category)
}
