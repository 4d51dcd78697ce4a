package combos

import (
	"reflect"
	"testing"
)

func lteSet(source Source, combos ...Combo) ComboSet {
	set := NewComboSet(source, CategoryLTECA)
	for _, c := range combos {
		set.Add(c)
	}
	return set
}

func lteCombo(bcs []int, bands ...int) Combo {
	c := Combo{BCS: bcs}
	for _, b := range bands {
		c.Components = append(c.Components, BandComponent{Band: b, Class: "A"})
	}
	return c
}

func TestCompare_Partition(t *testing.T) {
	a := lteSet(SourceDefinition,
		lteCombo(nil, 1, 3),
		lteCombo(nil, 1, 7),
		lteCombo(nil, 2, 66),
	)
	b := lteSet(SourceDeviceLog,
		lteCombo(nil, 1, 3),
		lteCombo(nil, 2, 66),
		lteCombo(nil, 3, 7),
	)

	result := Compare(a, b)

	if !reflect.DeepEqual(result.Common, []string{"1A-3A", "2A-66A"}) {
		t.Fatalf("unexpected common: %v", result.Common)
	}
	if !reflect.DeepEqual(result.OnlyInA, []string{"1A-7A"}) {
		t.Fatalf("unexpected onlyInA: %v", result.OnlyInA)
	}
	if !reflect.DeepEqual(result.OnlyInB, []string{"3A-7A"}) {
		t.Fatalf("unexpected onlyInB: %v", result.OnlyInB)
	}

	// Every key lands in exactly one bucket.
	total := len(result.Common) + len(result.OnlyInA) + len(result.OnlyInB)
	if total != 4 {
		t.Fatalf("expected 4 partitioned keys, got %d", total)
	}
}

func TestCompare_BCSMismatch(t *testing.T) {
	a := lteSet(SourceDefinition, lteCombo([]int{0, 2}, 1, 3))
	b := lteSet(SourceDeviceLog, lteCombo([]int{0}, 1, 3))

	result := Compare(a, b)

	if len(result.BCSMismatches) != 1 {
		t.Fatalf("expected 1 BCS mismatch, got %d", len(result.BCSMismatches))
	}
	if result.BCSMismatches[0].Kind != KindBCSMismatch {
		t.Fatalf("expected bcs_mismatch kind, got %q", result.BCSMismatches[0].Kind)
	}
}

func TestCompare_AbsentBCSMatchesAnything(t *testing.T) {
	a := lteSet(SourceDefinition, lteCombo(nil, 1, 3))
	b := lteSet(SourceDeviceLog, lteCombo([]int{4}, 1, 3))

	result := Compare(a, b)
	if len(result.BCSMismatches) != 0 {
		t.Fatalf("expected no mismatch when one side has no BCS, got %d", len(result.BCSMismatches))
	}
}

func TestCompareDefinitionVsRealized(t *testing.T) {
	definition := map[Category]ComboSet{
		CategoryLTECA: lteSet(SourceDefinition, lteCombo(nil, 1, 3), lteCombo(nil, 1, 7)),
	}
	realized := map[Category]ComboSet{
		CategoryLTECA: lteSet(SourceDeviceLog, lteCombo(nil, 1, 3), lteCombo(nil, 2, 66)),
	}

	results, discrepancies := CompareDefinitionVsRealized(definition, realized)

	if len(results) != len(Categories()) {
		t.Fatalf("expected a result per category, got %d", len(results))
	}
	if len(discrepancies) != 2 {
		t.Fatalf("expected 2 discrepancies, got %d", len(discrepancies))
	}

	kinds := map[DiscrepancyKind]int{}
	for _, d := range discrepancies {
		kinds[d.Kind]++
	}
	if kinds[KindMissingDownstream] != 1 || kinds[KindExtraDownstream] != 1 {
		t.Fatalf("unexpected kind distribution: %v", kinds)
	}
}

func TestCompareRealizedVsAdvertised(t *testing.T) {
	realized := map[Category]ComboSet{
		CategoryLTECA: lteSet(SourceDeviceLog, lteCombo(nil, 1, 3)),
	}
	advertised := map[Category]ComboSet{
		CategoryLTECA: lteSet(SourceCapability, lteCombo(nil, 1, 7)),
	}

	_, discrepancies := CompareRealizedVsAdvertised(realized, advertised)

	kinds := map[DiscrepancyKind]int{}
	for _, d := range discrepancies {
		kinds[d.Kind]++
	}
	if kinds[KindMissingInAdvert] != 1 || kinds[KindExtraInAdvert] != 1 {
		t.Fatalf("unexpected kind distribution: %v", kinds)
	}
}

func TestAverageMatchPercentage_SkipsEmptyCategories(t *testing.T) {
	results := map[Category]ComparisonResult{
		CategoryLTECA: {Common: []string{"1A-3A"}},
		CategoryNRCA:  {},
		CategoryENDC:  {Common: []string{"2A-n66A"}, OnlyInA: []string{"2A-n77A"}},
	}

	got := AverageMatchPercentage(results)
	if got != 75.0 {
		t.Fatalf("expected 75.0, got %.1f", got)
	}

	if got := AverageMatchPercentage(map[Category]ComparisonResult{}); got != 100.0 {
		t.Fatalf("expected 100.0 for all-empty, got %.1f", got)
	}
}
