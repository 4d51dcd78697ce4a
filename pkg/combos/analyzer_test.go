package combos

import "testing"

func TestAnalyze_BasicRun(t *testing.T) {
	params := AnalyzeParams{
		Definition: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDefinition, lteCombo(nil, 1, 3), lteCombo(nil, 1, 7)),
		},
		Realized: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDeviceLog, lteCombo(nil, 1, 3)),
		},
		InputFiles: map[Source]string{
			SourceDefinition: "plan.xml",
			SourceDeviceLog:  "device.log",
		},
	}

	result, err := Analyze(params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.ID == "" {
		t.Fatal("expected a run ID")
	}
	if len(result.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(result.Discrepancies))
	}
	if result.Discrepancies[0].Kind != KindMissingDownstream {
		t.Fatalf("expected missing_downstream, got %q", result.Discrepancies[0].Kind)
	}
	if result.RealizedVsAdvertised != nil {
		t.Fatal("expected advertised comparison skipped when source absent")
	}
	if result.Summary.ByKind[KindMissingDownstream] != 1 {
		t.Fatalf("summary kind counters off: %v", result.Summary.ByKind)
	}
}

func TestAnalyze_AdvertisedStage(t *testing.T) {
	params := AnalyzeParams{
		Definition: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDefinition, lteCombo(nil, 1, 3)),
		},
		Realized: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDeviceLog, lteCombo(nil, 1, 3)),
		},
		Advertised: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceCapability, lteCombo(nil, 1, 3), lteCombo(nil, 1, 7)),
		},
	}

	result, err := Analyze(params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.RealizedVsAdvertised == nil {
		t.Fatal("expected advertised comparison to run")
	}
	if result.Summary.ByKind[KindExtraInAdvert] != 1 {
		t.Fatalf("expected 1 extra_in_advertised, got %v", result.Summary.ByKind)
	}
}

func TestAnalyze_PrunedKeysRelabelMissing(t *testing.T) {
	params := AnalyzeParams{
		Definition: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDefinition, lteCombo(nil, 1, 3), lteCombo(nil, 1, 7)),
		},
		Realized: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDeviceLog, lteCombo(nil, 1, 7)),
		},
		PrunedKeys: map[string]bool{"1A-3A": true},
	}

	result, err := Analyze(params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(result.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(result.Discrepancies))
	}
	if result.Discrepancies[0].Kind != KindPrunedByControl {
		t.Fatalf("expected pruned_by_control, got %q", result.Discrepancies[0].Kind)
	}
	if result.Summary.ByKind[KindMissingDownstream] != 0 {
		t.Fatalf("pruned finding still counted as missing: %v", result.Summary.ByKind)
	}
}

func TestAnalyze_CategoriesIndependent(t *testing.T) {
	// An empty NR CA source must not block the LTE CA comparison.
	params := AnalyzeParams{
		Definition: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDefinition, lteCombo(nil, 1, 3)),
		},
		Realized: map[Category]ComboSet{},
	}

	result, err := Analyze(params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, category := range Categories() {
		if result.Realized[category].Combos == nil {
			t.Fatalf("expected an initialized set for %q", category)
		}
	}
	if result.Summary.ByKind[KindMissingDownstream] != 1 {
		t.Fatalf("expected the LTE CA comparison to run: %v", result.Summary.ByKind)
	}
}

func TestRefreshSummary_ReflectsReasoning(t *testing.T) {
	params := AnalyzeParams{
		Definition: map[Category]ComboSet{
			CategoryLTECA: lteSet(SourceDefinition, lteCombo(nil, 1, 3)),
		},
		Realized: map[Category]ComboSet{},
	}

	result, err := Analyze(params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Summary.BySeverity[SeverityMedium] != 1 {
		t.Fatalf("expected unenriched finding counted medium: %v", result.Summary.BySeverity)
	}

	result.Discrepancies[0].Reason = &ReasoningResult{Severity: SeverityExpected}
	result.RefreshSummary()
	if result.Summary.BySeverity[SeverityExpected] != 1 {
		t.Fatalf("expected severity recount after enrichment: %v", result.Summary.BySeverity)
	}
	if result.Summary.BySeverity[SeverityMedium] != 0 {
		t.Fatalf("stale medium count: %v", result.Summary.BySeverity)
	}
}
