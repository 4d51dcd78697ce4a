package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"combocheck/pkg/combos"
	"combocheck/pkg/combos/parser/control"
)

const testDefinition = `<band_plan>
  <ca_combos>
    <ca_combo>B1A+B3A</ca_combo>
    <ca_combo>B1A+B7A</ca_combo>
    <ca_combo>B2A+B66A</ca_combo>
  </ca_combos>
  <ca_4g_5g_combos>
    <ca_combo>B66A+N77A</ca_combo>
  </ca_4g_5g_combos>
</band_plan>`

const testDeviceLog = `Combo Index = 0
[Band 0]
RAT Type = LTE
Band = 1
DL BW Class = A
[Band 1]
RAT Type = LTE
Band = 3
DL BW Class = A
Combo Index = 1
[Band 0]
RAT Type = LTE
Band = 66
DL BW Class = A
[Band 1]
RAT Type = NR5G
Band = 77
DL BW Class = A
`

const testCapability = `<export><combos>1A-3A</combos></export>`

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRun_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
		CapabilityPath: writeInput(t, dir, "capability.xml", testCapability),
	}

	result, err := Run(context.Background(), params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// Band plan has 1A-7A and 2A-66A that the device never built.
	missing := result.DiscrepanciesByKind(combos.KindMissingDownstream)
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing_downstream, got %d", len(missing))
	}

	// Device built 66A-n77A but only 1A-3A is advertised.
	notAdvertised := result.DiscrepanciesByKind(combos.KindMissingInAdvert)
	if len(notAdvertised) != 1 {
		t.Fatalf("expected 1 missing_in_advertised, got %d", len(notAdvertised))
	}

	// Every finding carries a reasoning result after enrichment.
	for _, d := range result.Discrepancies {
		if d.Reason == nil {
			t.Fatalf("expected enriched finding, got %+v", d)
		}
	}

	if result.InputFiles[combos.SourceDefinition] != "plan.xml" {
		t.Fatalf("unexpected input files: %v", result.InputFiles)
	}
}

func TestRun_LiveContextCompletes(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules", "band_restrictions")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, rulesDir, "bands.yaml", `version: 1
band_restrictions:
  - band: 77
    restriction_type: regional
    regions: [NA]
    reason: Band 77 limited to North American variants
`)

	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", `<band_plan>
  <ca_combos><ca_combo>B1A+B3A+B7A</ca_combo></ca_combos>
  <ca_4g_5g_combos><ca_combo>B66A+N77A</ca_combo></ca_4g_5g_combos>
</band_plan>`),
		DeviceLogPath: writeInput(t, dir, "device.log", "LTE_CA: 1A-3A-7A\n"),
		RulesDir:      filepath.Join(dir, "rules"),
		Region:        "NA",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := Run(ctx, params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	missing := result.DiscrepanciesByKind(combos.KindMissingDownstream)
	if len(missing) != 1 || missing[0].Combo.Key() != "66A-n77A" {
		t.Fatalf("expected one missing finding for 66A-n77A, got %+v", missing)
	}
	if len(result.DiscrepanciesByKind(combos.KindExtraDownstream)) != 0 {
		t.Fatal("expected no extra_downstream findings")
	}
	reason := missing[0].Reason
	if reason == nil || !reason.HasExplanation || reason.Severity != combos.SeverityExpected {
		t.Fatalf("expected band rule explanation with expected severity, got %+v", reason)
	}
}

func TestRun_MissingMandatorySourceDegrades(t *testing.T) {
	dir := t.TempDir()
	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  filepath.Join(dir, "absent.log"),
	}

	result, err := Run(context.Background(), params)
	if err != nil {
		t.Fatalf("expected degraded run, got error %v", err)
	}

	found := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "absent.log") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning naming the missing source, got %v", result.Warnings)
	}

	// With no device log every defined combination goes missing.
	if len(result.DiscrepanciesByKind(combos.KindMissingDownstream)) != 4 {
		t.Fatalf("expected 4 missing_downstream, got %d", len(result.Discrepancies))
	}
}

func TestRun_BothMandatorySourcesAbsentFails(t *testing.T) {
	dir := t.TempDir()
	params := Params{
		DefinitionPath: filepath.Join(dir, "absent.xml"),
		DeviceLogPath:  filepath.Join(dir, "absent.log"),
	}

	if _, err := Run(context.Background(), params); !errors.Is(err, combos.ErrNoUsableInput) {
		t.Fatalf("expected ErrNoUsableInput, got %v", err)
	}
}

func TestRun_MissingCapabilitySkipsSecondStage(t *testing.T) {
	dir := t.TempDir()
	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
	}

	result, err := Run(context.Background(), params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.RealizedVsAdvertised != nil {
		t.Fatal("expected advertised comparison skipped")
	}
	if len(result.DiscrepanciesByKind(combos.KindMissingInAdvert)) != 0 {
		t.Fatal("expected no advertised findings without a capability source")
	}
}

func TestRun_SizeLimitAborts(t *testing.T) {
	dir := t.TempDir()
	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
		SizeLimit:      16,
	}

	_, err := Run(context.Background(), params)
	if !errors.Is(err, combos.ErrSizeLimitExceeded) {
		t.Fatalf("expected ErrSizeLimitExceeded, got %v", err)
	}
}

func TestRun_PruningListRelabelsFindings(t *testing.T) {
	dir := t.TempDir()
	controlDir := filepath.Join(dir, "control", "lte", "rrc", "cap")
	if err := os.MkdirAll(controlDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, controlDir, control.FilePruneList, "1A-7A;")

	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
		ControlDir:     filepath.Join(dir, "control"),
	}

	result, err := Run(context.Background(), params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	pruned := result.DiscrepanciesByKind(combos.KindPrunedByControl)
	if len(pruned) != 1 || pruned[0].Combo.Key() != "1A-7A" {
		t.Fatalf("expected 1A-7A relabeled as pruned, got %+v", pruned)
	}
	if pruned[0].Reason == nil || pruned[0].Reason.Severity != combos.SeverityExpected {
		t.Fatalf("expected pruned finding explained as expected, got %+v", pruned[0].Reason)
	}

	// 2A-66A stays a genuine missing finding.
	if len(result.DiscrepanciesByKind(combos.KindMissingDownstream)) != 1 {
		t.Fatalf("expected 1 remaining missing_downstream, got %v", result.Summary.ByKind)
	}
}

func TestRun_CategoryDisableFlagRelabelsFindings(t *testing.T) {
	dir := t.TempDir()
	controlDir := filepath.Join(dir, "control", "lte", "rrc", "cap")
	if err := os.MkdirAll(controlDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(controlDir, control.FileCADisable), []byte{0x01}, 0o644); err != nil {
		t.Fatalf("write flag: %v", err)
	}

	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
		ControlDir:     filepath.Join(dir, "control"),
	}

	result, err := Run(context.Background(), params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// Both missing LTE CA combinations are explained by the disable flag.
	if len(result.DiscrepanciesByKind(combos.KindPrunedByControl)) != 2 {
		t.Fatalf("expected 2 pruned findings, got %v", result.Summary.ByKind)
	}
	if len(result.DiscrepanciesByKind(combos.KindMissingDownstream)) != 0 {
		t.Fatalf("expected no raw missing findings, got %v", result.Summary.ByKind)
	}
}

func TestRun_KnowledgeRulesExplainFindings(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules", "band_restrictions")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeInput(t, rulesDir, "bands.yaml", `version: 1
band_restrictions:
  - band: 7
    restriction_type: regional
    regions: [EU]
    reason: Band 7 limited to European variants
`)

	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
		RulesDir:       filepath.Join(dir, "rules"),
		Region:         "EU",
	}

	result, err := Run(context.Background(), params)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	var explained *combos.Discrepancy
	for i, d := range result.Discrepancies {
		if d.Combo.Key() == "1A-7A" {
			explained = &result.Discrepancies[i]
		}
	}
	if explained == nil {
		t.Fatal("expected a finding for 1A-7A")
	}
	if explained.Reason == nil || !explained.Reason.HasExplanation {
		t.Fatalf("expected band rule explanation, got %+v", explained.Reason)
	}
	if explained.Reason.Severity != combos.SeverityExpected {
		t.Fatalf("expected expected severity, got %q", explained.Reason.Severity)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	params := Params{
		DefinitionPath: writeInput(t, dir, "plan.xml", testDefinition),
		DeviceLogPath:  writeInput(t, dir, "device.log", testDeviceLog),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, params); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
