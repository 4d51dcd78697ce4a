// Package report is the output boundary of an analysis run: it turns an
// AnalysisResult into the two artifacts consumed outside the engine, a
// machine-readable JSON report and a plain-text review payload.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"combocheck/pkg/combos"
	"combocheck/pkg/combos/knowledge"
)

// Report is the serializable projection of an analysis run.
type Report struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	InputFiles map[string]string `json:"input_files,omitempty"`

	Summary       SummaryReport          `json:"summary"`
	Discrepancies []DiscrepancyReport    `json:"discrepancies"`
	ActionItems   []knowledge.ActionItem `json:"action_items,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
}

type SummaryReport struct {
	TotalBySource map[string]int            `json:"total_by_source"`
	ByCategory    map[string]CategoryReport `json:"by_category"`
	ByKind        map[string]int            `json:"by_kind"`
	BySeverity    map[string]int            `json:"by_severity"`

	DefinitionVsRealizedMatch float64 `json:"definition_vs_realized_match"`
	RealizedVsAdvertisedMatch float64 `json:"realized_vs_advertised_match"`

	LegacyBands  []int `json:"legacy_bands,omitempty"`
	NextGenBands []int `json:"nextgen_bands,omitempty"`
}

type CategoryReport struct {
	Definition int `json:"definition"`
	Realized   int `json:"realized"`
	Advertised int `json:"advertised"`
}

type DiscrepancyReport struct {
	Kind     string           `json:"kind"`
	Combo    string           `json:"combo"`
	Category string           `json:"category"`
	SourceA  string           `json:"source_a"`
	SourceB  string           `json:"source_b"`
	Details  string           `json:"details,omitempty"`
	Severity string           `json:"severity"`
	Reason   *ReasoningReport `json:"reason,omitempty"`
}

type ReasoningReport struct {
	HasExplanation    bool   `json:"has_explanation"`
	Category          string `json:"category,omitempty"`
	Explanation       string `json:"explanation,omitempty"`
	SourceFile        string `json:"source_file,omitempty"`
	RecommendedAction string `json:"recommended_action,omitempty"`
}

// Build projects the analysis result into the serializable report shape.
func Build(result *combos.AnalysisResult) Report {
	report := Report{
		ID:        result.ID,
		Timestamp: result.Timestamp,
		Warnings:  result.Warnings,
		Summary: SummaryReport{
			TotalBySource:             make(map[string]int, len(result.Summary.TotalBySource)),
			ByCategory:                make(map[string]CategoryReport, len(result.Summary.ByCategory)),
			ByKind:                    make(map[string]int, len(result.Summary.ByKind)),
			BySeverity:                make(map[string]int, len(result.Summary.BySeverity)),
			DefinitionVsRealizedMatch: result.Summary.DefinitionVsRealizedMatch,
			RealizedVsAdvertisedMatch: result.Summary.RealizedVsAdvertisedMatch,
			LegacyBands:               result.Summary.LegacyBands,
			NextGenBands:              result.Summary.NextGenBands,
		},
		ActionItems: knowledge.ActionItems(result.Discrepancies),
	}

	if len(result.InputFiles) > 0 {
		report.InputFiles = make(map[string]string, len(result.InputFiles))
		for source, name := range result.InputFiles {
			report.InputFiles[string(source)] = name
		}
	}

	for source, count := range result.Summary.TotalBySource {
		report.Summary.TotalBySource[string(source)] = count
	}
	for category, counts := range result.Summary.ByCategory {
		report.Summary.ByCategory[string(category)] = CategoryReport{
			Definition: counts.Definition,
			Realized:   counts.Realized,
			Advertised: counts.Advertised,
		}
	}
	for kind, count := range result.Summary.ByKind {
		report.Summary.ByKind[string(kind)] = count
	}
	for severity, count := range result.Summary.BySeverity {
		report.Summary.BySeverity[string(severity)] = count
	}

	report.Discrepancies = make([]DiscrepancyReport, 0, len(result.Discrepancies))
	for _, d := range result.Discrepancies {
		entry := DiscrepancyReport{
			Kind:     string(d.Kind),
			Combo:    d.Combo.Key(),
			Category: string(d.Combo.Category),
			SourceA:  string(d.SourceA),
			SourceB:  string(d.SourceB),
			Details:  d.Details,
			Severity: string(d.Severity()),
		}
		if d.Reason != nil {
			entry.Reason = &ReasoningReport{
				HasExplanation:    d.Reason.HasExplanation,
				Category:          string(d.Reason.Reason),
				Explanation:       d.Reason.Explanation,
				SourceFile:        d.Reason.SourceFile,
				RecommendedAction: d.Reason.RecommendedAction,
			}
		}
		report.Discrepancies = append(report.Discrepancies, entry)
	}

	return report
}

// JSON renders the report as indented JSON.
func JSON(result *combos.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(Build(result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}
