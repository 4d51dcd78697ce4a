package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"combocheck/pkg/combos"
)

// maxEntriesPerKind caps how many combinations one discrepancy section may
// list, to keep the payload inside a reviewer's context budget.
const maxEntriesPerKind = 50

var kindDescriptions = map[combos.DiscrepancyKind]string{
	combos.KindMissingDownstream: "Combinations defined in the band plan but not built by the device",
	combos.KindExtraDownstream:   "Combinations built by the device but not present in the band plan",
	combos.KindMissingInAdvert:   "Combinations built by the device but not advertised to the network",
	combos.KindExtraInAdvert:     "Combinations advertised to the network but not built by the device",
	combos.KindPrunedByControl:   "Combinations disabled by control file configuration",
	combos.KindBCSMismatch:       "Combinations present in both sources with differing bandwidth combination sets",
}

var sourceLabels = map[combos.Source]string{
	combos.SourceDefinition: "Band Plan",
	combos.SourceDeviceLog:  "Device Log",
	combos.SourceCapability: "Advertised Capability",
}

var categoryLabels = map[combos.Category]string{
	combos.CategoryLTECA: "LTE CA",
	combos.CategoryNRCA:  "NR CA",
	combos.CategoryENDC:  "EN-DC",
	combos.CategoryNRDC:  "NR-DC",
}

// Prompt assembles the plain-text review payload for an external reviewer.
// It is pure text assembly over the result and carries no analysis logic.
func Prompt(result *combos.AnalysisResult) string {
	sections := []string{
		promptHeader,
		contextSection(result),
		summarySection(result),
		discrepanciesSection(result),
		analysisRequest,
	}
	return strings.Join(sections, "\n\n")
}

// PromptTokens counts the payload's tokens so callers can check it against a
// reviewer context budget before sending it anywhere.
func PromptTokens(payload string) (int, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0, fmt.Errorf("load token encoding: %w", err)
	}
	return len(enc.Encode(payload, nil, nil)), nil
}

const promptHeader = `# Radio Combination Analysis - Expert Review Request

You are a telecommunications expert specializing in carrier aggregation and dual connectivity configurations. You are reviewing an analysis that reconciles:
- **Band Plan**: the combinations the configuration says the device should support
- **Device Log**: the combinations the device actually built at runtime
- **Advertised Capability**: the combinations the device claims to the network

Your task is to analyze the discrepancies found and provide expert insights on:
1. Root cause analysis for each category of discrepancy
2. Severity assessment and prioritization
3. Recommended actions for resolution
4. Any patterns or systemic issues observed`

func contextSection(result *combos.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("## Analysis Context\n")
	fmt.Fprintf(&b, "\n**Run:** %s\n", result.ID)
	fmt.Fprintf(&b, "**Timestamp:** %s\n", result.Timestamp.Format("2006-01-02 15:04:05"))

	if len(result.InputFiles) > 0 {
		b.WriteString("\n**Input Files:**\n")
		for _, source := range []combos.Source{combos.SourceDefinition, combos.SourceDeviceLog, combos.SourceCapability, combos.SourceControl} {
			if name, ok := result.InputFiles[source]; ok {
				fmt.Fprintf(&b, "- %s: `%s`\n", sourceLabels[source], name)
			}
		}
	}

	if len(result.Summary.LegacyBands) > 0 {
		fmt.Fprintf(&b, "\n**Legacy Bands:** %s\n", joinInts(result.Summary.LegacyBands))
	}
	if len(result.Summary.NextGenBands) > 0 {
		fmt.Fprintf(&b, "**NR Bands:** %s\n", joinInts(result.Summary.NextGenBands))
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n**Warnings during analysis:**\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", warning)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func summarySection(result *combos.AnalysisResult) string {
	summary := result.Summary
	var b strings.Builder
	b.WriteString("## Summary Statistics\n")

	b.WriteString("\n**Combination Counts:**\n")
	b.WriteString("| Source | Count |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Band Plan | %d |\n", summary.TotalBySource[combos.SourceDefinition])
	fmt.Fprintf(&b, "| Device Log | %d |\n", summary.TotalBySource[combos.SourceDeviceLog])
	fmt.Fprintf(&b, "| Advertised | %d |\n", summary.TotalBySource[combos.SourceCapability])

	b.WriteString("\n**By Category:**\n")
	b.WriteString("| Category | Band Plan | Device Log | Advertised |\n")
	b.WriteString("|----------|-----------|------------|------------|\n")
	for _, category := range combos.Categories() {
		counts := summary.ByCategory[category]
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n",
			categoryLabels[category], counts.Definition, counts.Realized, counts.Advertised)
	}

	fmt.Fprintf(&b, "\n**Band Plan vs Device Log:** %.1f%% match\n", summary.DefinitionVsRealizedMatch)
	if result.RealizedVsAdvertised != nil {
		fmt.Fprintf(&b, "**Device Log vs Advertised:** %.1f%% match\n", summary.RealizedVsAdvertisedMatch)
	}

	if len(summary.BySeverity) > 0 {
		b.WriteString("\n**Findings by Severity:**\n")
		for _, severity := range []combos.Severity{combos.SeverityCritical, combos.SeverityHigh, combos.SeverityMedium, combos.SeverityLow, combos.SeverityExpected} {
			if count := summary.BySeverity[severity]; count > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", severity, count)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func discrepanciesSection(result *combos.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("## Discrepancies Found\n")

	if len(result.Discrepancies) == 0 {
		b.WriteString("\nNo discrepancies found. All combinations match across sources.")
		return b.String()
	}

	for _, kind := range combos.DiscrepancyKinds() {
		findings := result.DiscrepanciesByKind(kind)
		if len(findings) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n### %s (%d total)\n", kind, len(findings))
		fmt.Fprintf(&b, "\n*%s*\n", kindDescriptions[kind])

		for _, category := range combos.Categories() {
			var entries []string
			for _, d := range findings {
				if d.Combo.Category != category {
					continue
				}
				entries = append(entries, formatFinding(d))
			}
			if len(entries) == 0 {
				continue
			}

			fmt.Fprintf(&b, "\n**%s:**\n", categoryLabels[category])
			b.WriteString("```\n")
			capped := entries
			if len(capped) > maxEntriesPerKind {
				capped = capped[:maxEntriesPerKind]
			}
			b.WriteString(strings.Join(capped, "\n"))
			b.WriteString("\n")
			if len(entries) > maxEntriesPerKind {
				fmt.Fprintf(&b, "... and %d more\n", len(entries)-maxEntriesPerKind)
			}
			b.WriteString("```\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatFinding(d combos.Discrepancy) string {
	line := d.Combo.Key()
	if d.Reason != nil {
		line += fmt.Sprintf(" [%s]", d.Reason.Severity)
		if d.Reason.HasExplanation {
			line += " " + d.Reason.Explanation
		}
	}
	return line
}

const analysisRequest = `## Analysis Request

Please provide your expert analysis addressing:

### 1. Root Cause Analysis
For each category of discrepancy, what are the likely root causes?
- Consider: control file pruning, regional restrictions, hardware variants, regulatory requirements, build configuration issues

### 2. Severity Assessment
Prioritize the discrepancies by severity:
- **CRITICAL**: missing combinations that will cause user-visible issues
- **HIGH**: important combinations missing that affect coverage or throughput
- **MEDIUM**: nice-to-have combinations missing, limited user impact
- **LOW**: expected differences (known restrictions, hardware variants)
- **EXPECTED**: intentional filtering (control file pruning, carrier policy)

### 3. Recommended Actions
What specific actions should be taken to resolve the discrepancies?

### 4. Patterns Observed
Are there any systemic patterns that suggest broader configuration problems?

---
Please format your response in markdown with clear sections for each analysis area.`

func joinInts(values []int) string {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
