package knowledge

import (
	"fmt"

	"combocheck/pkg/combos"
)

// bandRestrictionSeverity maps every restriction category to the severity of
// a finding it explains. Categories missing from the map fall back to medium.
var bandRestrictionSeverity = map[string]combos.Severity{
	RestrictionRegional:   combos.SeverityExpected,
	RestrictionRegulatory: combos.SeverityExpected,
	RestrictionHWVariant:  combos.SeverityLow,
	RestrictionCarrier:    combos.SeverityExpected,
}

var bandRestrictionAction = map[string]string{
	RestrictionRegional:   "No action - regional restriction as designed",
	RestrictionRegulatory: "No action - regulatory compliance requirement",
	RestrictionHWVariant:  "Verify hardware variant matches build configuration",
	RestrictionCarrier:    "Verify carrier requirements are current",
}

var reasonCategoryFor = map[string]combos.ReasonCategory{
	RestrictionRegional:   combos.ReasonRegional,
	RestrictionRegulatory: combos.ReasonRegulatory,
	RestrictionHWVariant:  combos.ReasonHWVariant,
	RestrictionCarrier:    combos.ReasonPolicy,
}

// Explain matches one discrepancy against the context in strict precedence
// order, first match wins:
//
//  1. a control-file pruned finding already has its mechanical cause
//  2. band-level restriction on any component band, in component order
//  3. combination-specific restriction on the exact normalized key
//  4. active policy exclusion (or a required combination gone missing)
//
// When nothing matches, the result carries no explanation, severity high and
// a generic investigate recommendation. Explain is deterministic and
// side-effect-free: identical inputs yield identical results.
func Explain(d combos.Discrepancy, ctx *Context) combos.ReasoningResult {
	if d.Kind == combos.KindPrunedByControl {
		return combos.ReasoningResult{
			HasExplanation:    true,
			Reason:            combos.ReasonControl,
			Explanation:       "combination disabled by control file pruning configuration",
			SourceFile:        "prune_ca_combos",
			Severity:          combos.SeverityExpected,
			RecommendedAction: "No action - intentionally pruned by control file",
		}
	}

	normalized := combos.Normalize(d.Combo)

	for _, component := range normalized.Components {
		for _, restriction := range ctx.BandRestrictions[component.Band] {
			if !restriction.AppliesTo(ctx.Region) {
				continue
			}
			return combos.ReasoningResult{
				HasExplanation:    true,
				Reason:            reasonCategory(restriction.Category),
				Explanation:       fmt.Sprintf("Band %d: %s", component.Band, restriction.Reason),
				SourceFile:        restriction.SourceFile,
				Severity:          bandSeverity(restriction, d),
				RecommendedAction: bandAction(restriction),
			}
		}
	}

	key := normalized.Key()
	if restrictions := ctx.ComboRestrictions[key]; len(restrictions) > 0 {
		restriction := restrictions[0]
		explanation := restriction.Reason
		if explanation == "" {
			explanation = fmt.Sprintf("Combination %s is restricted", key)
		}
		return combos.ReasoningResult{
			HasExplanation:    true,
			Reason:            reasonCategory(restriction.Category),
			Explanation:       explanation,
			SourceFile:        restriction.SourceFile,
			Severity:          combos.SeverityExpected,
			RecommendedAction: "No action - expected restriction",
		}
	}

	if policy, ok := ctx.ActivePolicy(); ok {
		if policy.Excluded[key] {
			explanation := fmt.Sprintf("Excluded by %s policy", policy.Name)
			if note := policy.Notes[key]; note != "" {
				explanation += ": " + note
			}
			return combos.ReasoningResult{
				HasExplanation:    true,
				Reason:            combos.ReasonPolicy,
				Explanation:       explanation,
				SourceFile:        policy.SourceFile,
				Severity:          combos.SeverityExpected,
				RecommendedAction: "No action - carrier exclusion",
			}
		}
		if d.Kind == combos.KindMissingDownstream && policy.Required[key] {
			return combos.ReasoningResult{
				HasExplanation:    true,
				Reason:            combos.ReasonPolicy,
				Explanation:       fmt.Sprintf("Required by %s policy but not built", policy.Name),
				SourceFile:        policy.SourceFile,
				Severity:          combos.SeverityCritical,
				RecommendedAction: "Investigate - required combination is missing",
			}
		}
	}

	return combos.ReasoningResult{
		HasExplanation:    false,
		Severity:          combos.SeverityHigh,
		RecommendedAction: "Investigate - unexpected discrepancy",
	}
}

// EnrichAll applies Explain to every discrepancy and returns a new list in
// the same order. Findings that already carry a reason keep it.
func EnrichAll(discrepancies []combos.Discrepancy, ctx *Context) []combos.Discrepancy {
	out := make([]combos.Discrepancy, len(discrepancies))
	for i, d := range discrepancies {
		if d.Reason == nil {
			reason := Explain(d, ctx)
			d.Reason = &reason
		}
		out[i] = d
	}
	return out
}

// ActionItem is one prioritized follow-up derived from a high-priority
// finding.
type ActionItem struct {
	Combo       string
	Severity    combos.Severity
	Kind        combos.DiscrepancyKind
	Action      string
	Explanation string
}

// ActionItems extracts follow-ups for critical and high findings, critical
// first. Input should be enriched.
func ActionItems(discrepancies []combos.Discrepancy) []ActionItem {
	var items []ActionItem
	for _, severity := range []combos.Severity{combos.SeverityCritical, combos.SeverityHigh} {
		for _, d := range discrepancies {
			if d.Severity() != severity {
				continue
			}
			item := ActionItem{
				Combo:    d.Combo.Key(),
				Severity: severity,
				Kind:     d.Kind,
				Action:   "Investigate",
			}
			if d.Reason != nil {
				if d.Reason.RecommendedAction != "" {
					item.Action = d.Reason.RecommendedAction
				}
				item.Explanation = d.Reason.Explanation
			}
			items = append(items, item)
		}
	}
	return items
}

func bandSeverity(r BandRestriction, d combos.Discrepancy) combos.Severity {
	severity, ok := bandRestrictionSeverity[r.Category]
	if !ok {
		severity = combos.SeverityMedium
	}
	// A built combination that should be restricted points at configuration
	// drift, so the finding is elevated.
	if d.Kind == combos.KindExtraDownstream {
		if severity == combos.SeverityExpected {
			return combos.SeverityLow
		}
		return combos.SeverityMedium
	}
	return severity
}

func bandAction(r BandRestriction) string {
	if action, ok := bandRestrictionAction[r.Category]; ok {
		return action
	}
	return "Review manually - restriction category unknown"
}

func reasonCategory(category string) combos.ReasonCategory {
	if mapped, ok := reasonCategoryFor[category]; ok {
		return mapped
	}
	return combos.ReasonCategory(category)
}
