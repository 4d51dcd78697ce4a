// Package devicelog parses plain-text captures of the combinations a device
// actually built at runtime. Captures come in several textual layouts, so
// parsing tries a structured field-label format, a column table format and a
// freeform labeled format in order, using the first that yields entries.
package devicelog

import (
	"regexp"
	"strconv"
	"strings"

	"combocheck/pkg/combos"
	"combocheck/pkg/combos/parser"
)

var (
	comboIndexPattern = regexp.MustCompile(`(?i)Combo\s*Index\s*[=:]\s*(\d+)`)
	bandHeaderPattern = regexp.MustCompile(`(?i)\[Band\s*\d+\]`)
	ratPattern        = regexp.MustCompile(`(?i)RAT\s*(?:Type)?\s*[=:]\s*(\w+)`)
	bandPattern       = regexp.MustCompile(`(?i)(?:^|\s)Band\s*[=:]\s*(\d+)`)
	dlClassPattern    = regexp.MustCompile(`(?i)DL\s*(?:BW\s*)?Class\s*[=:]\s*(\w)`)
	mimoPattern       = regexp.MustCompile(`(?i)DL\s*(?:MIMO|Layers?)\s*[=:]\s*(\d+)`)

	tableHeaderPattern = regexp.MustCompile(`(?i)Index.*RAT.*Band.*(?:BW|Class)`)
	tableRowPattern    = regexp.MustCompile(`(?im)^\s*(\d+)\s*\|?\s*(LTE|NR|EUTRA|NR5G)\s*\|?\s*(\d+)\s*\|?\s*([A-Z])\s*\|?\s*[A-Z]?\s*\|?\s*(\d+)?`)

	labeledPattern   = regexp.MustCompile(`(?i)(ENDC|EN-DC|LTE[-_]?CA|NRCA|NR[-_]?CA|NRDC|NR[-_]?DC)\s*[:=]\s*(.+)`)
	dualConnPattern  = regexp.MustCompile(`(?i)DC[_-]?(\d+)([A-Z])[_-]?n(\d+)([A-Z])`)
	bcsSuffixPattern = regexp.MustCompile(`(?i)BCS\s*[=:]\s*\[([\d,\s]*)\]`)
	fallbackPattern  = regexp.MustCompile(`(?i)FALLBACK\s*[=:]\s*([\d,\s]+)`)
	bareComboPattern = regexp.MustCompile(`(?i)^n?\d+[A-Z](?:[-+]n?\d+[A-Z])+$`)

	recordCountPattern = regexp.MustCompile(`(?i)Number\s+of\s+(?:Records|Combos)\s*[=:]\s*(\d+)`)
)

type bandEntry struct {
	nr    bool
	band  int
	class string
	mimo  int
}

// Parse extracts combinations from a device log capture. Unmatched lines are
// ignored. When the capture carries an item-count assertion and the extracted
// entry count disagrees, the mismatch is recorded as a warning on the result.
func Parse(content []byte) parser.Result {
	result := parser.NewResult(combos.SourceDeviceLog)
	text := string(content)

	if m := recordCountPattern.FindStringSubmatch(text); m != nil {
		result.RecordCount, _ = strconv.Atoi(m[1])
	}

	raw := parseStructured(text)
	if len(raw) == 0 {
		raw = parseTable(text)
	}
	if len(raw) == 0 {
		parseLabeled(text, &result)
	} else {
		buildSets(raw, &result)
	}

	if result.RecordCount > 0 && result.TotalCombos() != result.RecordCount {
		result.Warnf("device log: capture asserts %d records but %d combinations were extracted",
			result.RecordCount, result.TotalCombos())
	}
	if result.TotalCombos() == 0 {
		result.Warnf("device log: no combination entries recognized in capture")
	}

	return result
}

// parseStructured handles exports with explicit field labels:
//
//	Combo Index = 0
//	[Band 0]
//	RAT Type = LTE
//	Band = 66
//	DL BW Class = A
//	DL MIMO = 4
func parseStructured(text string) map[int][]bandEntry {
	if !strings.Contains(strings.ToLower(text), "combo index") {
		return nil
	}

	raw := make(map[int][]bandEntry)
	currentIdx := -1
	var current *bandEntry

	flush := func() {
		if current != nil && currentIdx >= 0 && current.band > 0 {
			raw[currentIdx] = append(raw[currentIdx], *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := comboIndexPattern.FindStringSubmatch(line); m != nil {
			flush()
			currentIdx, _ = strconv.Atoi(m[1])
			continue
		}
		if currentIdx < 0 {
			continue
		}
		if bandHeaderPattern.MatchString(line) {
			flush()
			current = &bandEntry{class: "A"}
			continue
		}

		if current == nil {
			current = &bandEntry{class: "A"}
		}
		if m := ratPattern.FindStringSubmatch(line); m != nil {
			current.nr = isNRRat(m[1])
		}
		if m := bandPattern.FindStringSubmatch(line); m != nil {
			current.band, _ = strconv.Atoi(m[1])
		}
		if m := dlClassPattern.FindStringSubmatch(line); m != nil {
			current.class = strings.ToUpper(m[1])
		}
		if m := mimoPattern.FindStringSubmatch(line); m != nil {
			current.mimo, _ = strconv.Atoi(m[1])
		}
	}
	flush()

	return raw
}

// parseTable handles column exports:
//
//	Index | RAT | Band | DL BW | UL BW | DL MIMO
//	  0   | LTE |  66  |   A   |   A   |    4
func parseTable(text string) map[int][]bandEntry {
	if !tableHeaderPattern.MatchString(text) {
		return nil
	}

	raw := make(map[int][]bandEntry)
	for _, m := range tableRowPattern.FindAllStringSubmatch(text, -1) {
		idx, _ := strconv.Atoi(m[1])
		band, _ := strconv.Atoi(m[3])
		entry := bandEntry{
			nr:    isNRRat(m[2]),
			band:  band,
			class: strings.ToUpper(m[4]),
		}
		if m[5] != "" {
			entry.mimo, _ = strconv.Atoi(m[5])
		}
		raw[idx] = append(raw[idx], entry)
	}
	return raw
}

// parseLabeled handles freeform captures: category-labeled lines with
// optional BCS bracket-lists and fallback suffixes, dual connectivity
// "DC_66A_n77A" tokens and bare delimited combination strings.
func parseLabeled(text string, result *parser.Result) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		bcs := parseBCSSuffix(line)
		fallback := parseFallbackSuffix(line)

		if m := labeledPattern.FindStringSubmatch(line); m != nil {
			components := combos.ParseComponents(stripSuffixes(m[2]))
			if len(components) == 0 {
				continue
			}
			category := labeledCategory(m[1], components)
			addCombo(result, combos.Combo{
				Category:   category,
				Components: components,
				BCS:        bcs,
				Fallback:   fallback,
				Raw:        line,
			})
			continue
		}

		if m := dualConnPattern.FindStringSubmatch(line); m != nil {
			components := combos.ParseComponents(m[0])
			addCombo(result, combos.Combo{
				Category:   combos.CategoryENDC,
				Components: components,
				BCS:        bcs,
				Fallback:   fallback,
				Raw:        line,
			})
			continue
		}

		if bare := stripSuffixes(line); bareComboPattern.MatchString(bare) {
			components := combos.ParseComponents(bare)
			if len(components) < 2 {
				continue
			}
			addCombo(result, combos.Combo{
				Category:   combos.CategoryFor(components, false),
				Components: components,
				BCS:        bcs,
				Raw:        line,
			})
		}
	}
}

func buildSets(raw map[int][]bandEntry, result *parser.Result) {
	for _, entries := range raw {
		components := make([]combos.BandComponent, 0, len(entries))
		for _, e := range entries {
			components = append(components, combos.BandComponent{
				Band:       e.band,
				Class:      e.class,
				MIMOLayers: e.mimo,
				NR:         e.nr,
			})
		}
		if len(components) == 0 {
			continue
		}
		addCombo(result, combos.Combo{
			Category:   combos.CategoryFor(components, false),
			Components: components,
		})
	}
}

func addCombo(result *parser.Result, combo combos.Combo) {
	set := result.Sets[combo.Category]
	set.Add(combo)
	result.Sets[combo.Category] = set
}

// labeledCategory maps the line label to a category, falling back to the
// component mix when label and contents disagree on dual connectivity.
func labeledCategory(label string, components []combos.BandComponent) combos.Category {
	normalized := strings.ToUpper(strings.NewReplacer("-", "", "_", "").Replace(label))
	switch normalized {
	case "ENDC":
		return combos.CategoryENDC
	case "NRDC":
		return combos.CategoryNRDC
	case "NRCA":
		return combos.CategoryNRCA
	case "LTECA":
		return combos.CategoryLTECA
	}
	return combos.CategoryFor(components, false)
}

func parseBCSSuffix(line string) []int {
	m := bcsSuffixPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return parseIntList(m[1])
}

func parseFallbackSuffix(line string) []int {
	m := fallbackPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return parseIntList(m[1])
}

func parseIntList(text string) []int {
	var values []int
	for _, field := range strings.Split(text, ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(field)); err == nil {
			values = append(values, v)
		}
	}
	return values
}

// stripSuffixes removes BCS and fallback key=value suffixes so that only
// band tokens remain for component extraction.
func stripSuffixes(text string) string {
	text = bcsSuffixPattern.ReplaceAllString(text, "")
	text = fallbackPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func isNRRat(rat string) bool {
	switch strings.ToUpper(rat) {
	case "NR", "NR5G":
		return true
	}
	return false
}
