// Package capability parses ASN.1-style XML exports of the capabilities a
// device advertises to the network. The export schema varies by release, so
// each category probes an ordered list of path variants, newest release
// first, and uses the first variant that yields combinations.
package capability

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"combocheck/pkg/combos"
	"combocheck/pkg/combos/parser"
)

// node is a schema-agnostic XML tree. The exports mix namespaces and wrapper
// depth across releases, so extraction walks local tag names instead of
// binding to a fixed struct layout.
type node struct {
	XMLName  xml.Name
	Text     string `xml:",chardata"`
	Children []node `xml:",any"`
}

func (n node) tag() string {
	return n.XMLName.Local
}

// descend calls fn on n and every descendant, depth first.
func (n node) descend(fn func(node)) {
	fn(n)
	for _, child := range n.Children {
		child.descend(fn)
	}
}

// legacyComboListVariants are the path variants for the legacy aggregation
// combination list, newest release first.
var legacyComboListVariants = []string{
	"supportedBandCombinationReduced-r13",
	"supportedBandCombination-r13",
	"supportedBandCombinationAdd-r11",
	"supportedBandCombination-r11",
	"supportedBandCombination-r10",
}

// Parse extracts the advertised combinations per category. A document that
// cannot be parsed at all yields empty collections and a document-level
// warning. A document that parses but matches no known schema variant falls
// back to scanning its text content for combination tokens; if that also
// finds nothing, the result is empty with a variant warning, which downstream
// treats the same as an empty category.
func Parse(content []byte) parser.Result {
	result := parser.NewResult(combos.SourceCapability)

	var root node
	if err := xml.Unmarshal(content, &root); err != nil {
		result.Warnf("capability: %v: %v", combos.ErrMalformedDocument, err)
		return result
	}

	parseLegacyAggregation(root, &result)
	parseDualConnectivity(root, &result)
	parseNRAggregation(root, &result)

	if result.TotalCombos() == 0 {
		parseGenericText(root, &result)
	}
	if result.TotalCombos() == 0 {
		result.Warnf("capability: %v", combos.ErrUnsupportedVariant)
	}

	return result
}

// parseLegacyAggregation probes the release-versioned legacy combination
// lists. The first variant that yields combinations wins; older variants are
// not consulted after a match.
func parseLegacyAggregation(root node, result *parser.Result) {
	for _, variant := range legacyComboListVariants {
		found := 0
		root.descend(func(n node) {
			if n.tag() != variant {
				return
			}
			for _, entry := range n.Children {
				if combo, ok := parseLegacyCombination(entry); ok {
					addCombo(result, combo)
					found++
				}
			}
		})
		if found > 0 {
			return
		}
	}

	// Some exports flatten the list and expose the parameter records
	// directly.
	root.descend(func(n node) {
		if !strings.HasPrefix(n.tag(), "BandCombinationParameters") {
			return
		}
		if combo, ok := parseLegacyCombination(n); ok {
			addCombo(result, combo)
		}
	})
}

func parseLegacyCombination(entry node) (combos.Combo, bool) {
	var components []combos.BandComponent
	var bcs []int

	entry.descend(func(n node) {
		tag := n.tag()
		switch {
		case strings.HasPrefix(tag, "bandEUTRA"):
			if band, ok := intValue(n); ok {
				components = append(components, combos.BandComponent{
					Band:  band,
					Class: "A",
				})
			}
		case strings.Contains(tag, "ca-BandwidthClassDL"):
			if len(components) > 0 {
				components[len(components)-1].Class = bandwidthClass(n)
			}
		case strings.Contains(tag, "supportedBandwidthCombinationSet"):
			bcs = append(bcs, intList(n.Text)...)
		}
	})

	if len(components) == 0 {
		return combos.Combo{}, false
	}
	return combos.Combo{
		Category:   combos.CategoryLTECA,
		Components: components,
		BCS:        bcs,
	}, true
}

// parseDualConnectivity extracts EN-DC and NR-DC combinations from the
// multi-RAT capability section.
func parseDualConnectivity(root node, result *parser.Result) {
	root.descend(func(n node) {
		if n.tag() != "supportedBandCombinationList" && !strings.Contains(n.tag(), "BandCombinationList") {
			return
		}
		for _, entry := range n.Children {
			// NR-only aggregation entries belong to parseNRAggregation.
			if strings.Contains(entry.tag(), "BandCombination-NR") {
				continue
			}
			combo, ok := parseMultiRATCombination(entry)
			if !ok {
				continue
			}
			if combo.Category == combos.CategoryENDC || combo.Category == combos.CategoryNRDC {
				addCombo(result, combo)
			}
		}
	})
}

func parseMultiRATCombination(entry node) (combos.Combo, bool) {
	var components []combos.BandComponent

	entry.descend(func(n node) {
		switch n.tag() {
		case "bandEUTRA":
			if band, ok := intValue(n); ok {
				components = append(components, combos.BandComponent{
					Band:  band,
					Class: "A",
				})
			}
		case "bandNR", "freqBandIndicatorNR":
			if band, ok := intValue(n); ok {
				components = append(components, combos.BandComponent{
					Band:  band,
					Class: "A",
					NR:    true,
				})
			}
		default:
			if strings.Contains(n.tag(), "ca-BandwidthClassDL") && len(components) > 0 {
				components[len(components)-1].Class = bandwidthClass(n)
			}
			if strings.Contains(n.tag(), "maxNumberMIMO-LayersDL") && len(components) > 0 {
				if layers, ok := mimoLayers(n); ok {
					components[len(components)-1].MIMOLayers = layers
				}
			}
		}
	})

	if len(components) == 0 {
		return combos.Combo{}, false
	}
	return combos.Combo{
		Category:   combos.CategoryFor(components, len(components) > 1),
		Components: components,
	}, true
}

// parseNRAggregation extracts NR-only aggregation combinations.
func parseNRAggregation(root node, result *parser.Result) {
	root.descend(func(n node) {
		if !strings.Contains(n.tag(), "BandCombination-NR") {
			return
		}
		var components []combos.BandComponent
		n.descend(func(c node) {
			if c.tag() == "bandNR" || c.tag() == "freqBandIndicatorNR" {
				if band, ok := intValue(c); ok {
					components = append(components, combos.BandComponent{
						Band:  band,
						Class: "A",
						NR:    true,
					})
				}
			}
		})
		if len(components) == 0 {
			return
		}
		addCombo(result, combos.Combo{
			Category:   combos.CategoryNRCA,
			Components: components,
		})
	})
}

var genericComboPattern = regexp.MustCompile(`(?i)[BN]?\d+[A-Z](?:[-+,][BN]?\d+[A-Z])+`)

// parseGenericText is the last-resort strategy for non-standard exports: it
// scans all text content for delimited combination tokens.
func parseGenericText(root node, result *parser.Result) {
	var sb strings.Builder
	root.descend(func(n node) {
		sb.WriteString(n.Text)
		sb.WriteString(" ")
	})

	for _, raw := range genericComboPattern.FindAllString(sb.String(), -1) {
		components := combos.ParseComponents(raw)
		if len(components) < 2 {
			continue
		}
		addCombo(result, combos.Combo{
			Category:   combos.CategoryFor(components, false),
			Components: components,
			Raw:        raw,
		})
	}
}

func addCombo(result *parser.Result, combo combos.Combo) {
	set := result.Sets[combo.Category]
	set.Add(combo)
	result.Sets[combo.Category] = set
}

func intValue(n node) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(n.Text))
	if err != nil {
		return 0, false
	}
	return v, true
}

func intList(text string) []int {
	var values []int
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if v, err := strconv.Atoi(field); err == nil {
			values = append(values, v)
		}
	}
	return values
}

var classLetterPattern = regexp.MustCompile(`[A-I]`)

// bandwidthClass tolerates the spellings seen across exports: "a", "classA",
// "bwClass-A".
func bandwidthClass(n node) string {
	text := strings.TrimSpace(n.Text)
	if len(text) == 1 {
		return strings.ToUpper(text)
	}
	// Class spellings embed the letter at the end ("classA", "bwClass-A"),
	// so the last candidate letter is the class.
	if matches := classLetterPattern.FindAllString(strings.ToUpper(text), -1); len(matches) > 0 {
		return matches[len(matches)-1]
	}
	return "A"
}

var digitPattern = regexp.MustCompile(`\d+`)

var namedLayerCounts = map[string]int{
	"one": 1, "two": 2, "four": 4, "eight": 8,
}

func mimoLayers(n node) (int, bool) {
	text := strings.ToLower(strings.TrimSpace(n.Text))
	if m := digitPattern.FindString(text); m != "" {
		if layers, err := strconv.Atoi(m); err == nil && layers >= 1 && layers <= 8 {
			return layers, true
		}
	}
	for name, layers := range namedLayerCounts {
		if strings.Contains(text, name) {
			return layers, true
		}
	}
	return 0, false
}
