// Package definition parses the band plan document that states which
// combinations a device should support, grouped into per-category sections.
package definition

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"combocheck/pkg/combos"
	"combocheck/pkg/combos/parser"
)

// bandEntryPattern matches one band entry inside a combination record, e.g.
// "B66A[4];A[1]" or "N77A[100x4];A[100x1]". The bracketed downlink spec
// carries the MIMO layer count as its trailing factor.
var (
	bandEntryPattern = regexp.MustCompile(`(?i)^([BN])(\d+)([A-Z])(?:\[([^\]]*)\])?(?:;([A-Z])(?:\[([^\]]*)\])?)?`)
	layerPattern     = regexp.MustCompile(`x?(\d+)$`)
	nrTokenPattern   = regexp.MustCompile(`(?i)N\d+`)
)

type comboRecord struct {
	BCS  string `xml:"bcs,attr"`
	Text string `xml:",chardata"`
}

type document struct {
	XMLName    xml.Name
	Properties struct {
		HWID string `xml:"hwid"`
		Name string `xml:"name"`
	} `xml:"card_properties"`
	CACombos    []comboRecord `xml:"ca_combos>ca_combo"`
	ENDCCombos  []comboRecord `xml:"ca_4g_5g_combos>ca_combo"`
	NRCACombos  []comboRecord `xml:"nrca_combos>ca_combo"`
	NRCACombos2 []comboRecord `xml:"nr_ca_combos>ca_combo"`
	NRDCCombos  []comboRecord `xml:"nrdc_combos>ca_combo"`
}

// Parse extracts the per-category combination collections from the band plan
// document. A document that cannot be parsed at all yields empty collections
// for every category and a single document-level warning; a missing or empty
// section yields an empty collection for that category only.
func Parse(content []byte) parser.Result {
	result := parser.NewResult(combos.SourceDefinition)

	var doc document
	if err := xml.Unmarshal(content, &doc); err != nil {
		result.Warnf("definition: %v: %v", combos.ErrMalformedDocument, err)
		return result
	}

	if hwid := strings.TrimSpace(doc.Properties.HWID); hwid != "" {
		result.Info = map[string]string{"hwid": hwid}
		if name := strings.TrimSpace(doc.Properties.Name); name != "" {
			result.Info["name"] = name
		}
	}

	for _, record := range doc.CACombos {
		text := strings.TrimSpace(record.Text)
		// Records with NR tokens in the aggregation section belong to the
		// dual connectivity section and are skipped here.
		if nrTokenPattern.MatchString(text) {
			continue
		}
		if combo, ok := parseRecord(record, combos.CategoryLTECA); ok {
			addTo(result.Sets, combos.CategoryLTECA, combo)
		}
	}

	for _, record := range doc.ENDCCombos {
		combo, ok := parseRecord(record, combos.CategoryENDC)
		if !ok {
			continue
		}
		if len(combo.LegacyComponents()) == 0 || len(combo.NRComponents()) == 0 {
			continue
		}
		addTo(result.Sets, combos.CategoryENDC, combo)
	}

	for _, record := range append(doc.NRCACombos, doc.NRCACombos2...) {
		combo, ok := parseRecord(record, combos.CategoryNRCA)
		if !ok || len(combo.NRComponents()) == 0 {
			continue
		}
		addTo(result.Sets, combos.CategoryNRCA, combo)
	}

	for _, record := range doc.NRDCCombos {
		if combo, ok := parseRecord(record, combos.CategoryNRDC); ok {
			addTo(result.Sets, combos.CategoryNRDC, combo)
		}
	}

	return result
}

func addTo(sets map[combos.Category]combos.ComboSet, category combos.Category, combo combos.Combo) {
	set := sets[category]
	set.Add(combo)
	sets[category] = set
}

// parseRecord converts one combination record into a Combo. Band entries are
// separated by '+' or ','; entries that do not match the band pattern are
// skipped. Returns false when no entry parsed.
func parseRecord(record comboRecord, category combos.Category) (combos.Combo, bool) {
	text := strings.TrimSpace(record.Text)
	if text == "" {
		return combos.Combo{}, false
	}

	var components []combos.BandComponent
	for _, entry := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '+' || r == ','
	}) {
		if component, ok := parseBandEntry(strings.TrimSpace(entry)); ok {
			components = append(components, component)
		}
	}
	if len(components) == 0 {
		return combos.Combo{}, false
	}

	return combos.Combo{
		Category:   category,
		Components: components,
		BCS:        parseBCSAttr(record.BCS),
		Raw:        text,
	}, true
}

func parseBandEntry(entry string) (combos.BandComponent, bool) {
	m := bandEntryPattern.FindStringSubmatch(entry)
	if m == nil {
		return combos.BandComponent{}, false
	}

	band, err := strconv.Atoi(m[2])
	if err != nil {
		return combos.BandComponent{}, false
	}

	mimo := 0
	if m[4] != "" {
		if lm := layerPattern.FindStringSubmatch(m[4]); lm != nil {
			mimo, _ = strconv.Atoi(lm[1])
		}
	}

	return combos.BandComponent{
		Band:       band,
		Class:      strings.ToUpper(m[3]),
		MIMOLayers: mimo,
		NR:         strings.EqualFold(m[1], "N"),
	}, true
}

// parseBCSAttr reads the optional bcs attribute, a comma or space delimited
// integer list. Unparseable fragments are dropped.
func parseBCSAttr(attr string) []int {
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return nil
	}

	var values []int
	for _, field := range strings.FieldsFunc(attr, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	}) {
		if v, err := strconv.Atoi(strings.TrimSpace(field)); err == nil {
			values = append(values, v)
		}
	}
	return combos.NormalizeBCS(values)
}
