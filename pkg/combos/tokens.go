package combos

import (
	"regexp"
	"strconv"
)

// componentPattern matches one band token: optional B/N prefix, band number,
// bandwidth class, optional bracketed MIMO layer count, e.g. "B66A", "n77A[4]",
// "3C".
var componentPattern = regexp.MustCompile(`(?i)([BN]?)(\d+)([A-Z])(?:\[(\d+)\])?`)

// ParseComponents extracts band components from a combination string such as
// "1A-3A-7A", "DC_66A_n77A" or "B66A+N77A[4]". Tokens without a B/N prefix
// are treated as legacy unless the band number exceeds 256, which only occurs
// in the NR numbering plan. Returns nil when the string contains no token.
func ParseComponents(raw string) []BandComponent {
	matches := componentPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	components := make([]BandComponent, 0, len(matches))
	for _, m := range matches {
		band, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		nr := false
		switch m[1] {
		case "N", "n":
			nr = true
		case "B", "b":
			nr = false
		default:
			nr = band > 256
		}

		mimo := 0
		if m[4] != "" {
			mimo, _ = strconv.Atoi(m[4])
		}

		components = append(components, BandComponent{
			Band:       band,
			Class:      normalizeClass(m[3]),
			MIMOLayers: mimo,
			NR:         nr,
		})
	}
	return components
}

// CategoryFor derives the combination category from the mix of components.
// Mixed legacy and NR components form dual connectivity; a dualConn hint
// distinguishes NR-DC from NR CA when only NR components are present.
func CategoryFor(components []BandComponent, dualConn bool) Category {
	hasLegacy, hasNR := false, false
	for _, comp := range components {
		if comp.NR {
			hasNR = true
		} else {
			hasLegacy = true
		}
	}

	switch {
	case hasLegacy && hasNR:
		return CategoryENDC
	case hasNR && dualConn:
		return CategoryNRDC
	case hasNR:
		return CategoryNRCA
	default:
		return CategoryLTECA
	}
}
