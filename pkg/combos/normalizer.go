package combos

import (
	"sort"
	"strings"
)

// Normalize returns a copy of the combination with band classes uppercased,
// duplicate components removed (first occurrence wins) and components sorted
// legacy-first, then by band number, then by class. Normalization is
// idempotent.
func Normalize(c Combo) Combo {
	type compKey struct {
		band  int
		class string
		nr    bool
	}

	seen := make(map[compKey]bool, len(c.Components))
	components := make([]BandComponent, 0, len(c.Components))
	for _, comp := range c.Components {
		comp.Class = normalizeClass(comp.Class)
		key := compKey{band: comp.Band, class: comp.Class, nr: comp.NR}
		if seen[key] {
			continue
		}
		seen[key] = true
		components = append(components, comp)
	}

	sort.SliceStable(components, func(i, j int) bool {
		a, b := components[i], components[j]
		if a.NR != b.NR {
			return !a.NR
		}
		if a.Band != b.Band {
			return a.Band < b.Band
		}
		return a.Class < b.Class
	})

	c.Components = components
	c.BCS = NormalizeBCS(c.BCS)
	return c
}

// NormalizeSet returns a new ComboSet with every combination normalized and
// re-keyed. Combinations that collapse to the same key after normalization
// obey last-write-wins ordering.
func NormalizeSet(s ComboSet) ComboSet {
	out := NewComboSet(s.Source, s.Category)
	for _, key := range s.Keys() {
		out.Add(Normalize(s.Combos[key]))
	}
	return out
}

// NormalizeBCS sorts and deduplicates BCS values and drops values outside
// the 0..255 range. Returns nil when nothing valid remains, so an absent BCS
// stays absent.
func NormalizeBCS(bcs []int) []int {
	if bcs == nil {
		return nil
	}

	seen := make(map[int]bool, len(bcs))
	var out []int
	for _, v := range bcs {
		if v < 0 || v > 255 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Ints(out)
	return out
}

// BCSEqual reports whether two BCS value sets agree. An absent set matches
// anything; two present sets must be exactly equal.
func BCSEqual(a, b []int) bool {
	if a == nil || b == nil {
		return true
	}
	a, b = NormalizeBCS(a), NormalizeBCS(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UniqueBands collects the distinct band numbers across the given sets,
// split into legacy and NR, each sorted ascending.
func UniqueBands(sets ...map[Category]ComboSet) (legacy, nextgen []int) {
	legacySeen := make(map[int]bool)
	nrSeen := make(map[int]bool)
	for _, group := range sets {
		for _, set := range group {
			for _, combo := range set.Combos {
				for _, comp := range combo.Components {
					if comp.NR {
						nrSeen[comp.Band] = true
					} else {
						legacySeen[comp.Band] = true
					}
				}
			}
		}
	}
	for band := range legacySeen {
		legacy = append(legacy, band)
	}
	for band := range nrSeen {
		nextgen = append(nextgen, band)
	}
	sort.Ints(legacy)
	sort.Ints(nextgen)
	return legacy, nextgen
}

func normalizeClass(class string) string {
	return strings.ToUpper(strings.TrimSpace(class))
}
