// Package control parses the auxiliary control files that can mechanically
// prune or disable combinations independent of the main sources: a text
// pruning list and a set of single-byte enable/disable flag files. Missing
// files mean "no pruning" and "feature enabled", never an error.
package control

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Well-known control file names.
const (
	FilePruneList   = "prune_ca_combos"
	FileCADisable   = "ca_disable"
	FileDisable4L   = "disable_4l_per_band"
	FileNRCAEnabled = "cap_control_nrca_enabled"
	FileNRDCEnabled = "cap_control_nrdc_enabled"
)

// The directory layouts the control files have been observed under, relative
// to the control root. The root itself is probed last.
var legacySubdirs = []string{
	filepath.Join("lte", "rrc", "cap"),
	filepath.Join("modem", "lte", "rrc", "cap"),
	filepath.Join("nv", "item_files", "modem", "lte", "rrc", "cap"),
	"",
}

var nrSubdirs = []string{
	filepath.Join("nr5g", "rrc"),
	filepath.Join("modem", "nr5g", "rrc"),
	filepath.Join("nv", "item_files", "modem", "nr5g", "rrc"),
	"",
}

// PrunedEntry is one record from the pruning list: a normalized component
// key, an optional BCS qualifier (-1 when absent) and the raw record text.
type PrunedEntry struct {
	Key string
	BCS int
	Raw string
}

// State is the combined outcome of all control files. A zero State with the
// enable flags at their defaults describes "no control files present".
type State struct {
	CADisabled  bool
	NRCAEnabled bool
	NRDCEnabled bool

	Pruned          []PrunedEntry
	Disabled4LBands []int

	SourceFiles map[string]string
	Warnings    []string
}

// NewState returns the safe-default state: nothing pruned, every capability
// enabled.
func NewState() State {
	return State{
		NRCAEnabled: true,
		NRDCEnabled: true,
		SourceFiles: make(map[string]string),
	}
}

// PrunedKeys returns the membership set used by the analyzer: both the
// component-only key and the full raw record of every pruning entry.
func (s State) PrunedKeys() map[string]bool {
	keys := make(map[string]bool, len(s.Pruned)*2)
	for _, entry := range s.Pruned {
		keys[entry.Key] = true
		keys[entry.Raw] = true
	}
	return keys
}

// Flags exposes the named boolean capability flags.
func (s State) Flags() map[string]bool {
	return map[string]bool{
		FileCADisable:   s.CADisabled,
		FileNRCAEnabled: s.NRCAEnabled,
		FileNRDCEnabled: s.NRDCEnabled,
	}
}

func (s *State) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// ParseDir reads every recognized control file under root, probing the known
// directory layouts in order and using the first that exists per file.
func ParseDir(root string) State {
	state := NewState()

	if path, ok := locate(root, legacySubdirs, FilePruneList); ok {
		state.SourceFiles[FilePruneList] = path
		content, err := os.ReadFile(path)
		if err != nil {
			state.warnf("control: read %s: %v", path, err)
		} else {
			state.Pruned = ParsePruneList(content)
		}
	}

	if path, ok := locate(root, legacySubdirs, FileCADisable); ok {
		state.SourceFiles[FileCADisable] = path
		state.CADisabled = parseFlag(path, false, &state)
	}

	if path, ok := locate(root, legacySubdirs, FileDisable4L); ok {
		state.SourceFiles[FileDisable4L] = path
		content, err := os.ReadFile(path)
		if err != nil {
			state.warnf("control: read %s: %v", path, err)
		} else {
			state.Disabled4LBands = parseDisabledBands(content)
		}
	}

	if path, ok := locate(root, nrSubdirs, FileNRCAEnabled); ok {
		state.SourceFiles[FileNRCAEnabled] = path
		state.NRCAEnabled = parseFlag(path, true, &state)
	}

	if path, ok := locate(root, nrSubdirs, FileNRDCEnabled); ok {
		state.SourceFiles[FileNRDCEnabled] = path
		state.NRDCEnabled = parseFlag(path, true, &state)
	}

	return state
}

func locate(root string, subdirs []string, name string) (string, bool) {
	for _, subdir := range subdirs {
		path := filepath.Join(root, subdir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

var pruneEntryPattern = regexp.MustCompile(`(?i)(\d+[A-Z](?:-\d+[A-Z])*(?:-\d+)?)\s*;`)
var bandTokenPattern = regexp.MustCompile(`(?i)^\d+[A-Z]$`)

// ParsePruneList extracts pruning records from the text pruning list. Each
// record is a dash-joined band token list with an optional trailing BCS
// qualifier, terminated by a semicolon, e.g. "1A-3A-0;1A-3A-1;7A-20A;".
func ParsePruneList(content []byte) []PrunedEntry {
	var entries []PrunedEntry
	seen := make(map[string]bool)

	for _, m := range pruneEntryPattern.FindAllStringSubmatch(string(content), -1) {
		entry, ok := parsePruneEntry(m[1])
		if !ok || seen[entry.Raw] {
			continue
		}
		seen[entry.Raw] = true
		entries = append(entries, entry)
	}
	return entries
}

func parsePruneEntry(raw string) (PrunedEntry, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return PrunedEntry{}, false
	}

	var bands []string
	bcs := -1
	for _, part := range strings.Split(raw, "-") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case bandTokenPattern.MatchString(part):
			bands = append(bands, part)
		default:
			if v, err := strconv.Atoi(part); err == nil {
				bcs = v
			}
		}
	}
	if len(bands) == 0 {
		return PrunedEntry{}, false
	}

	sort.Slice(bands, func(i, j int) bool {
		bi, _ := strconv.Atoi(bands[i][:len(bands[i])-1])
		bj, _ := strconv.Atoi(bands[j][:len(bands[j])-1])
		if bi != bj {
			return bi < bj
		}
		return bands[i] < bands[j]
	})

	return PrunedEntry{
		Key: strings.Join(bands, "-"),
		BCS: bcs,
		Raw: raw,
	}, true
}

// parseFlag reads a single-byte flag file. The flag is set when the byte is
// nonzero; what "set" means depends on the file. On a read error or an empty
// file the default is kept and a warning recorded. A byte other than 0x00 or
// 0x01 is accepted as set but flagged, since the format defines only those
// two values.
func parseFlag(path string, def bool, state *State) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		state.warnf("control: read flag %s: %v", path, err)
		return def
	}
	if len(data) == 0 {
		state.warnf("control: flag file %s is empty", path)
		return def
	}
	if data[0] > 0x01 {
		state.warnf("control: flag file %s carries unexpected byte 0x%02x", path, data[0])
	}
	return data[0] != 0x00
}

// parseDisabledBands reads the per-band MIMO disable file, which is either a
// newline-separated list of band numbers or a bitmap with one bit per band.
func parseDisabledBands(content []byte) []int {
	seen := make(map[int]bool)

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if band, err := strconv.Atoi(line); err == nil && band > 0 {
			seen[band] = true
		}
	}

	if len(seen) == 0 {
		for byteIdx, b := range content {
			for bit := 0; bit < 8; bit++ {
				if b&(1<<bit) == 0 {
					continue
				}
				band := byteIdx*8 + bit + 1
				if band >= 1 && band <= 256 {
					seen[band] = true
				}
			}
		}
	}

	bands := make([]int, 0, len(seen))
	for band := range seen {
		bands = append(bands, band)
	}
	sort.Ints(bands)
	return bands
}
