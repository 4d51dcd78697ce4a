// Package parser defines the shared contract for the source document parsers
// and the bounded file reading they all use.
package parser

import (
	"fmt"
	"io"
	"os"

	"combocheck/pkg/combos"
)

// DefaultSizeLimit bounds how many bytes a single source document may carry.
const DefaultSizeLimit = 20 << 20 // 20 MiB

// Result is the outcome of parsing one source document. Parsers fail softly:
// problems are recorded as warnings and the sets stay well-formed (possibly
// empty), so downstream stages never see malformed input. Only size-limit and
// missing-file conditions surface as errors, and those are raised by ReadFile
// before parsing begins.
type Result struct {
	Sets     map[combos.Category]combos.ComboSet
	Warnings []string

	// RecordCount is the item-count assertion embedded in the document,
	// when the format carries one. Zero means no assertion was present.
	RecordCount int

	// Info carries document metadata such as hardware identifiers, when
	// the format exposes any.
	Info map[string]string
}

// NewResult returns a Result with an empty ComboSet for every category.
func NewResult(source combos.Source) Result {
	sets := make(map[combos.Category]combos.ComboSet, len(combos.Categories()))
	for _, category := range combos.Categories() {
		sets[category] = combos.NewComboSet(source, category)
	}
	return Result{Sets: sets}
}

// Warnf records a formatted warning on the result.
func (r *Result) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// TotalCombos counts the combinations across all categories.
func (r Result) TotalCombos() int {
	total := 0
	for _, set := range r.Sets {
		total += set.Len()
	}
	return total
}

// ReadFile reads the document at path, enforcing the size limit before any
// bytes are consumed. A missing file returns combos.ErrMissingInput and an
// oversized file returns combos.ErrSizeLimitExceeded; both wrap the path.
func ReadFile(path string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultSizeLimit
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, combos.ErrMissingInput)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%s (%d bytes, limit %d): %w", path, info.Size(), limit, combos.ErrSizeLimitExceeded)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}
