package combos

import "errors"

var (
	// ErrMissingInput is returned when a required input file does not exist.
	ErrMissingInput = errors.New("input file does not exist")

	// ErrSizeLimitExceeded is returned when an input file exceeds the
	// configured size limit.
	ErrSizeLimitExceeded = errors.New("input file exceeds size limit")

	// ErrNoUsableInput is returned when no source yielded any combination
	// data at all.
	ErrNoUsableInput = errors.New("no usable combination data in any source")

	// ErrMalformedDocument marks a source document that could not be parsed
	// at the top level. Parsers attach it to the result as a warning and
	// return empty collections; it never aborts a run.
	ErrMalformedDocument = errors.New("document parse error")

	// ErrUnsupportedVariant marks a document that parsed but matched no
	// known schema variant. Treated the same as an empty source.
	ErrUnsupportedVariant = errors.New("no known schema variant matched")

	// ErrRuleLoad marks a knowledge rule file that failed to load. The file
	// is skipped with a warning; the rest of the rule base still loads.
	ErrRuleLoad = errors.New("rule file rejected")
)
