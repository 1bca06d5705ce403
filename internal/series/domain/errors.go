package domain

import "errors"

var (
	// ErrSeriesExhausted means a counter hit MaxSequential. Fatal and
	// operator-facing: the tenant needs a new branch or terminal; the series
	// is never wrapped or reset automatically.
	ErrSeriesExhausted = errors.New("series_exhausted")

	ErrInvalidBranch   = errors.New("invalid_branch")
	ErrInvalidTerminal = errors.New("invalid_terminal")
	ErrInvalidDocType  = errors.New("invalid_doc_type")

	ErrInvalidConsecutive = errors.New("invalid_consecutive_number")
)
