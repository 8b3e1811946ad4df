package loader

import "errors"

var (
	// ErrMissingColumn indicates the corpus header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrMalformedRow indicates a row whose numeric fields cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")
)
