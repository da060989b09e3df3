package types

import "errors"

// Domain errors shared by the scanning engine and its callers
var (
	// Source errors
	ErrSourceNotFound = errors.New("source not found")
	ErrSourceRead     = errors.New("source read failed")

	// Configuration errors
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrInvalidDirection    = errors.New("invalid sort direction")
	ErrUnknownMode         = errors.New("unknown analysis mode")

	// Result validation errors
	ErrInvalidRank   = errors.New("rank must be >= 1")
	ErrMissingSource = errors.New("source path is required")
)
