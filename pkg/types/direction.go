package types

import (
	"fmt"
	"strings"
)

// SortDirection orders a frequency table by count
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSortDirection maps "asc" and "desc" (case-insensitive) to a SortDirection.
// The empty string selects Descending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Descending):
		return Descending, nil
	case string(Ascending):
		return Ascending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Reverse returns the opposite direction
func (d SortDirection) Reverse() SortDirection {
	if d == Ascending {
		return Descending
	}
	return Ascending
}
