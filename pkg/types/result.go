package types

import "time"

// ScanResult is the outcome of one analysis over one source
type ScanResult struct {
	// Identification
	ScanID     int64
	SourcePath string
	Mode       Mode

	// Parameters
	Encoding   string
	Direction  SortDirection
	IgnoreCase bool
	Target     string

	// Results; which fields are set depends on Mode
	Entries []Entry // frequency tables and lookups
	Count   uint64  // char_count and substring_count
	Found   bool    // lookups: false when the source was empty
	Present bool    // presence

	// Metadata
	BytesScanned int64
	Duration     time.Duration
	CacheHit     bool
}

// Top returns the first entry of the result, if any
func (r *ScanResult) Top() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Validate checks if the scan result is well formed
func (r *ScanResult) Validate() error {
	if r.SourcePath == "" {
		return ErrMissingSource
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	for i := range r.Entries {
		if err := r.Entries[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
