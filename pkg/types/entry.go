package types

// RankedEntry is one key of a frequency table with its count
type RankedEntry[K comparable] struct {
	Key   K
	Count uint64
}

// Entry is the string-keyed form of a RankedEntry used by outer layers
// (storage, MCP responses, CLI output)
type Entry struct {
	Rank  int    `json:"rank"`
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// Validate checks that an entry has a usable rank
func (e *Entry) Validate() error {
	if e.Rank < 1 {
		return ErrInvalidRank
	}
	return nil
}

// RuneEntries converts rune-keyed entries into ranked string entries
func RuneEntries(entries []RankedEntry[rune]) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Rank: i + 1, Key: string(e.Key), Count: e.Count}
	}
	return out
}

// WordEntries converts word-keyed entries into ranked string entries
func WordEntries(entries []RankedEntry[string]) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Rank: i + 1, Key: e.Key, Count: e.Count}
	}
	return out
}
