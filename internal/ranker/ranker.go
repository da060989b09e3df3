// Package ranker orders frequency tables by count.
package ranker

import (
	"sort"

	"github.com/dshills/textscan/internal/accumulator"
	"github.com/dshills/textscan/pkg/types"
)

// Rank returns the table's entries sorted by count in the given direction.
// The sort is stable over first-seen order, so keys with equal counts keep
// the order in which they first appeared.
func Rank[K comparable](table *accumulator.FrequencyTable[K], dir types.SortDirection) []types.RankedEntry[K] {
	entries := table.Entries()
	if dir == types.Ascending {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Count < entries[j].Count
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Count > entries[j].Count
		})
	}
	return entries
}

// Top returns the extremal entry in the given direction: the most frequent
// key for Descending, the least frequent for Ascending. Ties go to the key
// seen first. It reports false for an empty table.
func Top[K comparable](table *accumulator.FrequencyTable[K], dir types.SortDirection) (types.RankedEntry[K], bool) {
	var best types.RankedEntry[K]
	found := false
	for _, e := range table.Entries() {
		if !found {
			best, found = e, true
			continue
		}
		if dir == types.Ascending && e.Count < best.Count {
			best = e
		} else if dir != types.Ascending && e.Count > best.Count {
			best = e
		}
	}
	return best, found
}

// Limit truncates entries to at most n. n <= 0 keeps everything.
func Limit[K comparable](entries []types.RankedEntry[K], n int) []types.RankedEntry[K] {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
