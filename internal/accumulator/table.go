package accumulator

import "github.com/dshills/textscan/pkg/types"

// FrequencyTable maps keys to occurrence counts. Keys remember the order in
// which they were first seen so equal counts rank the same way every time.
type FrequencyTable[K comparable] struct {
	counts map[K]uint64
	order  []K
	total  uint64
}

// NewFrequencyTable creates an empty table
func NewFrequencyTable[K comparable]() *FrequencyTable[K] {
	return &FrequencyTable[K]{
		counts: make(map[K]uint64),
	}
}

// Add increments the count of key by one
func (t *FrequencyTable[K]) Add(key K) {
	t.AddN(key, 1)
}

// AddN increments the count of key by n
func (t *FrequencyTable[K]) AddN(key K, n uint64) {
	if n == 0 {
		return
	}
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key] += n
	t.total += n
}

// Count returns the count of key
func (t *FrequencyTable[K]) Count(key K) uint64 {
	return t.counts[key]
}

// Len returns the number of distinct keys
func (t *FrequencyTable[K]) Len() int {
	return len(t.order)
}

// Total returns the sum of all counts
func (t *FrequencyTable[K]) Total() uint64 {
	return t.total
}

// Entries returns the table in first-seen order
func (t *FrequencyTable[K]) Entries() []types.RankedEntry[K] {
	entries := make([]types.RankedEntry[K], len(t.order))
	for i, k := range t.order {
		entries[i] = types.RankedEntry[K]{Key: k, Count: t.counts[k]}
	}
	return entries
}

// Merge folds other into t. Keys new to t keep other's first-seen order.
func (t *FrequencyTable[K]) Merge(other *FrequencyTable[K]) {
	for _, k := range other.order {
		t.AddN(k, other.counts[k])
	}
}
