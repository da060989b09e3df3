package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, m := range AllModes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMode("median")
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = ParseMode("")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestModeClasses(t *testing.T) {
	for _, m := range AllModes {
		classes := 0
		if m.IsFrequency() {
			classes++
		}
		if m.IsLookup() {
			classes++
		}
		if m.NeedsTarget() {
			classes++
		}
		assert.LessOrEqual(t, classes, 1, "mode %s belongs to more than one class", m)
	}

	assert.True(t, ModeWordFrequency.IsFrequency())
	assert.True(t, ModeMaxWord.IsLookup())
	assert.True(t, ModePresence.NeedsTarget())
}

func TestParseSortDirection(t *testing.T) {
	tests := []struct {
		in   string
		want SortDirection
	}{
		{"", Descending},
		{"desc", Descending},
		{"ASC", Ascending},
		{" asc ", Ascending},
	}
	for _, tt := range tests {
		got, err := ParseSortDirection(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseSortDirection("up")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	assert.Equal(t, Ascending, Descending.Reverse())
	assert.Equal(t, Descending, Ascending.Reverse())
}

func TestEntriesConversion(t *testing.T) {
	runes := RuneEntries([]RankedEntry[rune]{{Key: 'l', Count: 3}, {Key: '中', Count: 1}})
	assert.Equal(t, []Entry{{Rank: 1, Key: "l", Count: 3}, {Rank: 2, Key: "中", Count: 1}}, runes)

	words := WordEntries([]RankedEntry[string]{{Key: "go", Count: 2}})
	assert.Equal(t, []Entry{{Rank: 1, Key: "go", Count: 2}}, words)
}

func TestScanResult(t *testing.T) {
	r := &ScanResult{
		SourcePath: "/tmp/a.txt",
		Mode:       ModeCharFrequency,
		Entries:    []Entry{{Rank: 1, Key: "a", Count: 2}},
	}
	require.NoError(t, r.Validate())

	top, ok := r.Top()
	assert.True(t, ok)
	assert.Equal(t, "a", top.Key)

	r.Entries[0].Rank = 0
	assert.ErrorIs(t, r.Validate(), ErrInvalidRank)

	r.SourcePath = ""
	assert.ErrorIs(t, r.Validate(), ErrMissingSource)

	empty := &ScanResult{SourcePath: "x", Mode: "bogus"}
	assert.ErrorIs(t, empty.Validate(), ErrUnknownMode)
	_, ok = empty.Top()
	assert.False(t, ok)
}
