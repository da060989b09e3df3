package accumulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textscan/pkg/types"
)

func TestFrequencyTable(t *testing.T) {
	table := NewFrequencyTable[string]()
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Entries())

	for _, w := range []string{"b", "a", "b", "c", "a", "b"} {
		table.Add(w)
	}

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, uint64(6), table.Total())
	assert.Equal(t, uint64(3), table.Count("b"))
	assert.Equal(t, uint64(0), table.Count("missing"))
	assert.Equal(t, []types.RankedEntry[string]{
		{Key: "b", Count: 3},
		{Key: "a", Count: 2},
		{Key: "c", Count: 1},
	}, table.Entries())
}

func TestFrequencyTable_Merge(t *testing.T) {
	left := NewFrequencyTable[rune]()
	left.Add('x')
	left.Add('y')

	right := NewFrequencyTable[rune]()
	right.AddN('z', 4)
	right.AddN('x', 2)
	right.AddN('q', 0)

	left.Merge(right)
	assert.Equal(t, []types.RankedEntry[rune]{
		{Key: 'x', Count: 3},
		{Key: 'y', Count: 1},
		{Key: 'z', Count: 4},
	}, left.Entries())
	assert.Equal(t, uint64(8), left.Total())
}

func TestCharCounter_Exclusions(t *testing.T) {
	counter := NewCharCounter(DefaultExclusions)
	counter.Add([]rune("a b\r\nb\ta"))

	assert.Equal(t, uint64(2), counter.Table.Count('a'))
	assert.Equal(t, uint64(2), counter.Table.Count('b'))
	assert.Equal(t, uint64(1), counter.Table.Count('\t'), "tab is not excluded")
	assert.Equal(t, uint64(0), counter.Table.Count(' '))
	assert.Equal(t, uint64(0), counter.Table.Count('\n'))
	assert.Equal(t, uint64(0), counter.Table.Count('\r'))
}

func TestCharCounter_TotalMatchesNonExcluded(t *testing.T) {
	text := []rune("中文 text\nwith 空格\r\n and more")
	counter := NewCharCounter(DefaultExclusions)
	counter.Add(text)

	var expected uint64
	for _, r := range text {
		if !DefaultExclusions.Contains(r) {
			expected++
		}
	}
	assert.Equal(t, expected, counter.Table.Total())
}

func TestCharCounter_CustomExclusions(t *testing.T) {
	counter := NewCharCounter(NewExclusions('a'))
	counter.Add([]rune("a a"))

	assert.Equal(t, uint64(0), counter.Table.Count('a'))
	assert.Equal(t, uint64(1), counter.Table.Count(' '))
	assert.Equal(t, 1, NewExclusions('a').Len())
	assert.Equal(t, 3, DefaultExclusions.Len())
}

func TestWordCounter(t *testing.T) {
	t.Run("case sensitive", func(t *testing.T) {
		wc := NewWordCounter(false)
		wc.Add([]rune("Hello hello HELLO world"))
		assert.Equal(t, uint64(1), wc.Table.Count("Hello"))
		assert.Equal(t, uint64(1), wc.Table.Count("hello"))
		assert.Equal(t, 4, wc.Table.Len())
	})

	t.Run("ignore case", func(t *testing.T) {
		wc := NewWordCounter(true)
		wc.Add([]rune("Hello hello HELLO world"))
		assert.Equal(t, uint64(3), wc.Table.Count("hello"))
		assert.Equal(t, uint64(1), wc.Table.Count("world"))
		assert.Equal(t, 2, wc.Table.Len())
	})

	t.Run("mixed script", func(t *testing.T) {
		wc := NewWordCounter(false)
		wc.Add([]rune("中文english混合text"))
		assert.Equal(t, []types.RankedEntry[string]{
			{Key: "english", Count: 1},
			{Key: "text", Count: 1},
		}, wc.Table.Entries())
	})
}

func TestCharMatcher(t *testing.T) {
	m := &CharMatcher{Char: ' '}
	m.Add([]rune("a b c"))
	m.Add([]rune(" "))
	assert.Equal(t, uint64(3), m.Count, "exclusions do not apply to single character counts")
}

func TestCountOccurrences(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		target string
		want   int
	}{
		{"two matches", "hello world hello", "hello", 2},
		{"non overlapping", "aaaa", "aa", 2},
		{"overlap skipped", "aaa", "aa", 1},
		{"no match", "abc", "d", 0},
		{"empty target", "abc", "", 0},
		{"empty text", "", "abc", 0},
		{"target longer than text", "ab", "abc", 0},
		{"partial at end", "xxab", "abc", 0},
		{"chinese", "中文中文", "中文", 2},
		{"false start", "aab", "ab", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountOccurrences([]rune(tt.text), []rune(tt.target)))
		})
	}
}

func TestFindWordCount(t *testing.T) {
	assert.Equal(t, 2, FindWordCount("hello world hello", "hello"))
	assert.Equal(t, 0, FindWordCount("hello", ""))
}

func TestSubstringCounter_NoCrossRunMatch(t *testing.T) {
	sc := NewSubstringCounter("hello")
	assert.Equal(t, 1, sc.Add([]rune("hello hel")))
	assert.Equal(t, 0, sc.Add([]rune("lo")))
	assert.Equal(t, uint64(1), sc.Count)
}

func TestPresenceChecker(t *testing.T) {
	pc := NewPresenceChecker("needle")
	require.False(t, pc.Add([]rune("hay hay")))
	require.True(t, pc.Add([]rune("a needle here")))
	assert.True(t, pc.Present)
	assert.True(t, pc.Add([]rune("more hay")), "presence is sticky")

	empty := NewPresenceChecker("")
	assert.False(t, empty.Add([]rune("anything")))
}
