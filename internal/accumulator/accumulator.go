package accumulator

import (
	"strings"

	"github.com/dshills/textscan/internal/tokenizer"
)

// DefaultExclusions are the characters the character counter skips
var DefaultExclusions = NewExclusions(' ', '\n', '\r')

// Exclusions is an immutable set of characters
type Exclusions struct {
	set map[rune]struct{}
}

// NewExclusions builds an exclusion set
func NewExclusions(chars ...rune) Exclusions {
	set := make(map[rune]struct{}, len(chars))
	for _, c := range chars {
		set[c] = struct{}{}
	}
	return Exclusions{set: set}
}

// Contains reports whether c is excluded
func (e Exclusions) Contains(c rune) bool {
	_, ok := e.set[c]
	return ok
}

// Len returns the number of excluded characters
func (e Exclusions) Len() int {
	return len(e.set)
}

// CharCounter folds decoded runs into a character frequency table
type CharCounter struct {
	Table    *FrequencyTable[rune]
	excluded Exclusions
}

// NewCharCounter creates a character counter that skips the given exclusions
func NewCharCounter(excluded Exclusions) *CharCounter {
	return &CharCounter{
		Table:    NewFrequencyTable[rune](),
		excluded: excluded,
	}
}

// Add counts every non-excluded character of run
func (c *CharCounter) Add(run []rune) {
	for _, r := range run {
		if c.excluded.Contains(r) {
			continue
		}
		c.Table.Add(r)
	}
}

// WordCounter folds the English words of decoded runs into a frequency table
type WordCounter struct {
	Table      *FrequencyTable[string]
	IgnoreCase bool
}

// NewWordCounter creates a word counter
func NewWordCounter(ignoreCase bool) *WordCounter {
	return &WordCounter{
		Table:      NewFrequencyTable[string](),
		IgnoreCase: ignoreCase,
	}
}

// Add tokenizes run and counts each word
func (w *WordCounter) Add(run []rune) {
	for _, word := range tokenizer.Tokenize(run) {
		if word == "" {
			continue
		}
		if w.IgnoreCase {
			word = strings.ToLower(word)
		}
		w.Table.Add(word)
	}
}

// CharMatcher counts occurrences of one character, without exclusions
type CharMatcher struct {
	Char  rune
	Count uint64
}

// Add counts matches in run
func (m *CharMatcher) Add(run []rune) {
	for _, r := range run {
		if r == m.Char {
			m.Count++
		}
	}
}

// SubstringCounter counts occurrences of a target string, one run at a time.
// Matches never span two runs.
type SubstringCounter struct {
	target []rune
	Count  uint64
}

// NewSubstringCounter creates a counter for target
func NewSubstringCounter(target string) *SubstringCounter {
	return &SubstringCounter{target: []rune(target)}
}

// Add counts the occurrences of the target inside run and reports how many
// were found
func (s *SubstringCounter) Add(run []rune) int {
	n := CountOccurrences(run, s.target)
	s.Count += uint64(n)
	return n
}

// PresenceChecker records whether a target string occurs in any run
type PresenceChecker struct {
	target  []rune
	Present bool
}

// NewPresenceChecker creates a checker for target
func NewPresenceChecker(target string) *PresenceChecker {
	return &PresenceChecker{target: []rune(target)}
}

// Add inspects run and reports whether the scan can stop
func (p *PresenceChecker) Add(run []rune) bool {
	if !p.Present && CountOccurrences(run, p.target) > 0 {
		p.Present = true
	}
	return p.Present
}

// CountOccurrences scans text for target, anchored on the target's first
// character. A full match counts once and the scan resumes after it; anything
// else advances by one. An empty target never matches.
func CountOccurrences(text, target []rune) int {
	if len(target) == 0 {
		return 0
	}

	count := 0
	first := target[0]
	for i := 0; i < len(text); {
		if text[i] == first && matchAt(text, target, i) {
			count++
			i += len(target)
			continue
		}
		i++
	}
	return count
}

func matchAt(text, target []rune, at int) bool {
	if len(text)-at < len(target) {
		return false
	}
	for j, c := range target {
		if text[at+j] != c {
			return false
		}
	}
	return true
}

// FindWordCount counts the occurrences of target in src
func FindWordCount(src, target string) int {
	return CountOccurrences([]rune(src), []rune(target))
}
