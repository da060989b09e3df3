package types

import "fmt"

// Mode names one analysis performed over a source
type Mode string

const (
	ModeCharFrequency  Mode = "char_frequency"
	ModeWordFrequency  Mode = "word_frequency"
	ModeCharCount      Mode = "char_count"
	ModeSubstringCount Mode = "substring_count"
	ModePresence       Mode = "presence"
	ModeMinChar        Mode = "min_char"
	ModeMaxChar        Mode = "max_char"
	ModeMaxWord        Mode = "max_word"
)

// AllModes lists every supported mode in a stable order
var AllModes = []Mode{
	ModeCharFrequency,
	ModeWordFrequency,
	ModeCharCount,
	ModeSubstringCount,
	ModePresence,
	ModeMinChar,
	ModeMaxChar,
	ModeMaxWord,
}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	for _, m := range AllModes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// IsFrequency reports whether the mode produces a ranked table
func (m Mode) IsFrequency() bool {
	return m == ModeCharFrequency || m == ModeWordFrequency
}

// IsLookup reports whether the mode produces a single extremal entry
func (m Mode) IsLookup() bool {
	return m == ModeMinChar || m == ModeMaxChar || m == ModeMaxWord
}

// NeedsTarget reports whether the mode requires a search target
func (m Mode) NeedsTarget() bool {
	return m == ModeCharCount || m == ModeSubstringCount || m == ModePresence
}
