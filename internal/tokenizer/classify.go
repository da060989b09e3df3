package tokenizer

// Class is the script class of a single character
type Class int

const (
	ClassOther   Class = iota // ClassOther covers digits, punctuation, whitespace and everything else.
	ClassLatin                // ClassLatin is an ASCII letter [a-zA-Z].
	ClassChinese              // ClassChinese is a CJK Unified Ideograph in U+4E00..U+9FA5.
)

// Chinese ideograph range recognised by Classify
const (
	chineseFirst rune = 0x4E00
	chineseLast  rune = 0x9FA5
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case ClassLatin:
		return "latin"
	case ClassChinese:
		return "chinese"
	default:
		return "other"
	}
}

// Classify returns the script class of r
func Classify(r rune) Class {
	switch {
	case isLatin(r):
		return ClassLatin
	case isChinese(r):
		return ClassChinese
	default:
		return ClassOther
	}
}

// IsLatinWord reports whether s is a non-empty run of Latin letters
func IsLatinWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isLatin(r) {
			return false
		}
	}
	return true
}

func isLatin(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isChinese(r rune) bool {
	return r >= chineseFirst && r <= chineseLast
}
