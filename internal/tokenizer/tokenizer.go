package tokenizer

// Tokenize extracts English words from one decoded run.
//
// The run is split on the space character first. A fragment made only of
// Latin letters is a word as it stands; every other fragment goes through
// ExtractWords. Nothing is carried between runs, so a word cut by a window
// boundary comes out as two tokens.
func Tokenize(run []rune) []string {
	var words []string
	start := 0
	for i := 0; i <= len(run); i++ {
		if i < len(run) && run[i] != ' ' {
			continue
		}
		if i > start {
			words = appendFragment(words, run[start:i])
		}
		start = i + 1
	}
	return words
}

func appendFragment(words []string, fragment []rune) []string {
	if isLatinRun(fragment) {
		return append(words, string(fragment))
	}
	return append(words, ExtractWords(fragment)...)
}

// ExtractWords pulls the Latin-letter words out of mixed Chinese/English text.
//
// Newlines and carriage returns are dropped first. A Latin letter right after
// a Chinese character starts a new word; a non-letter right after a letter
// ends the current one. A trailing word is kept only when it is longer than
// one letter.
func ExtractWords(fragment []rune) []string {
	chars := stripLineBreaks(fragment)

	var words []string
	head := 0
	last := len(chars) - 1
	for i, c := range chars {
		if isLatin(c) {
			if i == 0 {
				continue
			}
			if isChinese(chars[i-1]) {
				head = i
			}
		} else {
			if i == 0 {
				head++
				continue
			}
			if isLatin(chars[i-1]) && head < i {
				words = append(words, string(chars[head:i]))
			}
			head = i + 1
		}

		if i == last && head < i {
			words = append(words, string(chars[head:i+1]))
		}
	}
	return words
}

func stripLineBreaks(fragment []rune) []rune {
	out := make([]rune, 0, len(fragment))
	for _, c := range fragment {
		if c == '\n' || c == '\r' {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isLatinRun(fragment []rune) bool {
	if len(fragment) == 0 {
		return false
	}
	for _, c := range fragment {
		if !isLatin(c) {
			return false
		}
	}
	return true
}
