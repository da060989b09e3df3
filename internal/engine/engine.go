package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/dshills/textscan/internal/accumulator"
	"github.com/dshills/textscan/internal/charset"
	"github.com/dshills/textscan/internal/ranker"
	"github.com/dshills/textscan/internal/window"
	"github.com/dshills/textscan/pkg/types"
)

// Options configures an Engine
type Options struct {
	// Encoding names the text encoding of every source (default "utf-8")
	Encoding string

	// WindowSize is the number of bytes decoded at a time (default 1024)
	WindowSize int

	// Contiguous carries incomplete multi-byte sequences across windows
	// instead of decoding each window on its own
	Contiguous bool

	// Exclusions are skipped by character frequency scans.
	// nil selects space, '\n' and '\r'; an empty non-nil slice excludes nothing.
	Exclusions []rune
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		Encoding:   charset.DefaultEncoding,
		WindowSize: window.DefaultCapacity,
	}
}

// Engine runs scans over byte sources. It holds only immutable configuration
// and may be shared between goroutines; each scan owns its own reader,
// decoder and table.
type Engine struct {
	opts     Options
	enc      encoding.Encoding
	excluded accumulator.Exclusions
}

// Stats describes how much of a source a scan consumed
type Stats struct {
	Bytes   int64
	Windows int
}

// New creates an engine. The encoding is resolved here so an unknown name
// fails before any source is read.
func New(opts Options) (*Engine, error) {
	if opts.Encoding == "" {
		opts.Encoding = charset.DefaultEncoding
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = window.DefaultCapacity
	}

	enc, err := charset.Lookup(opts.Encoding)
	if err != nil {
		return nil, err
	}

	excluded := accumulator.DefaultExclusions
	if opts.Exclusions != nil {
		excluded = accumulator.NewExclusions(opts.Exclusions...)
	}

	return &Engine{
		opts:     opts,
		enc:      enc,
		excluded: excluded,
	}, nil
}

// Options returns the resolved configuration
func (e *Engine) Options() Options {
	return e.opts
}

// Scan feeds every decoded run of r to visit, in source order. visit returns
// true to stop the scan early. A read or decode failure aborts the scan.
func (e *Engine) Scan(r io.Reader, visit func(run []rune) bool) (Stats, error) {
	if r == nil {
		return Stats{}, fmt.Errorf("%w: nil reader", types.ErrSourceNotFound)
	}

	reader := window.NewReader(r, e.opts.WindowSize)
	dec := charset.NewDecoder(e.enc, e.opts.Contiguous)
	stats := func() Stats {
		return Stats{Bytes: reader.BytesRead(), Windows: reader.Windows()}
	}

	for {
		buf, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats(), err
		}

		run, err := dec.Decode(buf)
		if err != nil {
			return stats(), fmt.Errorf("%w: window %d: %w", types.ErrSourceRead, reader.Windows(), err)
		}
		if visit(run) {
			return stats(), nil
		}
	}

	tail, err := dec.Flush()
	if err != nil {
		return stats(), fmt.Errorf("%w: %w", types.ErrSourceRead, err)
	}
	if len(tail) > 0 {
		visit(tail)
	}
	return stats(), nil
}

// CharTable counts every non-excluded character of r
func (e *Engine) CharTable(r io.Reader) (*accumulator.FrequencyTable[rune], Stats, error) {
	counter := accumulator.NewCharCounter(e.excluded)
	stats, err := e.Scan(r, func(run []rune) bool {
		counter.Add(run)
		return false
	})
	if err != nil {
		return nil, stats, err
	}
	return counter.Table, stats, nil
}

// WordTable counts every English word of r
func (e *Engine) WordTable(r io.Reader, ignoreCase bool) (*accumulator.FrequencyTable[string], Stats, error) {
	counter := accumulator.NewWordCounter(ignoreCase)
	stats, err := e.Scan(r, func(run []rune) bool {
		counter.Add(run)
		return false
	})
	if err != nil {
		return nil, stats, err
	}
	return counter.Table, stats, nil
}

// CountChars returns the character frequency table of r sorted by count
func (e *Engine) CountChars(r io.Reader, dir types.SortDirection) ([]types.RankedEntry[rune], error) {
	table, _, err := e.CharTable(r)
	if err != nil {
		return nil, err
	}
	return ranker.Rank(table, dir), nil
}

// CountWords returns the word frequency table of r sorted by count
func (e *Engine) CountWords(r io.Reader, dir types.SortDirection, ignoreCase bool) ([]types.RankedEntry[string], error) {
	table, _, err := e.WordTable(r, ignoreCase)
	if err != nil {
		return nil, err
	}
	return ranker.Rank(table, dir), nil
}

// CountChar counts the occurrences of c in r. Exclusions do not apply.
func (e *Engine) CountChar(r io.Reader, c rune) (uint64, error) {
	matcher := &accumulator.CharMatcher{Char: c}
	if _, err := e.Scan(r, func(run []rune) bool {
		matcher.Add(run)
		return false
	}); err != nil {
		return 0, err
	}
	return matcher.Count, nil
}

// MinChar returns the least frequent character of r.
// It reports false when r holds no countable character.
func (e *Engine) MinChar(r io.Reader) (types.RankedEntry[rune], bool, error) {
	return e.topChar(r, types.Ascending)
}

// MaxChar returns the most frequent character of r.
// It reports false when r holds no countable character.
func (e *Engine) MaxChar(r io.Reader) (types.RankedEntry[rune], bool, error) {
	return e.topChar(r, types.Descending)
}

func (e *Engine) topChar(r io.Reader, dir types.SortDirection) (types.RankedEntry[rune], bool, error) {
	table, _, err := e.CharTable(r)
	if err != nil {
		return types.RankedEntry[rune]{}, false, err
	}
	top, ok := ranker.Top(table, dir)
	return top, ok, nil
}

// MaxWord returns the most frequent word of r.
// It reports false when r holds no word.
func (e *Engine) MaxWord(r io.Reader, ignoreCase bool) (types.RankedEntry[string], bool, error) {
	table, _, err := e.WordTable(r, ignoreCase)
	if err != nil {
		return types.RankedEntry[string]{}, false, err
	}
	top, ok := ranker.Top(table, types.Descending)
	return top, ok, nil
}

// CountSubstring counts the occurrences of target in r. Occurrences are
// found within one window at a time, so a match straddling a window boundary
// is not counted. An empty target counts 0.
func (e *Engine) CountSubstring(r io.Reader, target string) (int, error) {
	counter := accumulator.NewSubstringCounter(target)
	if _, err := e.Scan(r, func(run []rune) bool {
		counter.Add(run)
		return false
	}); err != nil {
		return 0, err
	}
	return int(counter.Count), nil
}

// Contains reports whether target occurs in r, stopping at the first window
// holding it. An empty target is never present.
func (e *Engine) Contains(r io.Reader, target string) (bool, error) {
	if target == "" {
		return false, nil
	}
	checker := accumulator.NewPresenceChecker(target)
	if _, err := e.Scan(r, checker.Add); err != nil {
		return false, err
	}
	return checker.Present, nil
}

// ReadAll decodes r window by window and returns the concatenated text
func (e *Engine) ReadAll(r io.Reader) (string, error) {
	var sb strings.Builder
	if _, err := e.Scan(r, func(run []rune) bool {
		for _, c := range run {
			sb.WriteRune(c)
		}
		return false
	}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// FindWordCount counts the occurrences of target in src
func FindWordCount(src, target string) int {
	return accumulator.FindWordCount(src, target)
}
