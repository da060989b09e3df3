// Package engine scans byte sources in fixed-size windows and computes
// character and word statistics without holding the whole source in memory.
//
// Every operation is an independent, synchronous scan:
//
//	eng, err := engine.New(engine.Options{Encoding: "gbk"})
//	if err != nil {
//	    return err
//	}
//	entries, err := eng.CountChars(f, types.Descending)
//
// # Window boundaries
//
// By default each window is decoded on its own. A multi-byte character whose
// bytes straddle two windows decodes to replacement characters, and words and
// substrings are only recognised inside a single window. Options.Contiguous
// keeps incomplete byte sequences for the next window, which repairs decoding
// but still never matches a substring across windows.
package engine
