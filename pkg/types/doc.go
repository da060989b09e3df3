// Package types provides shared type definitions for textscan.
//
// The engine works on generic RankedEntry values keyed by rune or string.
// Outer layers (storage, the MCP server, the CLI) use the string-keyed Entry
// and the ScanResult that carries one analysis of one source:
//
//	result := &types.ScanResult{
//	    SourcePath: "/var/log/app.log",
//	    Mode:       types.ModeWordFrequency,
//	    Direction:  types.Descending,
//	    Entries:    types.WordEntries(ranked),
//	}
//
// # Modes
//
// Mode names the analysis. Frequency modes (char_frequency, word_frequency)
// produce a ranked table; lookups (min_char, max_char, max_word) produce the
// single extremal entry; char_count and substring_count produce Count;
// presence produces Present.
//
// # Errors
//
// Sentinel errors are wrapped with %w by every package and checked with
// errors.Is:
//
//	if errors.Is(err, types.ErrSourceNotFound) {
//	    // handle missing file
//	}
package types
