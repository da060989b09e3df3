// Package analyzer runs one engine analysis over one file and remembers the
// outcome.
//
// Results are keyed by the file's SHA-256 content hash and the scan
// parameters. A request is answered, in order, from an in-memory LRU cache,
// from the stored scan history, or by scanning the file and recording the
// new scan:
//
//	a := analyzer.New(eng, store, analyzer.Options{CacheSize: 500})
//	result, err := a.Analyze(ctx, analyzer.Request{
//	    Path: "notes.txt",
//	    Mode: types.ModeWordFrequency,
//	    Limit: 10,
//	})
//
// Scans are not interruptible; the context is checked before a scan starts.
package analyzer
