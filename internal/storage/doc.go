// Package storage provides SQLite-based persistence for scan history.
//
// The storage layer records:
//   - Sources: scanned file paths with their SHA-256 content hash
//   - Scans: one analysis of a source (mode, parameters, scalar results)
//   - Scan entries: the ranked rows of frequency tables
//
// A stored scan is reusable while the source's content hash and the scan
// parameters are unchanged:
//
//	scan, err := db.FindScan(ctx, source.ID, fp.Hash, "word_frequency", paramsKey)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // scan again
//	}
//
// # Transactions
//
// Use transactions to record many scans atomically:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertSource(ctx, source)
//	_ = tx.CreateScan(ctx, scan)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// The database is opened with a single connection, so code holding a
// transaction must issue every statement through it.
//
// # Build Tags
//
// CGO Build (cgo_sqlite tag) uses github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite"
//
// Pure Go Build (default, or purego tag) uses modernc.org/sqlite:
//
//	CGO_ENABLED=0 go build -tags "purego"
package storage
