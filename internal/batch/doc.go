// Package batch scans every matching file of a directory tree with one
// analysis and merges the per-file results.
//
// Files are discovered by extension (hidden directories are skipped), split
// into batches and scanned on an errgroup bounded by a worker semaphore.
// Each batch records its scans in one transaction. Every run gets a UUID run
// ID, and a Scanner refuses to start a second run while one is active.
//
// Frequency modes merge the tables of all files in discovery order, so keys
// with equal counts rank the same way on every run. Lookup modes are answered
// from the merged table rather than from the per-file answers.
package batch
