// Package source opens, fingerprints, copies and writes the files that the
// engine scans.
//
// Missing files are reported as types.ErrSourceNotFound before any scan
// starts. OpenMapped serves large files from a read-only memory mapping.
package source
