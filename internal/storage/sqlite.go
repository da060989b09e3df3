package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Source operations

// upsertSourceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertSourceWithQuerier(ctx context.Context, q querier, source *Source) error {
	query := `
		INSERT INTO sources (path, content_hash, size_bytes, mod_time, last_scanned_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			last_scanned_at = excluded.last_scanned_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		source.Path, source.ContentHash[:], source.SizeBytes, source.ModTime,
		now, now, now).Scan(&source.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	source.LastScannedAt = now
	source.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertSource(ctx context.Context, source *Source) error {
	return s.upsertSourceWithQuerier(ctx, s.querier(), source)
}

const sourceColumns = `id, path, content_hash, size_bytes, mod_time, last_scanned_at, created_at, updated_at`

// scanSource reads one source row
func scanSource(row interface{ Scan(...interface{}) error }) (*Source, error) {
	var source Source
	var hash []byte
	var modTime, lastScannedAt sql.NullTime
	err := row.Scan(
		&source.ID, &source.Path, &hash, &source.SizeBytes,
		&modTime, &lastScannedAt, &source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(source.ContentHash[:], hash)
	if modTime.Valid {
		source.ModTime = modTime.Time
	}
	if lastScannedAt.Valid {
		source.LastScannedAt = lastScannedAt.Time
	}
	return &source, nil
}

// getSourceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSourceWithQuerier(ctx context.Context, q querier, path string) (*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE path = ?`
	source, err := scanSource(q.QueryRowContext(ctx, query, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *SQLiteStorage) GetSource(ctx context.Context, path string) (*Source, error) {
	return s.getSourceWithQuerier(ctx, s.querier(), path)
}

// getSourceByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getSourceByIDWithQuerier(ctx context.Context, q querier, sourceID int64) (*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = ?`
	source, err := scanSource(q.QueryRowContext(ctx, query, sourceID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

func (s *SQLiteStorage) GetSourceByID(ctx context.Context, sourceID int64) (*Source, error) {
	return s.getSourceByIDWithQuerier(ctx, s.querier(), sourceID)
}

// listSourcesWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSourcesWithQuerier(ctx context.Context, q querier) ([]*Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY path`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *SQLiteStorage) ListSources(ctx context.Context) ([]*Source, error) {
	return s.listSourcesWithQuerier(ctx, s.querier())
}

// Scan operations

// createScanWithQuerier inserts a scan and its entries
func (s *SQLiteStorage) createScanWithQuerier(ctx context.Context, q querier, scan *Scan) error {
	if scan.SourceID == 0 {
		return fmt.Errorf("failed to create scan: source ID is required")
	}

	query := `
		INSERT INTO scans (source_id, run_id, mode, params_key, encoding, content_hash,
		                   count, found, present, result_count, bytes_read, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now()
	scan.ResultCount = len(scan.Entries)
	err := q.QueryRowContext(ctx, query,
		scan.SourceID, nullString(scan.RunID), scan.Mode, scan.ParamsKey, scan.Encoding,
		scan.ContentHash[:], int64(scan.Count), scan.Found, scan.Present, scan.ResultCount,
		scan.BytesRead, scan.DurationMs, now).Scan(&scan.ID)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	scan.CreatedAt = now

	if len(scan.Entries) == 0 {
		return nil
	}

	stmt := `INSERT INTO scan_entries (scan_id, rank, key, count) VALUES (?, ?, ?, ?)`
	for _, e := range scan.Entries {
		if _, err := q.ExecContext(ctx, stmt, scan.ID, e.Rank, e.Key, int64(e.Count)); err != nil {
			return fmt.Errorf("failed to insert entry %d of scan %d: %w", e.Rank, scan.ID, err)
		}
	}
	return nil
}

// CreateScan records a scan and its entries. Outside a transaction the
// entries are written in one implicit transaction of their own.
func (s *SQLiteStorage) CreateScan(ctx context.Context, scan *Scan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.createScanWithQuerier(ctx, tx, scan); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const scanColumns = `id, source_id, run_id, mode, params_key, encoding, content_hash,
	count, found, present, result_count, bytes_read, duration_ms, created_at`

// scanScan reads one scan row
func scanScan(row interface{ Scan(...interface{}) error }) (*Scan, error) {
	var scan Scan
	var runID sql.NullString
	var hash []byte
	var count int64
	err := row.Scan(
		&scan.ID, &scan.SourceID, &runID, &scan.Mode, &scan.ParamsKey, &scan.Encoding, &hash,
		&count, &scan.Found, &scan.Present, &scan.ResultCount, &scan.BytesRead,
		&scan.DurationMs, &scan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if runID.Valid {
		scan.RunID = runID.String
	}
	copy(scan.ContentHash[:], hash)
	scan.Count = uint64(count)
	return &scan, nil
}

// loadEntriesWithQuerier attaches the ranked entries of a scan
func (s *SQLiteStorage) loadEntriesWithQuerier(ctx context.Context, q querier, scan *Scan) error {
	rows, err := q.QueryContext(ctx,
		`SELECT rank, key, count FROM scan_entries WHERE scan_id = ? ORDER BY rank`, scan.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	scan.Entries = make([]ScanEntry, 0, scan.ResultCount)
	for rows.Next() {
		var e ScanEntry
		var count int64
		if err := rows.Scan(&e.Rank, &e.Key, &count); err != nil {
			return err
		}
		e.Count = uint64(count)
		scan.Entries = append(scan.Entries, e)
	}
	return rows.Err()
}

// getScanWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getScanWithQuerier(ctx context.Context, q querier, scanID int64) (*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ?`
	scan, err := scanScan(q.QueryRowContext(ctx, query, scanID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadEntriesWithQuerier(ctx, q, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

func (s *SQLiteStorage) GetScan(ctx context.Context, scanID int64) (*Scan, error) {
	return s.getScanWithQuerier(ctx, s.querier(), scanID)
}

// findScanWithQuerier returns the newest scan of a source whose content and
// parameters match
func (s *SQLiteStorage) findScanWithQuerier(ctx context.Context, q querier, sourceID int64, contentHash [32]byte, mode, paramsKey string) (*Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans
		WHERE source_id = ? AND content_hash = ? AND mode = ? AND params_key = ?
		ORDER BY id DESC LIMIT 1`
	scan, err := scanScan(q.QueryRowContext(ctx, query, sourceID, contentHash[:], mode, paramsKey))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadEntriesWithQuerier(ctx, q, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

func (s *SQLiteStorage) FindScan(ctx context.Context, sourceID int64, contentHash [32]byte, mode, paramsKey string) (*Scan, error) {
	return s.findScanWithQuerier(ctx, s.querier(), sourceID, contentHash, mode, paramsKey)
}

// listScansWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listScansWithQuerier(ctx context.Context, q querier, filters *ScanFilters, limit int) ([]*Scan, error) {
	query := `SELECT ` + prefixColumns("sc", scanColumns) + `
		FROM scans sc
		INNER JOIN sources so ON sc.source_id = so.id
		WHERE 1 = 1`
	args := make([]interface{}, 0)

	query, args = applyScanFilters(query, args, filters)

	query += " ORDER BY sc.id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scans := make([]*Scan, 0)
	for rows.Next() {
		scan, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

func (s *SQLiteStorage) ListScans(ctx context.Context, filters *ScanFilters, limit int) ([]*Scan, error) {
	return s.listScansWithQuerier(ctx, s.querier(), filters, limit)
}

// deleteScansBySourceWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteScansBySourceWithQuerier(ctx context.Context, q querier, sourceID int64) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM scans WHERE source_id = ?`, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scans: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) DeleteScansBySource(ctx context.Context, sourceID int64) (int, error) {
	return s.deleteScansBySourceWithQuerier(ctx, s.querier(), sourceID)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&status.SourcesCount); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM scans").Scan(&status.ScansCount); err != nil {
		return nil, err
	}
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_entries").Scan(&status.EntriesCount); err != nil {
		return nil, err
	}

	var lastScannedAt sql.NullTime
	err := q.QueryRowContext(ctx,
		"SELECT last_scanned_at FROM sources ORDER BY last_scanned_at DESC LIMIT 1").Scan(&lastScannedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastScannedAt.Valid {
		status.LastScannedAt = lastScannedAt.Time
	}

	// Calculate database size
	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseBytes = pageCount * pageSize
	}

	version, err := currentVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		SchemaCurrent:      status.SchemaVersion == CurrentSchemaVersion,
	}
	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// nullString maps the empty string to NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Transaction implementations delegate to the querier helpers so every
// statement runs on the transaction's connection

func (t *sqliteTx) UpsertSource(ctx context.Context, source *Source) error {
	return t.storage.upsertSourceWithQuerier(ctx, t.querier(), source)
}

func (t *sqliteTx) GetSource(ctx context.Context, path string) (*Source, error) {
	return t.storage.getSourceWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) GetSourceByID(ctx context.Context, sourceID int64) (*Source, error) {
	return t.storage.getSourceByIDWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) ListSources(ctx context.Context) ([]*Source, error) {
	return t.storage.listSourcesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CreateScan(ctx context.Context, scan *Scan) error {
	return t.storage.createScanWithQuerier(ctx, t.querier(), scan)
}

func (t *sqliteTx) GetScan(ctx context.Context, scanID int64) (*Scan, error) {
	return t.storage.getScanWithQuerier(ctx, t.querier(), scanID)
}

func (t *sqliteTx) FindScan(ctx context.Context, sourceID int64, contentHash [32]byte, mode, paramsKey string) (*Scan, error) {
	return t.storage.findScanWithQuerier(ctx, t.querier(), sourceID, contentHash, mode, paramsKey)
}

func (t *sqliteTx) ListScans(ctx context.Context, filters *ScanFilters, limit int) ([]*Scan, error) {
	return t.storage.listScansWithQuerier(ctx, t.querier(), filters, limit)
}

func (t *sqliteTx) DeleteScansBySource(ctx context.Context, sourceID int64) (int, error) {
	return t.storage.deleteScansBySourceWithQuerier(ctx, t.querier(), sourceID)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
