package storage

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textscan/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func createSource(t *testing.T, s Storage, path, content string) *Source {
	t.Helper()
	source := &Source{
		Path:        path,
		ContentHash: sha256.Sum256([]byte(content)),
		SizeBytes:   int64(len(content)),
		ModTime:     time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.UpsertSource(context.Background(), source))
	return source
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	assert.NoError(t, storage.Close())
}

func TestUpsertSource(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	source := createSource(t, storage, "/data/a.txt", "hello")
	assert.Greater(t, source.ID, int64(0))
	assert.False(t, source.LastScannedAt.IsZero())

	// Same path updates in place
	updated := &Source{
		Path:        "/data/a.txt",
		ContentHash: sha256.Sum256([]byte("hello again")),
		SizeBytes:   11,
	}
	require.NoError(t, storage.UpsertSource(ctx, updated))
	assert.Equal(t, source.ID, updated.ID)

	got, err := storage.GetSource(ctx, "/data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, updated.ContentHash, got.ContentHash)
	assert.Equal(t, int64(11), got.SizeBytes)

	byID, err := storage.GetSourceByID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, "/data/a.txt", byID.Path)
}

func TestGetSource_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	_, err := storage.GetSource(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.GetSourceByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSources(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	createSource(t, storage, "/b.txt", "b")
	createSource(t, storage, "/a.txt", "a")

	sources, err := storage.ListSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "/a.txt", sources[0].Path)
	assert.Equal(t, "/b.txt", sources[1].Path)
}

func TestCreateAndGetScan(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	source := createSource(t, storage, "/data/words.txt", "to be or not to be")
	scan := &Scan{
		SourceID:    source.ID,
		Mode:        string(types.ModeWordFrequency),
		ParamsKey:   "desc|case",
		Encoding:    "UTF-8",
		ContentHash: source.ContentHash,
		BytesRead:   18,
		DurationMs:  2,
		Entries: []ScanEntry{
			{Rank: 1, Key: "to", Count: 2},
			{Rank: 2, Key: "be", Count: 2},
			{Rank: 3, Key: "or", Count: 1},
			{Rank: 4, Key: "not", Count: 1},
		},
	}
	require.NoError(t, storage.CreateScan(ctx, scan))
	assert.Greater(t, scan.ID, int64(0))
	assert.Equal(t, 4, scan.ResultCount)

	got, err := storage.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.Mode, got.Mode)
	assert.Equal(t, scan.ParamsKey, got.ParamsKey)
	assert.Equal(t, source.ContentHash, got.ContentHash)
	assert.Empty(t, got.RunID)
	assert.Equal(t, scan.Entries, got.Entries)
	assert.Equal(t, int64(18), got.BytesRead)
}

func TestCreateScan_ScalarResults(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	source := createSource(t, storage, "/data/x.txt", "x")
	scan := &Scan{
		SourceID:    source.ID,
		RunID:       "run-1",
		Mode:        string(types.ModePresence),
		ParamsKey:   "needle",
		Encoding:    "UTF-8",
		ContentHash: source.ContentHash,
		Count:       1 << 40,
		Present:     true,
		Found:       true,
	}
	require.NoError(t, storage.CreateScan(ctx, scan))

	got, err := storage.GetScan(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, uint64(1<<40), got.Count)
	assert.True(t, got.Present)
	assert.True(t, got.Found)
	assert.Empty(t, got.Entries)
}

func TestCreateScan_RequiresSource(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	err := storage.CreateScan(context.Background(), &Scan{Mode: "char_count"})
	assert.Error(t, err)
}

func TestGetScan_NotFound(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	_, err := storage.GetScan(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindScan(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	source := createSource(t, storage, "/data/a.txt", "aab")
	first := &Scan{SourceID: source.ID, Mode: "char_frequency", ParamsKey: "desc", Encoding: "UTF-8",
		ContentHash: source.ContentHash, Entries: []ScanEntry{{Rank: 1, Key: "a", Count: 2}}}
	second := &Scan{SourceID: source.ID, Mode: "char_frequency", ParamsKey: "desc", Encoding: "UTF-8",
		ContentHash: source.ContentHash, Entries: []ScanEntry{{Rank: 1, Key: "a", Count: 2}, {Rank: 2, Key: "b", Count: 1}}}
	require.NoError(t, storage.CreateScan(ctx, first))
	require.NoError(t, storage.CreateScan(ctx, second))

	got, err := storage.FindScan(ctx, source.ID, source.ContentHash, "char_frequency", "desc")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID, "newest scan wins")
	assert.Len(t, got.Entries, 2)

	_, err = storage.FindScan(ctx, source.ID, source.ContentHash, "char_frequency", "asc")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.FindScan(ctx, source.ID, sha256.Sum256([]byte("changed")), "char_frequency", "desc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListScans_Filters(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	a := createSource(t, storage, "/docs/a.txt", "a")
	b := createSource(t, storage, "/src/b.md", "b")

	for _, sc := range []*Scan{
		{SourceID: a.ID, RunID: "r1", Mode: "char_frequency", ParamsKey: "desc"},
		{SourceID: a.ID, RunID: "r1", Mode: "word_frequency", ParamsKey: "desc"},
		{SourceID: b.ID, RunID: "r2", Mode: "char_frequency", ParamsKey: "desc"},
	} {
		sc.Encoding = "UTF-8"
		require.NoError(t, storage.CreateScan(ctx, sc))
	}

	all, err := storage.ListScans(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	limited, err := storage.ListScans(ctx, nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	bySource, err := storage.ListScans(ctx, &ScanFilters{SourceID: a.ID}, 10)
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	byRun, err := storage.ListScans(ctx, &ScanFilters{RunID: "r2"}, 10)
	require.NoError(t, err)
	require.Len(t, byRun, 1)
	assert.Equal(t, b.ID, byRun[0].SourceID)

	byMode, err := storage.ListScans(ctx, &ScanFilters{Modes: []string{"char_frequency"}}, 10)
	require.NoError(t, err)
	assert.Len(t, byMode, 2)

	byPath, err := storage.ListScans(ctx, &ScanFilters{PathPattern: "/docs/*"}, 10)
	require.NoError(t, err)
	assert.Len(t, byPath, 2)

	future, err := storage.ListScans(ctx, &ScanFilters{Since: time.Now().Add(24 * time.Hour)}, 10)
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestDeleteScansBySource(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	source := createSource(t, storage, "/a.txt", "aa")
	scan := &Scan{SourceID: source.ID, Mode: "char_frequency", ParamsKey: "desc", Encoding: "UTF-8",
		Entries: []ScanEntry{{Rank: 1, Key: "a", Count: 2}}}
	require.NoError(t, storage.CreateScan(ctx, scan))

	n, err := storage.DeleteScansBySource(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = storage.GetScan(ctx, scan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.EntriesCount, "entries cascade with their scan")
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.SourcesCount)
	assert.True(t, status.LastScannedAt.IsZero())
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.SchemaCurrent)

	source := createSource(t, storage, "/a.txt", "ab")
	require.NoError(t, storage.CreateScan(ctx, &Scan{SourceID: source.ID, Mode: "char_frequency",
		ParamsKey: "desc", Encoding: "UTF-8",
		Entries: []ScanEntry{{Rank: 1, Key: "a", Count: 1}, {Rank: 2, Key: "b", Count: 1}}}))

	status, err = storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SourcesCount)
	assert.Equal(t, 1, status.ScansCount)
	assert.Equal(t, 2, status.EntriesCount)
	assert.Greater(t, status.DatabaseBytes, int64(0))
	assert.False(t, status.LastScannedAt.IsZero())
}

func TestTransaction_Commit(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	source := &Source{Path: "/tx.txt", ContentHash: sha256.Sum256([]byte("tx"))}
	require.NoError(t, tx.UpsertSource(ctx, source))
	scan := &Scan{SourceID: source.ID, Mode: "char_count", ParamsKey: "x", Encoding: "UTF-8", ContentHash: source.ContentHash, Count: 3}
	require.NoError(t, tx.CreateScan(ctx, scan))

	// Reads inside the transaction see its writes
	found, err := tx.FindScan(ctx, source.ID, source.ContentHash, "char_count", "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), found.Count)

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err, "nested transactions are rejected")

	require.NoError(t, tx.Commit())

	got, err := storage.GetSource(ctx, "/tx.txt")
	require.NoError(t, err)
	assert.Equal(t, source.ID, got.ID)
}

func TestTransaction_Rollback(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertSource(ctx, &Source{Path: "/gone.txt"}))
	require.NoError(t, tx.Rollback())

	_, err = storage.GetSource(ctx, "/gone.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntryConversion(t *testing.T) {
	entries := []types.Entry{{Rank: 1, Key: "a", Count: 3}, {Rank: 2, Key: "b", Count: 1}}
	scan := &Scan{Entries: FromTypesEntries(entries)}
	assert.Equal(t, entries, scan.ToTypesEntries())
}
