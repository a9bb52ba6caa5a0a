package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/storage"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func makeRecord(country domain.Country, date string, y2, y10 float64) domain.HistoricalCurveRecord {
	return domain.NewHistoricalRecord(country, day(date), map[domain.Maturity]float64{
		domain.M3M: 5.2, domain.M2Y: y2, domain.M5Y: 4.1, domain.M10Y: y10, domain.M30Y: 4.4,
	}, domain.SourceFRED)
}

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStorage_UpsertAndRange(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	err := db.UpsertBatch(ctx, []domain.HistoricalCurveRecord{
		makeRecord(domain.CountryUS, "2025-01-03", 4.28, 4.60),
		makeRecord(domain.CountryUS, "2025-01-02", 4.25, 4.57),
		makeRecord(domain.CountryCA, "2025-01-02", 2.95, 3.28),
	})
	require.NoError(t, err)

	got, err := db.Range(ctx, domain.CountryUS, day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordenados por fecha ascendente
	assert.Equal(t, day("2025-01-02"), got[0].DataDate)
	assert.Equal(t, day("2025-01-03"), got[1].DataDate)
	assert.Equal(t, domain.CountryUS, got[0].Country)
	assert.Equal(t, 5, got[0].Count)
	require.NotNil(t, got[0].Spread10y2y)
	assert.InDelta(t, 0.32, *got[0].Spread10y2y, 1e-9)
	assert.False(t, got[0].Inverted)
	assert.Equal(t, domain.M3M, got[0].Rates[0].Maturity)
}

func TestSQLiteStorage_UpsertIsIdempotent(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertBatch(ctx, []domain.HistoricalCurveRecord{makeRecord(domain.CountryUS, "2024-08-05", 3.88, 3.78)}))
	require.NoError(t, db.UpsertBatch(ctx, []domain.HistoricalCurveRecord{makeRecord(domain.CountryUS, "2024-08-05", 3.70, 3.80)}))

	got, err := db.Range(ctx, domain.CountryUS, day("2024-08-05"), day("2024-08-05"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	y2, ok := got[0].Rate(domain.M2Y)
	require.True(t, ok)
	assert.InDelta(t, 3.70, y2, 1e-9)
	assert.False(t, got[0].Inverted, "revised record is no longer inverted")
}

func TestSQLiteStorage_InvertedRoundTrip(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertBatch(ctx, []domain.HistoricalCurveRecord{makeRecord(domain.CountryUS, "2023-07-03", 4.94, 3.86)}))
	got, err := db.Recent(ctx, domain.CountryUS, day("2023-12-31"), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Inverted)
	assert.InDelta(t, -1.08, *got[0].Spread10y2y, 1e-9)
}

func TestSQLiteStorage_RecentOrderAndLimit(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	var recs []domain.HistoricalCurveRecord
	for _, d := range []string{"2025-01-02", "2025-01-03", "2025-01-06", "2025-01-07", "2025-01-08"} {
		recs = append(recs, makeRecord(domain.CountryUS, d, 4.2, 4.6))
	}
	require.NoError(t, db.UpsertBatch(ctx, recs))

	got, err := db.Recent(ctx, domain.CountryUS, day("2025-01-07"), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2025-01-07"), got[0].DataDate)
	assert.Equal(t, day("2025-01-06"), got[1].DataDate)

	none, err := db.Recent(ctx, domain.CountryUS, day("2025-01-07"), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStorage_DatesAndStats(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	empty, err := db.Stats(ctx, domain.CountryCA)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.MinDate.IsZero())

	require.NoError(t, db.UpsertBatch(ctx, []domain.HistoricalCurveRecord{
		makeRecord(domain.CountryCA, "2025-01-02", 2.9, 3.2),
		makeRecord(domain.CountryCA, "2025-01-06", 2.9, 3.2),
	}))

	dates, err := db.Dates(ctx, domain.CountryCA, day("2025-01-01"), day("2025-01-10"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2025-01-02"), day("2025-01-06")}, dates)

	st, err := db.Stats(ctx, domain.CountryCA)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, day("2025-01-02"), st.MinDate)
	assert.Equal(t, day("2025-01-06"), st.MaxDate)
}

func TestSQLiteStorage_EmptyBatch(t *testing.T) {
	db := newStore(t)
	assert.NoError(t, db.UpsertBatch(context.Background(), nil))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := storage.Open("mysql", "x", time.Second)
	assert.Error(t, err)

	s, err := storage.Open("sqlite", ":memory:", time.Second)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestSQLiteStorage_Nearest(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertBatch(ctx, []domain.HistoricalCurveRecord{
		makeRecord(domain.CountryUS, "2024-12-02", 4.1, 4.2),
		makeRecord(domain.CountryUS, "2024-12-09", 4.2, 4.3),
	}))

	got, ok, err := db.Nearest(ctx, domain.CountryUS, day("2024-12-07"), 7*24*time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-12-09"), got.DataDate)

	_, ok, err = db.Nearest(ctx, domain.CountryUS, day("2025-02-01"), 7*24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenReadOnly_MissingFileIsNotCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curves.db")

	_, err := storage.OpenReadOnly("sqlite", path, time.Second)
	assert.True(t, errors.Is(err, storage.ErrStoreNotFound))
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "read-only open must not create the file")

	_, err = storage.OpenReadOnly("sqlite", ":memory:", time.Second)
	assert.True(t, errors.Is(err, storage.ErrStoreNotFound))
}

func TestOpenReadOnly_ReadsButRejectsWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "curves.db")

	rw, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, rw.UpsertBatch(ctx, []domain.HistoricalCurveRecord{
		makeRecord(domain.CountryUS, "2025-01-02", 4.25, 4.57),
	}))
	require.NoError(t, rw.Close())

	ro, err := storage.OpenReadOnly("sqlite", path, time.Second)
	require.NoError(t, err)
	defer ro.Close()

	st, err := ro.Stats(ctx, domain.CountryUS)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)

	err = ro.UpsertBatch(ctx, []domain.HistoricalCurveRecord{
		makeRecord(domain.CountryUS, "2025-01-03", 4.28, 4.60),
	})
	assert.Error(t, err)
}
