package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alejandrodnm/curvewatch/internal/adapters/storage"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresMock(t *testing.T) (*storage.PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return storage.NewPostgresStorageDB(sqlx.NewDb(mockDB, "postgres"), time.Second), mock
}

func TestPostgresStorage_UpsertBatch(t *testing.T) {
	s, mock := newPostgresMock(t)
	rec := makeRecord(domain.CountryCA, "2025-01-07", 2.95, 3.28)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO yield_curve_data").
		WithArgs("canada", sqlmock.AnyArg(), sqlmock.AnyArg(), "Bank of Canada", "CAD", 5, sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec.Source = domain.SourceBoC.Label()
	rec.Currency = "CAD"
	require.NoError(t, s.UpsertBatch(context.Background(), []domain.HistoricalCurveRecord{rec}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_UpsertBatchRollsBackOnError(t *testing.T) {
	s, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO yield_curve_data").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.UpsertBatch(context.Background(), []domain.HistoricalCurveRecord{
		makeRecord(domain.CountryUS, "2025-01-07", 4.2, 4.6),
		makeRecord(domain.CountryUS, "2025-01-08", 4.2, 4.6),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Range(t *testing.T) {
	s, mock := newPostgresMock(t)

	rows := sqlmock.NewRows([]string{"country", "data_date", "rates", "source", "currency", "count", "spread_10y_2y", "inverted"}).
		AddRow("us", day("2025-01-02"), []byte(`[{"maturity":"2Y","rate":4.25,"months":24},{"maturity":"10Y","rate":4.57,"months":120}]`), "FRED", "USD", 2, 0.32, false).
		AddRow("us", day("2025-01-03"), []byte(`[{"maturity":"2Y","rate":4.60,"months":24},{"maturity":"10Y","rate":4.50,"months":120}]`), "FRED", "USD", 2, -0.10, true)
	mock.ExpectQuery("SELECT (.+) FROM yield_curve_data").
		WithArgs("us", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := s.Range(context.Background(), domain.CountryUS, day("2025-01-01"), day("2025-01-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.CountryUS, got[0].Country)
	assert.InDelta(t, 0.32, *got[0].Spread10y2y, 1e-9)
	assert.True(t, got[1].Inverted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_RangeBadRates(t *testing.T) {
	s, mock := newPostgresMock(t)

	rows := sqlmock.NewRows([]string{"country", "data_date", "rates", "source", "currency", "count", "spread_10y_2y", "inverted"}).
		AddRow("us", day("2025-01-02"), []byte(`not-json`), "FRED", "USD", 0, nil, false)
	mock.ExpectQuery("SELECT (.+) FROM yield_curve_data").WillReturnRows(rows)

	_, err := s.Range(context.Background(), domain.CountryUS, day("2025-01-01"), day("2025-01-31"))
	assert.Error(t, err)
}

func TestPostgresStorage_Stats(t *testing.T) {
	s, mock := newPostgresMock(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS count").
		WithArgs("canada").
		WillReturnRows(sqlmock.NewRows([]string{"count", "min_date", "max_date"}).
			AddRow(3, day("2024-01-02"), day("2024-03-28")))

	st, err := s.Stats(context.Background(), domain.CountryCA)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, day("2024-01-02"), st.MinDate)
	assert.Equal(t, day("2024-03-28"), st.MaxDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_RecentZero(t *testing.T) {
	s, mock := newPostgresMock(t)
	got, err := s.Recent(context.Background(), domain.CountryUS, time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
