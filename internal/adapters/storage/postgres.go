package storage

// postgres.go — la misma tabla yield_curve_data sobre PostgreSQL (Supabase).
// rates es JSONB y data_date es DATE; el upsert usa ON CONFLICT (country, data_date).

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS yield_curve_data (
    country       TEXT        NOT NULL,
    data_date     DATE        NOT NULL,
    rates         JSONB       NOT NULL,
    source        TEXT        NOT NULL,
    currency      TEXT        NOT NULL,
    count         INTEGER     NOT NULL DEFAULT 0,
    spread_10y_2y DOUBLE PRECISION,
    inverted      BOOLEAN     NOT NULL DEFAULT FALSE,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (country, data_date)
);

CREATE INDEX IF NOT EXISTS idx_ycd_country_date ON yield_curve_data(country, data_date DESC);
`

const upsertPostgres = `
	INSERT INTO yield_curve_data
		(country, data_date, rates, source, currency, count, spread_10y_2y, inverted, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	ON CONFLICT (country, data_date) DO UPDATE SET
		rates         = EXCLUDED.rates,
		source        = EXCLUDED.source,
		currency      = EXCLUDED.currency,
		count         = EXCLUDED.count,
		spread_10y_2y = EXCLUDED.spread_10y_2y,
		inverted      = EXCLUDED.inverted,
		updated_at    = NOW()`

const selectColumns = `country, data_date, rates, source, currency, count, spread_10y_2y, inverted`

// PostgresStorage implementa ports.CurveStore sobre PostgreSQL.
type PostgresStorage struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStorage conecta con el DSN dado y aplica el schema.
func NewPostgresStorage(dsn string, timeout time.Duration) (*PostgresStorage, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStorage: open: %w", err)
	}
	s := NewPostgresStorageDB(db, timeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewPostgresStorage: apply schema: %w", err)
	}
	return s, nil
}

// NewPostgresStorageDB envuelve una conexión existente (tests con sqlmock).
func NewPostgresStorageDB(db *sqlx.DB, timeout time.Duration) *PostgresStorage {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresStorage{db: db, timeout: timeout}
}

// UpsertBatch escribe todos los registros en una transacción.
func (s *PostgresStorage) UpsertBatch(ctx context.Context, records []domain.HistoricalCurveRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.UpsertBatch: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			return fmt.Errorf("storage.UpsertBatch: %s %s: %w", r.Country, r.DataDate.Format(domain.DateLayout), err)
		}
		if _, err := tx.ExecContext(ctx, upsertPostgres,
			row.Country, row.DataDate, row.Rates, row.Source, row.Currency,
			row.Count, row.Spread10y2y, row.Inverted,
		); err != nil {
			return fmt.Errorf("storage.UpsertBatch: exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.UpsertBatch: commit: %w", err)
	}
	return nil
}

// Range devuelve los registros del país en [from, to], por fecha ascendente.
func (s *PostgresStorage) Range(ctx context.Context, country domain.Country, from, to time.Time) ([]domain.HistoricalCurveRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+selectColumns+`
		FROM yield_curve_data
		WHERE country = $1 AND data_date BETWEEN $2 AND $3
		ORDER BY data_date ASC`,
		country.Slug(), domain.DateOnly(from), domain.DateOnly(to),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Range: %w", err)
	}
	return toRecords(rows)
}

// Recent devuelve los n registros más recientes en o antes de asOf, por fecha descendente.
func (s *PostgresStorage) Recent(ctx context.Context, country domain.Country, asOf time.Time, n int) ([]domain.HistoricalCurveRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+selectColumns+`
		FROM yield_curve_data
		WHERE country = $1 AND data_date <= $2
		ORDER BY data_date DESC
		LIMIT $3`,
		country.Slug(), domain.DateOnly(asOf), n,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Recent: %w", err)
	}
	return toRecords(rows)
}

// Nearest devuelve el registro más cercano a date dentro de ±within.
func (s *PostgresStorage) Nearest(ctx context.Context, country domain.Country, date time.Time, within time.Duration) (domain.HistoricalCurveRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	target := domain.DateOnly(date)
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+selectColumns+`
		FROM yield_curve_data
		WHERE country = $1 AND data_date BETWEEN $2 AND $3
		ORDER BY ABS(data_date - $4::date) ASC, data_date ASC
		LIMIT 1`,
		country.Slug(), target.Add(-within), target.Add(within), target,
	)
	if err != nil {
		return domain.HistoricalCurveRecord{}, false, fmt.Errorf("storage.Nearest: %w", err)
	}
	recs, err := toRecords(rows)
	if err != nil || len(recs) == 0 {
		return domain.HistoricalCurveRecord{}, false, err
	}
	return recs[0], true, nil
}

// Dates devuelve las fechas almacenadas del país en [from, to].
func (s *PostgresStorage) Dates(ctx context.Context, country domain.Country, from, to time.Time) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var dates []time.Time
	err := s.db.SelectContext(ctx, &dates, `
		SELECT data_date FROM yield_curve_data
		WHERE country = $1 AND data_date BETWEEN $2 AND $3
		ORDER BY data_date ASC`,
		country.Slug(), domain.DateOnly(from), domain.DateOnly(to),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Dates: %w", err)
	}
	for i := range dates {
		dates[i] = domain.DateOnly(dates[i])
	}
	return dates, nil
}

// Stats resume la cobertura del país.
func (s *PostgresStorage) Stats(ctx context.Context, country domain.Country) (domain.StoreStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row struct {
		Count   int          `db:"count"`
		MinDate sql.NullTime `db:"min_date"`
		MaxDate sql.NullTime `db:"max_date"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS count, MIN(data_date) AS min_date, MAX(data_date) AS max_date
		FROM yield_curve_data WHERE country = $1`, country.Slug())
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("storage.Stats: %w", err)
	}

	st := domain.StoreStats{Country: country, Count: row.Count}
	if row.MinDate.Valid {
		st.MinDate = domain.DateOnly(row.MinDate.Time)
	}
	if row.MaxDate.Valid {
		st.MaxDate = domain.DateOnly(row.MaxDate.Time)
	}
	return st, nil
}

// Close cierra la conexión.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func toRecords(rows []recordRow) ([]domain.HistoricalCurveRecord, error) {
	out := make([]domain.HistoricalCurveRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, fmt.Errorf("storage: %s %s: %w", row.Country, row.DataDate.Format(domain.DateLayout), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
