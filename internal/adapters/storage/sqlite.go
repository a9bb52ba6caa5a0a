package storage

// sqlite.go — histórico de curvas en un solo archivo.
//
// Estrategia:
//   - `yield_curve_data`: UNA fila por (país, fecha). Upsert idempotente: re-ejecutar
//     un backfill reescribe la misma fila con los valores revisados.
//   - `rates` se guarda como JSON; spread e inverted se derivan al escribir.
//   - Fechas como TEXT YYYY-MM-DD: los rangos se comparan lexicográficamente.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS yield_curve_data (
    country       TEXT     NOT NULL,
    data_date     TEXT     NOT NULL,
    rates         TEXT     NOT NULL,
    source        TEXT     NOT NULL,
    currency      TEXT     NOT NULL,
    count         INTEGER  NOT NULL DEFAULT 0,
    spread_10y_2y REAL,
    inverted      INTEGER  NOT NULL DEFAULT 0,
    updated_at    DATETIME NOT NULL,
    PRIMARY KEY (country, data_date)
);

CREATE INDEX IF NOT EXISTS idx_ycd_country_date ON yield_curve_data(country, data_date DESC);
CREATE INDEX IF NOT EXISTS idx_ycd_inverted     ON yield_curve_data(inverted);
`

// SQLiteStorage implementa ports.CurveStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// UpsertBatch escribe todos los registros en una transacción.
// Si uno falla, no se escribe ninguno del lote.
func (s *SQLiteStorage) UpsertBatch(ctx context.Context, records []domain.HistoricalCurveRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.UpsertBatch: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO yield_curve_data
			(country, data_date, rates, source, currency, count, spread_10y_2y, inverted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(country, data_date) DO UPDATE SET
			rates         = excluded.rates,
			source        = excluded.source,
			currency      = excluded.currency,
			count         = excluded.count,
			spread_10y_2y = excluded.spread_10y_2y,
			inverted      = excluded.inverted,
			updated_at    = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("storage.UpsertBatch: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			return fmt.Errorf("storage.UpsertBatch: %s %s: %w", r.Country, r.DataDate.Format(domain.DateLayout), err)
		}
		if _, err := stmt.ExecContext(ctx,
			row.Country, row.DataDate.Format(domain.DateLayout), string(row.Rates), row.Source, row.Currency,
			row.Count, row.Spread10y2y, boolToInt(row.Inverted), now,
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
func (s *SQLiteStorage) Range(ctx context.Context, country domain.Country, from, to time.Time) ([]domain.HistoricalCurveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, data_date, rates, source, currency, count, spread_10y_2y, inverted
		FROM yield_curve_data
		WHERE country = ? AND data_date BETWEEN ? AND ?
		ORDER BY data_date ASC`,
		country.Slug(), from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Range: query: %w", err)
	}
	return scanSQLite(rows)
}

// Recent devuelve los n registros más recientes en o antes de asOf, por fecha descendente.
func (s *SQLiteStorage) Recent(ctx context.Context, country domain.Country, asOf time.Time, n int) ([]domain.HistoricalCurveRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, data_date, rates, source, currency, count, spread_10y_2y, inverted
		FROM yield_curve_data
		WHERE country = ? AND data_date <= ?
		ORDER BY data_date DESC
		LIMIT ?`,
		country.Slug(), asOf.Format(domain.DateLayout), n,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Recent: query: %w", err)
	}
	return scanSQLite(rows)
}

// Nearest devuelve el registro más cercano a date dentro de ±within.
// En empate gana el más antiguo.
func (s *SQLiteStorage) Nearest(ctx context.Context, country domain.Country, date time.Time, within time.Duration) (domain.HistoricalCurveRecord, bool, error) {
	target := domain.DateOnly(date)
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, data_date, rates, source, currency, count, spread_10y_2y, inverted
		FROM yield_curve_data
		WHERE country = ? AND data_date BETWEEN ? AND ?
		ORDER BY ABS(julianday(data_date) - julianday(?)) ASC, data_date ASC
		LIMIT 1`,
		country.Slug(),
		target.Add(-within).Format(domain.DateLayout),
		target.Add(within).Format(domain.DateLayout),
		target.Format(domain.DateLayout),
	)
	if err != nil {
		return domain.HistoricalCurveRecord{}, false, fmt.Errorf("storage.Nearest: query: %w", err)
	}
	recs, err := scanSQLite(rows)
	if err != nil || len(recs) == 0 {
		return domain.HistoricalCurveRecord{}, false, err
	}
	return recs[0], true, nil
}

// Dates devuelve las fechas almacenadas del país en [from, to].
func (s *SQLiteStorage) Dates(ctx context.Context, country domain.Country, from, to time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data_date FROM yield_curve_data
		WHERE country = ? AND data_date BETWEEN ? AND ?
		ORDER BY data_date ASC`,
		country.Slug(), from.Format(domain.DateLayout), to.Format(domain.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Dates: query: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("storage.Dates: scan: %w", err)
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("storage.Dates: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Stats resume la cobertura del país.
func (s *SQLiteStorage) Stats(ctx context.Context, country domain.Country) (domain.StoreStats, error) {
	var (
		count            int
		minDate, maxDate sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(data_date), MAX(data_date)
		FROM yield_curve_data WHERE country = ?`, country.Slug(),
	).Scan(&count, &minDate, &maxDate)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("storage.Stats: %w", err)
	}

	st := domain.StoreStats{Country: country, Count: count}
	if minDate.Valid {
		st.MinDate, _ = domain.ParseDate(minDate.String)
	}
	if maxDate.Valid {
		st.MaxDate, _ = domain.ParseDate(maxDate.String)
	}
	return st, nil
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanSQLite(rows *sql.Rows) ([]domain.HistoricalCurveRecord, error) {
	defer rows.Close()

	var out []domain.HistoricalCurveRecord
	for rows.Next() {
		var (
			row      recordRow
			date     string
			rates    string
			inverted int
		)
		if err := rows.Scan(&row.Country, &date, &rates, &row.Source, &row.Currency,
			&row.Count, &row.Spread10y2y, &inverted); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		d, err := domain.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		row.DataDate = d
		row.Rates = []byte(rates)
		row.Inverted = inverted != 0

		rec, err := row.toRecord()
		if err != nil {
			return nil, fmt.Errorf("storage: %s %s: %w", row.Country, date, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
