package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// recordRow es la fila de yield_curve_data tal como se guarda.
// rates va serializado como JSON, country como slug ("us", "canada").
type recordRow struct {
	Country     string          `db:"country"`
	DataDate    time.Time       `db:"data_date"`
	Rates       []byte          `db:"rates"`
	Source      string          `db:"source"`
	Currency    string          `db:"currency"`
	Count       int             `db:"count"`
	Spread10y2y sql.NullFloat64 `db:"spread_10y_2y"`
	Inverted    bool            `db:"inverted"`
}

func toRow(r domain.HistoricalCurveRecord) (recordRow, error) {
	// inverted y spread siempre se recalculan desde rates antes de escribir.
	r.Derive()

	rates, err := json.Marshal(r.Rates)
	if err != nil {
		return recordRow{}, fmt.Errorf("marshal rates: %w", err)
	}
	row := recordRow{
		Country:  r.Country.Slug(),
		DataDate: domain.DateOnly(r.DataDate),
		Rates:    rates,
		Source:   r.Source,
		Currency: r.Currency,
		Count:    r.Count,
		Inverted: r.Inverted,
	}
	if r.Spread10y2y != nil {
		row.Spread10y2y = sql.NullFloat64{Float64: *r.Spread10y2y, Valid: true}
	}
	return row, nil
}

func (row recordRow) toRecord() (domain.HistoricalCurveRecord, error) {
	country, err := domain.ParseCountry(row.Country)
	if err != nil {
		return domain.HistoricalCurveRecord{}, err
	}
	var rates []domain.RateEntry
	if err := json.Unmarshal(row.Rates, &rates); err != nil {
		return domain.HistoricalCurveRecord{}, fmt.Errorf("unmarshal rates: %w", err)
	}
	r := domain.HistoricalCurveRecord{
		Country:  country,
		DataDate: domain.DateOnly(row.DataDate),
		Rates:    rates,
		Source:   row.Source,
		Currency: row.Currency,
	}
	r.Derive()
	return r, nil
}
