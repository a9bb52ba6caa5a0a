package domain

import (
	"sort"
	"time"
)

// RateEntry es un plazo dentro de un registro histórico.
// Change1M y PrevValue son nil cuando no hay registro de hace un mes.
type RateEntry struct {
	Maturity  Maturity `json:"maturity"`
	Rate      float64  `json:"rate"`
	Months    int      `json:"months"`
	Change1M  *float64 `json:"change1M"`
	PrevValue *float64 `json:"prevValue"`
}

// HistoricalCurveRecord es la fila persistida por (país, fecha).
// Spread10y2y e Inverted se derivan de Rates; no se asignan a mano.
type HistoricalCurveRecord struct {
	Country     Country     `json:"country"`
	DataDate    time.Time   `json:"data_date"`
	Rates       []RateEntry `json:"rates"`
	Source      string      `json:"source"`
	Currency    string      `json:"currency"`
	Count       int         `json:"count"`
	Spread10y2y *float64    `json:"spread_10y_2y"`
	Inverted    bool        `json:"inverted"`
}

// NewHistoricalRecord construye un registro a partir de plazo → valor.
// Los valores no válidos se descartan. Los plazos se ordenan por meses.
func NewHistoricalRecord(country Country, date time.Time, values map[Maturity]float64, source DataSource) HistoricalCurveRecord {
	rates := make([]RateEntry, 0, len(values))
	for m, v := range values {
		if !m.Valid() || !IsValidYield(v) {
			continue
		}
		rates = append(rates, RateEntry{Maturity: m, Rate: v, Months: m.Months()})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Months < rates[j].Months })

	r := HistoricalCurveRecord{
		Country:  country,
		DataDate: DateOnly(date),
		Rates:    rates,
		Source:   source.Label(),
		Currency: country.Currency(),
	}
	r.Derive()
	return r
}

// Derive recalcula Count, Spread10y2y e Inverted desde Rates.
func (r *HistoricalCurveRecord) Derive() {
	r.Count = len(r.Rates)
	r.Spread10y2y = nil
	r.Inverted = false

	y2, ok2 := r.Rate(M2Y)
	y10, ok10 := r.Rate(M10Y)
	if ok2 && ok10 {
		s := y10 - y2
		r.Spread10y2y = &s
		r.Inverted = s < 0
	}
}

// Rate devuelve la tasa de un plazo si está en el registro.
func (r HistoricalCurveRecord) Rate(m Maturity) (float64, bool) {
	for _, e := range r.Rates {
		if e.Maturity == m {
			return e.Rate, true
		}
	}
	return 0, false
}

// ApplyPrevious rellena PrevValue y Change1M con el registro de hace ~1 mes.
func (r *HistoricalCurveRecord) ApplyPrevious(prev HistoricalCurveRecord) {
	for i := range r.Rates {
		pv, ok := prev.Rate(r.Rates[i].Maturity)
		if !ok {
			continue
		}
		change := r.Rates[i].Rate - pv
		r.Rates[i].PrevValue = &pv
		r.Rates[i].Change1M = &change
	}
}

// Curve convierte el registro en una curva para los cálculos analíticos.
func (r HistoricalCurveRecord) Curve() YieldCurveData {
	points := make([]YieldDataPoint, 0, len(r.Rates))
	for _, e := range r.Rates {
		points = append(points, NewPoint(r.DataDate, e.Maturity, e.Rate, time.Time{}))
	}
	SortPoints(points)
	return YieldCurveData{
		Date:       r.DataDate,
		Country:    r.Country,
		Points:     points,
		DataSource: sourceFromLabel(r.Source),
	}
}

// RecordFromCurve construye el registro persistible de una curva adquirida.
// Los puntos interpolados no se persisten: solo se guardan tasas observadas.
func RecordFromCurve(c YieldCurveData) HistoricalCurveRecord {
	values := make(map[Maturity]float64, len(c.Points))
	for _, p := range c.Points {
		if p.Valid() && !p.Interpolated {
			values[p.Maturity] = p.Yield
		}
	}
	return NewHistoricalRecord(c.Country, c.Date, values, c.DataSource)
}

func sourceFromLabel(label string) DataSource {
	switch label {
	case "Bank of Canada", string(SourceBoC):
		return SourceBoC
	case string(SourceFMP):
		return SourceFMP
	case string(SourceMock):
		return SourceMock
	}
	return SourceFRED
}

// StoreStats resume la cobertura almacenada de un país.
// MinDate y MaxDate son cero cuando no hay registros.
type StoreStats struct {
	Country Country
	Count   int
	MinDate time.Time
	MaxDate time.Time
}
