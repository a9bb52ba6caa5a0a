// Package curve arma curvas canónicas a partir de valores crudos por plazo.
package curve

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// MinViablePoints es el umbral por defecto para considerar una curva utilizable.
const MinViablePoints = 4

// Assemble construye la curva con los plazos cuyo valor crudo parsea como float finito > 0.
// El resto se omite. Los puntos salen ordenados por días.
// No aplica umbral: una curva parcial se devuelve igual y el llamador decide.
func Assemble(country domain.Country, date time.Time, raw map[domain.Maturity]string, source domain.DataSource, fetchedAt time.Time) domain.YieldCurveData {
	values := make(map[domain.Maturity]float64, len(raw))
	for m, s := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			slog.Debug("curve: dropping unparseable value", "country", country, "maturity", m, "value", s)
			continue
		}
		values[m] = v
	}
	return AssembleValues(country, date, values, source, fetchedAt)
}

// AssembleValues es Assemble para valores ya numéricos.
func AssembleValues(country domain.Country, date time.Time, values map[domain.Maturity]float64, source domain.DataSource, fetchedAt time.Time) domain.YieldCurveData {
	points := make([]domain.YieldDataPoint, 0, len(values))
	for m, v := range values {
		if !m.Valid() || !domain.IsValidYield(v) {
			continue
		}
		points = append(points, domain.NewPoint(date, m, v, fetchedAt))
	}
	domain.SortPoints(points)
	return domain.YieldCurveData{
		Date:       date,
		Country:    country,
		Points:     points,
		DataSource: source,
		FetchedAt:  fetchedAt,
	}
}

// Sufficient indica si la curva tiene al menos min puntos válidos (min >= 1).
func Sufficient(c domain.YieldCurveData, min int) bool {
	if min < 1 {
		min = 1
	}
	return c.ValidCount() >= min
}
