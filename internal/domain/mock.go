package domain

import "time"

// Curvas de referencia usadas cuando ninguna fuente real responde.
var (
	mockUS = map[Maturity]float64{
		M1M: 5.35, M3M: 5.38, M6M: 5.32, M1Y: 4.85, M2Y: 4.45, M3Y: 4.28,
		M5Y: 4.32, M7Y: 4.45, M10Y: 4.55, M20Y: 4.75, M30Y: 4.72,
	}
	mockCA = map[Maturity]float64{
		M1M: 4.45, M3M: 4.42, M6M: 4.38, M1Y: 4.25, M2Y: 3.85, M3Y: 3.72,
		M5Y: 3.65, M7Y: 3.70, M10Y: 3.78, M20Y: 3.87, M30Y: 3.95,
	}
)

// mockPolicyRateCA acompaña a la curva sintética de Canadá. La de EE.UU. no lleva tasa.
const mockPolicyRateCA = 2.25

// MockCurve devuelve la curva sintética del país, etiquetada como MOCK.
func MockCurve(country Country, date, now time.Time) YieldCurveData {
	src := mockUS
	if country == CountryCA {
		src = mockCA
	}
	points := make([]YieldDataPoint, 0, len(src))
	for _, m := range AllMaturities() {
		points = append(points, NewPoint(date, m, src[m], now))
	}
	c := YieldCurveData{
		Date:       date,
		Country:    country,
		Points:     points,
		DataSource: SourceMock,
		FetchedAt:  now,
	}
	if country == CountryCA {
		rate := mockPolicyRateCA
		c.PolicyRate = &rate
	}
	return c
}
