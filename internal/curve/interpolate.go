package curve

import "github.com/alejandrodnm/curvewatch/internal/domain"

// gapRule rellena un plazo ausente con la media de dos vecinos.
// Se prueban los pares en orden; el primero con ambos vecinos válidos gana.
type gapRule struct {
	target domain.Maturity
	pairs  [][2]domain.Maturity
}

// Reglas de la curva canadiense: Valet no publica 1Y ni 20Y como bono de referencia.
var canadaGaps = []gapRule{
	{target: domain.M1Y, pairs: [][2]domain.Maturity{{domain.M6M, domain.M2Y}, {domain.M3M, domain.M2Y}}},
	{target: domain.M20Y, pairs: [][2]domain.Maturity{{domain.M10Y, domain.M30Y}}},
}

// FillCanadaGaps devuelve una copia de c con 1Y y 20Y interpolados si faltan.
// Los puntos interpolados se marcan con Interpolated = true.
func FillCanadaGaps(c domain.YieldCurveData) domain.YieldCurveData {
	out := c
	out.Points = append([]domain.YieldDataPoint(nil), c.Points...)

	for _, rule := range canadaGaps {
		if _, ok := out.Yield(rule.target); ok {
			continue
		}
		for _, pair := range rule.pairs {
			a, okA := out.Yield(pair[0])
			b, okB := out.Yield(pair[1])
			if !okA || !okB {
				continue
			}
			p := domain.NewPoint(c.Date, rule.target, (a+b)/2, c.FetchedAt)
			p.Interpolated = true
			out.Points = append(out.Points, p)
			break
		}
	}
	domain.SortPoints(out.Points)
	return out
}
