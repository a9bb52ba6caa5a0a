// Package analytics derives spreads, curve shape metrics, forwards, PCA and
// rolling statistics from yield curves. Every function is pure: inputs are never
// mutated and invalid points are ignored rather than coerced to zero.
package analytics

import (
	"math"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// bps converts a percentage-point difference into basis points.
const bps = 100

// SpreadAnalysis holds the standard term spreads in basis points.
type SpreadAnalysis struct {
	Spread2s10s float64 `json:"spread_2_10"`
	Spread2s30s float64 `json:"spread_2_30"`
	Spread3m10s float64 `json:"spread_3m_10"`
	Spread5s30s float64 `json:"spread_5_30"`
}

// Butterfly is a three-leg curvature measure: wing1 + wing2 - 2*belly, in bps.
type Butterfly struct {
	Name   string          `json:"name"`
	Value  float64         `json:"value"`
	Short1 domain.Maturity `json:"short1"`
	Belly  domain.Maturity `json:"long"`
	Short2 domain.Maturity `json:"short2"`
}

// Spreads returns nil when any of 3M, 2Y, 5Y, 10Y or 30Y is missing or invalid.
func Spreads(points []domain.YieldDataPoint) *SpreadAnalysis {
	y, ok := legs(points, domain.M3M, domain.M2Y, domain.M5Y, domain.M10Y, domain.M30Y)
	if !ok {
		return nil
	}
	s := SpreadAnalysis{
		Spread2s10s: (y[domain.M10Y] - y[domain.M2Y]) * bps,
		Spread2s30s: (y[domain.M30Y] - y[domain.M2Y]) * bps,
		Spread3m10s: (y[domain.M10Y] - y[domain.M3M]) * bps,
		Spread5s30s: (y[domain.M30Y] - y[domain.M5Y]) * bps,
	}
	if !finite(s.Spread2s10s, s.Spread2s30s, s.Spread3m10s, s.Spread5s30s) {
		return nil
	}
	return &s
}

var butterflyTriples = [][3]domain.Maturity{
	{domain.M2Y, domain.M5Y, domain.M10Y},
	{domain.M5Y, domain.M10Y, domain.M30Y},
}

// ButterflySpreads computes the 2-5-10 and 5-10-30 butterflies. A triple with a
// missing leg is skipped.
func ButterflySpreads(points []domain.YieldDataPoint) []Butterfly {
	out := make([]Butterfly, 0, len(butterflyTriples))
	for _, t := range butterflyTriples {
		y, ok := legs(points, t[0], t[1], t[2])
		if !ok {
			continue
		}
		v := (y[t[0]] + y[t[2]] - 2*y[t[1]]) * bps
		if !finite(v) {
			continue
		}
		out = append(out, Butterfly{
			Name:   butterflyName(t),
			Value:  v,
			Short1: t[0],
			Belly:  t[1],
			Short2: t[2],
		})
	}
	return out
}

func butterflyName(t [3]domain.Maturity) string {
	trim := func(m domain.Maturity) string { return string(m[:len(m)-1]) }
	return trim(t[0]) + "-" + trim(t[1]) + "-" + trim(t[2])
}

// legs collects the valid yields of ms. ok is false if any is missing.
func legs(points []domain.YieldDataPoint, ms ...domain.Maturity) (map[domain.Maturity]float64, bool) {
	y := make(map[domain.Maturity]float64, len(ms))
	for _, m := range ms {
		v, ok := domain.YieldOf(points, m)
		if !ok {
			return nil, false
		}
		y[m] = v
	}
	return y, true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func ptr(v float64) *float64 {
	if !finite(v) {
		return nil
	}
	return &v
}
