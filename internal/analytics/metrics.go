package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// Area is an adjacent maturity pair and its absolute yield gap in percentage points.
type Area struct {
	From   domain.Maturity `json:"from"`
	To     domain.Maturity `json:"to"`
	Spread float64         `json:"spread"`
}

// CurveMetrics summarises curve shape. Level, slope and curvature are in percent.
type CurveMetrics struct {
	Level          float64  `json:"level"`
	Slope          float64  `json:"slope"`
	Curvature      float64  `json:"curvature"`
	Slope2s10s     *float64 `json:"slope_2_10,omitempty"`
	SlopeChange1Y  *float64 `json:"slope_change_1y,omitempty"`
	SlopeChange5Y  *float64 `json:"slope_change_5y,omitempty"`
	SlopeChange10Y *float64 `json:"slope_change_10y,omitempty"`
	SteepestArea   *Area    `json:"steepest_area,omitempty"`
	FlattestArea   *Area    `json:"flattest_area,omitempty"`
}

// Metrics returns level, slope, curvature and the 2s10s slope, or nil when any of
// 2Y, 5Y, 10Y, 30Y is missing.
func Metrics(points []domain.YieldDataPoint) *CurveMetrics {
	y, ok := legs(points, domain.M2Y, domain.M5Y, domain.M10Y, domain.M30Y)
	if !ok {
		return nil
	}
	y2, y5, y10, y30 := y[domain.M2Y], y[domain.M5Y], y[domain.M10Y], y[domain.M30Y]
	m := CurveMetrics{
		Level:      (y2 + y5 + y10 + y30) / 4,
		Slope:      y30 - y2,
		Curvature:  2*y10 - y2 - y30,
		Slope2s10s: ptr(y10 - y2),
	}
	if !finite(m.Level, m.Slope, m.Curvature) {
		return nil
	}
	return &m
}

// EnhancedMetrics extends Metrics with 2s10s slope changes against the historical
// curves nearest to asOf minus 1, 5 and 10 years, plus the steepest and flattest
// adjacent segments of the curve.
func EnhancedMetrics(points []domain.YieldDataPoint, history []domain.YieldCurveData, asOf time.Time) *CurveMetrics {
	m := Metrics(points)
	if m == nil {
		return nil
	}

	if m.Slope2s10s != nil && len(history) > 0 {
		sorted := sortedByDate(history)
		for _, lb := range []struct {
			years int
			dst   **float64
		}{
			{1, &m.SlopeChange1Y},
			{5, &m.SlopeChange5Y},
			{10, &m.SlopeChange10Y},
		} {
			target := asOf.AddDate(-lb.years, 0, 0)
			past, ok := nearest(sorted, target)
			if !ok {
				continue
			}
			if prev := past.Spread10y2y(); prev != nil {
				*lb.dst = ptr(*m.Slope2s10s - *prev)
			}
		}
	}

	m.SteepestArea, m.FlattestArea = areas(points)
	return m
}

// nearest picks the curve closest to target, however far it is; ties go to the
// earlier curve. ok is false only for an empty history.
func nearest(sorted []domain.YieldCurveData, target time.Time) (domain.YieldCurveData, bool) {
	best := -1
	var bestGap time.Duration
	for i, c := range sorted {
		gap := c.Date.Sub(target)
		if gap < 0 {
			gap = -gap
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return domain.YieldCurveData{}, false
	}
	return sorted[best], true
}

// areas scans adjacent pairs in canonical order. Pairs with a missing leg are
// skipped. Flattest ignores zero gaps.
func areas(points []domain.YieldDataPoint) (steepest, flattest *Area) {
	order := domain.CanonicalOrder()
	for i := 0; i+1 < len(order); i++ {
		y1, ok1 := domain.YieldOf(points, order[i])
		y2, ok2 := domain.YieldOf(points, order[i+1])
		if !ok1 || !ok2 {
			continue
		}
		gap := math.Abs(y2 - y1)
		if !finite(gap) {
			continue
		}
		if gap > 0 && (steepest == nil || gap > steepest.Spread) {
			steepest = &Area{From: order[i], To: order[i+1], Spread: gap}
		}
		if gap > 0 && (flattest == nil || gap < flattest.Spread) {
			flattest = &Area{From: order[i], To: order[i+1], Spread: gap}
		}
	}
	return steepest, flattest
}

func sortedByDate(curves []domain.YieldCurveData) []domain.YieldCurveData {
	out := make([]domain.YieldCurveData, len(curves))
	copy(out, curves)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
