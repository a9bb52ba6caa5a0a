package analytics_test

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/analytics"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

func mockPoints() []domain.YieldDataPoint {
	return domain.MockCurve(domain.CountryUS, asOf, asOf).Points
}

func curveAt(date time.Time, yields map[domain.Maturity]float64) domain.YieldCurveData {
	points := make([]domain.YieldDataPoint, 0, len(yields))
	for m, y := range yields {
		points = append(points, domain.NewPoint(date, m, y, time.Time{}))
	}
	domain.SortPoints(points)
	return domain.YieldCurveData{Date: date, Country: domain.CountryUS, Points: points, DataSource: domain.SourceFRED}
}

func TestSpreads_MockFixture(t *testing.T) {
	s := analytics.Spreads(mockPoints())
	require.NotNil(t, s)
	assert.InDelta(t, 10, s.Spread2s10s, 1e-9)
	assert.InDelta(t, 27, s.Spread2s30s, 1e-9)
	assert.InDelta(t, -83, s.Spread3m10s, 1e-9)
	assert.InDelta(t, 40, s.Spread5s30s, 1e-9)
}

func TestSpreads_MissingLegIsNil(t *testing.T) {
	c := curveAt(asOf, map[domain.Maturity]float64{
		domain.M2Y: 4.45, domain.M5Y: 4.32, domain.M10Y: 4.55, domain.M30Y: 4.72,
	})
	assert.Nil(t, analytics.Spreads(c.Points), "3M missing")

	c.Points = append(c.Points, domain.YieldDataPoint{Maturity: domain.M3M, Yield: math.NaN(), Days: 91})
	assert.Nil(t, analytics.Spreads(c.Points), "invalid 3M is not a value")
}

func TestButterflySpreads(t *testing.T) {
	bs := analytics.ButterflySpreads(mockPoints())
	require.Len(t, bs, 2)
	assert.Equal(t, "2-5-10", bs[0].Name)
	assert.Equal(t, domain.M5Y, bs[0].Belly)
	assert.InDelta(t, 36, bs[0].Value, 1e-9)
	assert.Equal(t, "5-10-30", bs[1].Name)
	assert.Equal(t, domain.M30Y, bs[1].Short2)
	assert.InDelta(t, -6, bs[1].Value, 1e-9)
}

func TestButterflySpreads_EvenlySpacedYieldsAreZero(t *testing.T) {
	// 3.0 + 4.0 - 2*3.5 = 0: the belly sits midway in yield, not on the day chord
	c := curveAt(asOf, map[domain.Maturity]float64{domain.M2Y: 3.0, domain.M5Y: 3.5, domain.M10Y: 4.0})
	bs := analytics.ButterflySpreads(c.Points)
	require.Len(t, bs, 1, "5-10-30 skipped without 30Y")
	assert.InDelta(t, 0, bs[0].Value, 1e-9)
}

func TestButterflySpreads_BellyOnDayChordIsNotZero(t *testing.T) {
	// 5Y on the 2Y-10Y line in days: 3.0 + (1825-730)/(3650-730) * 1.0 = 3.375
	// butterfly = (3.0 + 4.0 - 2*3.375) * 100 = 25 bps
	c := curveAt(asOf, map[domain.Maturity]float64{domain.M2Y: 3.0, domain.M5Y: 3.375, domain.M10Y: 4.0})
	bs := analytics.ButterflySpreads(c.Points)
	require.Len(t, bs, 1)
	assert.InDelta(t, 25, bs[0].Value, 1e-9)
}

func TestMetrics_MockFixture(t *testing.T) {
	m := analytics.Metrics(mockPoints())
	require.NotNil(t, m)
	assert.InDelta(t, 4.51, m.Level, 1e-9)
	assert.InDelta(t, 0.27, m.Slope, 1e-9)
	assert.InDelta(t, -0.07, m.Curvature, 1e-9)
	require.NotNil(t, m.Slope2s10s)
	assert.InDelta(t, 0.10, *m.Slope2s10s, 1e-9)

	assert.Nil(t, analytics.Metrics(mockPoints()[:4]))
}

func TestEnhancedMetrics(t *testing.T) {
	history := []domain.YieldCurveData{
		curveAt(asOf.AddDate(0, 0, -3), map[domain.Maturity]float64{domain.M2Y: 4.40, domain.M10Y: 4.50}),
		curveAt(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), map[domain.Maturity]float64{domain.M2Y: 4.00, domain.M10Y: 4.20}),
		curveAt(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), map[domain.Maturity]float64{domain.M2Y: 4.50, domain.M10Y: 3.70}),
	}
	m := analytics.EnhancedMetrics(mockPoints(), history, asOf)
	require.NotNil(t, m)

	require.NotNil(t, m.SlopeChange1Y)
	assert.InDelta(t, -0.10, *m.SlopeChange1Y, 1e-9)
	// 2020 and 2015 have no curve: the nearest one (2023-06-01, 2s10s -0.80) is used
	require.NotNil(t, m.SlopeChange5Y)
	assert.InDelta(t, 0.90, *m.SlopeChange5Y, 1e-9)
	require.NotNil(t, m.SlopeChange10Y)
	assert.InDelta(t, 0.90, *m.SlopeChange10Y, 1e-9)

	require.NotNil(t, m.SteepestArea)
	assert.Equal(t, domain.M6M, m.SteepestArea.From)
	assert.Equal(t, domain.M1Y, m.SteepestArea.To)
	assert.InDelta(t, 0.47, m.SteepestArea.Spread, 1e-9)

	require.NotNil(t, m.FlattestArea)
	assert.Equal(t, domain.M20Y, m.FlattestArea.From)
	assert.Equal(t, domain.M30Y, m.FlattestArea.To)
	assert.InDelta(t, 0.03, m.FlattestArea.Spread, 1e-9)
}

func TestEnhancedMetrics_SkipsPairsWithMissingLeg(t *testing.T) {
	c := curveAt(asOf, map[domain.Maturity]float64{
		domain.M2Y: 4.0, domain.M5Y: 4.1, domain.M10Y: 4.3, domain.M30Y: 4.6,
	})
	m := analytics.EnhancedMetrics(c.Points, nil, asOf)
	require.NotNil(t, m)
	assert.Nil(t, m.SlopeChange1Y)
	// no canonical adjacent pair has both legs
	assert.Nil(t, m.SteepestArea)
	assert.Nil(t, m.FlattestArea)
}

func TestForwardRates(t *testing.T) {
	c := curveAt(asOf, map[domain.Maturity]float64{domain.M1Y: 4.0, domain.M2Y: 4.0, domain.M5Y: 5.0})
	fs := analytics.ForwardRates(c.Points)
	require.Len(t, fs, 2)
	assert.Equal(t, "1Y-2Y", fs[0].Pair)
	assert.InDelta(t, 4.0, fs[0].Forward, 1e-9, "equal yields give the same forward")

	// (5*1825/365 - 4*730/365) / ((1825-730)/365) = (25 - 8) / 3
	assert.Equal(t, "2Y-5Y", fs[1].Pair)
	assert.InDelta(t, 17.0/3.0, fs[1].Forward, 1e-9)

	assert.Empty(t, analytics.ForwardRates(c.Points[:1]))
}

func TestRollingStats(t *testing.T) {
	var curves []domain.YieldCurveData
	for i, y := range []float64{1, 2, 3, 4, 5} {
		curves = append(curves, curveAt(asOf.AddDate(0, 0, i), map[domain.Maturity]float64{domain.M10Y: y}))
	}
	// input order does not matter
	curves[0], curves[4] = curves[4], curves[0]

	rs := analytics.RollingStats(curves, domain.M10Y, 3)
	require.Len(t, rs, 3)
	assert.Equal(t, asOf.AddDate(0, 0, 2), rs[0].Date)
	assert.InDelta(t, 2, rs[0].Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(2.0/3.0), rs[0].Std, 1e-9)
	assert.InDelta(t, 1, rs[0].Min, 1e-9)
	assert.InDelta(t, 3, rs[0].Max, 1e-9)
	assert.Equal(t, asOf.AddDate(0, 0, 4), rs[2].Date)

	assert.Empty(t, analytics.RollingStats(curves, domain.M10Y, 6))
}

func TestRollingStats_SkipsWindowsWithoutValidYields(t *testing.T) {
	curves := []domain.YieldCurveData{
		curveAt(asOf, map[domain.Maturity]float64{domain.M2Y: 4}),
		curveAt(asOf.AddDate(0, 0, 1), map[domain.Maturity]float64{domain.M2Y: 4}),
		curveAt(asOf.AddDate(0, 0, 2), map[domain.Maturity]float64{domain.M10Y: 4.2}),
	}
	rs := analytics.RollingStats(curves, domain.M10Y, 2)
	require.Len(t, rs, 1, "first window has no 10Y")
	assert.Equal(t, 0.0, rs[0].Std)
}

func TestDailyPerformance(t *testing.T) {
	assert.Empty(t, analytics.DailyPerformance(mockPoints(), nil))

	prev := curveAt(asOf, map[domain.Maturity]float64{domain.M2Y: 4.40, domain.M10Y: 4.60})
	perf := analytics.DailyPerformance(mockPoints(), prev.Points)
	require.Len(t, perf, 2)
	assert.InDelta(t, 5, perf[domain.M2Y], 1e-9)
	assert.InDelta(t, -5, perf[domain.M10Y], 1e-9)
}
