package analytics

import (
	"math"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the rolling window length in curves.
const DefaultWindow = 30

// RollingStat summarises one window ending at Date.
type RollingStat struct {
	Date time.Time `json:"date"`
	Mean float64   `json:"mean"`
	Std  float64   `json:"std"`
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
}

// RollingStats slides a window over the date-sorted curves and reports the valid
// yields of maturity in each window. Std is the population standard deviation.
// Windows without a valid yield are skipped. window <= 0 uses DefaultWindow.
func RollingStats(curves []domain.YieldCurveData, maturity domain.Maturity, window int) []RollingStat {
	if window <= 0 {
		window = DefaultWindow
	}
	sorted := sortedByDate(curves)
	if len(sorted) < window {
		return []RollingStat{}
	}

	out := make([]RollingStat, 0, len(sorted)-window+1)
	ys := make([]float64, 0, window)
	for end := window - 1; end < len(sorted); end++ {
		ys = ys[:0]
		for _, c := range sorted[end-window+1 : end+1] {
			if y, ok := c.Yield(maturity); ok {
				ys = append(ys, y)
			}
		}
		if len(ys) == 0 {
			continue
		}
		mean, variance := stat.PopMeanVariance(ys, nil)
		st := RollingStat{
			Date: sorted[end].Date,
			Mean: mean,
			Std:  math.Sqrt(variance),
			Min:  floats.Min(ys),
			Max:  floats.Max(ys),
		}
		if !finite(st.Mean, st.Std) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// DailyPerformance returns the per-maturity change from previous to current in
// bps. An empty previous yields an empty map.
func DailyPerformance(current, previous []domain.YieldDataPoint) map[domain.Maturity]float64 {
	perf := make(map[domain.Maturity]float64)
	if len(previous) == 0 {
		return perf
	}
	for _, p := range current {
		if !p.Valid() {
			continue
		}
		prev, ok := domain.YieldOf(previous, p.Maturity)
		if !ok {
			continue
		}
		if d := (p.Yield - prev) * bps; finite(d) {
			perf[p.Maturity] = d
		}
	}
	return perf
}
