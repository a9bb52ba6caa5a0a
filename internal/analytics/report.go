package analytics

import (
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// RollingMaturities are the maturities Report computes rolling statistics for.
var RollingMaturities = []domain.Maturity{domain.M2Y, domain.M10Y, domain.M30Y}

// Report bundles every analytic for one curve and its history.
type Report struct {
	Country     domain.Country                    `json:"country"`
	Date        time.Time                         `json:"date"`
	DataSource  domain.DataSource                 `json:"dataSource"`
	Spreads     *SpreadAnalysis                   `json:"spreads"`
	Butterflies []Butterfly                       `json:"butterflies"`
	Metrics     *CurveMetrics                     `json:"metrics"`
	Forwards    []ForwardRate                     `json:"forwards"`
	PCA         *PCAResult                        `json:"pca"`
	Rolling     map[domain.Maturity][]RollingStat `json:"rolling"`
	Daily       map[domain.Maturity]float64       `json:"dailyPerformance"`
	HistorySize int                               `json:"historySize"`
}

// Build computes the full battery for current. history holds past curves in any
// order; the previous-day curve is the latest one dated before current.
func Build(current domain.YieldCurveData, history []domain.YieldCurveData, window int) Report {
	r := Report{
		Country:     current.Country,
		Date:        current.Date,
		DataSource:  current.DataSource,
		Spreads:     Spreads(current.Points),
		Butterflies: ButterflySpreads(current.Points),
		Metrics:     EnhancedMetrics(current.Points, history, current.Date),
		Forwards:    ForwardRates(current.Points),
		PCA:         PCA(history),
		Rolling:     make(map[domain.Maturity][]RollingStat, len(RollingMaturities)),
		HistorySize: len(history),
	}
	for _, m := range RollingMaturities {
		r.Rolling[m] = RollingStats(history, m, window)
	}

	var prev []domain.YieldDataPoint
	if p, ok := previousCurve(history, current.Date); ok {
		prev = p.Points
	}
	r.Daily = DailyPerformance(current.Points, prev)
	return r
}

func previousCurve(history []domain.YieldCurveData, date time.Time) (domain.YieldCurveData, bool) {
	var best domain.YieldCurveData
	found := false
	for _, c := range history {
		if !c.Date.Before(date) {
			continue
		}
		if !found || c.Date.After(best.Date) {
			best, found = c, true
		}
	}
	return best, found
}
