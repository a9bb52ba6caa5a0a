package analytics

import (
	"sort"

	"github.com/alejandrodnm/curvewatch/internal/domain"
)

// ForwardRate is the implied rate between two adjacent maturities.
type ForwardRate struct {
	Pair    string          `json:"maturity"`
	From    domain.Maturity `json:"from"`
	To      domain.Maturity `json:"to"`
	Forward float64         `json:"forward"`
}

// ForwardRates computes f(t1,t2) = (y2*t2 - y1*t1) / (t2 - t1), t in years
// (days/365), for each adjacent pair of valid points sorted by days.
func ForwardRates(points []domain.YieldDataPoint) []ForwardRate {
	valid := make([]domain.YieldDataPoint, 0, len(points))
	for _, p := range points {
		if p.Valid() && p.Days > 0 {
			valid = append(valid, p)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Days < valid[j].Days })

	out := make([]ForwardRate, 0, len(valid))
	for i := 0; i+1 < len(valid); i++ {
		p1, p2 := valid[i], valid[i+1]
		t1 := float64(p1.Days) / 365
		t2 := float64(p2.Days) / 365
		if t2 == t1 {
			continue
		}
		f := (p2.Yield*t2 - p1.Yield*t1) / (t2 - t1)
		if !finite(f) {
			continue
		}
		out = append(out, ForwardRate{
			Pair:    string(p1.Maturity) + "-" + string(p2.Maturity),
			From:    p1.Maturity,
			To:      p2.Maturity,
			Forward: f,
		})
	}
	return out
}
