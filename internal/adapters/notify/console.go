package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/analytics"
	"github.com/alejandrodnm/curvewatch/internal/backfill"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier y además imprime los informes de los comandos.
type Console struct {
	out     io.Writer
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, compact: compact}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, compact bool) *Console {
	return &Console{out: w, compact: compact}
}

// NotifyCurves imprime cada curva: una línea en modo compacto o la tabla completa.
func (c *Console) NotifyCurves(_ context.Context, curves []domain.YieldCurveData) error {
	if len(curves) == 0 {
		fmt.Fprintf(c.out, "[%s] no curves\n", time.Now().Format("15:04:05"))
		return nil
	}
	for _, curve := range curves {
		if c.compact {
			c.printCompact(curve)
		} else {
			c.printCurve(curve)
		}
	}
	return nil
}

// printCompact imprime la curva en una línea: cabecera y rendimientos clave.
func (c *Console) printCompact(curve domain.YieldCurveData) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s src:%s pts:%d",
		curve.Date.Format(domain.DateLayout), curve.Country, curve.Country.Currency(),
		curve.DataSource, curve.ValidCount())
	for _, m := range []domain.Maturity{domain.M3M, domain.M2Y, domain.M10Y, domain.M30Y} {
		if y, ok := curve.Yield(m); ok {
			fmt.Fprintf(&sb, " %s:%.2f", m, y)
		}
	}
	if s := curve.Spread10y2y(); s != nil {
		fmt.Fprintf(&sb, " 2s10s:%+.0fbp", *s*100)
	}
	if curve.Inverted() {
		sb.WriteString(" INVERTED")
	}
	fmt.Fprintln(c.out, sb.String())
}

// printCurve imprime la tabla de plazos con la cabecera de la curva.
func (c *Console) printCurve(curve domain.YieldCurveData) {
	fmt.Fprintf(c.out, "\n=== %s yield curve — %s (source: %s) ===\n",
		curve.Country, curve.Date.Format(domain.DateLayout), curve.DataSource)
	if curve.IsMock() {
		fmt.Fprintln(c.out, "  ⚠ MOCK data: no upstream source delivered a curve")
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Maturity", "Days", "Yield %", "Note")
	for _, p := range curve.Points {
		if !p.Valid() {
			continue
		}
		note := ""
		if p.Interpolated {
			note = "interpolated"
		}
		table.Append(string(p.Maturity), fmt.Sprintf("%d", p.Days), fmt.Sprintf("%.3f", p.Yield), note)
	}
	table.Render()

	if s := curve.Spread10y2y(); s != nil {
		state := "normal"
		if curve.Inverted() {
			state = "INVERTED"
		}
		fmt.Fprintf(c.out, "  10Y-2Y: %+.2f pp (%s)\n", *s, state)
	}
	if curve.PolicyRate != nil {
		fmt.Fprintf(c.out, "  Policy rate: %.2f%%\n", *curve.PolicyRate)
	}
}

// PrintAnalytics imprime el informe analítico completo.
func (c *Console) PrintAnalytics(r analytics.Report) {
	fmt.Fprintf(c.out, "\n=== %s analytics — %s (source: %s, history: %d curves) ===\n",
		r.Country, r.Date.Format(domain.DateLayout), r.DataSource, r.HistorySize)

	if r.Spreads != nil {
		fmt.Fprintf(c.out, "  Spreads (bp): 2s10s %+.1f | 2s30s %+.1f | 3m10s %+.1f | 5s30s %+.1f\n",
			r.Spreads.Spread2s10s, r.Spreads.Spread2s30s, r.Spreads.Spread3m10s, r.Spreads.Spread5s30s)
	} else {
		fmt.Fprintln(c.out, "  Spreads: n/a (missing maturities)")
	}
	for _, b := range r.Butterflies {
		fmt.Fprintf(c.out, "  Butterfly %s (%s/%s/%s): %+.1f bp\n", b.Name, b.Short1, b.Belly, b.Short2, b.Value)
	}
	c.printMetrics(r.Metrics)

	if len(r.Forwards) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Forward", "Rate %")
		for _, f := range r.Forwards {
			table.Append(f.Pair, fmt.Sprintf("%.3f", f.Forward))
		}
		table.Render()
	}

	if r.PCA != nil {
		fmt.Fprintf(c.out, "  PCA over %d curves, maturities %v\n", len(r.PCA.Scores), r.PCA.Maturities)
		for i, ev := range r.PCA.ExplainedVariance {
			fmt.Fprintf(c.out, "    PC%d explains %.1f%%\n", i+1, ev*100)
		}
	}

	c.printRolling(r.Rolling)

	if len(r.Daily) > 0 {
		fmt.Fprint(c.out, "  Daily (bp):")
		for _, m := range domain.AllMaturities() {
			if d, ok := r.Daily[m]; ok {
				fmt.Fprintf(c.out, " %s %+.1f", m, d)
			}
		}
		fmt.Fprintln(c.out)
	}
}

func (c *Console) printMetrics(m *analytics.CurveMetrics) {
	if m == nil {
		fmt.Fprintln(c.out, "  Metrics: n/a (missing maturities)")
		return
	}
	fmt.Fprintf(c.out, "  Level %.3f | Slope %+.3f | Curvature %+.3f\n", m.Level, m.Slope, m.Curvature)
	for _, ch := range []struct {
		label string
		v     *float64
	}{
		{"1y", m.SlopeChange1Y}, {"5y", m.SlopeChange5Y}, {"10y", m.SlopeChange10Y},
	} {
		if ch.v != nil {
			fmt.Fprintf(c.out, "  2s10s change vs %s ago: %+.3f pp\n", ch.label, *ch.v)
		}
	}
	if m.SteepestArea != nil {
		fmt.Fprintf(c.out, "  Steepest: %s→%s (%.3f)\n", m.SteepestArea.From, m.SteepestArea.To, m.SteepestArea.Spread)
	}
	if m.FlattestArea != nil {
		fmt.Fprintf(c.out, "  Flattest: %s→%s (%.3f)\n", m.FlattestArea.From, m.FlattestArea.To, m.FlattestArea.Spread)
	}
}

// printRolling muestra solo la última ventana de cada plazo.
func (c *Console) printRolling(rolling map[domain.Maturity][]analytics.RollingStat) {
	mats := make([]domain.Maturity, 0, len(rolling))
	for m, stats := range rolling {
		if len(stats) > 0 {
			mats = append(mats, m)
		}
	}
	if len(mats) == 0 {
		return
	}
	sort.Slice(mats, func(i, j int) bool { return mats[i].Days() < mats[j].Days() })

	table := tablewriter.NewWriter(c.out)
	table.Header("Rolling", "Window end", "Mean", "Std", "Min", "Max")
	for _, m := range mats {
		last := rolling[m][len(rolling[m])-1]
		table.Append(
			string(m),
			last.Date.Format(domain.DateLayout),
			fmt.Sprintf("%.3f", last.Mean),
			fmt.Sprintf("%.3f", last.Std),
			fmt.Sprintf("%.3f", last.Min),
			fmt.Sprintf("%.3f", last.Max),
		)
	}
	table.Render()
}

// PrintCoverage imprime lo almacenado por país.
func (c *Console) PrintCoverage(title string, stats []domain.StoreStats) {
	fmt.Fprintf(c.out, "\n%s\n", title)
	for _, s := range stats {
		if s.Count == 0 {
			fmt.Fprintf(c.out, "  %-7s 0 records\n", s.Country.Slug())
			continue
		}
		fmt.Fprintf(c.out, "  %-7s %d records (%s → %s)\n", s.Country.Slug(), s.Count,
			s.MinDate.Format(domain.DateLayout), s.MaxDate.Format(domain.DateLayout))
	}
}

// PrintPlan imprime las ventanas de un backfill en modo dry-run.
func (c *Console) PrintPlan(windows []backfill.Window) {
	fmt.Fprintln(c.out, "\nDry run: nothing will be written")
	for _, w := range windows {
		fmt.Fprintf(c.out, "  %-7s %s → %s\n", w.Country.Slug(),
			w.Start.Format(domain.DateLayout), w.End.Format(domain.DateLayout))
	}
}

// PrintBackfill imprime el resumen de un run.
func (c *Console) PrintBackfill(results []backfill.Result) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Country", "Range", "Series", "Failed", "Days", "Inserted", "Errors")
	for _, r := range results {
		table.Append(
			r.Country.Slug(),
			r.Start.Format(domain.DateLayout)+" → "+r.End.Format(domain.DateLayout),
			fmt.Sprintf("%d", r.Series),
			fmt.Sprintf("%d", r.SeriesFailed),
			fmt.Sprintf("%d", r.Dates),
			fmt.Sprintf("%d", r.Inserted),
			fmt.Sprintf("%d", r.Errors),
		)
	}
	table.Render()
}

// PrintGaps imprime las fechas que faltan y, si hubo relleno, el resultado.
func (c *Console) PrintGaps(res backfill.GapResult, dryRun bool) {
	fmt.Fprintf(c.out, "\n%s: %d missing weekdays\n", res.Country.Slug(), len(res.Missing))
	for _, d := range res.Missing {
		fmt.Fprintf(c.out, "  %s\n", d.Format(domain.DateLayout))
	}
	if dryRun {
		return
	}
	fmt.Fprintf(c.out, "  filled %d, unfillable %d, inserted %d, errors %d\n",
		res.Filled, res.Failed, res.Inserted, res.Errors)
}
