// Package backfill pulls historical yield series over a date range, merges them
// into one record per day and upserts them into the curve store in batches.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/ports"
	"github.com/alejandrodnm/curvewatch/internal/retry"
	"github.com/google/uuid"
)

// Config tunes the pipeline. Zero delays disable sleeping.
type Config struct {
	BatchSize     int
	BatchDelay    time.Duration
	SeriesDelay   map[domain.Country]time.Duration
	PrevLookback  time.Duration // tolerance around date-1 month for change1M
	GapWindowDays int           // ± days fetched around each missing date
	Retry         retry.Policy
}

// DefaultConfig returns the production pacing.
func DefaultConfig() Config {
	return Config{
		BatchSize:  50,
		BatchDelay: 100 * time.Millisecond,
		SeriesDelay: map[domain.Country]time.Duration{
			domain.CountryUS: 200 * time.Millisecond,
			domain.CountryCA: 300 * time.Millisecond,
		},
		PrevLookback:  7 * 24 * time.Hour,
		GapWindowDays: 5,
		Retry:         retry.Default(),
	}
}

// Source is the historical series provider of one country.
type Source struct {
	Series     ports.SeriesSource
	IDs        map[domain.Maturity]string
	DataSource domain.DataSource
}

// Observer receives per-batch outcomes (metrics).
type Observer interface {
	BackfillRecords(country domain.Country, result string, n int)
}

// Result summarises one run.
type Result struct {
	RunID        uuid.UUID
	Country      domain.Country
	Start, End   time.Time
	Series       int // series fetched without error
	SeriesFailed int
	Dates        int // dates that met the minimum maturity count
	Inserted     int
	Errors       int
}

// Pipeline is safe to reuse across runs but not for concurrent runs on one country.
type Pipeline struct {
	store    ports.CurveStore
	sources  map[domain.Country]Source
	cfg      Config
	observer Observer
	now      func() time.Time
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a Pipeline. Each series source is wrapped with the retry policy.
func New(store ports.CurveStore, sources map[domain.Country]Source, cfg Config, opts ...Option) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.GapWindowDays <= 0 {
		cfg.GapWindowDays = 5
	}
	wrapped := make(map[domain.Country]Source, len(sources))
	for c, s := range sources {
		if s.Series != nil {
			s.Series = retry.Series(s.Series, cfg.Retry)
		}
		wrapped[c] = s
	}
	p := &Pipeline{store: store, sources: wrapped, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backfill fetches every series of country over [start, end] with one range call
// per series, builds the daily records and upserts them. A failing series or batch
// is counted and the run continues. The error is non-nil only for an invalid range,
// an unknown country or a context cancelled before anything was written.
func (p *Pipeline) Backfill(ctx context.Context, country domain.Country, start, end time.Time) (Result, error) {
	start, end = domain.DateOnly(start), domain.DateOnly(end)
	res := Result{RunID: uuid.New(), Country: country, Start: start, End: end}
	if end.Before(start) {
		return res, fmt.Errorf("backfill.Backfill: %s > %s: %w",
			start.Format(domain.DateLayout), end.Format(domain.DateLayout), domain.ErrInvalidRange)
	}
	src, ok := p.sources[country]
	if !ok || src.Series == nil {
		return res, fmt.Errorf("backfill.Backfill: no series source for %s", country)
	}

	log := slog.With("run_id", res.RunID.String(), "country", country.Slug())
	log.Info("backfill started", "start", start.Format(domain.DateLayout), "end", end.Format(domain.DateLayout))

	byDate, fetched, failed := p.fetchAll(ctx, log, country, src, start, end)
	res.Series, res.SeriesFailed = fetched, failed
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("backfill.Backfill: %w", err)
	}

	records := buildRecords(country, byDate, src.DataSource)
	res.Dates = len(records)
	p.applyPrevious(ctx, country, records)

	res.Inserted, res.Errors = p.write(ctx, log, country, records)
	if res.Inserted+res.Errors == 0 && len(records) > 0 && ctx.Err() != nil {
		return res, fmt.Errorf("backfill.Backfill: %w", ctx.Err())
	}

	log.Info("backfill finished",
		"series", res.Series, "series_failed", res.SeriesFailed,
		"dates", res.Dates, "inserted", res.Inserted, "errors", res.Errors)
	return res, nil
}

// fetchAll runs one range call per series, sequentially, pausing between series.
func (p *Pipeline) fetchAll(ctx context.Context, log *slog.Logger, country domain.Country, src Source, from, to time.Time) (map[time.Time]map[domain.Maturity]float64, int, int) {
	byDate := make(map[time.Time]map[domain.Maturity]float64)
	fetched, failed := 0, 0

	for i, m := range orderedMaturities(src.IDs) {
		if i > 0 {
			if err := sleep(ctx, p.cfg.SeriesDelay[country]); err != nil {
				break
			}
		}
		id := src.IDs[m]
		obs, err := src.Series.FetchObservations(ctx, id, from, to)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failed++
			log.Warn("series fetch failed", "maturity", m, "series", id, "error", err)
			continue
		}
		fetched++
		log.Debug("series fetched", "maturity", m, "series", id, "observations", len(obs))
		for _, o := range obs {
			if !domain.IsValidYield(o.Value) {
				continue
			}
			d := domain.DateOnly(o.Date)
			if byDate[d] == nil {
				byDate[d] = make(map[domain.Maturity]float64)
			}
			byDate[d][m] = o.Value
		}
	}
	return byDate, fetched, failed
}

// buildRecords keeps the dates with at least the country minimum of maturities,
// sorted by date.
func buildRecords(country domain.Country, byDate map[time.Time]map[domain.Maturity]float64, source domain.DataSource) []domain.HistoricalCurveRecord {
	records := make([]domain.HistoricalCurveRecord, 0, len(byDate))
	for d, values := range byDate {
		if len(values) < country.MinMaturities() {
			continue
		}
		records = append(records, domain.NewHistoricalRecord(country, d, values, source))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].DataDate.Before(records[j].DataDate) })
	return records
}

// applyPrevious fills change1M and prevValue from the record nearest to one month
// earlier: first among the records being written, then from the store.
func (p *Pipeline) applyPrevious(ctx context.Context, country domain.Country, records []domain.HistoricalCurveRecord) {
	tol := p.cfg.PrevLookback
	if tol <= 0 {
		return
	}
	for i := range records {
		target := records[i].DataDate.AddDate(0, -1, 0)
		if prev, ok := nearestIn(records[:i], target, tol); ok {
			records[i].ApplyPrevious(prev)
			continue
		}
		if p.store == nil {
			continue
		}
		prev, ok, err := p.store.Nearest(ctx, country, target, tol)
		if err != nil {
			slog.Debug("previous record lookup failed", "country", country.Slug(), "date", target.Format(domain.DateLayout), "error", err)
			continue
		}
		if ok {
			records[i].ApplyPrevious(prev)
		}
	}
}

// nearestIn searches date-sorted records for the one closest to target within tol.
func nearestIn(sorted []domain.HistoricalCurveRecord, target time.Time, tol time.Duration) (domain.HistoricalCurveRecord, bool) {
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].DataDate.Before(target) })
	best, found := domain.HistoricalCurveRecord{}, false
	var bestGap time.Duration
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(sorted) {
			continue
		}
		gap := sorted[j].DataDate.Sub(target)
		if gap < 0 {
			gap = -gap
		}
		if gap <= tol && (!found || gap < bestGap) {
			best, bestGap, found = sorted[j], gap, true
		}
	}
	return best, found
}

// write upserts in batches, pausing between them. A failed batch counts all of
// its records as errors. Cancellation stops before the next batch.
func (p *Pipeline) write(ctx context.Context, log *slog.Logger, country domain.Country, records []domain.HistoricalCurveRecord) (inserted, errs int) {
	size := p.cfg.BatchSize
	for start := 0; start < len(records); start += size {
		if start > 0 {
			if err := sleep(ctx, p.cfg.BatchDelay); err != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}
		end := min(start+size, len(records))
		batch := records[start:end]

		if err := p.store.UpsertBatch(ctx, batch); err != nil {
			errs += len(batch)
			log.Error("batch upsert failed", "from", start, "to", end, "error", err)
			p.observe(country, "error", len(batch))
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			continue
		}
		inserted += len(batch)
		p.observe(country, "inserted", len(batch))
		log.Debug("batch upserted", "inserted", inserted, "total", len(records))
	}
	return inserted, errs
}

func (p *Pipeline) observe(country domain.Country, result string, n int) {
	if p.observer != nil {
		p.observer.BackfillRecords(country, result, n)
	}
}

func orderedMaturities(ids map[domain.Maturity]string) []domain.Maturity {
	out := make([]domain.Maturity, 0, len(ids))
	for _, m := range domain.AllMaturities() {
		if _, ok := ids[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
