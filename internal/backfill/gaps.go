package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/google/uuid"
)

// GapResult summarises a FillGaps run.
type GapResult struct {
	RunID    uuid.UUID
	Country  domain.Country
	Missing  []time.Time
	Filled   int // missing dates that produced a usable record
	Failed   int // missing dates without enough maturities
	Inserted int
	Errors   int
}

// MissingDates lists the weekdays in [now-days, now] with no stored record.
func (p *Pipeline) MissingDates(ctx context.Context, country domain.Country, days int) ([]time.Time, error) {
	if days <= 0 {
		return nil, fmt.Errorf("backfill.MissingDates: days must be positive: %w", domain.ErrInvalidRange)
	}
	end := domain.DateOnly(p.now())
	start := end.AddDate(0, 0, -days)

	existing, err := p.store.Dates(ctx, country, start, end)
	if err != nil {
		return nil, fmt.Errorf("backfill.MissingDates: %w", err)
	}
	return MissingWeekdays(existing, start, end), nil
}

// MissingWeekdays returns the Monday-Friday dates in [from, to] absent from existing.
func MissingWeekdays(existing []time.Time, from, to time.Time) []time.Time {
	have := make(map[time.Time]bool, len(existing))
	for _, d := range existing {
		have[domain.DateOnly(d)] = true
	}
	var out []time.Time
	for d := domain.DateOnly(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if !have[d] {
			out = append(out, d)
		}
	}
	return out
}

// FillGaps fetches a small window around each missing weekday and keeps, per
// series, the latest observation on or before the date. The record is dated by the
// oldest observation it uses, so a market holiday resolves to the prior session.
func (p *Pipeline) FillGaps(ctx context.Context, country domain.Country, days int) (GapResult, error) {
	res := GapResult{RunID: uuid.New(), Country: country}
	src, ok := p.sources[country]
	if !ok || src.Series == nil {
		return res, fmt.Errorf("backfill.FillGaps: no series source for %s", country)
	}

	missing, err := p.MissingDates(ctx, country, days)
	if err != nil {
		return res, err
	}
	res.Missing = missing

	log := slog.With("run_id", res.RunID.String(), "country", country.Slug())
	log.Info("filling gaps", "missing", len(missing))

	byKey := make(map[time.Time]domain.HistoricalCurveRecord)
	for _, date := range missing {
		if ctx.Err() != nil {
			break
		}
		rec, ok := p.recordAround(ctx, log, country, src, date)
		if !ok {
			res.Failed++
			continue
		}
		res.Filled++
		byKey[rec.DataDate] = rec
	}
	if ctx.Err() != nil && len(byKey) == 0 {
		return res, fmt.Errorf("backfill.FillGaps: %w", ctx.Err())
	}

	records := make([]domain.HistoricalCurveRecord, 0, len(byKey))
	for _, r := range byKey {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].DataDate.Before(records[j].DataDate) })
	p.applyPrevious(ctx, country, records)

	res.Inserted, res.Errors = p.write(ctx, log, country, records)
	log.Info("gaps filled", "filled", res.Filled, "failed", res.Failed, "inserted", res.Inserted, "errors", res.Errors)
	return res, nil
}

func (p *Pipeline) recordAround(ctx context.Context, log *slog.Logger, country domain.Country, src Source, date time.Time) (domain.HistoricalCurveRecord, bool) {
	window := p.cfg.GapWindowDays
	from, to := date.AddDate(0, 0, -window), date.AddDate(0, 0, window)

	values := make(map[domain.Maturity]float64)
	var oldest time.Time
	for i, m := range orderedMaturities(src.IDs) {
		if i > 0 {
			if err := sleep(ctx, p.cfg.SeriesDelay[country]); err != nil {
				return domain.HistoricalCurveRecord{}, false
			}
		}
		obs, err := src.Series.FetchObservations(ctx, src.IDs[m], from, to)
		if err != nil {
			log.Warn("gap series fetch failed", "date", date.Format(domain.DateLayout), "maturity", m, "error", err)
			continue
		}
		o, ok := latestOnOrBefore(obs, date)
		if !ok {
			continue
		}
		values[m] = o.Value
		if d := domain.DateOnly(o.Date); oldest.IsZero() || d.Before(oldest) {
			oldest = d
		}
	}
	if len(values) < country.MinMaturities() {
		log.Debug("gap not fillable", "date", date.Format(domain.DateLayout), "maturities", len(values))
		return domain.HistoricalCurveRecord{}, false
	}
	return domain.NewHistoricalRecord(country, oldest, values, src.DataSource), true
}

func latestOnOrBefore(obs []domain.Observation, date time.Time) (domain.Observation, bool) {
	var best domain.Observation
	found := false
	for _, o := range obs {
		if !domain.IsValidYield(o.Value) || domain.DateOnly(o.Date).After(date) {
			continue
		}
		if !found || o.Date.After(best.Date) {
			best, found = o, true
		}
	}
	return best, found
}
