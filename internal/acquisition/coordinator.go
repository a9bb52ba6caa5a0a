// Package acquisition resolves the current yield curve for a country by walking
// an ordered chain of upstream sources and falling back to a labeled mock curve.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/curve"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/ports"
	"github.com/alejandrodnm/curvewatch/internal/retry"
	"golang.org/x/sync/errgroup"
)

const DefaultCacheTTL = 15 * time.Minute

// Sources wires the upstream adapters. Nil entries are skipped in the chain.
type Sources struct {
	FMP        ports.CurveSource
	FRED       ports.SeriesSource
	FREDSeries map[domain.Maturity]string
	USPolicy   ports.PolicyRateSource

	BoC      ports.CurveSource
	CAPolicy ports.PolicyRateSource
}

// Config tunes the coordinator.
type Config struct {
	// MinPoints is the number of valid points a source must deliver to be accepted.
	MinPoints int
	CacheTTL  time.Duration
	Retry     retry.Policy
	Breaker   BreakerConfig
}

// Observer receives acquisition events (metrics).
type Observer interface {
	CurveServed(country domain.Country, source domain.DataSource)
	BreakerRejected(source domain.DataSource)
}

// Attempt records how one source of the chain fared.
type Attempt struct {
	Source domain.DataSource
	Points int
	Err    error
}

// Coordinator implements the fallback chain. Safe for concurrent use.
type Coordinator struct {
	src      Sources
	cache    ports.CurveCache
	cfg      Config
	breakers *breakers
	observer Observer
	now      func() time.Time
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New builds a Coordinator. Every source is wrapped with the retry policy.
// cache may be nil to disable caching.
func New(src Sources, cache ports.CurveCache, cfg Config, opts ...Option) *Coordinator {
	if cfg.MinPoints < 1 {
		cfg.MinPoints = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if src.FMP != nil {
		src.FMP = retry.Curve(src.FMP, cfg.Retry)
	}
	if src.FRED != nil {
		src.FRED = retry.Series(src.FRED, cfg.Retry)
	}
	if src.BoC != nil {
		src.BoC = retry.Curve(src.BoC, cfg.Retry)
	}
	if src.USPolicy != nil {
		src.USPolicy = retry.PolicyRate(src.USPolicy, cfg.Retry)
	}
	if src.CAPolicy != nil {
		src.CAPolicy = retry.PolicyRate(src.CAPolicy, cfg.Retry)
	}

	c := &Coordinator{
		src:      src,
		cache:    cache,
		cfg:      cfg,
		breakers: newBreakers(cfg.Breaker),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey is the cache key of a curve request. A nil date means "latest".
func CacheKey(country domain.Country, date *time.Time) string {
	if date == nil {
		return "curve:" + country.Slug() + ":latest"
	}
	return "curve:" + country.Slug() + ":" + date.Format(domain.DateLayout)
}

// CurrentCurve returns the curve for country on date (today when nil).
// It never fails: when no source delivers, the mock curve is returned with DataSource MOCK.
func (c *Coordinator) CurrentCurve(ctx context.Context, country domain.Country, date *time.Time) domain.YieldCurveData {
	out, _ := c.Resolve(ctx, country, date)
	return out
}

// Resolve is CurrentCurve plus the per-source outcomes of the chain, in call order.
func (c *Coordinator) Resolve(ctx context.Context, country domain.Country, date *time.Time) (domain.YieldCurveData, []Attempt) {
	key := CacheKey(country, date)
	if cached, ok := c.fromCache(ctx, key); ok {
		return cached, nil
	}

	target := domain.DateOnly(c.now())
	if date != nil {
		target = domain.DateOnly(*date)
	}

	var out domain.YieldCurveData
	var attempts []Attempt
	if country == domain.CountryCA {
		out, attempts = c.canada(ctx, target)
	} else {
		out, attempts = c.unitedStates(ctx, target)
	}

	if !out.IsMock() {
		c.toCache(ctx, key, out)
	}
	if c.observer != nil {
		c.observer.CurveServed(country, out.DataSource)
	}
	return out, attempts
}

// BreakerState reports the circuit breaker state of a source.
func (c *Coordinator) BreakerState(source domain.DataSource) string {
	return c.breakers.state(source)
}

func (c *Coordinator) unitedStates(ctx context.Context, target time.Time) (domain.YieldCurveData, []Attempt) {
	var attempts []Attempt

	if c.src.FMP != nil {
		got, err := c.guard(domain.SourceFMP, func() (domain.YieldCurveData, error) {
			return c.fromCurveSource(ctx, c.src.FMP, domain.CountryUS, domain.SourceFMP, target)
		})
		attempts = append(attempts, Attempt{Source: domain.SourceFMP, Points: got.ValidCount(), Err: err})
		if err == nil {
			return c.withPolicyRate(ctx, got, c.src.USPolicy, target), attempts
		}
		slog.Warn("commercial source failed, falling back", "source", domain.SourceFMP, "err", err)
	}

	if c.src.FRED != nil && len(c.src.FREDSeries) > 0 {
		got, err := c.guard(domain.SourceFRED, func() (domain.YieldCurveData, error) {
			return c.fromSeries(ctx, target)
		})
		attempts = append(attempts, Attempt{Source: domain.SourceFRED, Points: got.ValidCount(), Err: err})
		if err == nil {
			return c.withPolicyRate(ctx, got, c.src.USPolicy, target), attempts
		}
		slog.Warn("statistical source failed, falling back", "source", domain.SourceFRED, "err", err)
	}

	slog.Warn("no upstream curve available, serving mock data", "country", domain.CountryUS, "date", target.Format(domain.DateLayout))
	return domain.MockCurve(domain.CountryUS, target, c.now()), attempts
}

func (c *Coordinator) canada(ctx context.Context, target time.Time) (domain.YieldCurveData, []Attempt) {
	var attempts []Attempt

	if c.src.BoC != nil {
		got, err := c.guard(domain.SourceBoC, func() (domain.YieldCurveData, error) {
			return c.fromCurveSource(ctx, c.src.BoC, domain.CountryCA, domain.SourceBoC, target)
		})
		attempts = append(attempts, Attempt{Source: domain.SourceBoC, Points: got.ValidCount(), Err: err})
		if err == nil {
			return c.withPolicyRate(ctx, got, c.src.CAPolicy, target), attempts
		}
		slog.Warn("national bank source failed, falling back", "source", domain.SourceBoC, "err", err)
	}

	slog.Warn("no upstream curve available, serving mock data", "country", domain.CountryCA, "date", target.Format(domain.DateLayout))
	return domain.MockCurve(domain.CountryCA, target, c.now()), attempts
}

// guard runs fn through the source's circuit breaker.
func (c *Coordinator) guard(source domain.DataSource, fn func() (domain.YieldCurveData, error)) (domain.YieldCurveData, error) {
	res, err := c.breakers.get(source).Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if isBreakerRejection(err) && c.observer != nil {
			c.observer.BreakerRejected(source)
		}
		if got, ok := res.(domain.YieldCurveData); ok {
			return got, err
		}
		return domain.YieldCurveData{}, err
	}
	return res.(domain.YieldCurveData), nil
}

// fromCurveSource fetches a whole curve in one call (FMP, BoC group).
func (c *Coordinator) fromCurveSource(ctx context.Context, src ports.CurveSource, country domain.Country, source domain.DataSource, target time.Time) (domain.YieldCurveData, error) {
	raw, date, err := src.FetchCurve(ctx, target)
	if err != nil {
		return domain.YieldCurveData{}, err
	}
	if date.IsZero() {
		date = target
	}
	got := curve.Assemble(country, date, raw, source, c.now())
	if country == domain.CountryCA {
		got = curve.FillCanadaGaps(got)
	}
	if !curve.Sufficient(got, c.cfg.MinPoints) {
		return got, fmt.Errorf("%s: %d valid points: %w", source, got.ValidCount(), domain.ErrInsufficientData)
	}
	return got, nil
}

// fromSeries fetches every maturity concurrently. A failed maturity is omitted
// and never cancels the others.
func (c *Coordinator) fromSeries(ctx context.Context, target time.Time) (domain.YieldCurveData, error) {
	maturities := make([]domain.Maturity, 0, len(c.src.FREDSeries))
	for m := range c.src.FREDSeries {
		maturities = append(maturities, m)
	}
	sort.Slice(maturities, func(i, j int) bool { return maturities[i].Days() < maturities[j].Days() })

	type result struct {
		obs domain.Observation
		ok  bool
		err error
	}
	results := make([]result, len(maturities))

	var g errgroup.Group
	for i, m := range maturities {
		seriesID := c.src.FREDSeries[m]
		g.Go(func() error {
			obs, ok, err := c.src.FRED.Latest(ctx, seriesID, target)
			results[i] = result{obs: obs, ok: ok, err: err}
			return nil
		})
	}
	_ = g.Wait()

	values := make(map[domain.Maturity]float64, len(maturities))
	dates := make(map[domain.Maturity]time.Time, len(maturities))
	var latest time.Time
	var errs []error
	for i, m := range maturities {
		r := results[i]
		switch {
		case r.err != nil:
			slog.Debug("maturity fetch failed", "source", domain.SourceFRED, "maturity", m, "err", r.err)
			errs = append(errs, r.err)
		case !r.ok:
			slog.Debug("maturity has no data", "source", domain.SourceFRED, "maturity", m)
		default:
			values[m] = r.obs.Value
			dates[m] = r.obs.Date
			if r.obs.Date.After(latest) {
				latest = r.obs.Date
			}
		}
	}
	if latest.IsZero() {
		latest = target
	}

	got := curve.AssembleValues(domain.CountryUS, latest, values, domain.SourceFRED, c.now())
	for i := range got.Points {
		got.Points[i].Date = dates[got.Points[i].Maturity]
	}
	if !curve.Sufficient(got, c.cfg.MinPoints) {
		err := fmt.Errorf("%s: %d valid points: %w", domain.SourceFRED, got.ValidCount(), domain.ErrInsufficientData)
		if len(errs) > 0 {
			err = errors.Join(err, errors.Join(errs...))
		}
		return got, err
	}
	return got, nil
}

// withPolicyRate attaches the policy rate when available. Failure leaves it nil.
func (c *Coordinator) withPolicyRate(ctx context.Context, got domain.YieldCurveData, src ports.PolicyRateSource, target time.Time) domain.YieldCurveData {
	if src == nil {
		return got
	}
	rate, err := src.PolicyRate(ctx, target)
	if err != nil || math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		slog.Debug("policy rate unavailable", "country", got.Country, "err", err)
		return got
	}
	got.PolicyRate = &rate
	return got
}

func (c *Coordinator) fromCache(ctx context.Context, key string) (domain.YieldCurveData, bool) {
	if c.cache == nil {
		return domain.YieldCurveData{}, false
	}
	got, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("curve cache read failed", "key", key, "err", err)
		return domain.YieldCurveData{}, false
	}
	return got, ok
}

func (c *Coordinator) toCache(ctx context.Context, key string, got domain.YieldCurveData) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, got, c.cfg.CacheTTL); err != nil {
		slog.Warn("curve cache write failed", "key", key, "err", err)
	}
}
