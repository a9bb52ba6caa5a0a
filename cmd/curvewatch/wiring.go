package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/curvewatch/config"
	"github.com/alejandrodnm/curvewatch/internal/acquisition"
	"github.com/alejandrodnm/curvewatch/internal/adapters/boc"
	"github.com/alejandrodnm/curvewatch/internal/adapters/cache"
	"github.com/alejandrodnm/curvewatch/internal/adapters/fmp"
	"github.com/alejandrodnm/curvewatch/internal/adapters/fred"
	"github.com/alejandrodnm/curvewatch/internal/adapters/storage"
	"github.com/alejandrodnm/curvewatch/internal/adapters/upstream"
	"github.com/alejandrodnm/curvewatch/internal/backfill"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/metrics"
	"github.com/alejandrodnm/curvewatch/internal/ports"
	"github.com/alejandrodnm/curvewatch/internal/retry"
)

// clients holds one upstream adapter per provider, sharing the metrics observer.
type clients struct {
	fred *fred.Client
	fmp  *fmp.Client
	boc  *boc.Client
}

func newClients(cfg *config.Config, reg *metrics.Registry) clients {
	common := []upstream.Option{
		upstream.WithTimeout(cfg.SourceTimeout()),
		upstream.WithObserver(reg),
	}
	with := func(perSec float64) []upstream.Option {
		return append(append([]upstream.Option{}, common...), upstream.WithRate(perSec, 1))
	}
	s := cfg.Sources
	return clients{
		fred: fred.NewClient(s.FREDBase, s.FREDAPIKey, with(s.FREDRatePerSec)...),
		fmp:  fmp.NewClient(s.FMPBase, s.FMPAPIKey, with(s.FMPRatePerSec)...),
		boc:  boc.NewClient(s.BoCBase, with(s.BoCRatePerSec)...),
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: config.Millis(cfg.Retry.InitialDelayMS),
	}
}

// newCoordinator builds the fallback chain. Sources without credentials are left out.
func newCoordinator(cfg *config.Config, c clients, curveCache ports.CurveCache, reg *metrics.Registry) *acquisition.Coordinator {
	src := acquisition.Sources{
		BoC:      c.boc,
		CAPolicy: c.boc,
	}
	if c.fmp.Configured() {
		src.FMP = c.fmp
	} else {
		slog.Debug("FMP_API_KEY not set, skipping FMP")
	}
	if c.fred.Configured() {
		src.FRED = c.fred
		src.FREDSeries = fred.TreasurySeries()
		src.USPolicy = fred.PolicyRate{Client: c.fred, Country: domain.CountryUS}
	} else {
		slog.Warn("FRED_API_KEY not set, US curve depends on FMP or falls back to mock")
	}

	return acquisition.New(src, curveCache, acquisition.Config{
		CacheTTL: cfg.CacheTTL(),
		Retry:    retryPolicy(cfg),
		Breaker: acquisition.BreakerConfig{
			ConsecutiveFailures: uint32(cfg.Breaker.ConsecutiveFailures),
			OpenTimeout:         time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		},
	}, acquisition.WithObserver(reg))
}

// newPipeline builds the backfill pipeline over FRED (US) and Valet (Canada).
func newPipeline(cfg *config.Config, c clients, store ports.CurveStore, reg *metrics.Registry) *backfill.Pipeline {
	sources := map[domain.Country]backfill.Source{
		domain.CountryCA: {Series: c.boc, IDs: boc.BackfillSeries(), DataSource: domain.SourceBoC},
	}
	if c.fred.Configured() {
		sources[domain.CountryUS] = backfill.Source{Series: c.fred, IDs: fred.TreasurySeries(), DataSource: domain.SourceFRED}
	}

	bcfg := backfill.DefaultConfig()
	bcfg.BatchSize = cfg.Backfill.BatchSize
	bcfg.BatchDelay = config.Millis(cfg.Backfill.BatchDelayMS)
	bcfg.SeriesDelay = map[domain.Country]time.Duration{
		domain.CountryUS: config.Millis(cfg.Backfill.USSeriesDelayMS),
		domain.CountryCA: config.Millis(cfg.Backfill.CASeriesDelayMS),
	}
	bcfg.GapWindowDays = cfg.Backfill.GapWindowDays
	bcfg.Retry = retryPolicy(cfg)
	return backfill.New(store, sources, bcfg, backfill.WithObserver(reg))
}

func openStore(cfg *config.Config) (ports.CurveStore, error) {
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.DSN, cfg.StorageTimeout())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// openReadOnlyStore opens the store without creating it. A SQLite file that does
// not exist yet is reported as an empty in-memory store.
func openReadOnlyStore(cfg *config.Config) (ports.CurveStore, error) {
	store, err := storage.OpenReadOnly(cfg.Storage.Driver, cfg.Storage.DSN, cfg.StorageTimeout())
	if errors.Is(err, storage.ErrStoreNotFound) {
		slog.Info("store does not exist yet, reporting it as empty", "dsn", cfg.Storage.DSN)
		empty, err := storage.NewSQLiteStorage(":memory:")
		if err != nil {
			return nil, fmt.Errorf("open empty store: %w", err)
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open storage read-only: %w", err)
	}
	return store, nil
}

// openCache returns the configured curve cache and its closer. Backend "none" returns a nil cache.
func openCache(ctx context.Context, cfg *config.Config) (ports.CurveCache, func(), error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, func() {}, nil
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPass,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cache: %w", err)
		}
		return r, func() { r.Close() }, nil
	}

	mem := cache.NewMemory()
	stop := make(chan struct{})
	go sweep(mem, cfg.CacheTTL(), stop)
	return mem, func() { close(stop) }, nil
}

// sweep evicts expired curves from the in-memory cache until stop is closed.
func sweep(mem *cache.Memory, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := mem.Cleanup(); n > 0 {
				slog.Debug("cache sweep", "evicted", n, "remaining", mem.Len())
			}
		}
	}
}

func coverage(ctx context.Context, store ports.CurveStore, countries []domain.Country) []domain.StoreStats {
	out := make([]domain.StoreStats, 0, len(countries))
	for _, c := range countries {
		st, err := store.Stats(ctx, c)
		if err != nil {
			slog.Warn("coverage unavailable", "country", c, "err", err)
			continue
		}
		out = append(out, st)
	}
	return out
}
