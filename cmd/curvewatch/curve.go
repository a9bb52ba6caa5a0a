package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/notify"
	"github.com/alejandrodnm/curvewatch/internal/backfill"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/metrics"
	"github.com/alejandrodnm/curvewatch/internal/ports"
	"github.com/spf13/cobra"
)

func newCurveCmd(root *rootOptions) *cobra.Command {
	var (
		country string
		date    string
		compact bool
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Fetch and print the current yield curve",
		Long: `Fetch the yield curve through the fallback chain (FMP, FRED, Bank of Canada)
and print it. Falls back to a labeled MOCK curve when no source delivers.

Examples:
  curvewatch curve
  curvewatch curve --country canada --date 2024-08-05
  curvewatch curve --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg

			countries, err := backfill.ParseCountries(country)
			if err != nil {
				return err
			}
			var at *time.Time
			if date != "" {
				d, err := domain.ParseDate(date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				at = &d
			}

			reg := metrics.New(false)
			curveCache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()
			coord := newCoordinator(cfg, newClients(cfg, reg), curveCache, reg)

			curves := make([]domain.YieldCurveData, 0, len(countries))
			for _, c := range countries {
				curves = append(curves, coord.CurrentCurve(ctx, c, at))
			}
			var notifier ports.Notifier = notify.NewConsole(compact)
			if err := notifier.NotifyCurves(ctx, curves); err != nil {
				slog.Warn("notifier error", "err", err)
			}

			if !save {
				return nil
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records := make([]domain.HistoricalCurveRecord, 0, len(curves))
			for _, c := range curves {
				if c.IsMock() {
					slog.Warn("not saving mock curve", "country", c.Country)
					continue
				}
				records = append(records, domain.RecordFromCurve(c))
			}
			if err := store.UpsertBatch(ctx, records); err != nil {
				return fmt.Errorf("save curves: %w", err)
			}
			slog.Info("curves saved", "count", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "both", "us|canada|both")
	cmd.Flags().StringVar(&date, "date", "", "curve date YYYY-MM-DD (default: latest)")
	cmd.Flags().BoolVar(&compact, "compact", false, "one line per curve instead of a table")
	cmd.Flags().BoolVar(&save, "save", false, "upsert the fetched curves into the store (mock curves are skipped)")
	return cmd
}
