package main

import (
	"fmt"

	"github.com/alejandrodnm/curvewatch/internal/adapters/notify"
	"github.com/alejandrodnm/curvewatch/internal/analytics"
	"github.com/alejandrodnm/curvewatch/internal/backfill"
	"github.com/alejandrodnm/curvewatch/internal/domain"
	"github.com/alejandrodnm/curvewatch/internal/metrics"
	"github.com/spf13/cobra"
)

func newAnalyticsCmd(root *rootOptions) *cobra.Command {
	var (
		country     string
		historyDays int
		window      int
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print spreads, butterflies, forwards, PCA and rolling stats",
		Long: `Fetch the current curve, load the stored history and print the full
analytics battery for each country.

Examples:
  curvewatch analytics --country us
  curvewatch analytics --history-days 365 --window 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg
			if !cmd.Flags().Changed("history-days") {
				historyDays = cfg.Server.HistoryDays
			}
			if !cmd.Flags().Changed("window") {
				window = cfg.Server.RollingWindow
			}
			if historyDays <= 0 || window <= 0 {
				return fmt.Errorf("--history-days and --window must be positive")
			}

			countries, err := backfill.ParseCountries(country)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := metrics.New(false)
			curveCache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()
			coord := newCoordinator(cfg, newClients(cfg, reg), curveCache, reg)
			console := notify.NewConsole(false)

			for _, c := range countries {
				current := coord.CurrentCurve(ctx, c, nil)
				end := domain.DateOnly(current.Date)
				records, err := store.Range(ctx, c, end.AddDate(0, 0, -historyDays), end)
				if err != nil {
					return fmt.Errorf("load history %s: %w", c, err)
				}
				history := make([]domain.YieldCurveData, 0, len(records))
				for _, r := range records {
					history = append(history, r.Curve())
				}
				console.PrintAnalytics(analytics.Build(current, history, window))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "us", "us|canada|both")
	cmd.Flags().IntVar(&historyDays, "history-days", 3650, "days of stored history to analyse")
	cmd.Flags().IntVar(&window, "window", 30, "rolling window in observations")
	return cmd
}
