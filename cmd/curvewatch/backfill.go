package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/adapters/notify"
	"github.com/alejandrodnm/curvewatch/internal/backfill"
	"github.com/alejandrodnm/curvewatch/internal/metrics"
	"github.com/spf13/cobra"
)

func newBackfillCmd(root *rootOptions) *cobra.Command {
	var (
		months  int
		country string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Load historical daily curves into the store",
		Long: `Fetch every maturity series over the last N months, merge them into one record
per day and upsert the records in batches. --dry-run prints the plan and the
current store coverage without fetching.

Examples:
  curvewatch backfill --months 24 --country us
  curvewatch backfill --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg
			if !cmd.Flags().Changed("months") {
				months = cfg.Backfill.Months
			}

			countries, err := backfill.ParseCountries(country)
			if err != nil {
				return err
			}
			console := notify.NewConsole(false)
			windows := backfill.Plan(months, countries, time.Now())

			if dryRun {
				console.PrintPlan(windows)
				store, err := openReadOnlyStore(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				console.PrintCoverage("Coverage", coverage(ctx, store, countries))
				return nil
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			console.PrintCoverage("Coverage before", coverage(ctx, store, countries))
			console.PrintPlan(windows)

			reg := metrics.New(false)
			pipeline := newPipeline(cfg, newClients(cfg, reg), store, reg)

			var (
				results []backfill.Result
				failed  int
			)
			for _, w := range windows {
				res, err := pipeline.Backfill(ctx, w.Country, w.Start, w.End)
				if err != nil {
					slog.Error("backfill failed", "country", w.Country, "err", err)
					failed++
					if ctx.Err() != nil {
						break
					}
					continue
				}
				results = append(results, res)
			}

			console.PrintBackfill(results)
			console.PrintCoverage("Coverage after", coverage(ctx, store, countries))
			if failed > 0 {
				return fmt.Errorf("backfill: %d of %d countries failed", failed, len(windows))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&months, "months", 12, "months of history to load")
	cmd.Flags().StringVar(&country, "country", "both", "us|canada|both")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan and coverage without fetching")
	return cmd
}

func newFillGapsCmd(root *rootOptions) *cobra.Command {
	var (
		days    int
		country string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "fill-gaps",
		Short: "Fill missing weekdays in the stored history",
		Long: `List the weekdays of the last N days with no stored curve and fetch a small
window around each one. --dry-run only lists the missing dates.

Examples:
  curvewatch fill-gaps --days 30
  curvewatch fill-gaps --country canada --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg
			if !cmd.Flags().Changed("days") {
				days = cfg.Backfill.GapDays
			}

			countries, err := backfill.ParseCountries(country)
			if err != nil {
				return err
			}
			open := openStore
			if dryRun {
				open = openReadOnlyStore
			}
			store, err := open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := metrics.New(false)
			pipeline := newPipeline(cfg, newClients(cfg, reg), store, reg)
			console := notify.NewConsole(false)

			failed := 0
			for _, c := range countries {
				if dryRun {
					missing, err := pipeline.MissingDates(ctx, c, days)
					if err != nil {
						return err
					}
					console.PrintGaps(backfill.GapResult{Country: c, Missing: missing}, true)
					continue
				}
				res, err := pipeline.FillGaps(ctx, c, days)
				if err != nil {
					slog.Error("fill-gaps failed", "country", c, "err", err)
					failed++
					continue
				}
				console.PrintGaps(res, false)
			}
			if failed > 0 {
				return fmt.Errorf("fill-gaps: %d of %d countries failed", failed, len(countries))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "how many days back to check")
	cmd.Flags().StringVar(&country, "country", "both", "us|canada|both")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list missing dates without fetching")
	return cmd
}
