package main

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/curvewatch/internal/api"
	"github.com/alejandrodnm/curvewatch/internal/metrics"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve curves, analytics and history over HTTP",
		Long: `Start the HTTP API:

  GET /api/yield-curve?country=us|canada|both[&date=YYYY-MM-DD]
  GET /api/yield-curve/analytics?country=&history_days=&window=
  GET /api/yield-curve/history?country=&from=&to=
  GET /metrics
  GET /health

Nothing is scheduled; curves are fetched on request and cached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := metrics.New(true)
			curveCache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()
			coord := newCoordinator(cfg, newClients(cfg, reg), curveCache, reg)

			srv := api.NewServer(api.Config{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
				HistoryDays:  cfg.Server.HistoryDays,
				Window:       cfg.Server.RollingWindow,
			}, coord, store, reg.Handler())

			slog.Info("curvewatch serving", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver, "cache", cfg.Cache.Backend)
			if err := srv.Run(ctx); err != nil {
				return err
			}
			slog.Info("curvewatch stopped cleanly")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
