package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/opensource-finance/warden/internal/authz"
	"github.com/opensource-finance/warden/internal/ops"
	"github.com/opensource-finance/warden/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer authorization requests from the event bus",
		Long: `Start the authorization worker, the cache invalidator, the merchant code
refresher and the ops listener (/health, /ready, /metrics).

Examples:
  warden serve
  WARDEN_TIER=pro warden serve --ops-addr :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Ops.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			slog.Info("starting warden",
				"version", Version,
				"commit", Commit,
				"build_date", BuildDate,
			)
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "ops-addr", "", "ops listener address (default from config)")
	return cmd
}

// serve runs every long-lived component until ctx is done or one of them fails.
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	w := worker.NewWorker(a.bus, a.orch, a.repo)
	g.Go(func() error {
		return w.Run(ctx)
	})

	inv := authz.NewInvalidator(a.bus, a.source, a.exprs)
	g.Go(func() error {
		return inv.Run(ctx)
	})

	if interval := a.cfg.Engine.MCCRefreshInterval; interval > 0 {
		g.Go(func() error {
			return a.classifier.Run(ctx, interval)
		})
	}

	srv := ops.NewServer(a.cfg.Ops.Addr, Version, a.registry, map[string]ops.Pinger{
		"repository": a.repo,
		"cache":      a.cache,
		"event_bus":  a.bus,
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})

	slog.Info("warden is ready", "ops_addr", a.cfg.Ops.Addr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("warden shutdown complete")
	return nil
}
