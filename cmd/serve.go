package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"markket/internal/loader"
	"markket/internal/receipt"
	"markket/internal/web"
)

var (
	flagListen string
	flagWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		gw := newGateway()
		deps := web.Deps{
			Store:       st,
			Receipts:    &receipt.Resolver{Lookup: gw, Logger: logger},
			Payments:    gw,
			Subscribers: gw,
			Lang:        cfg.Language(),
			Location:    time.Local,
			Logger:      logger,
			RateLimit:   rate.Limit(cfg.APIRate),
			Burst:       cfg.APIBurst,
		}

		var set *loader.Set
		if set, err = newLoaderSet(st); err != nil {
			logger.Warn("sync endpoint disabled", "err", err)
		} else {
			deps.Sync = set
		}

		addr := cfg.Listen
		if flagListen != "" {
			addr = flagListen
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return web.NewServer(deps).Run(ctx, addr)
		})
		if flagWatch && set != nil {
			g.Go(func() error {
				watch(ctx, set, cfg.SyncInterval)
				return nil
			})
		}
		return g.Wait()
	},
}

// watch keeps collections fresh until ctx ends. Loaders skip collections
// synced within the interval.
func watch(ctx context.Context, set *loader.Set, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := set.SyncAll(ctx, nil, false, nil); err != nil && ctx.Err() == nil {
			logger.Warn("background sync failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default $MARKKET_LISTEN)")
	serveCmd.Flags().BoolVar(&flagWatch, "watch", false, "re-sync stale collections in the background")
	rootCmd.AddCommand(serveCmd)
}
