// Package main is the entry point for the market-data ingestion worker.
// It wires C1 TSWriter, C2 NewsStore, C3 RealtimeFeed (fast + delayed),
// C4 Scheduler and the control surface, then runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavepilot/ingest/internal/config"
	"github.com/wavepilot/ingest/internal/control"
	"github.com/wavepilot/ingest/internal/marketclock"
	"github.com/wavepilot/ingest/internal/massiveapi"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/newsstore"
	"github.com/wavepilot/ingest/internal/objectstore"
	"github.com/wavepilot/ingest/internal/realtimefeed/delayedfeed"
	"github.com/wavepilot/ingest/internal/realtimefeed/fastfeed"
	"github.com/wavepilot/ingest/internal/scheduler"
	"github.com/wavepilot/ingest/internal/secretstore"
	"github.com/wavepilot/ingest/internal/tswriter"
	"github.com/wavepilot/ingest/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	logger.SetGlobalLogger(log)
	log.Info().Msg("starting ingestion worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	secrets, err := secretstore.New(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build secret store client")
	}

	apiKeys, err := secrets.GetSecret(ctx, cfg.APIKeysSecretARN)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch API keys secret, producers needing it will stay disabled")
		apiKeys = map[string]string{}
	}

	massiveClient := massiveapi.NewClient(cfg.MassiveBaseURL, apiKeys["MASSIVE_API_KEY"])

	calendar, err := marketclock.NewUSCalendar()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build US market calendar")
	}
	clock := marketclock.NewService(calendar, massiveClient, log)

	watchlist := model.NewWatchlist(cfg.DefaultWatchlist)

	writer := tswriter.New(cfg, secrets, log)
	defer writer.Close()

	objects, err := objectstore.New(ctx, cfg.AWSRegion, cfg.DataBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object store client")
	}
	news := newsstore.New(objects, writer, log)

	fast := fastfeed.New(apiKeys["ALPACA_API_KEY"], apiKeys["ALPACA_API_SECRET"], clock, writer, log)
	delayed := delayedfeed.New(cfg.MassiveDelayedWSURL, apiKeys["MASSIVE_API_KEY"], clock, writer, log)

	sched := scheduler.New(scheduler.Deps{
		Upstream:  massiveClient,
		Writer:    writer,
		News:      news,
		Watchlist: watchlist,
		Clock:     clock,
		Log:       log,
	})

	ctrl := control.New(cfg.HealthCheckPort, fast, delayed, sched, watchlist, log)

	// The control surface must be listening before any producer starts
	// (spec §9): health checks must succeed even while TSWriter is still
	// lazily initialising on its first write.
	go func() {
		if err := ctrl.Start(); err != nil {
			log.Fatal().Err(err).Msg("control surface failed")
		}
	}()
	log.Info().Int("port", cfg.HealthCheckPort).Msg("control surface listening")

	if cfg.EnableRealtime {
		fast.Connect(ctx)
		delayed.Connect(ctx)
		fast.Subscribe(ctx, watchlist.Tickers()...)
		delayed.Subscribe(ctx, watchlist.Tickers()...)
		log.Info().Msg("realtime feeds started")
	}

	if cfg.EnableScheduler {
		sched.Start(ctx)
		log.Info().Msg("scheduler started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping")

	// Shutdown ordering (spec §5): flip shouldBeConnected=false on both
	// feeds, stop the scheduler, then close the control surface last so
	// in-flight health checks can still be served.
	if cfg.EnableRealtime {
		fast.Disconnect()
		delayed.Disconnect()
	}
	if cfg.EnableScheduler {
		sched.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("control surface forced to shut down")
	}

	log.Info().Msg("ingestion worker stopped")
}
