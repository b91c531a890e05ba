package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eventbook/eventbook/params"
	"github.com/eventbook/eventbook/pkg/api"
	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/maker"
	"github.com/eventbook/eventbook/pkg/market"
	"github.com/eventbook/eventbook/pkg/positions"
	"github.com/eventbook/eventbook/pkg/storage"
	"github.com/eventbook/eventbook/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Market catalog
	registry := market.NewRegistry()
	for _, seed := range cfg.SeedMarkets {
		eventID, optionID, err := params.ParseInstrument(seed)
		if err != nil {
			log.Fatalw("bad_seed_market", "entry", seed, "err", err)
		}
		in := market.Instrument{EventID: eventID, OptionID: optionID}
		mkt, err := market.NewWithDefaults(in, fmt.Sprintf("Event %d / Option %d", eventID, optionID))
		if err != nil {
			log.Fatalw("bad_seed_market", "entry", seed, "err", err)
		}
		if err := registry.Register(mkt); err != nil {
			log.Fatalw("bad_seed_market", "entry", seed, "err", err)
		}
	}
	log.Infow("markets_seeded", "count", registry.Count())

	// Event fan-out
	dispatcher := engine.NewDispatcher(log, cfg.Events.Buffer)

	if cfg.Storage.Enabled {
		store, err := storage.NewStore(cfg.Storage.Path, log)
		if err != nil {
			log.Fatalw("storage_open_failed", "path", cfg.Storage.Path, "err", err)
		}
		defer store.Close()
		dispatcher.Subscribe(store)
	}

	tracker := positions.NewTracker(log)
	dispatcher.Subscribe(tracker)

	hub := api.NewHub(log)
	dispatcher.Subscribe(hub)

	go dispatcher.Run(ctx)

	// Matching engine
	eng := engine.NewEngine(log, registry, dispatcher, util.RealClock{})

	if cfg.Maker.Enabled {
		mm := maker.New(log, eng, maker.Config{
			UserID:       cfg.Maker.UserID,
			InitialPrice: cfg.Maker.InitialPrice,
			Spread:       cfg.Maker.Spread,
			Levels:       cfg.Maker.Levels,
			LevelQty:     cfg.Maker.LevelQty,
			PriceStep:    cfg.Maker.PriceStep,
		})
		for _, mkt := range registry.ListActive() {
			placed, err := mm.Seed(mkt)
			if err != nil {
				log.Warnw("maker_seed_failed", "market", mkt.Instrument, "err", err)
				continue
			}
			log.Infow("maker_seeded", "market", mkt.Instrument, "orders", placed)
		}
	}

	server := api.NewServer(log, eng, registry, tracker, hub)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutdown_signal_received")
	case err := <-errCh:
		if err != nil {
			log.Errorw("server_error", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warnw("shutdown_error", "err", err)
	}
	log.Infow("engine_stopped", "dropped_events", dispatcher.Dropped())
}

func newLogger(cfg params.Config) (*zap.Logger, error) {
	if cfg.Log.File != "" {
		return util.NewLoggerWithFile(cfg.Log.File)
	}
	return util.NewLogger()
}
