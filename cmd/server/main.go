package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmateus/lexflash/internal/api"
	"github.com/dmateus/lexflash/internal/clock"
	"github.com/dmateus/lexflash/internal/config"
	"github.com/dmateus/lexflash/internal/connectivity"
	"github.com/dmateus/lexflash/internal/db"
	"github.com/dmateus/lexflash/internal/events"
	"github.com/dmateus/lexflash/internal/logger"
	"github.com/dmateus/lexflash/internal/remote"
	"github.com/dmateus/lexflash/internal/repository/sqlite"
	"github.com/dmateus/lexflash/internal/selector"
	"github.com/dmateus/lexflash/internal/services"
	"github.com/dmateus/lexflash/internal/syncengine"
	"github.com/dmateus/lexflash/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("LexFlash Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("remote_base_url=%s", cfg.RemoteBaseURL)
	log.Debug("sync_interval=%v", cfg.SyncInterval)
	log.Debug("sync_batch_size=%d", cfg.SyncBatchSize)
	log.Debug("conflict_policy=%s", cfg.ConflictPolicy)
	log.Debug("new_cards_per_day=%d", cfg.NewCardsPerDay)
	log.Debug("reviews_per_day=%d", cfg.ReviewsPerDay)
	log.Debug("session_limit=%d", cfg.SessionLimit)
	log.Debug("sync_worker_count=%d", cfg.SyncWorkers)
	log.Debug("sync_queue_size=%d", cfg.SyncQueueSize)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Initialize repositories
	cards := sqlite.NewCardRepository(database.DB)
	reviews := sqlite.NewReviewRepository(database.DB)
	settings := sqlite.NewSettingsRepository(database.DB)
	queue := sqlite.NewSyncQueueRepository(database.DB)
	meta := sqlite.NewMetaRepository(database.DB)

	bus := events.NewBus()
	clk := clock.System()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ctx, cancel := context.WithCancel(context.Background())

	// Connectivity: probe when an endpoint is configured, assume online
	// otherwise.
	var conn connectivity.Provider
	if cfg.ProbeURL != "" {
		prober := connectivity.NewProber(cfg.ProbeURL, cfg.ProbeInterval, cfg.ProbeTimeout)
		go prober.Run(ctx)
		conn = prober
	} else {
		log.Debug("no probe URL configured, assuming always online")
		conn = connectivity.NewStatic(true)
	}

	// Remote client and sync engine
	remoteClient := remote.New(cfg.RemoteBaseURL, cfg.RemoteToken, cfg.RemoteTimeout)
	engine := syncengine.New(syncengine.Deps{
		Cards:        cards,
		Reviews:      reviews,
		Settings:     settings,
		Queue:        queue,
		Meta:         meta,
		Remote:       remoteClient,
		Connectivity: conn,
		Bus:          bus,
		Clock:        clk,
		Policy:       syncengine.ParsePolicy(cfg.ConflictPolicy),
		BatchSize:    cfg.SyncBatchSize,
	})

	// Background sync: worker pool plus trigger (periodic, reconnect,
	// app-visible).
	syncPool := worker.NewPool(cfg.SyncWorkers, cfg.SyncQueueSize)
	syncPool.Start(ctx)
	trigger := syncengine.NewTrigger(engine, syncPool, conn, bus, cfg.SyncInterval)
	stopTrigger := trigger.Start(ctx)

	// Study service
	study := services.NewStudyService(cards, reviews, clk, rng, bus, services.StudyConfig{
		Caps: selector.Caps{
			NewPerDay:     cfg.NewCardsPerDay,
			ReviewsPerDay: cfg.ReviewsPerDay,
		},
		SessionLimit: cfg.SessionLimit,
	})

	srv := &api.Server{
		Study:    study,
		Sync:     engine,
		Cards:    cards,
		Remote:   remoteClient,
		Bus:      bus,
		Clock:    clk,
		Validate: validator.New(),
	}

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping sync trigger")
	stopTrigger()

	log.Debug("stopping background workers")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping sync pool")
	syncPool.Stop()

	log.Info("===========================================")
	log.Info("LexFlash Server Stopped")
	log.Info("===========================================")
}
