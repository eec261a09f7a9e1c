// Package main is the entry point for the Kairo condition server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MRamiBalles/kairo-condition/internal/engine"
	"github.com/MRamiBalles/kairo-condition/internal/events"
	"github.com/MRamiBalles/kairo-condition/internal/infra/cache"
	"github.com/MRamiBalles/kairo-condition/internal/infra/storage"
	"github.com/MRamiBalles/kairo-condition/internal/network"
	"github.com/MRamiBalles/kairo-condition/internal/platform/config"
	"github.com/MRamiBalles/kairo-condition/internal/platform/logger"
	"github.com/MRamiBalles/kairo-condition/internal/platform/metrics"
	"github.com/MRamiBalles/kairo-condition/internal/random"
	"github.com/MRamiBalles/kairo-condition/internal/roster"
	"github.com/MRamiBalles/kairo-condition/internal/session"
)

// bootstrap restores the season from storage, or seeds it from the roster
// file when the game has no snapshots yet. It returns the season day.
func bootstrap(ctx context.Context, cfg config.Config, repo storage.SnapshotRepository, coord *engine.Coordinator, appLogger *logger.Logger) (int, error) {
	appLogger.Info("Checking storage for existing athletes...")
	snaps, err := repo.GetByGameID(ctx, cfg.GameID)
	if err != nil {
		return 0, err
	}

	if len(snaps) > 0 {
		appLogger.Infof("Restoring %d athletes for %s", len(snaps), cfg.GameID)
		latest := 0
		for _, s := range snaps {
			if err := coord.Restore(s); err != nil {
				return 0, err
			}
			if s.Day > latest {
				latest = s.Day
			}
		}
		day, err := repo.CurrentDay(ctx, cfg.GameID)
		if errors.Is(err, storage.ErrNotFound) {
			return latest, nil
		}
		return day, err
	}

	appLogger.Infof("No athletes stored. Seeding from %s...", cfg.RosterPath)
	ro, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return 0, err
	}
	for _, reg := range ro.Registrations() {
		if err := coord.Register(reg); err != nil {
			return 0, err
		}
	}
	for _, s := range coord.Snapshots() {
		if err := repo.Upsert(ctx, cfg.GameID, s); err != nil {
			return 0, err
		}
	}
	return ro.StartDay, repo.SaveDay(ctx, cfg.GameID, ro.StartDay)
}

// backup writes every athlete snapshot to storage.
func backup(ctx context.Context, runner *session.Runner, repo storage.SnapshotRepository, gameID string, m *metrics.Collector) error {
	var snaps []engine.Snapshot
	err := runner.Do(ctx, func(c *engine.Coordinator) error {
		snaps = c.Snapshots()
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range snaps {
		err := repo.Upsert(ctx, gameID, s)
		m.RecordSnapshot(err)
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	log.Println("[KAIRO-SERVER] Initializing condition server...")

	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	appLogger := logger.NewLogger()
	tuning := cfg.Tuning()
	m := metrics.Get()

	appLogger.Infof("Opening %s storage...", cfg.DBDriver)
	store, err := storage.Open(cfg.DBDriver, cfg.DBPath, cfg.DSN, tuning.DBMaxOpenConns, tuning.DBMaxIdleConns)
	if err != nil {
		config.Exitf("storage: %v", err)
	}
	defer store.Close()

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(storage.NewPersister(store.Events(), cfg.GameID), tuning.EventChannelBuffer)
	eventLog.SetWriteObserver(m.RecordEventWrite)

	seed := cfg.Seed
	if seed == 0 {
		if seed, err = random.NewSeed(); err != nil {
			config.Exitf("seed: %v", err)
		}
	}
	appLogger.Infof("Season seed %d", seed)
	coord := engine.NewCoordinator(random.NewSeeded(seed), eventLog, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startDay, err := bootstrap(ctx, cfg, store.Snapshots(), coord, appLogger)
	if err != nil {
		config.Exitf("bootstrap: %v", err)
	}

	var workers sync.WaitGroup
	spawn := func(fn func()) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			fn()
		}()
	}

	runner := session.NewRunner(coord, appLogger, tuning.CommandQueueBuffer)
	ticker := session.NewTicker(runner, appLogger, m, cfg.DayInterval, startDay)
	ticker.OnDay(func(day int, _ []engine.DayReport) {
		if err := store.Snapshots().SaveDay(ctx, cfg.GameID, day); err != nil {
			appLogger.Errorf("Failed to save day %d: %v", day, err)
		}
	})
	readiness := cache.NewReadinessCache(cfg.CacheSize, cfg.DayInterval, eventLog)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(appLogger, m, tuning.MaxClients, tuning.BroadcastChannelBuffer, tuning.ClientSendBuffer)

	spawn(func() { eventLog.Run(ctx) })
	spawn(func() { runner.Run(ctx) })
	spawn(func() { ticker.Start(ctx) })
	spawn(func() { readiness.Watch(ctx, eventLog, nil) })
	spawn(func() { hub.Run(ctx) })
	spawn(func() { hub.Forward(ctx, eventLog, tuning.EventChannelBuffer) })

	// Automated state backup routine
	spawn(func() {
		backupTicker := time.NewTicker(cfg.BackupEvery)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				if err := backup(ctx, runner, store.Snapshots(), cfg.GameID, m); err != nil && ctx.Err() == nil {
					appLogger.Errorf("Snapshot backup failed: %v", err)
				}
			}
		}
	})

	mux := http.NewServeMux()
	network.NewCoachAPI(runner, ticker, readiness, appLogger).RegisterRoutes(mux)
	network.NewJournalHandler(eventLog, storage.NewReconstructor(store.Events()), cfg.GameID, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/ws", network.ServeWS(hub, session.NewDispatcher(runner, ticker), tuning.MaxMessagesPerSecond))
	mux.HandleFunc("/metrics", m.Handler())
	mux.HandleFunc("/metrics/prometheus", m.PrometheusHandler())

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("[KAIRO-SERVER] HTTP API & WS Server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[KAIRO-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[KAIRO-SERVER] Shutting down...")
	ticker.Stop()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("HTTP shutdown: %v", err)
	}
	if err := backup(shutdownCtx, runner, store.Snapshots(), cfg.GameID, m); err != nil {
		appLogger.Errorf("Final backup failed: %v", err)
	}
	cancel()
	workers.Wait()
}
