// Package main is the entry point for brokerhub, the broker integration
// and portfolio consolidation service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"brokerhub/internal/broker"
	"brokerhub/internal/clients/alpaca"
	"brokerhub/internal/clients/simbroker"
	"brokerhub/internal/config"
	"brokerhub/internal/database"
	"brokerhub/internal/modules/accounts"
	accounthandlers "brokerhub/internal/modules/accounts/handlers"
	"brokerhub/internal/modules/ledger"
	"brokerhub/internal/modules/portfolio"
	portfoliohandlers "brokerhub/internal/modules/portfolio/handlers"
	accountsync "brokerhub/internal/modules/sync"
	synchandlers "brokerhub/internal/modules/sync/handlers"
	"brokerhub/internal/modules/trading"
	tradinghandlers "brokerhub/internal/modules/trading/handlers"
	"brokerhub/internal/reliability"
	"brokerhub/internal/scheduler"
	"brokerhub/internal/server"
	"brokerhub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting brokerhub")

	// Databases
	accountsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "accounts.db"),
		Profile: database.ProfileStandard,
		Name:    "accounts",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open accounts database")
	}
	defer accountsDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	for _, db := range []*database.DB{accountsDB, ledgerDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Broker adapters
	registry := broker.NewRegistry(log)
	registry.Register("alpaca", alpaca.NewAdapter(cfg.AlpacaBaseURL, log))
	registry.Register("simbroker", simbroker.NewAdapter(log))

	// Stores and services
	accountRepo := accounts.NewRepository(accountsDB.Conn(), log)
	ledgerStore := ledger.NewStore(ledgerDB.Conn(), log)

	syncService := accountsync.NewService(registry, accountRepo, ledgerStore, log)
	accountService := accounts.NewService(registry, accountRepo, syncService, log)
	portfolioService := portfolio.NewService(registry, accountRepo, ledgerStore, log)
	tradingService := trading.NewService(registry, accountRepo, ledgerStore, log)

	// Background jobs
	sched := scheduler.New(log)
	syncJob := scheduler.NewSyncAllJob(accountRepo, syncService, log)
	if err := sched.AddJob(cfg.SyncSchedule, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sync job")
	}

	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(
			context.Background(),
			cfg.Backup.Endpoint,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}

		backupService := reliability.NewBackupService(map[string]*database.DB{
			"accounts": accountsDB,
			"ledger":   ledgerDB,
		}, s3Client, cfg.DataDir, log)

		backupJob := scheduler.NewBackupJob(backupService, cfg.Backup.Retention, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()
	defer sched.Stop()

	// Refresh all accounts at startup instead of waiting for the first tick
	go func() {
		if err := sched.RunNow(syncJob); err != nil {
			log.Error().Err(err).Msg("Startup sync failed")
		}
	}()

	// HTTP server
	srv := server.New(server.Config{
		Log:    log,
		Config: cfg,
		Handlers: server.Handlers{
			Accounts:  accounthandlers.NewHandler(accountService, log),
			Portfolio: portfoliohandlers.NewHandler(portfolioService, log),
			Sync:      synchandlers.NewHandler(syncService, log),
			Trading:   tradinghandlers.NewHandler(tradingService, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("brokerhub started")

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}
