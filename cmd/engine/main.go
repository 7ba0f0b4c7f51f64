package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/appointcal/calendar_engine/internal/app"
	"github.com/appointcal/calendar_engine/internal/config"
	"github.com/appointcal/calendar_engine/internal/provider"
	"github.com/appointcal/calendar_engine/internal/repository"
	"github.com/appointcal/calendar_engine/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting calendar engine",
		zap.String("environment", cfg.Environment),
		zap.Int("feed_count", len(settings.Feeds)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	store := repository.NewAppointmentRepository(pool)
	icsProvider := provider.NewICSProvider(settings.Feeds, logger)

	syncService := service.NewSyncService(store, icsProvider, logger)
	scheduler := app.NewScheduler(syncService, settings.Sync, logger)

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Kick off one cycle right away; afterwards the cron cadence (if
	// any) takes over.
	if settings.Sync.Connected {
		if _, err := syncService.Run(ctx, settings.Sync, service.TriggerManual); err != nil {
			logger.Error("Initial sync failed", zap.Error(err))
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	scheduler.Stop()
}
