package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/appointcal/calendar_engine/internal/model"
	"github.com/appointcal/calendar_engine/internal/service"
)

// Scheduler drives automatic sync cycles per the configured frequency.
// Manual frequency disables the schedule entirely.
type Scheduler struct {
	syncService *service.SyncService
	settings    model.SyncSettings
	logger      *zap.Logger
	cron        *cron.Cron
}

// NewScheduler creates the background scheduler.
func NewScheduler(syncService *service.SyncService, settings model.SyncSettings, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		syncService: syncService,
		settings:    settings,
		logger:      logger,
		cron:        cron.New(),
	}
}

// Start registers the sync job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	spec, ok := cronSpec(s.settings.Options.AutoSyncFrequency)
	if !ok {
		s.logger.Info("Automatic sync disabled",
			zap.String("frequency", string(s.settings.Options.AutoSyncFrequency)))
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() { s.runSync(ctx) })
	if err != nil {
		return fmt.Errorf("register sync job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Background sync scheduler started", zap.String("cron", spec))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background sync scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSync(ctx context.Context) {
	result, err := s.syncService.Run(ctx, s.settings, service.TriggerScheduled)
	if err != nil {
		// A cycle already in progress is expected noise; everything
		// else deserves a log line.
		if err == service.ErrSyncInProgress {
			s.logger.Debug("Scheduled sync skipped, cycle in progress")
			return
		}
		s.logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled sync completed",
		zap.String("state", string(result.State)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("conflicted", result.Conflicted),
	)
}

func cronSpec(freq model.AutoSyncFrequency) (string, bool) {
	switch freq {
	case model.AutoSyncHourly:
		return "@hourly", true
	case model.AutoSyncDaily:
		return "@daily", true
	default:
		return "", false
	}
}
