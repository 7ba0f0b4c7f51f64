package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appointcal/calendar_engine/internal/conflict"
	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
	"github.com/appointcal/calendar_engine/internal/provider"
)

// RescheduleOptions tunes a single move.
type RescheduleOptions struct {
	// AvoidConflicts gates the move on conflict detection; on conflict
	// the move is rejected with ConflictError and the caller decides
	// whether to override by retrying without the gate.
	AvoidConflicts bool

	// CalendarIDs selects the external calendars checked when
	// AvoidConflicts is set. Empty skips the external check.
	CalendarIDs []string
}

// RescheduleService applies drag/drop or typed moves. The input
// mechanism is an external concern; the engine only sees the target
// start time.
type RescheduleService struct {
	store    AppointmentStore
	provider provider.ExternalCalendarProvider
	logger   *zap.Logger
}

func NewRescheduleService(store AppointmentStore, prov provider.ExternalCalendarProvider, logger *zap.Logger) *RescheduleService {
	return &RescheduleService{
		store:    store,
		provider: prov,
		logger:   logger,
	}
}

// Reschedule moves an appointment to newStart, preserving its duration
// exactly. Concurrent moves of the same appointment are serialized by
// the store's compare-and-set on last_modified: the loser gets
// StaleWriteError, never a silent overwrite.
func (s *RescheduleService) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, opts RescheduleOptions) (model.Appointment, error) {
	apt, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}

	duration := apt.Duration()
	newEnd := newStart.Add(duration)
	if err := interval.Validate(newStart, newEnd); err != nil {
		return model.Appointment{}, err
	}

	if opts.AvoidConflicts {
		if err := s.checkConflicts(ctx, apt, newStart, newEnd, opts.CalendarIDs); err != nil {
			return model.Appointment{}, err
		}
	}

	updated, err := s.store.Update(ctx, id, model.AppointmentPatch{
		Start: &newStart,
		End:   &newEnd,
	}, apt.LastModified)
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("Appointment rescheduled",
		zap.String("appointment_id", id.String()),
		zap.Time("new_start", newStart),
		zap.Time("new_end", newEnd),
	)

	return updated, nil
}

// checkConflicts runs the detector over the proposed interval,
// excluding the appointment being moved.
func (s *RescheduleService) checkConflicts(ctx context.Context, apt model.Appointment, newStart, newEnd time.Time, calendarIDs []string) error {
	neighbors, err := s.store.List(ctx, newStart, newEnd)
	if err != nil {
		return fmt.Errorf("list appointments for conflict check: %w", err)
	}

	candidate := apt
	candidate.Start = newStart
	candidate.End = newEnd

	pool := []model.Appointment{candidate}
	for _, other := range neighbors {
		if other.ID != apt.ID {
			pool = append(pool, other)
		}
	}

	var events []model.ExternalEvent
	if s.provider != nil && len(calendarIDs) > 0 {
		events, err = s.provider.ListEvents(ctx, calendarIDs, newStart, newEnd)
		if err != nil {
			return fmt.Errorf("list external events for conflict check: %w", err)
		}
	}

	records := conflict.FindConflicts(pool, events, conflict.Options{CheckExternal: len(events) > 0})

	var blocking []model.ConflictRecord
	for _, rec := range records {
		if rec.LocalAppointmentID == apt.ID || (rec.OtherAppointmentID != nil && *rec.OtherAppointmentID == apt.ID) {
			blocking = append(blocking, rec)
		}
	}

	if len(blocking) > 0 {
		s.logger.Info("Reschedule rejected by conflict gate",
			zap.String("appointment_id", apt.ID.String()),
			zap.Int("conflict_count", len(blocking)),
		)
		return &model.ConflictError{Records: blocking}
	}

	return nil
}
