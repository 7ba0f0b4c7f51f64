package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/appointcal/calendar_engine/internal/conflict"
	"github.com/appointcal/calendar_engine/internal/model"
	"github.com/appointcal/calendar_engine/internal/provider"
)

const defaultSyncTimeout = 2 * time.Minute

// Trigger identifies who asked for a sync cycle.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// ErrSyncInProgress rejects a scheduled trigger while a cycle runs.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncService reconciles the local appointment store with the external
// calendar provider. One cycle at a time: the service holds an
// exclusive in-progress flag, scheduled triggers arriving mid-cycle
// are rejected, and manual triggers are coalesced into at most one
// queued re-run.
type SyncService struct {
	store    AppointmentStore
	provider provider.ExternalCalendarProvider
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	state   model.SyncState
	pending bool
}

func NewSyncService(store AppointmentStore, prov provider.ExternalCalendarProvider, logger *zap.Logger) *SyncService {
	return &SyncService{
		store:    store,
		provider: prov,
		logger:   logger,
		timeout:  defaultSyncTimeout,
		now:      time.Now,
		state:    model.SyncStateIdle,
	}
}

// WithTimeout sets the per-cycle budget.
func (s *SyncService) WithTimeout(d time.Duration) *SyncService {
	s.timeout = d
	return s
}

// WithClock injects a clock for tests.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	return s
}

// State returns the current machine state.
func (s *SyncService) State() model.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run executes sync cycles until no re-run is pending. A manual
// trigger arriving while a cycle runs queues exactly one re-run and
// returns immediately with the syncing state; a scheduled trigger is
// rejected with ErrSyncInProgress.
func (s *SyncService) Run(ctx context.Context, settings model.SyncSettings, trigger Trigger) (model.SyncResult, error) {
	if err := settings.Validate(); err != nil {
		return model.SyncResult{State: model.SyncStateError, Errors: []error{err}}, err
	}
	if !settings.Connected {
		err := &model.ValidationError{Field: "connected", Reason: "provider is not connected"}
		return model.SyncResult{State: model.SyncStateError, Errors: []error{err}}, err
	}

	if !s.begin(trigger) {
		if trigger == TriggerScheduled {
			return model.SyncResult{State: model.SyncStateSyncing}, ErrSyncInProgress
		}
		return model.SyncResult{State: model.SyncStateSyncing}, nil
	}

	var result model.SyncResult
	for {
		result = s.cycle(ctx, settings)
		if !s.finish() {
			break
		}
		// A manual request arrived mid-cycle; run once more.
		s.logger.Info("Running coalesced sync re-run")
	}

	return result, nil
}

func (s *SyncService) begin(trigger Trigger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == model.SyncStateSyncing {
		if trigger == TriggerManual {
			s.pending = true
		}
		return false
	}
	s.state = model.SyncStateSyncing
	return true
}

// finish reports whether a coalesced re-run should start; otherwise
// the machine returns to idle.
func (s *SyncService) finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		s.pending = false
		return true
	}
	s.state = model.SyncStateIdle
	return false
}

// cycle runs one reconciliation pass. Record-level failures land in
// the result's error list; only a failed fetch aborts the pass.
func (s *SyncService) cycle(parent context.Context, settings model.SyncSettings) model.SyncResult {
	result := model.SyncResult{StartedAt: s.now()}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	now := s.now()
	from := now.AddDate(0, 0, -settings.Options.PastWindowDays)
	if !settings.Options.SyncPastEvents {
		from = now
	}
	to := now.AddDate(0, 0, settings.Options.FutureWindowDays)

	remote, err := s.provider.ListEvents(ctx, settings.SelectedCalendarIDs, from, to)
	if err != nil {
		return s.abort(result, "fetch remote events", err)
	}

	local, err := s.store.List(ctx, from, to)
	if err != nil {
		return s.abort(result, "fetch local appointments", err)
	}

	remoteByID := make(map[string]model.ExternalEvent, len(remote))
	for _, ev := range remote {
		remoteByID[ev.ID] = ev
	}

	paired := make(map[string]bool)
	for _, apt := range local {
		if ctx.Err() != nil {
			return s.abort(result, "reconcile records", ctx.Err())
		}
		if !apt.IsSynced() {
			continue // purely local, nothing to reconcile
		}

		ev, ok := remoteByID[*apt.ExternalSyncID]
		if !ok {
			// The mirrored remote event is gone: candidate deletion.
			s.softDelete(ctx, apt, &result)
			continue
		}
		paired[ev.ID] = true
		s.reconcilePair(ctx, apt, ev, settings, &result)
	}

	// Unpaired remote events become local insertions.
	for _, ev := range remote {
		if paired[ev.ID] {
			continue
		}
		if ctx.Err() != nil {
			return s.abort(result, "insert remote events", ctx.Err())
		}
		s.insertMirror(ctx, ev, &result)
	}

	if settings.Options.AvoidConflicts {
		overlaps := conflict.FindConflicts(local, remote, conflict.Options{CheckExternal: true, Now: s.now})
		result.Conflicts = append(result.Conflicts, overlaps...)
		result.Conflicted += len(overlaps)
	}

	result.FinishedAt = s.now()
	if len(result.Errors) > 0 {
		result.State = model.SyncStateError
	} else {
		result.State = model.SyncStateSuccess
	}

	s.logger.Info("Sync cycle finished",
		zap.String("state", string(result.State)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Int("conflicted", result.Conflicted),
		zap.Int("errors", len(result.Errors)),
	)

	return result
}

func (s *SyncService) abort(result model.SyncResult, stage string, err error) model.SyncResult {
	if errors.Is(err, context.DeadlineExceeded) {
		err = &model.TimeoutError{Stage: stage, Budget: s.timeout}
	}
	result.Errors = append(result.Errors, fmt.Errorf("%s: %w", stage, err))
	result.State = model.SyncStateError
	result.FinishedAt = s.now()
	s.logger.Error("Sync cycle aborted", zap.String("stage", stage), zap.Error(err))
	return result
}

// reconcilePair settles one local/remote pair. Changes are measured
// against the last synced baseline; identical substance on both sides
// is a no-op regardless of timestamps, which keeps repeated syncs
// idempotent.
func (s *SyncService) reconcilePair(ctx context.Context, apt model.Appointment, ev model.ExternalEvent, settings model.SyncSettings, result *model.SyncResult) {
	if !fieldsDiffer(apt, ev) {
		return
	}

	baseline := time.Time{}
	if apt.LastSyncedAt != nil {
		baseline = *apt.LastSyncedAt
	}
	localChanged := apt.LastModified.After(baseline)
	remoteChanged := ev.LastModified.After(baseline)

	switch {
	case localChanged && remoteChanged:
		s.resolveConcurrentEdit(ctx, apt, ev, settings, result)

	case localChanged:
		if settings.Options.TwoWaySync {
			s.pushLocal(ctx, apt, ev, result)
		} else {
			// One-way mode always propagates remote to local.
			s.pullRemote(ctx, apt, ev, result)
		}

	default:
		// Remote changed, or the baseline is ahead of both sides:
		// remote wins either way.
		s.pullRemote(ctx, apt, ev, result)
	}
}

func (s *SyncService) resolveConcurrentEdit(ctx context.Context, apt model.Appointment, ev model.ExternalEvent, settings model.SyncSettings, result *model.SyncResult) {
	remoteID := ev.ID
	record := model.ConflictRecord{
		LocalAppointmentID: apt.ID,
		RemoteEventID:      &remoteID,
		Kind:               model.ConflictKindConcurrentEdit,
		Resolution:         model.ResolutionUnresolved,
		DetectedAt:         s.now(),
	}

	strategy := settings.ConflictResolution.Strategy
	if strategy == model.StrategyPrompt {
		if settings.ConflictResolution.AutoResolveSimple && isSimpleConflict(apt, ev) {
			// Deterministic tiebreak: most recent edit wins.
			if apt.LastModified.After(ev.LastModified) {
				strategy = model.StrategyLocalOverrides
			} else {
				strategy = model.StrategyRemoteOverrides
			}
		} else {
			// Surfaced to the caller, left unresolved.
			result.Conflicts = append(result.Conflicts, record)
			result.Conflicted++
			return
		}
	}

	// Whole-record override for determinism.
	switch strategy {
	case model.StrategyLocalOverrides:
		s.pushLocal(ctx, apt, ev, result)
	case model.StrategyRemoteOverrides:
		s.pullRemote(ctx, apt, ev, result)
	}

	resolvedAt := s.now()
	record.Resolution = model.ResolutionAuto
	record.ResolvedAt = &resolvedAt
	result.Conflicts = append(result.Conflicts, record)
	result.Conflicted++
}

// pushLocal propagates the local appointment's fields to the provider.
func (s *SyncService) pushLocal(ctx context.Context, apt model.Appointment, ev model.ExternalEvent, result *model.SyncResult) {
	outbound := ev
	outbound.Title = apt.Title
	outbound.Description = apt.Description
	outbound.Location = apt.Location
	outbound.Start = apt.Start
	outbound.End = apt.End

	if _, err := s.provider.UpdateEvent(ctx, ev.CalendarID, outbound); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("push appointment %s: %w", apt.ID, err))
		return
	}

	// Refresh the baseline so the pushed edit stops reading as a local
	// change on the next cycle.
	if _, err := s.store.Update(ctx, apt.ID, model.AppointmentPatch{MarkSynced: true}, apt.LastModified); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("mark appointment %s synced: %w", apt.ID, err))
		return
	}

	result.Updated++
}

// pullRemote replaces the local appointment's fields with the remote
// event's.
func (s *SyncService) pullRemote(ctx context.Context, apt model.Appointment, ev model.ExternalEvent, result *model.SyncResult) {
	patch := model.AppointmentPatch{
		Title:       &ev.Title,
		Description: &ev.Description,
		Location:    &ev.Location,
		Start:       &ev.Start,
		End:         &ev.End,
		MarkSynced:  true,
	}

	if _, err := s.store.Update(ctx, apt.ID, patch, apt.LastModified); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("pull event %s: %w", ev.ID, err))
		return
	}

	result.Updated++
}

// softDelete cancels a local mirror whose remote event disappeared.
// Nothing is hard-deleted on the say-so of one provider listing.
func (s *SyncService) softDelete(ctx context.Context, apt model.Appointment, result *model.SyncResult) {
	if apt.Status == model.AppointmentStatusCanceled {
		return // already settled on an earlier cycle
	}

	canceled := model.AppointmentStatusCanceled
	if _, err := s.store.Update(ctx, apt.ID, model.AppointmentPatch{Status: &canceled, MarkSynced: true}, apt.LastModified); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("cancel orphaned appointment %s: %w", apt.ID, err))
		return
	}

	result.Deleted++
	s.logger.Info("Canceled orphaned local mirror", zap.String("appointment_id", apt.ID.String()))
}

// insertMirror creates a local appointment for an unpaired remote event.
func (s *SyncService) insertMirror(ctx context.Context, ev model.ExternalEvent, result *model.SyncResult) {
	syncID := ev.ID
	_, err := s.store.Create(ctx, model.AppointmentDraft{
		Title:          ev.Title,
		Description:    ev.Description,
		Location:       ev.Location,
		Start:          ev.Start,
		End:            ev.End,
		Type:           model.AppointmentTypeOther,
		Status:         model.AppointmentStatusConfirmed,
		ExternalSyncID: &syncID,
		MarkSynced:     true,
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("mirror event %s: %w", ev.ID, err))
		return
	}

	result.Created++
}

// fieldsDiffer compares the substance of a pair: title, description,
// location and the interval.
func fieldsDiffer(apt model.Appointment, ev model.ExternalEvent) bool {
	return apt.Title != ev.Title ||
		apt.Description != ev.Description ||
		apt.Location != ev.Location ||
		!apt.Start.Equal(ev.Start) ||
		!apt.End.Equal(ev.End)
}

// isSimpleConflict is true when only non-temporal fields differ, the
// safe case for automatic resolution.
func isSimpleConflict(apt model.Appointment, ev model.ExternalEvent) bool {
	return apt.Start.Equal(ev.Start) && apt.End.Equal(ev.End)
}
