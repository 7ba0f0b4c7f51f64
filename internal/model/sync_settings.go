package model

import "time"

type AutoSyncFrequency string

const (
	AutoSyncManual AutoSyncFrequency = "manual"
	AutoSyncHourly AutoSyncFrequency = "hourly"
	AutoSyncDaily  AutoSyncFrequency = "daily"
)

type ConflictStrategy string

const (
	StrategyLocalOverrides  ConflictStrategy = "localOverrides"
	StrategyRemoteOverrides ConflictStrategy = "remoteOverrides"
	StrategyPrompt          ConflictStrategy = "prompt"
)

// SyncOptions tunes the reconciliation window and behavior.
type SyncOptions struct {
	TwoWaySync        bool              `json:"two_way_sync" yaml:"two_way_sync"`
	SyncPastEvents    bool              `json:"sync_past_events" yaml:"sync_past_events"`
	PastWindowDays    int               `json:"past_window_days" yaml:"past_window_days"`
	FutureWindowDays  int               `json:"future_window_days" yaml:"future_window_days"`
	AvoidConflicts    bool              `json:"avoid_conflicts" yaml:"avoid_conflicts"`
	AutoSyncFrequency AutoSyncFrequency `json:"auto_sync_frequency" yaml:"auto_sync_frequency"`
}

// ConflictResolution selects how concurrent edits are settled.
type ConflictResolution struct {
	Strategy          ConflictStrategy `json:"strategy" yaml:"strategy"`
	AutoResolveSimple bool             `json:"auto_resolve_simple" yaml:"auto_resolve_simple"`
}

// SyncSettings is the immutable synchronization configuration.
type SyncSettings struct {
	Connected           bool               `json:"connected" yaml:"connected"`
	SelectedCalendarIDs []string           `json:"selected_calendar_ids" yaml:"selected_calendar_ids"`
	Options             SyncOptions        `json:"options" yaml:"options"`
	ConflictResolution  ConflictResolution `json:"conflict_resolution" yaml:"conflict_resolution"`
}

// WithStrategy returns a copy using the given resolution strategy.
func (s SyncSettings) WithStrategy(strategy ConflictStrategy) SyncSettings {
	s.ConflictResolution.Strategy = strategy
	return s
}

// WithCalendars returns a copy selecting the given calendars.
func (s SyncSettings) WithCalendars(ids ...string) SyncSettings {
	s.SelectedCalendarIDs = append([]string(nil), ids...)
	return s
}

// Validate checks window invariants.
func (s SyncSettings) Validate() error {
	if s.Options.PastWindowDays < 0 {
		return &ValidationError{Field: "past_window_days", Reason: "must be >= 0"}
	}
	if s.Options.FutureWindowDays < 0 {
		return &ValidationError{Field: "future_window_days", Reason: "must be >= 0"}
	}
	switch s.ConflictResolution.Strategy {
	case StrategyLocalOverrides, StrategyRemoteOverrides, StrategyPrompt:
	default:
		return &ValidationError{Field: "conflict_resolution.strategy", Reason: "unknown strategy: " + string(s.ConflictResolution.Strategy)}
	}
	return nil
}

type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateSyncing SyncState = "syncing"
	SyncStateSuccess SyncState = "success"
	SyncStateError   SyncState = "error"
)

// SyncResult summarizes one reconciliation cycle. Errors holds the
// per-record failures that did not abort the cycle.
type SyncResult struct {
	State      SyncState        `json:"state"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Created    int              `json:"created"`
	Updated    int              `json:"updated"`
	Deleted    int              `json:"deleted"`
	Conflicted int              `json:"conflicted"`
	Conflicts  []ConflictRecord `json:"conflicts,omitempty"`
	Errors     []error          `json:"-"`
}
