package model

import "time"

type ViewMode string

const (
	ViewModeMonth  ViewMode = "month"
	ViewModeWeek   ViewMode = "week"
	ViewModeDay    ViewMode = "day"
	ViewModeAgenda ViewMode = "agenda"
)

// WorkingHours is the visible hour range of week/day views, [Start, End).
type WorkingHours struct {
	Start int `json:"start" yaml:"start"` // hour of day, 0-23
	End   int `json:"end" yaml:"end"`     // hour of day, 1-24
}

// CalendarViewState is the immutable configuration of the read path.
// Updates go through the WithX helpers so a partially-applied change
// can never be observed.
type CalendarViewState struct {
	AnchorDate          time.Time    `json:"anchor_date"`
	ViewMode            ViewMode     `json:"view_mode" yaml:"view_mode"`
	WeekStartsOn        time.Weekday `json:"week_starts_on" yaml:"week_starts_on"` // 0 = Sunday
	WorkingHours        WorkingHours `json:"working_hours" yaml:"working_hours"`
	SlotDurationMinutes int          `json:"slot_duration_minutes" yaml:"slot_duration_minutes"`
}

// WithAnchorDate returns a copy anchored at the given date.
func (v CalendarViewState) WithAnchorDate(anchor time.Time) CalendarViewState {
	v.AnchorDate = anchor
	return v
}

// WithViewMode returns a copy with the given view mode.
func (v CalendarViewState) WithViewMode(mode ViewMode) CalendarViewState {
	v.ViewMode = mode
	return v
}

// WithWorkingHours returns a copy with the given working hours.
func (v CalendarViewState) WithWorkingHours(start, end int) CalendarViewState {
	v.WorkingHours = WorkingHours{Start: start, End: end}
	return v
}

// WithSlotDuration returns a copy with the given slot duration.
func (v CalendarViewState) WithSlotDuration(minutes int) CalendarViewState {
	v.SlotDurationMinutes = minutes
	return v
}

// Validate checks the view configuration. Invalid settings are always
// surfaced, never silently defaulted.
func (v CalendarViewState) Validate() error {
	switch v.ViewMode {
	case ViewModeMonth, ViewModeWeek, ViewModeDay, ViewModeAgenda:
	default:
		return &ValidationError{Field: "view_mode", Reason: "unknown view mode: " + string(v.ViewMode)}
	}
	if v.WeekStartsOn < time.Sunday || v.WeekStartsOn > time.Saturday {
		return &ValidationError{Field: "week_starts_on", Reason: "must be a weekday 0-6"}
	}
	if v.WorkingHours.Start < 0 || v.WorkingHours.End > 24 || v.WorkingHours.Start >= v.WorkingHours.End {
		return &ValidationError{Field: "working_hours", Reason: "start must be before end within 0-24"}
	}
	if v.SlotDurationMinutes <= 0 {
		return &ValidationError{Field: "slot_duration_minutes", Reason: "must be positive"}
	}
	return nil
}
