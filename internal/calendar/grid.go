// Package calendar builds the date grids, time slots and placement
// metadata consumed by calendar renderers.
package calendar

import (
	"time"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

const daysPerWeek = 7

// BuildGrid returns the ordered calendar days to render for the view.
//
//   - month: whole weeks from start-of-week(first of month) through
//     end-of-week(last of month); length is always a multiple of 7
//   - week: the 7 days of the anchor's week
//   - day: just the anchor day
//   - agenda: empty — the agenda view lists appointments directly and
//     bypasses placement
func BuildGrid(view model.CalendarViewState) ([]time.Time, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}

	anchor := interval.ClampToDay(view.AnchorDate)

	switch view.ViewMode {
	case model.ViewModeMonth:
		firstOfMonth := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		lastOfMonth := firstOfMonth.AddDate(0, 1, -1)
		gridStart := startOfWeek(firstOfMonth, view.WeekStartsOn)
		gridEnd := startOfWeek(lastOfMonth, view.WeekStartsOn).AddDate(0, 0, daysPerWeek-1)
		return daysBetween(gridStart, gridEnd), nil

	case model.ViewModeWeek:
		weekStart := startOfWeek(anchor, view.WeekStartsOn)
		return daysBetween(weekStart, weekStart.AddDate(0, 0, daysPerWeek-1)), nil

	case model.ViewModeDay:
		return []time.Time{anchor}, nil

	case model.ViewModeAgenda:
		return nil, nil
	}

	// Unreachable: Validate rejects unknown modes.
	return nil, &model.ValidationError{Field: "view_mode", Reason: "unknown view mode: " + string(view.ViewMode)}
}

// startOfWeek returns the most recent day (inclusive) whose weekday is
// weekStartsOn.
func startOfWeek(day time.Time, weekStartsOn time.Weekday) time.Time {
	diff := (int(day.Weekday()) - int(weekStartsOn) + daysPerWeek) % daysPerWeek
	return day.AddDate(0, 0, -diff)
}

// daysBetween returns every day from first through last, inclusive.
func daysBetween(first, last time.Time) []time.Time {
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
