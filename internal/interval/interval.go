// Package interval provides pure half-open interval arithmetic used by
// every other engine package. All functions are total; malformed input
// is reported through Validate, never corrected.
package interval

import (
	"time"

	"github.com/appointcal/calendar_engine/internal/model"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DurationMinutes returns the length of [start, end) in minutes.
func DurationMinutes(start, end time.Time) float64 {
	return end.Sub(start).Minutes()
}

// ClampToDay truncates an instant to midnight in its own location.
func ClampToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return ClampToDay(a).Equal(ClampToDay(b))
}

// Contains reports whether instant t lies inside [start, end).
func Contains(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// Validate rejects non-chronological intervals.
func Validate(start, end time.Time) error {
	if !end.After(start) {
		return &model.ValidationError{Field: "interval", Reason: "end must be after start"}
	}
	return nil
}
