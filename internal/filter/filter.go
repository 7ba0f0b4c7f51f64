// Package filter composes the predicate chain applied to appointment
// lists before they reach the grid and placement stages.
package filter

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// Criteria is the set of active predicates. Zero values deactivate a
// predicate; active predicates combine with logical AND.
type Criteria struct {
	Search string
	Status *model.AppointmentStatus
	Type   *model.AppointmentType
	Range  DateRange

	// Quick filters.
	MyAppointments    bool
	UpcomingOnly      bool
	NeedsConfirmation bool
}

// Apply returns the appointments passing every active predicate.
// The acting user id and the current instant are explicit arguments:
// the engine reads no ambient state, so filtering stays a pure
// function and is idempotent and order-independent.
func Apply(appointments []model.Appointment, c Criteria, userID uuid.UUID, now time.Time) []model.Appointment {
	result := make([]model.Appointment, 0, len(appointments))
	for _, apt := range appointments {
		if matches(apt, c, userID, now) {
			result = append(result, apt)
		}
	}
	return result
}

func matches(apt model.Appointment, c Criteria, userID uuid.UUID, now time.Time) bool {
	if c.Search != "" && !matchesSearch(apt, c.Search) {
		return false
	}
	if c.Status != nil && apt.Status != *c.Status {
		return false
	}
	if c.Type != nil && apt.Type != *c.Type {
		return false
	}
	if !matchesRange(apt, c.Range, now) {
		return false
	}
	if c.MyAppointments && !involvesUser(apt, userID) {
		return false
	}
	if c.UpcomingOnly && !apt.Start.After(now) {
		return false
	}
	if c.NeedsConfirmation && apt.Status != model.AppointmentStatusPending {
		return false
	}
	return true
}

// matchesSearch does a case-insensitive substring match over the title
// and participant names.
func matchesSearch(apt model.Appointment, term string) bool {
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(apt.Title), needle) {
		return true
	}
	for _, p := range apt.Participants {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			return true
		}
	}
	return false
}

// matchesRange buckets by the current instant, not the view's anchor.
func matchesRange(apt model.Appointment, r DateRange, now time.Time) bool {
	switch r {
	case RangeToday:
		return interval.SameDay(apt.Start, now)
	case RangeWeek:
		from := interval.ClampToDay(now)
		return !apt.Start.Before(from) && apt.Start.Before(from.AddDate(0, 0, 7))
	case RangeMonth:
		from := interval.ClampToDay(now)
		return !apt.Start.Before(from) && apt.Start.Before(from.AddDate(0, 1, 0))
	default:
		return true // RangeAll and unset
	}
}

func involvesUser(apt model.Appointment, userID uuid.UUID) bool {
	if apt.OwnerID == userID {
		return true
	}
	for _, p := range apt.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
