package calendar

import (
	"fmt"
	"time"

	"github.com/appointcal/calendar_engine/internal/model"
)

const minutesPerHour = 60

// Slot marks the start of one time slot in a week/day view.
type Slot struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// String renders the slot as "HH:MM".
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// At places the slot start on the given calendar day.
func (s Slot) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.Hour, s.Minute, 0, 0, day.Location())
}

// BuildSlots returns the ordered slot-start markers covering
// [workingHours.start, workingHours.end), stepping by the configured
// slot duration. Durations that do not divide 60 evenly are allowed;
// the sequence simply stops at the last start before the end hour.
// Recompute whenever the view settings change — the result is
// deterministic for a given configuration.
func BuildSlots(view model.CalendarViewState) ([]Slot, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}

	var slots []Slot
	startMinutes := view.WorkingHours.Start * minutesPerHour
	endMinutes := view.WorkingHours.End * minutesPerHour

	for m := startMinutes; m < endMinutes; m += view.SlotDurationMinutes {
		slots = append(slots, Slot{Hour: m / minutesPerHour, Minute: m % minutesPerHour})
	}

	return slots, nil
}
