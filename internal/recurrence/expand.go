// Package recurrence materializes recurring appointments into concrete
// occurrences inside a time window.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/appointcal/calendar_engine/internal/model"
)

// Safety cap so a malformed or unbounded rule cannot explode a window.
const defaultMaxOccurrences = 1000

// Expand replaces every appointment carrying a recurrence rule with
// its occurrences inside [from, to); non-recurring appointments pass
// through when they overlap the window. Occurrences keep the template
// id and duration and are never written back to the store.
func Expand(appointments []model.Appointment, from, to time.Time) ([]model.Appointment, error) {
	if to.Before(from) {
		return nil, &model.ValidationError{Field: "window", Reason: "to must not be before from"}
	}

	var out []model.Appointment
	for _, apt := range appointments {
		if apt.RecurrenceRule == "" {
			if apt.Start.Before(to) && apt.End.After(from) {
				out = append(out, apt)
			}
			continue
		}

		occurrences, err := expandOne(apt, from, to)
		if err != nil {
			return nil, fmt.Errorf("expand appointment %s: %w", apt.ID, err)
		}
		out = append(out, occurrences...)
	}

	return out, nil
}

func expandOne(apt model.Appointment, from, to time.Time) ([]model.Appointment, error) {
	opts, err := rrule.StrToROption(apt.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	opts.Dtstart = apt.Start

	rule, err := rrule.NewRRule(*opts)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}

	duration := apt.Duration()

	// Widen the query so an occurrence straddling the window start is
	// still included.
	starts := rule.Between(from.Add(-duration), to, true)

	var out []model.Appointment
	for _, start := range starts {
		if len(out) >= defaultMaxOccurrences {
			break
		}
		end := start.Add(duration)
		if !start.Before(to) || !end.After(from) {
			continue
		}
		occurrence := apt
		occurrence.Start = start
		occurrence.End = end
		out = append(out, occurrence)
	}

	return out, nil
}
