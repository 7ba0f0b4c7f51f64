// Package conflict finds overlapping pairs between local appointments
// and between local appointments and externally-synced events.
package conflict

import (
	"time"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

// Options tunes detection. CheckExternal mirrors the sync settings'
// avoidConflicts flag.
type Options struct {
	CheckExternal bool
	Now           func() time.Time // injectable for tests, defaults to time.Now
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// FindConflicts reports every overlapping pair not otherwise excluded.
// Canceled appointments occupy no time and are skipped. A local
// appointment is never in conflict with the remote event it mirrors
// (same external sync id). Detection is symmetric in its inputs: each
// unordered pair is reported exactly once.
func FindConflicts(appointments []model.Appointment, events []model.ExternalEvent, opts Options) []model.ConflictRecord {
	detectedAt := opts.now()

	active := make([]model.Appointment, 0, len(appointments))
	for _, apt := range appointments {
		if apt.Status != model.AppointmentStatusCanceled {
			active = append(active, apt)
		}
	}

	var records []model.ConflictRecord

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if !interval.Overlaps(a.Start, a.End, b.Start, b.End) {
				continue
			}
			other := b.ID
			records = append(records, model.ConflictRecord{
				LocalAppointmentID: a.ID,
				OtherAppointmentID: &other,
				Kind:               model.ConflictKindOverlap,
				Resolution:         model.ResolutionUnresolved,
				DetectedAt:         detectedAt,
			})
		}
	}

	if !opts.CheckExternal {
		return records
	}

	for _, apt := range active {
		for _, ev := range events {
			if apt.IsSynced() && *apt.ExternalSyncID == ev.ID {
				continue // the appointment is the mirror of this event
			}
			kind, ok := externalConflictKind(apt, ev)
			if !ok {
				continue
			}
			remoteID := ev.ID
			records = append(records, model.ConflictRecord{
				LocalAppointmentID: apt.ID,
				RemoteEventID:      &remoteID,
				Kind:               kind,
				Resolution:         model.ResolutionUnresolved,
				DetectedAt:         detectedAt,
			})
		}
	}

	return records
}

// externalConflictKind classifies a local/remote pair. An unlinked
// pair with the exact same interval and title is a duplicate rather
// than a plain overlap.
func externalConflictKind(apt model.Appointment, ev model.ExternalEvent) (model.ConflictKind, bool) {
	if !interval.Overlaps(apt.Start, apt.End, ev.Start, ev.End) {
		return "", false
	}
	if apt.Start.Equal(ev.Start) && apt.End.Equal(ev.End) && apt.Title == ev.Title {
		return model.ConflictKindDuplicate, true
	}
	return model.ConflictKindOverlap, true
}
