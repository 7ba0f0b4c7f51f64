package calendar

import (
	"sort"
	"time"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

const percent = 100.0

// DayBucket is one month-view cell: the appointments starting on that
// day plus the overflow beyond the visible limit. Truncation for
// display is the renderer's job; the count is computed here.
type DayBucket struct {
	Day           time.Time           `json:"day"`
	Appointments  []model.Appointment `json:"appointments"`
	OverflowCount int                 `json:"overflow_count"`
}

// Placement is the layout of one appointment inside a week/day column.
// Percentages are relative to one slot height, so a block spanning
// three 30-minute slots has HeightPercent 300.
type Placement struct {
	Appointment           model.Appointment `json:"appointment"`
	Day                   time.Time         `json:"day"`
	SlotIndex             int               `json:"slot_index"` // index into BuildSlots of the anchor slot
	VerticalOffsetPercent float64           `json:"vertical_offset_percent"`
	HeightPercent         float64           `json:"height_percent"`
	Lane                  int               `json:"lane"`
	LaneCount             int               `json:"lane_count"` // lanes used on this day, for dividing horizontal space
}

// DayColumn groups the placements of a single rendered day.
type DayColumn struct {
	Day        time.Time   `json:"day"`
	LaneCount  int         `json:"lane_count"`
	Placements []Placement `json:"placements"`
}

// PlaceMonth buckets appointments by the calendar day they start on.
// Days come from BuildGrid for the month view, so every bucket exists
// even when empty. maxVisiblePerDay <= 0 disables overflow counting.
func PlaceMonth(appointments []model.Appointment, view model.CalendarViewState, maxVisiblePerDay int) ([]DayBucket, error) {
	days, err := BuildGrid(view.WithViewMode(model.ViewModeMonth))
	if err != nil {
		return nil, err
	}

	// Keyed by formatted date: time.Time equality is too strict across
	// locations to serve as a map key here.
	byDay := make(map[string][]model.Appointment)
	for _, apt := range appointments {
		key := interval.ClampToDay(apt.Start).Format(time.DateOnly)
		byDay[key] = append(byDay[key], apt)
	}

	buckets := make([]DayBucket, 0, len(days))
	for _, day := range days {
		list := byDay[day.Format(time.DateOnly)]
		sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })

		overflow := 0
		if maxVisiblePerDay > 0 && len(list) > maxVisiblePerDay {
			overflow = len(list) - maxVisiblePerDay
		}
		buckets = append(buckets, DayBucket{Day: day, Appointments: list, OverflowCount: overflow})
	}

	return buckets, nil
}

// PlaceDays lays out appointments over the week/day grid of the view.
// Each appointment is anchored at the first slot it overlaps; blocks
// are clamped to the working-hours window so a renderer never draws
// above the top or past the bottom of the grid. Overlapping
// appointments get disjoint lanes via greedy interval coloring.
func PlaceDays(appointments []model.Appointment, view model.CalendarViewState) ([]DayColumn, error) {
	days, err := BuildGrid(view)
	if err != nil {
		return nil, err
	}
	slots, err := BuildSlots(view)
	if err != nil {
		return nil, err
	}

	slotDur := time.Duration(view.SlotDurationMinutes) * time.Minute

	columns := make([]DayColumn, 0, len(days))
	for _, day := range days {
		gridTop := day.Add(time.Duration(view.WorkingHours.Start) * time.Hour)
		gridBottom := day.Add(time.Duration(view.WorkingHours.End) * time.Hour)

		var placements []Placement
		for _, apt := range appointments {
			if !interval.Overlaps(apt.Start, apt.End, gridTop, gridBottom) {
				continue
			}

			// Clamp the visible block to the grid window.
			visibleStart, visibleEnd := apt.Start, apt.End
			if visibleStart.Before(gridTop) {
				visibleStart = gridTop
			}
			if visibleEnd.After(gridBottom) {
				visibleEnd = gridBottom
			}

			slotIndex := anchorSlot(slots, slotDur, day, visibleStart)
			slotStart := slots[slotIndex].At(day)

			placements = append(placements, Placement{
				Appointment:           apt,
				Day:                   day,
				SlotIndex:             slotIndex,
				VerticalOffsetPercent: interval.DurationMinutes(slotStart, visibleStart) / float64(view.SlotDurationMinutes) * percent,
				HeightPercent:         interval.DurationMinutes(visibleStart, visibleEnd) / float64(view.SlotDurationMinutes) * percent,
			})
		}

		laneCount := assignLanes(placements)
		for i := range placements {
			placements[i].LaneCount = laneCount
		}

		columns = append(columns, DayColumn{Day: day, LaneCount: laneCount, Placements: placements})
	}

	return columns, nil
}

// anchorSlot returns the index of the first slot overlapping start.
// Falls back to the nearest edge slot when start is outside the grid.
func anchorSlot(slots []Slot, slotDur time.Duration, day, start time.Time) int {
	for i, s := range slots {
		slotStart := s.At(day)
		if interval.Contains(slotStart, slotStart.Add(slotDur), start) {
			return i
		}
	}
	if len(slots) > 0 && start.Before(slots[0].At(day)) {
		return 0
	}
	return len(slots) - 1
}

// assignLanes colors overlapping placements so no two overlapping
// appointments share a lane: sort by start, give each the lowest lane
// whose previous occupant has already ended. Returns the number of
// lanes used.
func assignLanes(placements []Placement) int {
	if len(placements) == 0 {
		return 0
	}

	order := make([]int, len(placements))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := placements[order[a]], placements[order[b]]
		if pa.Appointment.Start.Equal(pb.Appointment.Start) {
			return pa.Appointment.End.Before(pb.Appointment.End)
		}
		return pa.Appointment.Start.Before(pb.Appointment.Start)
	})

	var laneEnds []time.Time // end of the last appointment in each lane
	for _, idx := range order {
		apt := placements[idx].Appointment

		lane := -1
		for l, end := range laneEnds {
			if !apt.Start.Before(end) { // half-open: touching is free
				lane = l
				break
			}
		}
		if lane == -1 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, time.Time{})
		}
		laneEnds[lane] = apt.End
		placements[idx].Lane = lane
	}

	return len(laneEnds)
}
