package calendar

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

func apt(t *testing.T, start, end time.Time) model.Appointment {
	t.Helper()
	return model.Appointment{
		ID:     uuid.New(),
		Title:  "session",
		Start:  start,
		End:    end,
		Type:   model.AppointmentTypeSession,
		Status: model.AppointmentStatusConfirmed,
	}
}

func dayAt(hour, min int) time.Time {
	return time.Date(2025, 9, 17, hour, min, 0, 0, time.UTC) // a Wednesday
}

func TestPlaceDaysTallBlock(t *testing.T) {
	// 90 minutes in 30-minute slots spans three slots: offset 0,
	// height 300.
	view := testView(model.ViewModeDay, dayAt(0, 0))
	appointments := []model.Appointment{apt(t, dayAt(10, 0), dayAt(11, 30))}

	columns, err := PlaceDays(appointments, view)
	require.NoError(t, err)
	require.Len(t, columns, 1)
	require.Len(t, columns[0].Placements, 1)

	p := columns[0].Placements[0]
	assert.Equal(t, 4, p.SlotIndex, "10:00 is the fifth slot of an 8:00 grid")
	assert.Equal(t, 0.0, p.VerticalOffsetPercent)
	assert.Equal(t, 300.0, p.HeightPercent)
	assert.Equal(t, 0, p.Lane)
	assert.Equal(t, 1, p.LaneCount)
}

func TestPlaceDaysMidSlotOffset(t *testing.T) {
	view := testView(model.ViewModeDay, dayAt(0, 0))
	appointments := []model.Appointment{apt(t, dayAt(10, 15), dayAt(10, 45))}

	columns, err := PlaceDays(appointments, view)
	require.NoError(t, err)

	p := columns[0].Placements[0]
	assert.Equal(t, 4, p.SlotIndex)
	assert.Equal(t, 50.0, p.VerticalOffsetPercent, "15 minutes into a 30-minute slot")
	assert.Equal(t, 100.0, p.HeightPercent)
}

func TestPlaceDaysClampsToGrid(t *testing.T) {
	view := testView(model.ViewModeDay, dayAt(0, 0)) // working hours 8-18

	t.Run("above the top", func(t *testing.T) {
		columns, err := PlaceDays([]model.Appointment{apt(t, dayAt(7, 30), dayAt(9, 0))}, view)
		require.NoError(t, err)
		require.Len(t, columns[0].Placements, 1)

		p := columns[0].Placements[0]
		assert.Equal(t, 0, p.SlotIndex)
		assert.Equal(t, 0.0, p.VerticalOffsetPercent)
		assert.Equal(t, 200.0, p.HeightPercent, "only the 8:00-9:00 part is visible")
	})

	t.Run("past the bottom", func(t *testing.T) {
		columns, err := PlaceDays([]model.Appointment{apt(t, dayAt(17, 30), dayAt(19, 0))}, view)
		require.NoError(t, err)
		require.Len(t, columns[0].Placements, 1)

		p := columns[0].Placements[0]
		assert.Equal(t, 100.0, p.HeightPercent, "only the 17:30-18:00 part is visible")
	})

	t.Run("fully outside", func(t *testing.T) {
		columns, err := PlaceDays([]model.Appointment{apt(t, dayAt(19, 0), dayAt(20, 0))}, view)
		require.NoError(t, err)
		assert.Empty(t, columns[0].Placements)
	})
}

func TestPlaceDaysLanes(t *testing.T) {
	view := testView(model.ViewModeDay, dayAt(0, 0))
	first := apt(t, dayAt(9, 0), dayAt(10, 0))
	second := apt(t, dayAt(9, 30), dayAt(10, 30))
	third := apt(t, dayAt(10, 0), dayAt(11, 0)) // touches first, reuses its lane

	columns, err := PlaceDays([]model.Appointment{second, third, first}, view)
	require.NoError(t, err)
	require.Len(t, columns[0].Placements, 3)

	lanes := make(map[uuid.UUID]int)
	for _, p := range columns[0].Placements {
		lanes[p.Appointment.ID] = p.Lane
		assert.Equal(t, 2, p.LaneCount)
	}

	assert.Equal(t, 0, lanes[first.ID])
	assert.Equal(t, 1, lanes[second.ID])
	assert.Equal(t, 0, lanes[third.ID], "half-open: touching endpoints free the lane")
}

func TestPlaceDaysLaneDisjointness(t *testing.T) {
	// Property: no two appointments sharing a lane overlap in time.
	view := testView(model.ViewModeDay, dayAt(0, 0))
	appointments := []model.Appointment{
		apt(t, dayAt(9, 0), dayAt(12, 0)),
		apt(t, dayAt(9, 30), dayAt(10, 0)),
		apt(t, dayAt(9, 45), dayAt(11, 0)),
		apt(t, dayAt(10, 0), dayAt(10, 30)),
		apt(t, dayAt(11, 0), dayAt(11, 30)),
		apt(t, dayAt(11, 15), dayAt(13, 0)),
	}

	columns, err := PlaceDays(appointments, view)
	require.NoError(t, err)

	placements := columns[0].Placements
	require.Len(t, placements, len(appointments))

	for i := 0; i < len(placements); i++ {
		for j := i + 1; j < len(placements); j++ {
			a, b := placements[i], placements[j]
			if a.Lane != b.Lane {
				continue
			}
			assert.False(t,
				interval.Overlaps(a.Appointment.Start, a.Appointment.End, b.Appointment.Start, b.Appointment.End),
				"appointments %d and %d share lane %d but overlap", i, j, a.Lane)
		}
	}
}

func TestPlaceMonth(t *testing.T) {
	view := testView(model.ViewModeMonth, dayAt(0, 0))

	day := interval.ClampToDay(dayAt(0, 0))
	appointments := []model.Appointment{
		apt(t, dayAt(9, 0), dayAt(10, 0)),
		apt(t, dayAt(10, 0), dayAt(11, 0)),
		apt(t, dayAt(11, 0), dayAt(12, 0)),
		apt(t, dayAt(12, 0), dayAt(13, 0)),
		apt(t, dayAt(13, 0), dayAt(14, 0)),
	}

	buckets, err := PlaceMonth(appointments, view, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, len(buckets)%7)

	var found bool
	for _, bucket := range buckets {
		if !bucket.Day.Equal(day) {
			assert.Empty(t, bucket.Appointments)
			continue
		}
		found = true
		require.Len(t, bucket.Appointments, 5)
		assert.Equal(t, 2, bucket.OverflowCount)
		// Sorted by start.
		for i := 1; i < len(bucket.Appointments); i++ {
			assert.True(t, bucket.Appointments[i-1].Start.Before(bucket.Appointments[i].Start))
		}
	}
	assert.True(t, found, "anchor day must be in its own month grid")
}
