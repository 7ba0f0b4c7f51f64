package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appointcal/calendar_engine/internal/model"
)

func TestBuildSlotsHalfHour(t *testing.T) {
	view := testView(model.ViewModeDay, time.Now())
	view.WorkingHours = model.WorkingHours{Start: 9, End: 12}
	view.SlotDurationMinutes = 30

	slots, err := BuildSlots(view)
	require.NoError(t, err)

	want := []Slot{
		{9, 0}, {9, 30}, {10, 0}, {10, 30}, {11, 0}, {11, 30},
	}
	assert.Equal(t, want, slots)
}

func TestBuildSlotsIrregularDuration(t *testing.T) {
	// 45 minutes does not divide the hour; minute overflow wraps into
	// hour increments and the sequence stops before the end hour.
	view := testView(model.ViewModeDay, time.Now())
	view.WorkingHours = model.WorkingHours{Start: 9, End: 12}
	view.SlotDurationMinutes = 45

	slots, err := BuildSlots(view)
	require.NoError(t, err)

	want := []Slot{{9, 0}, {9, 45}, {10, 30}, {11, 15}}
	assert.Equal(t, want, slots)
}

func TestBuildSlotsInvalidWorkingHours(t *testing.T) {
	view := testView(model.ViewModeDay, time.Now())
	view.WorkingHours = model.WorkingHours{Start: 18, End: 8}

	_, err := BuildSlots(view)
	require.Error(t, err)

	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSlotString(t *testing.T) {
	assert.Equal(t, "09:05", Slot{9, 5}.String())
}

func TestSlotAt(t *testing.T) {
	day := time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 9, 17, 10, 30, 0, 0, time.UTC), Slot{10, 30}.At(day))
}
