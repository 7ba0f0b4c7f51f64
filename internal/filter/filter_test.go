package filter

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/appointcal/calendar_engine/internal/model"
)

var (
	me       = uuid.New()
	somebody = uuid.New()
	now      = time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)
)

func fixture() []model.Appointment {
	return []model.Appointment{
		{
			ID:      uuid.New(),
			Title:   "Strength session",
			Start:   now.Add(2 * time.Hour),
			End:     now.Add(3 * time.Hour),
			Type:    model.AppointmentTypeSession,
			Status:  model.AppointmentStatusConfirmed,
			OwnerID: me,
		},
		{
			ID:     uuid.New(),
			Title:  "Quarterly evaluation",
			Start:  now.AddDate(0, 0, 3),
			End:    now.AddDate(0, 0, 3).Add(time.Hour),
			Type:   model.AppointmentTypeEvaluation,
			Status: model.AppointmentStatusPending,
			Participants: []model.Participant{
				{UserID: me, Name: "Alice Carter", Role: model.ParticipantRoleBeneficiary},
			},
			OwnerID: somebody,
		},
		{
			ID:      uuid.New(),
			Title:   "Planning meeting",
			Start:   now.Add(-26 * time.Hour), // yesterday
			End:     now.Add(-25 * time.Hour),
			Type:    model.AppointmentTypeMeeting,
			Status:  model.AppointmentStatusCanceled,
			OwnerID: somebody,
		},
	}
}

func titles(appointments []model.Appointment) []string {
	out := make([]string, 0, len(appointments))
	for _, apt := range appointments {
		out = append(out, apt.Title)
	}
	return out
}

func TestApplyNoCriteriaPassesEverything(t *testing.T) {
	got := Apply(fixture(), Criteria{}, me, now)
	assert.Len(t, got, 3)
}

func TestApplySearchIsCaseInsensitive(t *testing.T) {
	got := Apply(fixture(), Criteria{Search: "STRENGTH"}, me, now)
	assert.Equal(t, []string{"Strength session"}, titles(got))
}

func TestApplySearchMatchesParticipantNames(t *testing.T) {
	got := Apply(fixture(), Criteria{Search: "alice"}, me, now)
	assert.Equal(t, []string{"Quarterly evaluation"}, titles(got))
}

func TestApplyStatusAndType(t *testing.T) {
	pending := model.AppointmentStatusPending
	evaluation := model.AppointmentTypeEvaluation

	got := Apply(fixture(), Criteria{Status: &pending, Type: &evaluation}, me, now)
	assert.Equal(t, []string{"Quarterly evaluation"}, titles(got))

	meeting := model.AppointmentTypeMeeting
	got = Apply(fixture(), Criteria{Status: &pending, Type: &meeting}, me, now)
	assert.Empty(t, got, "predicates combine with AND")
}

func TestApplyDateRangeBuckets(t *testing.T) {
	assert.Equal(t, []string{"Strength session"},
		titles(Apply(fixture(), Criteria{Range: RangeToday}, me, now)))

	assert.Equal(t, []string{"Strength session", "Quarterly evaluation"},
		titles(Apply(fixture(), Criteria{Range: RangeWeek}, me, now)))

	assert.Len(t, Apply(fixture(), Criteria{Range: RangeAll}, me, now), 3)
}

func TestApplyQuickFilters(t *testing.T) {
	t.Run("my appointments match owner or participant", func(t *testing.T) {
		got := Apply(fixture(), Criteria{MyAppointments: true}, me, now)
		assert.Equal(t, []string{"Strength session", "Quarterly evaluation"}, titles(got))
	})

	t.Run("upcoming only", func(t *testing.T) {
		got := Apply(fixture(), Criteria{UpcomingOnly: true}, me, now)
		assert.Equal(t, []string{"Strength session", "Quarterly evaluation"}, titles(got))
	})

	t.Run("needs confirmation", func(t *testing.T) {
		got := Apply(fixture(), Criteria{NeedsConfirmation: true}, me, now)
		assert.Equal(t, []string{"Quarterly evaluation"}, titles(got))
	})
}

func TestApplyIsIdempotent(t *testing.T) {
	criteria := Criteria{Range: RangeWeek, UpcomingOnly: true}

	once := Apply(fixture(), criteria, me, now)
	twice := Apply(once, criteria, me, now)
	assert.Equal(t, once, twice)
}
