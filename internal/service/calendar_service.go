package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appointcal/calendar_engine/internal/calendar"
	"github.com/appointcal/calendar_engine/internal/conflict"
	"github.com/appointcal/calendar_engine/internal/filter"
	"github.com/appointcal/calendar_engine/internal/model"
	"github.com/appointcal/calendar_engine/internal/recurrence"
)

// Appointments shown per month cell before the overflow counter kicks
// in; the renderer decides how truncation looks, the count comes from
// here.
const defaultMaxVisiblePerDay = 3

// Horizon for agenda recurrence expansion, which has no grid to bound it.
const agendaHorizonDays = 31

// CalendarService is the read-path facade: filtering, grid and slot
// generation, placement and conflict detection over immutable
// appointment snapshots. All methods are pure and safe to call
// concurrently.
type CalendarService struct {
	logger *zap.Logger
}

func NewCalendarService(logger *zap.Logger) *CalendarService {
	return &CalendarService{logger: logger}
}

// PlacementResult is the view-ready output for one render pass.
// Exactly one of Buckets, Columns or Agenda is populated, per the view
// mode.
type PlacementResult struct {
	ViewMode model.ViewMode       `json:"view_mode"`
	Buckets  []calendar.DayBucket `json:"buckets,omitempty"`
	Columns  []calendar.DayColumn `json:"columns,omitempty"`
	Agenda   []model.Appointment  `json:"agenda,omitempty"`
}

// BuildGrid returns the calendar days for the view.
func (s *CalendarService) BuildGrid(view model.CalendarViewState) ([]time.Time, error) {
	return calendar.BuildGrid(view)
}

// BuildSlots returns the time-slot markers for week/day views.
func (s *CalendarService) BuildSlots(view model.CalendarViewState) ([]calendar.Slot, error) {
	return calendar.BuildSlots(view)
}

// PlaceAppointments expands recurring appointments over the view
// window and lays the result out for the view mode. Agenda bypasses
// placement and returns the appointments sorted by start.
func (s *CalendarService) PlaceAppointments(appointments []model.Appointment, view model.CalendarViewState) (PlacementResult, error) {
	if err := view.Validate(); err != nil {
		return PlacementResult{}, err
	}

	from, to := s.viewWindow(view)
	expanded, err := recurrence.Expand(appointments, from, to)
	if err != nil {
		return PlacementResult{}, fmt.Errorf("expand recurrences: %w", err)
	}

	result := PlacementResult{ViewMode: view.ViewMode}

	switch view.ViewMode {
	case model.ViewModeMonth:
		result.Buckets, err = calendar.PlaceMonth(expanded, view, defaultMaxVisiblePerDay)
	case model.ViewModeWeek, model.ViewModeDay:
		result.Columns, err = calendar.PlaceDays(expanded, view)
	case model.ViewModeAgenda:
		sort.Slice(expanded, func(i, j int) bool { return expanded[i].Start.Before(expanded[j].Start) })
		result.Agenda = expanded
	}
	if err != nil {
		return PlacementResult{}, err
	}

	s.logger.Debug("Placed appointments",
		zap.String("view_mode", string(view.ViewMode)),
		zap.Int("appointment_count", len(expanded)),
	)

	return result, nil
}

// DetectConflicts reports overlapping pairs among the given
// appointments and, when checkExternal is set, against external events.
func (s *CalendarService) DetectConflicts(appointments []model.Appointment, events []model.ExternalEvent, checkExternal bool) []model.ConflictRecord {
	return conflict.FindConflicts(appointments, events, conflict.Options{CheckExternal: checkExternal})
}

// Filter applies the criteria for the acting user at the given instant.
func (s *CalendarService) Filter(appointments []model.Appointment, criteria filter.Criteria, userID uuid.UUID, now time.Time) []model.Appointment {
	return filter.Apply(appointments, criteria, userID, now)
}

// viewWindow is the recurrence-expansion range of a view: the grid
// span for grid views, a fixed horizon from the anchor for agenda.
func (s *CalendarService) viewWindow(view model.CalendarViewState) (time.Time, time.Time) {
	if view.ViewMode == model.ViewModeAgenda {
		from := view.AnchorDate
		return from, from.AddDate(0, 0, agendaHorizonDays)
	}

	days, err := calendar.BuildGrid(view)
	if err != nil || len(days) == 0 {
		return view.AnchorDate, view.AnchorDate.AddDate(0, 0, 1)
	}
	return days[0], days[len(days)-1].AddDate(0, 0, 1)
}
