package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

// fakeClock is a hand-driven clock shared by fakes and services.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore is an in-memory AppointmentStore with the same
// compare-and-set semantics as the pgx repository.
type fakeStore struct {
	mu           sync.Mutex
	clock        *fakeClock
	appointments map[uuid.UUID]model.Appointment
}

func newFakeStore(clock *fakeClock) *fakeStore {
	return &fakeStore{
		clock:        clock,
		appointments: make(map[uuid.UUID]model.Appointment),
	}
}

func (s *fakeStore) seed(apt model.Appointment) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	s.appointments[apt.ID] = apt
	return apt
}

func (s *fakeStore) List(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Appointment
	for _, apt := range s.appointments {
		if interval.Overlaps(apt.Start, apt.End, from, to) {
			out = append(out, apt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id uuid.UUID) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, &model.ValidationError{Field: "id", Reason: "appointment not found"}
	}
	return apt, nil
}

func (s *fakeStore) Create(ctx context.Context, draft model.AppointmentDraft) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	apt := model.Appointment{
		ID:             uuid.New(),
		Title:          draft.Title,
		Description:    draft.Description,
		Start:          draft.Start,
		End:            draft.End,
		Type:           draft.Type,
		Status:         draft.Status,
		Location:       draft.Location,
		OwnerID:        draft.OwnerID,
		Participants:   draft.Participants,
		Tags:           draft.Tags,
		ExternalSyncID: draft.ExternalSyncID,
		RecurrenceRule: draft.RecurrenceRule,
		LastModified:   now,
		CreatedAt:      now,
	}
	if apt.Status == "" {
		apt.Status = model.AppointmentStatusPending
	}
	if draft.MarkSynced {
		synced := now
		apt.LastSyncedAt = &synced
	}

	s.appointments[apt.ID] = apt
	return apt, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, patch model.AppointmentPatch, expectedLastModified time.Time) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, &model.ValidationError{Field: "id", Reason: "appointment not found"}
	}
	if !apt.LastModified.Equal(expectedLastModified) {
		return model.Appointment{}, &model.StaleWriteError{
			AppointmentID: id,
			Expected:      expectedLastModified,
			Actual:        apt.LastModified,
		}
	}

	if patch.Title != nil {
		apt.Title = *patch.Title
	}
	if patch.Description != nil {
		apt.Description = *patch.Description
	}
	if patch.Start != nil {
		apt.Start = *patch.Start
	}
	if patch.End != nil {
		apt.End = *patch.End
	}
	if patch.Status != nil {
		apt.Status = *patch.Status
	}
	if patch.Location != nil {
		apt.Location = *patch.Location
	}
	if patch.ExternalSyncID != nil {
		apt.ExternalSyncID = patch.ExternalSyncID
	}

	apt.LastModified = s.clock.Now()
	if patch.MarkSynced {
		synced := apt.LastModified
		apt.LastSyncedAt = &synced
	}

	s.appointments[id] = apt
	return apt, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.appointments, id)
	return nil
}

// staleStore wraps a store so Get hands out an outdated snapshot,
// simulating a concurrent writer winning the race.
type staleStore struct {
	*fakeStore
	staleSnapshot model.Appointment
}

func (s *staleStore) Get(ctx context.Context, id uuid.UUID) (model.Appointment, error) {
	return s.staleSnapshot, nil
}

// fakeProvider is an in-memory ExternalCalendarProvider.
type fakeProvider struct {
	mu          sync.Mutex
	clock       *fakeClock
	events      map[string]model.ExternalEvent
	updateCalls int

	// listGate, when non-nil, blocks the first ListEvents call until
	// closed. Used by the coalescing and timeout tests.
	listGate    chan struct{}
	gateArmed   bool
	listStarted chan struct{}
}

func newFakeProvider(clock *fakeClock) *fakeProvider {
	return &fakeProvider{
		clock:  clock,
		events: make(map[string]model.ExternalEvent),
	}
}

func (p *fakeProvider) seed(ev model.ExternalEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[ev.ID] = ev
}

func (p *fakeProvider) armGate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listGate = make(chan struct{})
	p.listStarted = make(chan struct{})
	p.gateArmed = true
}

func (p *fakeProvider) ListCalendars(ctx context.Context) ([]model.Calendar, error) {
	return []model.Calendar{{ID: "primary", Name: "Primary", Primary: true}}, nil
}

func (p *fakeProvider) ListEvents(ctx context.Context, calendarIDs []string, from, to time.Time) ([]model.ExternalEvent, error) {
	p.mu.Lock()
	gate, started, armed := p.listGate, p.listStarted, p.gateArmed
	p.gateArmed = false
	p.mu.Unlock()

	if armed {
		close(started)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var out []model.ExternalEvent
	for _, ev := range p.events {
		if interval.Overlaps(ev.Start, ev.End, from, to) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *fakeProvider) CreateEvent(ctx context.Context, calendarID string, ev model.ExternalEvent) (model.ExternalEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev.LastModified = p.clock.Now()
	p.events[ev.ID] = ev
	return ev, nil
}

func (p *fakeProvider) UpdateEvent(ctx context.Context, calendarID string, ev model.ExternalEvent) (model.ExternalEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateCalls++
	ev.LastModified = p.clock.Now()
	p.events[ev.ID] = ev
	return ev, nil
}

func (p *fakeProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.events, eventID)
	return nil
}
