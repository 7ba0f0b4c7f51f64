// Package provider defines the external calendar provider contract and
// its ICS feed implementation.
package provider

import (
	"context"
	"time"

	"github.com/appointcal/calendar_engine/internal/model"
)

// ExternalCalendarProvider is the narrow surface the engine needs from
// an external calendar system. Implementations must be safe for
// concurrent use.
type ExternalCalendarProvider interface {
	ListCalendars(ctx context.Context) ([]model.Calendar, error)
	ListEvents(ctx context.Context, calendarIDs []string, from, to time.Time) ([]model.ExternalEvent, error)
	CreateEvent(ctx context.Context, calendarID string, event model.ExternalEvent) (model.ExternalEvent, error)
	UpdateEvent(ctx context.Context, calendarID string, event model.ExternalEvent) (model.ExternalEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
