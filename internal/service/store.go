package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/appointcal/calendar_engine/internal/model"
)

// AppointmentStore is the persistence surface the engine consumes.
// Update is a compare-and-set against last_modified: implementations
// return StaleWriteError when the expectation no longer holds.
type AppointmentStore interface {
	List(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (model.Appointment, error)
	Create(ctx context.Context, draft model.AppointmentDraft) (model.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, patch model.AppointmentPatch, expectedLastModified time.Time) (model.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
