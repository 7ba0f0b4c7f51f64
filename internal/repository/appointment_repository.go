package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appointcal/calendar_engine/internal/model"
	"github.com/appointcal/calendar_engine/internal/repository/base"
)

const appointmentColumns = `
	id, title, description, start_time, end_time, type, status, location,
	owner_id, participants, tags, external_sync_id, recurrence_rule,
	last_modified, last_synced_at, created_at
`

// AppointmentRepository is the pgx-backed appointment store.
type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

// List returns appointments whose interval intersects [from, to),
// ordered by start time.
func (r *AppointmentRepository) List(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_time < $2 AND end_time > $1
		ORDER BY start_time ASC
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []model.Appointment
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}

	return appointments, rows.Err()
}

// Get returns one appointment by id.
func (r *AppointmentRepository) Get(ctx context.Context, id uuid.UUID) (model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE id = $1
	`

	apt, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return model.Appointment{}, fmt.Errorf("appointment %s not found", id)
		}
		return model.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}

	return apt, nil
}

// Create inserts a new appointment. Status defaults to pending when
// the draft leaves it empty.
func (r *AppointmentRepository) Create(ctx context.Context, draft model.AppointmentDraft) (model.Appointment, error) {
	if err := validateDraft(draft); err != nil {
		return model.Appointment{}, err
	}

	status := draft.Status
	if status == "" {
		status = model.AppointmentStatusPending
	}

	participants, err := json.Marshal(draft.Participants)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("marshal participants: %w", err)
	}

	// now() is the transaction timestamp, so last_modified and
	// last_synced_at come out identical for synced mirrors.
	query := `
		INSERT INTO appointments (
			id, title, description, start_time, end_time, type, status, location,
			owner_id, participants, tags, external_sync_id, recurrence_rule,
			last_modified, last_synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(),
			CASE WHEN $14 THEN now() END)
		RETURNING ` + appointmentColumns

	apt, err := scanAppointment(r.QueryRow(
		ctx, query,
		uuid.New(),
		draft.Title,
		draft.Description,
		draft.Start,
		draft.End,
		draft.Type,
		status,
		draft.Location,
		draft.OwnerID,
		participants,
		draft.Tags,
		draft.ExternalSyncID,
		draft.RecurrenceRule,
		draft.MarkSynced,
	))
	if err != nil {
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	return apt, nil
}

// Update applies a patch as a compare-and-set against last_modified.
// A concurrent writer that already bumped last_modified makes this
// call fail with StaleWriteError instead of silently overwriting.
func (r *AppointmentRepository) Update(ctx context.Context, id uuid.UUID, patch model.AppointmentPatch, expectedLastModified time.Time) (model.Appointment, error) {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return model.Appointment{}, fmt.Errorf("appointment %s not found", id)
		}
		return model.Appointment{}, fmt.Errorf("lock appointment: %w", err)
	}

	if !current.LastModified.Equal(expectedLastModified) {
		return model.Appointment{}, &model.StaleWriteError{
			AppointmentID: id,
			Expected:      expectedLastModified,
			Actual:        current.LastModified,
		}
	}

	next := applyPatch(current, patch)
	if err := validateInterval(next.Start, next.End); err != nil {
		return model.Appointment{}, err
	}

	updated, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET title = $2, description = $3, start_time = $4, end_time = $5,
		    status = $6, location = $7, external_sync_id = $8,
		    last_modified = now(),
		    last_synced_at = CASE WHEN $9 THEN now() ELSE last_synced_at END
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id,
		next.Title,
		next.Description,
		next.Start,
		next.End,
		next.Status,
		next.Location,
		next.ExternalSyncID,
		patch.MarkSynced,
	))
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, fmt.Errorf("commit transaction: %w", err)
	}

	return updated, nil
}

// Delete removes an appointment permanently. Soft deletion goes
// through Update with a canceled status instead.
func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("appointment %s not found", id)
	}
	return nil
}

func applyPatch(apt model.Appointment, patch model.AppointmentPatch) model.Appointment {
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
	return apt
}

func validateDraft(draft model.AppointmentDraft) error {
	if draft.Title == "" {
		return &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return validateInterval(draft.Start, draft.End)
}

func validateInterval(start, end time.Time) error {
	if !end.After(start) {
		return &model.ValidationError{Field: "interval", Reason: "end must be after start"}
	}
	return nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var apt model.Appointment
	var participants []byte

	err := row.Scan(
		&apt.ID,
		&apt.Title,
		&apt.Description,
		&apt.Start,
		&apt.End,
		&apt.Type,
		&apt.Status,
		&apt.Location,
		&apt.OwnerID,
		&participants,
		&apt.Tags,
		&apt.ExternalSyncID,
		&apt.RecurrenceRule,
		&apt.LastModified,
		&apt.LastSyncedAt,
		&apt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}

	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &apt.Participants); err != nil {
			return model.Appointment{}, fmt.Errorf("unmarshal participants: %w", err)
		}
	}

	return apt, nil
}
