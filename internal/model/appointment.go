package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentType string

const (
	AppointmentTypeSession    AppointmentType = "session"
	AppointmentTypeEvaluation AppointmentType = "evaluation"
	AppointmentTypeMeeting    AppointmentType = "meeting"
	AppointmentTypeOther      AppointmentType = "other"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Awaiting confirmation
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Confirmed
	AppointmentStatusCanceled  AppointmentStatus = "canceled"  // Soft-deleted
)

type ParticipantRole string

const (
	ParticipantRoleBeneficiary ParticipantRole = "beneficiary"
	ParticipantRoleTrainer     ParticipantRole = "trainer"
)

// Participant is a person attached to an appointment.
type Participant struct {
	UserID uuid.UUID       `json:"user_id"`
	Name   string          `json:"name"`
	Role   ParticipantRole `json:"role"`
}

// Appointment is an immutable value snapshot of a scheduled entry.
// Intervals are half-open: [Start, End), with End strictly after Start.
type Appointment struct {
	ID             uuid.UUID         `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	Type           AppointmentType   `json:"type"`
	Status         AppointmentStatus `json:"status"`
	Location       string            `json:"location,omitempty"`
	OwnerID        uuid.UUID         `json:"owner_id"`
	Participants   []Participant     `json:"participants,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	ExternalSyncID *string           `json:"external_sync_id,omitempty"` // id of the mirrored event in the external provider, nil if never synced
	RecurrenceRule string            `json:"recurrence_rule,omitempty"`  // optional RRULE, expanded by the read path
	LastModified   time.Time         `json:"last_modified"`
	LastSyncedAt   *time.Time        `json:"last_synced_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Duration returns the appointment length.
func (a Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// IsSynced reports whether the appointment mirrors an external event.
func (a Appointment) IsSynced() bool {
	return a.ExternalSyncID != nil && *a.ExternalSyncID != ""
}

// AppointmentDraft carries the fields needed to create an appointment.
type AppointmentDraft struct {
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	Type           AppointmentType
	Status         AppointmentStatus
	Location       string
	OwnerID        uuid.UUID
	Participants   []Participant
	Tags           []string
	ExternalSyncID *string
	RecurrenceRule string

	// MarkSynced stamps last_synced_at together with last_modified so a
	// freshly mirrored appointment does not read as locally edited.
	MarkSynced bool
}

// AppointmentPatch is a partial update. Nil fields are left untouched.
type AppointmentPatch struct {
	Title          *string
	Description    *string
	Start          *time.Time
	End            *time.Time
	Status         *AppointmentStatus
	Location       *string
	ExternalSyncID *string

	// MarkSynced stamps last_synced_at to the same instant as the new
	// last_modified, keeping the "changed since last sync" comparison
	// exact regardless of clock skew between engine and store.
	MarkSynced bool
}
