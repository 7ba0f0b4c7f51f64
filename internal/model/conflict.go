package model

import (
	"time"

	"github.com/google/uuid"
)

type ConflictKind string

const (
	ConflictKindOverlap        ConflictKind = "overlap"
	ConflictKindDuplicate      ConflictKind = "duplicate"
	ConflictKindConcurrentEdit ConflictKind = "concurrent-edit"
)

type ResolutionState string

const (
	ResolutionUnresolved ResolutionState = "unresolved"
	ResolutionAuto       ResolutionState = "auto"
	ResolutionManual     ResolutionState = "manual"
)

// ConflictRecord describes one conflicting pair. Either
// OtherAppointmentID (local/local) or RemoteEventID (local/remote)
// is set, never both.
type ConflictRecord struct {
	LocalAppointmentID uuid.UUID       `json:"local_appointment_id"`
	OtherAppointmentID *uuid.UUID      `json:"other_appointment_id,omitempty"`
	RemoteEventID      *string         `json:"remote_event_id,omitempty"`
	Kind               ConflictKind    `json:"kind"`
	Resolution         ResolutionState `json:"resolution"`
	DetectedAt         time.Time       `json:"detected_at"`
	ResolvedAt         *time.Time      `json:"resolved_at,omitempty"`
}
