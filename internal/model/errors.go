package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidationError rejects malformed input before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError rejects a move or flags a sync because of overlapping
// records. Records carries every conflicting pair so the caller can
// render an actionable resolution.
type ConflictError struct {
	Records []ConflictRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("operation conflicts with %d existing record(s)", len(e.Records))
}

// StaleWriteError signals a lost optimistic-concurrency race: the
// appointment was modified after the caller read it.
type StaleWriteError struct {
	AppointmentID uuid.UUID
	Expected      time.Time
	Actual        time.Time
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on appointment %s: expected last_modified %s, store has %s",
		e.AppointmentID, e.Expected.Format(time.RFC3339), e.Actual.Format(time.RFC3339))
}

// ProviderError wraps a failure talking to the external calendar provider.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a sync cycle that exceeded its budget.
type TimeoutError struct {
	Stage  string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded timeout budget of %s", e.Stage, e.Budget)
}
