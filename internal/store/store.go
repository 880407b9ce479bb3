// Package store persists users and appointments. Two implementations
// share one interface: Postgres for production and Memory for tests,
// both enforcing the booking invariants inside a serialized
// read-check-write sequence.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-booking-api/internal/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateDay      = errors.New("patient already has an appointment that day")
)

// ConflictError reports a scheduled appointment within the minimum
// separation window of a requested time.
type ConflictError struct {
	At time.Time // time of the conflicting appointment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflicts with appointment at %s", e.At.Format(time.RFC3339))
}

// SlotWindow is the minimum separation between any two scheduled
// appointments, system-wide.
const SlotWindow = 30 * time.Minute

type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)

	// CreateScheduled runs the slot-conflict and duplicate-day checks and
	// the insert as one serialized unit. Returns *ConflictError or
	// ErrDuplicateDay when an invariant would be violated.
	CreateScheduled(ctx context.Context, a *model.Appointment) error

	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	ListByPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	ListByPatientRange(ctx context.Context, patientID string, from, to time.Time) ([]model.Appointment, error)
}
