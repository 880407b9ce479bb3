package model

import "time"

// Role is the closed set of account roles. Unknown values are rejected
// at the data boundary, not at use sites.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "paciente"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Status of an appointment. Owner cancellation is a hard delete, so
// "cancelled" only appears on records explicitly edited into that state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Reason is the fixed set of clinic services an appointment can be
// booked for. Values match the wire format of the original API.
type Reason string

const (
	ReasonGeneralMedicine Reason = "Medicina General"
	ReasonDentistry       Reason = "Odontología"
	ReasonLaboratory      Reason = "Laboratorio"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonGeneralMedicine, ReasonDentistry, ReasonLaboratory:
		return true
	}
	return false
}

// MaxNotesLen bounds the free-text notes field.
const MaxNotesLen = 500

type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Appointment struct {
	ID          string
	Reason      Reason
	ScheduledAt time.Time
	PatientID   string
	Status      Status
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
