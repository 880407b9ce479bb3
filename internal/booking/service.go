// Package booking orchestrates the scheduling policy and the store for
// appointment create/edit/cancel/list operations, enforcing ownership.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/policy"
	"clinic-booking-api/internal/store"
)

var (
	ErrDuplicateDay = errors.New("you already have an appointment booked that day")
	// ErrNotFound covers both a missing appointment and a non-admin
	// touching someone else's; the two are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("appointment not found")
	ErrInternal = errors.New("internal error")
)

// SlotConflictError reports a taken slot together with an advisory
// alternative (conflicting time + 1h, not validated recursively).
type SlotConflictError struct {
	ConflictAt time.Time
	Suggested  time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot taken, next suggested time %s", e.Suggested.Format(time.RFC3339))
}

// Patch carries the fields of an edit; nil fields are left untouched.
type Patch struct {
	Reason      *model.Reason
	ScheduledAt *time.Time
	Status      *model.Status
	Notes       *string
}

type Service struct {
	store  store.Store
	clock  clockwork.Clock
	loc    *time.Location
	logger *zap.SugaredLogger
}

func NewService(st store.Store, clock clockwork.Clock, loc *time.Location, logger *zap.SugaredLogger) *Service {
	return &Service{store: st, clock: clock, loc: loc, logger: logger}
}

// Create books a new appointment. Policy violations fail before the
// store is touched; the conflict and duplicate-day invariants are
// enforced inside the store's serialized create.
func (s *Service) Create(ctx context.Context, reason model.Reason, at time.Time, patientID, notes string) (*model.Appointment, error) {
	if err := policy.Check(s.clock.Now(), at, s.loc); err != nil {
		return nil, err
	}

	a := &model.Appointment{
		Reason:      reason,
		ScheduledAt: at,
		PatientID:   patientID,
		Notes:       notes,
	}
	if err := s.store.CreateScheduled(ctx, a); err != nil {
		var conflict *store.ConflictError
		switch {
		case errors.As(err, &conflict):
			return nil, &SlotConflictError{
				ConflictAt: conflict.At,
				Suggested:  conflict.At.Add(time.Hour),
			}
		case errors.Is(err, store.ErrDuplicateDay):
			return nil, ErrDuplicateDay
		default:
			s.logger.Errorw("create appointment failed", "err", err)
			return nil, ErrInternal
		}
	}
	s.logger.Infow("appointment booked", "id", a.ID, "patient", patientID, "at", at)
	return a, nil
}

// Edit applies the non-nil patch fields. A time change re-runs the
// policy checks; conflict and duplicate-day checks are intentionally not
// re-run on edit.
func (s *Service) Edit(ctx context.Context, id, callerID string, callerRole model.Role, p Patch) (*model.Appointment, error) {
	a, err := s.owned(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	if p.ScheduledAt != nil {
		if err := policy.Check(s.clock.Now(), *p.ScheduledAt, s.loc); err != nil {
			return nil, err
		}
		a.ScheduledAt = *p.ScheduledAt
	}
	if p.Reason != nil {
		a.Reason = *p.Reason
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}

	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Errorw("update appointment failed", "id", id, "err", err)
		return nil, ErrInternal
	}
	return a, nil
}

// Cancel hard-deletes the appointment. Same ownership rule as Edit.
func (s *Service) Cancel(ctx context.Context, id, callerID string, callerRole model.Role) (string, error) {
	a, err := s.owned(ctx, id, callerID, callerRole)
	if err != nil {
		return "", err
	}
	if err := s.store.DeleteAppointment(ctx, a.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		s.logger.Errorw("delete appointment failed", "id", id, "err", err)
		return "", ErrInternal
	}
	s.logger.Infow("appointment cancelled", "id", id, "caller", callerID)
	return a.ID, nil
}

func (s *Service) ListOwn(ctx context.Context, patientID string) ([]model.Appointment, error) {
	out, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		s.logger.Errorw("list own failed", "patient", patientID, "err", err)
		return nil, ErrInternal
	}
	return out, nil
}

// ListAll returns the full calendar. Admin-only; the role check happens
// at the request layer.
func (s *Service) ListAll(ctx context.Context) ([]model.Appointment, error) {
	out, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Errorw("list all failed", "err", err)
		return nil, ErrInternal
	}
	return out, nil
}

// ListToday returns the patient's appointments within today's bounds in
// the reference timezone.
func (s *Service) ListToday(ctx context.Context, patientID string) ([]model.Appointment, error) {
	from, to := policy.DayBounds(s.clock.Now(), s.loc)
	out, err := s.store.ListByPatientRange(ctx, patientID, from, to)
	if err != nil {
		s.logger.Errorw("list today failed", "patient", patientID, "err", err)
		return nil, ErrInternal
	}
	return out, nil
}

// owned loads the appointment and enforces the ownership rule: non-admin
// callers get NotFound for records they do not own.
func (s *Service) owned(ctx context.Context, id, callerID string, callerRole model.Role) (*model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Errorw("get appointment failed", "id", id, "err", err)
		return nil, ErrInternal
	}
	if callerRole != model.RoleAdmin && a.PatientID != callerID {
		return nil, ErrNotFound
	}
	return a, nil
}
