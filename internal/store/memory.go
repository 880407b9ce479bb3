package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/policy"
)

// Memory is an in-process Store used by tests. A single mutex serializes
// the booking read-check-write sequence, which is the same guarantee the
// Postgres implementation gets from its advisory lock.
type Memory struct {
	mu           sync.Mutex
	clock        clockwork.Clock
	loc          *time.Location
	users        map[string]*model.User
	appointments map[string]*model.Appointment
}

func NewMemory(clock clockwork.Clock, loc *time.Location) *Memory {
	return &Memory{
		clock:        clock,
		loc:          loc,
		users:        make(map[string]*model.User),
		appointments: make(map[string]*model.Appointment),
	}
}

func (s *Memory) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.users {
		if other.Username == u.Username {
			return ErrDuplicateUsername
		}
		if other.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := s.clock.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Memory) UserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// SetActive toggles is_active directly; account state is managed outside
// the credential gate.
func (s *Memory) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
	}
}

func (s *Memory) CreateScheduled(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.appointments {
		if other.Status != model.StatusScheduled {
			continue
		}
		d := other.ScheduledAt.Sub(a.ScheduledAt)
		if d < 0 {
			d = -d
		}
		if d < SlotWindow {
			return &ConflictError{At: other.ScheduledAt}
		}
	}

	dayStart, dayEnd := policy.DayBounds(a.ScheduledAt, s.loc)
	for _, other := range s.appointments {
		if other.PatientID != a.PatientID || other.Status != model.StatusScheduled {
			continue
		}
		if !other.ScheduledAt.Before(dayStart) && !other.ScheduledAt.After(dayEnd) {
			return ErrDuplicateDay
		}
	}

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Status = model.StatusScheduled
	now := s.clock.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *Memory) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Memory) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.appointments[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = s.clock.Now()
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *Memory) DeleteAppointment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

func (s *Memory) ListByPatient(_ context.Context, patientID string) ([]model.Appointment, error) {
	return s.filter(func(a *model.Appointment) bool {
		return a.PatientID == patientID
	}), nil
}

func (s *Memory) ListAll(_ context.Context) ([]model.Appointment, error) {
	return s.filter(func(*model.Appointment) bool { return true }), nil
}

func (s *Memory) ListByPatientRange(_ context.Context, patientID string, from, to time.Time) ([]model.Appointment, error) {
	return s.filter(func(a *model.Appointment) bool {
		return a.PatientID == patientID &&
			!a.ScheduledAt.Before(from) && !a.ScheduledAt.After(to)
	}), nil
}

func (s *Memory) filter(keep func(*model.Appointment) bool) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	return out
}
