package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func newMemory(t *testing.T) *store.Memory {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	return store.NewMemory(clock, time.UTC)
}

func scheduled(at time.Time, patientID string) *model.Appointment {
	return &model.Appointment{
		Reason:      model.ReasonGeneralMedicine,
		ScheduledAt: at,
		PatientID:   patientID,
	}
}

func TestCreateScheduledConflictWindow(t *testing.T) {
	st := newMemory(t)
	base := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	if err := st.CreateScheduled(context.Background(), scheduled(base, "p1")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// 29m59s away conflicts, and the error names the taken slot
	err := st.CreateScheduled(context.Background(), scheduled(base.Add(29*time.Minute+59*time.Second), "p2"))
	var conflict *store.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !conflict.At.Equal(base) {
		t.Errorf("conflict.At = %v, want %v", conflict.At, base)
	}

	// exactly the window apart is fine
	if err := st.CreateScheduled(context.Background(), scheduled(base.Add(store.SlotWindow), "p2")); err != nil {
		t.Fatalf("boundary create: %v", err)
	}
}

func TestCompletedAppointmentsDoNotBlockSlots(t *testing.T) {
	st := newMemory(t)
	base := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	a := scheduled(base, "p1")
	if err := st.CreateScheduled(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	a.Status = model.StatusCompleted
	if err := st.UpdateAppointment(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	// same slot is free again; same day for p1 is free again too
	if err := st.CreateScheduled(context.Background(), scheduled(base, "p1")); err != nil {
		t.Fatalf("completed appointment should not block: %v", err)
	}
}

func TestCreateScheduledAssignsIdentity(t *testing.T) {
	st := newMemory(t)
	a := scheduled(time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC), "p1")

	if err := st.CreateScheduled(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if a.ID == "" {
		t.Error("id not assigned")
	}
	if a.Status != model.StatusScheduled {
		t.Errorf("status = %s", a.Status)
	}
	if a.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestUserUniqueness(t *testing.T) {
	st := newMemory(t)
	u := &model.User{Username: "ana", Email: "ana@clinic.test", FullName: "Ana", PasswordHash: "x", Role: model.RolePatient, IsActive: true}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	dupName := &model.User{Username: "ana", Email: "other@clinic.test", FullName: "A", PasswordHash: "x", Role: model.RolePatient}
	if err := st.CreateUser(context.Background(), dupName); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Errorf("expected duplicate username, got %v", err)
	}
	dupMail := &model.User{Username: "ana2", Email: "ana@clinic.test", FullName: "A", PasswordHash: "x", Role: model.RolePatient}
	if err := st.CreateUser(context.Background(), dupMail); !errors.Is(err, store.ErrDuplicateEmail) {
		t.Errorf("expected duplicate email, got %v", err)
	}
}
