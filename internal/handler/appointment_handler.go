package handler

import (
	"fmt"
	"net/http"
	"time"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/model"
)

type createAppointmentRequest struct {
	Reason      string    `json:"reason"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       string    `json:"notes"`
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	u := caller(r)

	var req createAppointmentRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	reason := model.Reason(req.Reason)
	if !reason.Valid() {
		fail(w, fmt.Errorf("%w: unknown reason", errBadPayload))
		return
	}
	if req.ScheduledAt.IsZero() {
		fail(w, fmt.Errorf("%w: scheduled_at required", errBadPayload))
		return
	}
	if len(req.Notes) > model.MaxNotesLen {
		fail(w, fmt.Errorf("%w: notes too long", errBadPayload))
		return
	}

	a, err := h.bookings.Create(r.Context(), reason, req.ScheduledAt, u.ID, req.Notes)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, true, "appointment booked", appointmentOut(a))
}

type editAppointmentRequest struct {
	Reason      *string    `json:"reason"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      *string    `json:"status"`
	Notes       *string    `json:"notes"`
}

func (h *Handler) EditAppointment(w http.ResponseWriter, r *http.Request) {
	u := caller(r)

	var req editAppointmentRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	var patch booking.Patch
	if req.Reason != nil {
		reason := model.Reason(*req.Reason)
		if !reason.Valid() {
			fail(w, fmt.Errorf("%w: unknown reason", errBadPayload))
			return
		}
		patch.Reason = &reason
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		if !status.Valid() {
			fail(w, fmt.Errorf("%w: unknown status", errBadPayload))
			return
		}
		patch.Status = &status
	}
	if req.Notes != nil {
		if len(*req.Notes) > model.MaxNotesLen {
			fail(w, fmt.Errorf("%w: notes too long", errBadPayload))
			return
		}
		patch.Notes = req.Notes
	}
	patch.ScheduledAt = req.ScheduledAt

	a, err := h.bookings.Edit(r.Context(), r.PathValue("id"), u.ID, u.Role, patch)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "appointment updated", appointmentOut(a))
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	id, err := h.bookings.Cancel(r.Context(), r.PathValue("id"), u.ID, u.Role)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "appointment cancelled", map[string]any{"id": id})
}

func (h *Handler) ListOwnAppointments(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	list, err := h.bookings.ListOwn(r.Context(), u.ID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "appointments retrieved", appointmentsOut(list))
}

func (h *Handler) ListTodayAppointments(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	list, err := h.bookings.ListToday(r.Context(), u.ID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "today's appointments retrieved", appointmentsOut(list))
}

func (h *Handler) ListAllAppointments(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireRole(caller(r), model.RoleAdmin); err != nil {
		fail(w, err)
		return
	}
	list, err := h.bookings.ListAll(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "all appointments retrieved", appointmentsOut(list))
}

func appointmentOut(a *model.Appointment) map[string]any {
	return map[string]any{
		"id":           a.ID,
		"reason":       string(a.Reason),
		"scheduled_at": a.ScheduledAt.Format(time.RFC3339),
		"patient_id":   a.PatientID,
		"status":       string(a.Status),
		"notes":        a.Notes,
		"created_at":   a.CreatedAt.Format(time.RFC3339),
		"updated_at":   a.UpdatedAt.Format(time.RFC3339),
	}
}

func appointmentsOut(list []model.Appointment) []map[string]any {
	out := make([]map[string]any, len(list))
	for i := range list {
		out[i] = appointmentOut(&list[i])
	}
	return out
}
