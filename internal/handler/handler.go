// Package handler is the thin HTTP layer: it decodes requests, calls
// the gate and booking service, and maps their errors to status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/booking"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/policy"
	"clinic-booking-api/internal/ratelimit"
	"clinic-booking-api/internal/store"
)

type Handler struct {
	gate     *auth.Gate
	bookings *booking.Service
	limiter  *ratelimit.LoginLimiter
	throttle *ratelimit.Throttle
	key      middleware.KeyFunc
	logger   *zap.SugaredLogger
}

func New(gate *auth.Gate, bookings *booking.Service, limiter *ratelimit.LoginLimiter, throttle *ratelimit.Throttle, key middleware.KeyFunc, logger *zap.SugaredLogger) *Handler {
	if key == nil {
		key = middleware.RemoteHostKey
	}
	return &Handler{gate: gate, bookings: bookings, limiter: limiter, throttle: throttle, key: key, logger: logger}
}

// Routes builds the full route table. Auth endpoints sit behind the
// request throttle; everything else requires a bearer token.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	throttled := middleware.Throttle(h.throttle, h.key)
	authed := middleware.Auth(h.gate)

	mux.Handle("POST /auth/register", throttled(http.HandlerFunc(h.RegisterUser)))
	mux.Handle("POST /auth/login", throttled(http.HandlerFunc(h.Login)))

	mux.Handle("POST /users", authed(http.HandlerFunc(h.AdminCreateUser)))

	mux.Handle("POST /appointments", authed(http.HandlerFunc(h.CreateAppointment)))
	mux.Handle("GET /appointments", authed(http.HandlerFunc(h.ListOwnAppointments)))
	mux.Handle("GET /appointments/today", authed(http.HandlerFunc(h.ListTodayAppointments)))
	mux.Handle("GET /appointments/all", authed(http.HandlerFunc(h.ListAllAppointments)))
	mux.Handle("PUT /appointments/{id}", authed(http.HandlerFunc(h.EditAppointment)))
	mux.Handle("DELETE /appointments/{id}", authed(http.HandlerFunc(h.CancelAppointment)))

	return mux
}

// response envelope, same shape for success and failure
func writeJSON(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": success, "message": message}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, true, message, data)
}

// fail maps a service error to its transport shape. Conflict errors
// carry the suggested alternative; rate limiting carries Retry-After.
func fail(w http.ResponseWriter, err error) {
	var conflict *booking.SlotConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusBadRequest, false, conflict.Error(), map[string]any{
			"suggested_time": conflict.Suggested.Format(time.RFC3339),
		})
		return
	}
	var limited *ratelimit.LimitedError
	if errors.As(err, &limited) {
		secs := int(limited.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, false, limited.Error(), map[string]any{
			"retry_after_seconds": secs,
		})
		return
	}
	writeJSON(w, statusFor(err), false, err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, policy.ErrPastDate),
		errors.Is(err, policy.ErrOutsideHours),
		errors.Is(err, policy.ErrWeekend),
		errors.Is(err, booking.ErrDuplicateDay),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, store.ErrDuplicateUsername),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, errBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInactiveAccount),
		errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

var errBadPayload = errors.New("invalid request payload")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadPayload
	}
	return nil
}

func caller(r *http.Request) *model.User {
	u, _ := middleware.UserFrom(r.Context())
	return u
}
