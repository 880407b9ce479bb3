package handler

import (
	"errors"
	"net/http"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		fail(w, errBadPayload)
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, false, "password too short", nil)
		return
	}

	u, err := h.gate.Register(r.Context(), req.Username, req.Email, req.FullName, req.Password, model.Role(req.Role))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, true, "user registered", userOut(u))
}

// AdminCreateUser creates an account with any role, admin included.
func (h *Handler) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireRole(caller(r), model.RoleAdmin); err != nil {
		fail(w, err)
		return
	}

	var req registerRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		fail(w, errBadPayload)
		return
	}

	u, err := h.gate.AdminCreateUser(r.Context(), req.Username, req.Email, req.FullName, req.Password, model.Role(req.Role))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, true, "user created", userOut(u))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login composes the rate limiter in front of the credential gate:
// limiter first (may reject outright), failures recorded after the gate
// rejects, window cleared on success.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	identity := h.key(r)
	if err := h.limiter.CheckAllowed(identity); err != nil {
		fail(w, err)
		return
	}

	var req loginRequest
	if err := decode(r, &req); err != nil {
		fail(w, err)
		return
	}

	u, err := h.gate.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveAccount) {
			h.limiter.RecordFailure(identity)
		}
		fail(w, err)
		return
	}
	h.limiter.ClearAttempts(identity)

	tok, err := h.gate.IssueToken(u)
	if err != nil {
		h.logger.Errorw("token issue failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, false, "internal error", nil)
		return
	}
	ok(w, "login successful", map[string]any{
		"access_token": tok,
		"token_type":   "bearer",
	})
}

func userOut(u *model.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      string(u.Role),
		"is_active": u.IsActive,
	}
}
