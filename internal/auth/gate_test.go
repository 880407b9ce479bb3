package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func setup(t *testing.T) (*auth.Gate, *store.Memory, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	st := store.NewMemory(clock, time.UTC)
	codec := auth.NewTokenCodec("test-secret", 30*time.Minute, clock)
	gate := auth.NewGate(st, auth.BcryptHasher{Cost: 4}, codec, zap.NewNop().Sugar())
	return gate, st, clock
}

func register(t *testing.T, gate *auth.Gate, username string) *model.User {
	t.Helper()
	u, err := gate.Register(context.Background(), username, username+"@clinic.test", "Test User", "testpass123", model.RolePatient)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestAuthenticate(t *testing.T) {
	gate, _, _ := setup(t)
	register(t, gate, "ana")

	u, err := gate.Authenticate(context.Background(), "ana", "testpass123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.Username != "ana" {
		t.Errorf("wrong user: %s", u.Username)
	}
}

func TestAuthenticateUniformFailure(t *testing.T) {
	gate, _, _ := setup(t)
	register(t, gate, "ana")

	_, errWrongPass := gate.Authenticate(context.Background(), "ana", "wrongpass")
	_, errNoUser := gate.Authenticate(context.Background(), "nobody", "testpass123")

	if !errors.Is(errWrongPass, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", errWrongPass)
	}
	if !errors.Is(errNoUser, auth.ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v", errNoUser)
	}
	// identical kind and message, no enumeration signal
	if errWrongPass.Error() != errNoUser.Error() {
		t.Errorf("messages differ: %q vs %q", errWrongPass, errNoUser)
	}
}

func TestAuthenticateInactive(t *testing.T) {
	gate, st, _ := setup(t)
	u := register(t, gate, "ana")
	st.SetActive(u.ID, false)

	_, err := gate.Authenticate(context.Background(), "ana", "testpass123")
	if !errors.Is(err, auth.ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	gate, _, _ := setup(t)
	u := register(t, gate, "ana")

	tok, err := gate.IssueToken(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := gate.ValidateToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("subject mismatch: %s vs %s", got.ID, u.ID)
	}
}

func TestTokenExpiry(t *testing.T) {
	gate, _, clock := setup(t)
	u := register(t, gate, "ana")

	tok, _ := gate.IssueToken(u)

	clock.Advance(29 * time.Minute)
	if _, err := gate.ValidateToken(context.Background(), tok); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := gate.ValidateToken(context.Background(), tok); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestTokenTampering(t *testing.T) {
	gate, _, clock := setup(t)
	u := register(t, gate, "ana")

	// token signed with a different secret
	other := auth.NewTokenCodec("other-secret", 30*time.Minute, clock)
	forged, _ := other.Sign(u)
	if _, err := gate.ValidateToken(context.Background(), forged); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Error("expected forged token to be rejected")
	}

	if _, err := gate.ValidateToken(context.Background(), "not.a.token"); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Error("expected garbage token to be rejected")
	}
}

func TestTokenSubjectMustResolve(t *testing.T) {
	gate, _, clock := setup(t)

	// token for a user that was never persisted
	codec := auth.NewTokenCodec("test-secret", 30*time.Minute, clock)
	ghost := &model.User{ID: "ghost", Role: model.RolePatient}
	tok, _ := codec.Sign(ghost)

	if _, err := gate.ValidateToken(context.Background(), tok); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Error("expected unresolvable subject to be rejected")
	}
}

func TestRequireRole(t *testing.T) {
	admin := &model.User{Role: model.RoleAdmin}
	patient := &model.User{Role: model.RolePatient}

	if err := auth.RequireRole(admin, model.RoleAdmin); err != nil {
		t.Errorf("admin should pass: %v", err)
	}
	if err := auth.RequireRole(patient, model.RoleAdmin); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("patient should be forbidden: %v", err)
	}
	// exact match, not hierarchical: admin is not a doctor
	if err := auth.RequireRole(admin, model.RoleDoctor); !errors.Is(err, auth.ErrForbidden) {
		t.Errorf("role check must be exact match: %v", err)
	}
}

func TestRegisterRoleRestrictions(t *testing.T) {
	gate, _, _ := setup(t)

	if _, err := gate.Register(context.Background(), "eve", "eve@clinic.test", "Eve", "testpass123", model.RoleAdmin); !errors.Is(err, auth.ErrInvalidRole) {
		t.Errorf("self-service admin registration must fail: %v", err)
	}
	if _, err := gate.Register(context.Background(), "eve", "eve@clinic.test", "Eve", "testpass123", model.Role("superuser")); !errors.Is(err, auth.ErrInvalidRole) {
		t.Errorf("unknown role must fail: %v", err)
	}
	if _, err := gate.Register(context.Background(), "doc", "doc@clinic.test", "Doc", "testpass123", model.RoleDoctor); err != nil {
		t.Errorf("doctor registration should succeed: %v", err)
	}
	// admin-initiated creation may set any role
	if _, err := gate.AdminCreateUser(context.Background(), "root", "root@clinic.test", "Root", "testpass123", model.RoleAdmin); err != nil {
		t.Errorf("admin-created admin should succeed: %v", err)
	}
}

func TestDuplicateUsernameAndEmail(t *testing.T) {
	gate, _, _ := setup(t)
	register(t, gate, "ana")

	_, err := gate.Register(context.Background(), "ana", "other@clinic.test", "Other", "testpass123", model.RolePatient)
	if !errors.Is(err, store.ErrDuplicateUsername) {
		t.Errorf("expected duplicate username, got %v", err)
	}
	_, err = gate.Register(context.Background(), "ana2", "ana@clinic.test", "Other", "testpass123", model.RolePatient)
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Errorf("expected duplicate email, got %v", err)
	}
}
