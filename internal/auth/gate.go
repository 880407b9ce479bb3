// Package auth is the credential gate: password verification, bearer
// token issue/validation and role checks. It sits behind the login rate
// limiter and in front of the booking service.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

var (
	// Identical for unknown usernames and wrong passwords so responses
	// cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveAccount    = errors.New("account is disabled")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient privileges")
	ErrInvalidRole        = errors.New("role not allowed")
)

// UserStore is the slice of the store the gate needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
}

type Gate struct {
	users  UserStore
	hasher PasswordHasher
	codec  *TokenCodec
	logger *zap.SugaredLogger
}

func NewGate(users UserStore, hasher PasswordHasher, codec *TokenCodec, logger *zap.SugaredLogger) *Gate {
	return &Gate{users: users, hasher: hasher, codec: codec, logger: logger}
}

// Authenticate resolves a username/password pair to a user. Disabled
// accounts fail with a distinct error after the password check, so a
// valid password is still required to learn an account is disabled.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := g.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !g.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		g.logger.Infow("login rejected for disabled account", "user", u.ID)
		return nil, ErrInactiveAccount
	}
	return u, nil
}

func (g *Gate) IssueToken(u *model.User) (string, error) {
	return g.codec.Sign(u)
}

// ValidateToken checks signature and expiry, then resolves the subject
// to an existing user.
func (g *Gate) ValidateToken(ctx context.Context, raw string) (*model.User, error) {
	claims, err := g.codec.Verify(raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	u, err := g.users.UserByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// RequireRole is an exact-match check, not hierarchical.
func RequireRole(u *model.User, role model.Role) error {
	if u.Role != role {
		return ErrForbidden
	}
	return nil
}

// Register creates a self-service account. The admin role cannot be
// self-assigned.
func (g *Gate) Register(ctx context.Context, username, email, fullName, password string, role model.Role) (*model.User, error) {
	if !role.Valid() || role == model.RoleAdmin {
		return nil, ErrInvalidRole
	}
	return g.createUser(ctx, username, email, fullName, password, role)
}

// AdminCreateUser creates an account with any valid role, including
// admin. Callers gate this behind RequireRole.
func (g *Gate) AdminCreateUser(ctx context.Context, username, email, fullName, password string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return g.createUser(ctx, username, email, fullName, password, role)
}

func (g *Gate) createUser(ctx context.Context, username, email, fullName, password string, role model.Role) (*model.User, error) {
	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := g.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	g.logger.Infow("user created", "user", u.ID, "role", role)
	return u, nil
}
