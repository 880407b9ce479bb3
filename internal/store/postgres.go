package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/policy"
)

type Postgres struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

func NewPostgres(pool *pgxpool.Pool, loc *time.Location) *Postgres {
	return &Postgres{pool: pool, loc: loc}
}

func (s *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, email, full_name, password_hash, role, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, string(u.Role), u.IsActive,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapUniqueViolation(err)
}

// unique_violation -> duplicate username/email, by constraint name
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return ErrDuplicateUsername
		case "users_email_key":
			return ErrDuplicateEmail
		}
	}
	return err
}

func (s *Postgres) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.userBy(ctx, `WHERE username = $1`, username)
}

func (s *Postgres) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.userBy(ctx, `WHERE id = $1`, id)
}

func (s *Postgres) userBy(ctx context.Context, where string, arg any) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, full_name, password_hash, role, is_active, created_at, updated_at
		 FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateScheduled checks and inserts inside one transaction, serialized
// per booking day with an advisory lock so two concurrent requests
// cannot both observe "no conflict" and both insert.
func (s *Postgres) CreateScheduled(ctx context.Context, a *model.Appointment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.Status = model.StatusScheduled

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	dayKey := "appointments:" + a.ScheduledAt.In(s.loc).Format("2006-01-02")
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dayKey); err != nil {
		return err
	}

	var conflictAt time.Time
	err = tx.QueryRow(ctx,
		`SELECT scheduled_at FROM appointments
		 WHERE status = $1 AND scheduled_at > $2 AND scheduled_at < $3
		 ORDER BY scheduled_at LIMIT 1`,
		string(model.StatusScheduled), a.ScheduledAt.Add(-SlotWindow), a.ScheduledAt.Add(SlotWindow),
	).Scan(&conflictAt)
	if err == nil {
		return &ConflictError{At: conflictAt}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	dayStart, dayEnd := policy.DayBounds(a.ScheduledAt, s.loc)
	var sameDay bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND status = $2 AND scheduled_at BETWEEN $3 AND $4)`,
		a.PatientID, string(model.StatusScheduled), dayStart, dayEnd,
	).Scan(&sameDay)
	if err != nil {
		return err
	}
	if sameDay {
		return ErrDuplicateDay
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (id, reason, scheduled_at, patient_id, status, notes)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING created_at, updated_at`,
		a.ID, string(a.Reason), a.ScheduledAt, a.PatientID, string(a.Status), a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Postgres) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, reason, scheduled_at, patient_id, status, notes, created_at, updated_at
		 FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.Reason, &a.ScheduledAt, &a.PatientID, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Postgres) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments
		 SET reason=$1, scheduled_at=$2, status=$3, notes=$4, updated_at=NOW()
		 WHERE id=$5`,
		string(a.Reason), a.ScheduledAt, string(a.Status), a.Notes, a.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return s.list(ctx,
		`SELECT id, reason, scheduled_at, patient_id, status, notes, created_at, updated_at
		 FROM appointments WHERE patient_id = $1 ORDER BY scheduled_at`, patientID)
}

func (s *Postgres) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return s.list(ctx,
		`SELECT id, reason, scheduled_at, patient_id, status, notes, created_at, updated_at
		 FROM appointments ORDER BY scheduled_at`)
}

func (s *Postgres) ListByPatientRange(ctx context.Context, patientID string, from, to time.Time) ([]model.Appointment, error) {
	return s.list(ctx,
		`SELECT id, reason, scheduled_at, patient_id, status, notes, created_at, updated_at
		 FROM appointments
		 WHERE patient_id = $1 AND scheduled_at BETWEEN $2 AND $3
		 ORDER BY scheduled_at`, patientID, from, to)
}

func (s *Postgres) list(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.Reason, &a.ScheduledAt, &a.PatientID, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
