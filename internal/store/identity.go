package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gramseva/apiserver/types"
)

// IdentityRepository handles persistence for user accounts.
type IdentityRepository struct {
	db *sql.DB
}

func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

const userColumns = `id, name, phone, email, password, role, hospital_name,
		registered_by, registered_at, is_active, district, state, created_at, updated_at`

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.HospitalName,
		&user.RegisteredBy,
		&user.RegisteredAt,
		&user.IsActive,
		&user.District,
		&user.State,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// GetByID returns an active account by id.
func (r *IdentityRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND is_active`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail returns an active account by email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND is_active`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// EmailExists reports whether any account, active or soft-deleted, holds
// the email. Advisory only; the unique index is the final arbiter.
func (r *IdentityRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a profile-less account (District Collector, Hospital,
// Villager). Unique-index violations surface as conflict sentinels.
func (r *IdentityRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = now
	}
	user.IsActive = true

	const query = `
		INSERT INTO users (name, phone, email, password, role, hospital_name,
			registered_by, registered_at, is_active, district, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Phone,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.HospitalName,
		user.RegisteredBy,
		user.RegisteredAt,
		user.IsActive,
		user.District,
		user.State,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translateConflict(err)
	}
	return user, nil
}

// UpdateContact replaces the name, email, and phone of an account.
func (r *IdentityRepository) UpdateContact(ctx context.Context, id int, name, email, phone string) error {
	const query = `
		UPDATE users
		SET name = $1, email = $2, phone = $3, updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, name, email, phone, time.Now(), id)
	if err != nil {
		return translateConflict(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword overwrites the stored password hash.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
