package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskfolio/taskfolio/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts a new user into the database.
// Returns ErrEmailExists if the email is already registered (case-insensitive).
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return mapStoreError(fmt.Errorf("failed to create user: %w", err))
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, mapStoreError(fmt.Errorf("failed to get user by ID: %w", err))
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email, matching case-insensitively.
// The caller is expected to have normalized the email already; the lookup
// lowercases both sides regardless.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, mapStoreError(fmt.Errorf("failed to get user by email: %w", err))
	}

	return user, nil
}

// UpdateUser persists changes to a user's name and email.
// Returns ErrEmailExists if the new email collides with a different user.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET name = $2, email = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return mapStoreError(fmt.Errorf("failed to update user: %w", err))
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateUserPassword replaces a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return mapStoreError(fmt.Errorf("failed to update password: %w", err))
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// scanUser scans a single row into a User model.
func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
