// Package authmethod implements the AuthMethod repository using PostgreSQL.
package authmethod

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres"
	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// Repo provides auth-method persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new auth-method repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const authMethodColumns = `id, user_id, method, password_hash, created_at, updated_at`

const createSQL = `
INSERT INTO auth_methods (user_id, method, password_hash)
VALUES ($1, $2, $3)
RETURNING ` + authMethodColumns

const getByUserAndMethodSQL = `
SELECT ` + authMethodColumns + `
FROM auth_methods
WHERE user_id = $1 AND method = $2`

// Create inserts a new auth method for a user.
// Returns domain.ErrAlreadyExists if the user already has this method.
func (r *Repo) Create(ctx context.Context, am *domain.AuthMethod) (*domain.AuthMethod, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	row := q.QueryRow(ctx, createSQL, am.UserID, am.Method.String(), am.PasswordHash)

	stored, err := scanAuthMethod(row)
	if err != nil {
		return nil, mapError(err, am.UserID)
	}

	return stored, nil
}

// GetByUserAndMethod returns the credential of the given type for a user.
func (r *Repo) GetByUserAndMethod(ctx context.Context, userID uuid.UUID, method domain.AuthMethodType) (*domain.AuthMethod, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	stored, err := scanAuthMethod(q.QueryRow(ctx, getByUserAndMethodSQL, userID, method.String()))
	if err != nil {
		return nil, mapError(err, userID)
	}

	return stored, nil
}

func scanAuthMethod(row pgx.Row) (*domain.AuthMethod, error) {
	var (
		am     domain.AuthMethod
		method string
	)
	err := row.Scan(&am.ID, &am.UserID, &method, &am.PasswordHash, &am.CreatedAt, &am.UpdatedAt)
	if err != nil {
		return nil, err
	}
	am.Method = domain.AuthMethodType(method)
	return &am, nil
}

func mapError(err error, userID uuid.UUID) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("auth_method for user %s: %w", userID, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("auth_method for user %s: %w", userID, domain.ErrAlreadyExists)
		case "23503": // foreign_key_violation
			return fmt.Errorf("auth_method for user %s: %w", userID, domain.ErrNotFound)
		}
	}

	return fmt.Errorf("auth_method for user %s: %w", userID, err)
}
