// Package capsule implements the Capsule store using PostgreSQL.
//
// Reads are deliberately not owner-filtered: the lifecycle engine enforces
// ownership on mutation and needs NotFound and Forbidden to stay
// distinguishable. media_refs is a text[] column, so the display order of
// the references survives the round trip.
package capsule

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres"
	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// Repo provides capsule persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new capsule repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const capsuleColumns = `id, owner_id, title, description, media_refs, unlock_at, explicit_lock, created_at, updated_at`

const insertSQL = `
INSERT INTO capsules (owner_id, title, description, media_refs, unlock_at, explicit_lock)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + capsuleColumns

const getByIDSQL = `
SELECT ` + capsuleColumns + `
FROM capsules
WHERE id = $1`

const listByOwnerSQL = `
SELECT ` + capsuleColumns + `
FROM capsules
WHERE owner_id = $1
ORDER BY created_at DESC`

const countByOwnerSQL = `
SELECT count(*) FROM capsules WHERE owner_id = $1`

const setExplicitLockSQL = `
UPDATE capsules
SET explicit_lock = $2, updated_at = now()
WHERE id = $1
RETURNING ` + capsuleColumns

// Insert persists a new capsule. The store assigns id, created_at and
// updated_at; the caller-provided values for those fields are ignored.
func (r *Repo) Insert(ctx context.Context, c *domain.Capsule) (*domain.Capsule, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	mediaRefs := c.MediaRefs
	if mediaRefs == nil {
		mediaRefs = []string{}
	}

	row := q.QueryRow(ctx, insertSQL,
		c.OwnerID, c.Title, c.Description, mediaRefs, c.UnlockAt, c.ExplicitLock,
	)

	stored, err := scanCapsule(row)
	if err != nil {
		return nil, mapError(err, "capsule", uuid.Nil)
	}

	return stored, nil
}

// GetByID returns a capsule by primary key, regardless of owner.
// Returns domain.ErrNotFound if no such capsule exists.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Capsule, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	stored, err := scanCapsule(q.QueryRow(ctx, getByIDSQL, id))
	if err != nil {
		return nil, mapError(err, "capsule", id)
	}

	return stored, nil
}

// ListByOwner returns all capsules owned by the given user, newest first.
// Returns an empty slice (not nil) when the user has no capsules.
func (r *Repo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Capsule, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, listByOwnerSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list capsules: %w", err)
	}
	defer rows.Close()

	capsules := []*domain.Capsule{}
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, fmt.Errorf("list capsules: %w", err)
		}
		capsules = append(capsules, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list capsules: %w", err)
	}

	return capsules, nil
}

// CountByOwner returns the number of capsules owned by the given user.
func (r *Repo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var count int
	if err := q.QueryRow(ctx, countByOwnerSQL, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count capsules: %w", err)
	}

	return count, nil
}

// Update applies a merge-patch to a capsule. Only title, description and
// media_refs are reachable through the params; owner_id, unlock_at and
// explicit_lock cannot be touched here. updated_at is bumped.
// Returns domain.ErrNotFound if the id does not exist.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, params domain.CapsuleUpdateParams) (*domain.Capsule, error) {
	if params.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	b := sq.Update("capsules").
		PlaceholderFormat(sq.Dollar).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + capsuleColumns)

	if params.Title != nil {
		b = b.Set("title", *params.Title)
	}
	if params.Description != nil {
		b = b.Set("description", *params.Description)
	}
	if params.MediaRefs != nil {
		b = b.Set("media_refs", params.MediaRefs)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)

	stored, err := scanCapsule(q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "capsule", id)
	}

	return stored, nil
}

// SetExplicitLock flips the administrative mutation lock.
// Returns domain.ErrNotFound if the id does not exist.
func (r *Repo) SetExplicitLock(ctx context.Context, id uuid.UUID, locked bool) (*domain.Capsule, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	stored, err := scanCapsule(q.QueryRow(ctx, setExplicitLockSQL, id, locked))
	if err != nil {
		return nil, mapError(err, "capsule", id)
	}

	return stored, nil
}

// scanCapsule scans one row in capsuleColumns order.
func scanCapsule(row pgx.Row) (*domain.Capsule, error) {
	var c domain.Capsule
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Description,
		&c.MediaRefs,
		&c.UnlockAt,
		&c.ExplicitLock,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// mapError converts pgx/pgconn errors to domain errors.
func mapError(err error, entity string, id uuid.UUID) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation: owner does not exist
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", entity, id, err)
}
