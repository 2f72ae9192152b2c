// Package audit implements the append-only audit log repository using
// PostgreSQL.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres"
	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new audit repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const insertSQL = `
INSERT INTO audit_log (user_id, entity_type, entity_id, action, changes)
VALUES ($1, $2, $3, $4, $5)`

const getByEntitySQL = `
SELECT id, user_id, entity_type, entity_id, action, changes, created_at
FROM audit_log
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at DESC
LIMIT $3`

// Log appends an audit record. Runs inside the caller's transaction when
// one is carried in the context.
func (r *Repo) Log(ctx context.Context, record domain.AuditRecord) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	changesJSON, err := json.Marshal(record.Changes)
	if err != nil {
		return fmt.Errorf("audit_record marshal changes: %w", err)
	}

	_, err = q.Exec(ctx, insertSQL,
		record.UserID,
		record.EntityType.String(),
		record.EntityID,
		record.Action.String(),
		changesJSON,
	)
	if err != nil {
		return fmt.Errorf("audit_record insert: %w", err)
	}

	return nil
}

// GetByEntity returns the change history for a specific entity, newest
// first, limited to `limit` records.
func (r *Repo) GetByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]domain.AuditRecord, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := q.Query(ctx, getByEntitySQL, entityType.String(), entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit_record get by entity: %w", err)
	}
	defer rows.Close()

	records := []domain.AuditRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("audit_record scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit_record get by entity: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (domain.AuditRecord, error) {
	var (
		rec         domain.AuditRecord
		entityType  string
		action      string
		changesJSON []byte
		createdAt   time.Time
	)
	err := row.Scan(&rec.ID, &rec.UserID, &entityType, &rec.EntityID, &action, &changesJSON, &createdAt)
	if err != nil {
		return domain.AuditRecord{}, err
	}

	rec.EntityType = domain.EntityType(entityType)
	rec.Action = domain.AuditAction(action)
	rec.CreatedAt = createdAt

	if len(changesJSON) > 0 {
		if err := json.Unmarshal(changesJSON, &rec.Changes); err != nil {
			return domain.AuditRecord{}, fmt.Errorf("unmarshal changes: %w", err)
		}
	}

	return rec, nil
}
