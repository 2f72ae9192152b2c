// Package capsule implements the capsule lifecycle engine: creation,
// open reads, owner-gated merge updates and administrative sealing.
package capsule

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/capsulevault/capsule-vault-backend/internal/config"
	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type capsuleRepo interface {
	Insert(ctx context.Context, c *domain.Capsule) (*domain.Capsule, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Capsule, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Capsule, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	Update(ctx context.Context, id uuid.UUID, params domain.CapsuleUpdateParams) (*domain.Capsule, error)
	SetExplicitLock(ctx context.Context, id uuid.UUID, locked bool) (*domain.Capsule, error)
}

type auditRepo interface {
	Log(ctx context.Context, record domain.AuditRecord) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the capsule business logic.
type Service struct {
	log      *slog.Logger
	capsules capsuleRepo
	audit    auditRepo
	tx       txManager
	cfg      config.CapsuleConfig
}

// NewService creates a new Capsule service.
func NewService(
	logger *slog.Logger,
	capsules capsuleRepo,
	audit auditRepo,
	tx txManager,
	cfg config.CapsuleConfig,
) *Service {
	return &Service{
		log:      logger.With("service", "capsule"),
		capsules: capsules,
		audit:    audit,
		tx:       tx,
		cfg:      cfg,
	}
}
