package capsule

import (
	"context"

	"github.com/google/uuid"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// GetCapsule returns a capsule by id. Reads are open: any authenticated
// caller may fetch any capsule, owner or not. The derived content-reveal
// state is for the presentation layer to compute via Capsule.LockedAt.
func (s *Service) GetCapsule(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
	if capsuleID == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}

	return s.capsules.GetByID(ctx, capsuleID)
}
