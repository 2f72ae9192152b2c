package capsule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	"github.com/capsulevault/capsule-vault-backend/pkg/ctxutil"
)

// UpdateCapsule merge-patches a capsule's title, description and media refs.
//
// The gate order is fixed: a missing capsule is NotFound before ownership is
// considered, a non-owner gets Forbidden before the lock is considered, and
// a sealed capsule rejects with ErrCapsuleLocked. The time-derived
// content-reveal state is never consulted here: owners may edit a capsule
// whose unlock date is still in the future.
func (s *Service) UpdateCapsule(ctx context.Context, capsuleID uuid.UUID, input UpdateCapsuleInput) (*domain.Capsule, error) {
	callerID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if capsuleID == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}

	input.Normalize()
	if err := input.Validate(s.cfg); err != nil {
		return nil, err
	}

	existing, err := s.capsules.GetByID(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	if existing.ExplicitLock {
		return nil, domain.ErrCapsuleLocked
	}

	params := input.params()
	if params.IsEmpty() {
		return existing, nil
	}

	var updated *domain.Capsule
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var updateErr error
		updated, updateErr = s.capsules.Update(txCtx, capsuleID, params)
		if updateErr != nil {
			return fmt.Errorf("update capsule: %w", updateErr)
		}

		auditErr := s.audit.Log(txCtx, domain.AuditRecord{
			UserID:     callerID,
			EntityType: domain.EntityTypeCapsule,
			EntityID:   &capsuleID,
			Action:     domain.AuditActionUpdate,
			Changes:    updateChanges(existing, params),
		})
		if auditErr != nil {
			return fmt.Errorf("audit update: %w", auditErr)
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.InfoContext(ctx, "capsule updated", "capsule_id", capsuleID, "owner_id", callerID)

	return updated, nil
}

// updateChanges records which fields the patch touched, with old and new
// values for the scalar fields.
func updateChanges(before *domain.Capsule, params domain.CapsuleUpdateParams) map[string]any {
	changes := map[string]any{}
	if params.Title != nil {
		changes["title"] = map[string]any{"old": before.Title, "new": *params.Title}
	}
	if params.Description != nil {
		changes["description"] = map[string]any{"old": before.Description, "new": *params.Description}
	}
	if params.MediaRefs != nil {
		changes["media_refs"] = map[string]any{"old_count": len(before.MediaRefs), "new_count": len(params.MediaRefs)}
	}
	return changes
}
