package capsule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	"github.com/capsulevault/capsule-vault-backend/pkg/ctxutil"
)

// SealCapsule sets or clears the administrative mutation lock on a capsule.
// Admin-only: owners cannot seal or unseal their own capsules. Sealing does
// not touch the unlock date, so the content-reveal state is unaffected.
func (s *Service) SealCapsule(ctx context.Context, capsuleID uuid.UUID, sealed bool) (*domain.Capsule, error) {
	callerID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if !ctxutil.IsAdminCtx(ctx) {
		return nil, domain.ErrForbidden
	}
	if capsuleID == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}

	var sealedCapsule *domain.Capsule
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var setErr error
		sealedCapsule, setErr = s.capsules.SetExplicitLock(txCtx, capsuleID, sealed)
		if setErr != nil {
			return fmt.Errorf("set explicit lock: %w", setErr)
		}

		auditErr := s.audit.Log(txCtx, domain.AuditRecord{
			UserID:     callerID,
			EntityType: domain.EntityTypeCapsule,
			EntityID:   &capsuleID,
			Action:     domain.AuditActionSeal,
			Changes:    map[string]any{"explicit_lock": sealed},
		})
		if auditErr != nil {
			return fmt.Errorf("audit seal: %w", auditErr)
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.InfoContext(ctx, "capsule seal changed",
		"capsule_id", capsuleID,
		"admin_id", callerID,
		"sealed", sealed,
	)

	return sealedCapsule, nil
}
