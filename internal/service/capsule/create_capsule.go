package capsule

import (
	"context"
	"fmt"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	"github.com/capsulevault/capsule-vault-backend/pkg/ctxutil"
)

// CreateCapsule creates a new capsule owned by the calling user.
// The capsule always starts with ExplicitLock unset. An unlock date in the
// past is accepted; the capsule is then readable-as-unlocked from birth.
func (s *Service) CreateCapsule(ctx context.Context, input CreateCapsuleInput) (*domain.Capsule, error) {
	ownerID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	input.Normalize()
	if err := input.Validate(s.cfg); err != nil {
		return nil, err
	}

	count, err := s.capsules.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count capsules: %w", err)
	}
	if count >= s.cfg.MaxCapsulesPerUser {
		return nil, domain.NewValidationError("capsules", "limit reached")
	}

	var created *domain.Capsule
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var insertErr error
		created, insertErr = s.capsules.Insert(txCtx, &domain.Capsule{
			OwnerID:     ownerID,
			Title:       input.Title,
			Description: input.Description,
			MediaRefs:   input.MediaRefs,
			UnlockAt:    input.UnlockAt,
		})
		if insertErr != nil {
			return fmt.Errorf("insert capsule: %w", insertErr)
		}

		auditErr := s.audit.Log(txCtx, domain.AuditRecord{
			UserID:     ownerID,
			EntityType: domain.EntityTypeCapsule,
			EntityID:   &created.ID,
			Action:     domain.AuditActionCreate,
			Changes: map[string]any{
				"unlock_at":   created.UnlockAt.Format("2006-01-02"),
				"media_count": len(created.MediaRefs),
			},
		})
		if auditErr != nil {
			return fmt.Errorf("audit create: %w", auditErr)
		}

		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.log.InfoContext(ctx, "capsule created",
		"capsule_id", created.ID,
		"owner_id", ownerID,
		"unlock_at", created.UnlockAt.Format("2006-01-02"),
	)

	return created, nil
}
