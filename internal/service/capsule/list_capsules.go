package capsule

import (
	"context"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	"github.com/capsulevault/capsule-vault-backend/pkg/ctxutil"
)

// ListCapsules returns the calling user's capsules, newest first.
func (s *Service) ListCapsules(ctx context.Context) ([]*domain.Capsule, error) {
	ownerID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	return s.capsules.ListByOwner(ctx, ownerID)
}
