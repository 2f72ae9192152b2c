package domain

import (
	"time"

	"github.com/google/uuid"
)

// Capsule is a bundle of text and media references owned by a single user
// and gated by a future unlock date.
//
// Two lock concepts apply and must stay distinct:
//
//   - content-reveal lock: derived from the current time vs. UnlockAt,
//     advisory for read-side rendering only. See LockedAt.
//   - mutation lock: the ExplicitLock flag, checked by UpdateCapsule.
//     It is false at creation and is only ever set by SealCapsule.
type Capsule struct {
	ID      uuid.UUID
	OwnerID uuid.UUID

	Title       *string
	Description string
	// MediaRefs holds opaque media locator strings in display order.
	MediaRefs []string

	// UnlockAt is a calendar date (UTC midnight, no time-of-day precision).
	UnlockAt     time.Time
	ExplicitLock bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockedAt reports whether the capsule's content is still hidden at the
// given instant. This is the single authority for the derived lock state;
// collaborators must not re-derive it from UnlockAt themselves.
func (c *Capsule) LockedAt(now time.Time) bool {
	return now.Before(c.UnlockAt)
}

// UnlockedAt is the complement of LockedAt.
func (c *Capsule) UnlockedAt(now time.Time) bool {
	return !c.LockedAt(now)
}

// CapsuleUpdateParams carries the merge-patch for an update. A nil field is
// left unchanged; id, owner, unlock date and the explicit lock flag are not
// representable here and therefore cannot be mutated through an update.
type CapsuleUpdateParams struct {
	Title       *string
	Description *string
	MediaRefs   []string
}

// IsEmpty reports whether the patch carries no changes at all.
func (p CapsuleUpdateParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.MediaRefs == nil
}
