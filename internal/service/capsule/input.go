package capsule

import (
	"strconv"
	"time"

	"github.com/capsulevault/capsule-vault-backend/internal/config"
	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// CreateCapsuleInput holds the parameters for creating a capsule.
// UnlockAt may lie in the past; such capsules are simply born unlocked.
type CreateCapsuleInput struct {
	Title       *string
	Description string
	MediaRefs   []string
	UnlockAt    time.Time
}

// Normalize applies the "empty means not supplied" convention: a present
// but empty title collapses to nil.
func (i *CreateCapsuleInput) Normalize() {
	if i.Title != nil && *i.Title == "" {
		i.Title = nil
	}
}

// Validate checks all fields against the configured limits and collects
// all errors.
func (i *CreateCapsuleInput) Validate(cfg config.CapsuleConfig) error {
	var errs []domain.FieldError

	if i.Description == "" {
		errs = append(errs, domain.FieldError{Field: "description", Message: "required"})
	} else if len(i.Description) > cfg.MaxDescriptionLength {
		errs = append(errs, domain.FieldError{Field: "description", Message: "too long"})
	}

	if i.Title != nil && len(*i.Title) > cfg.MaxTitleLength {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long"})
	}

	if i.UnlockAt.IsZero() {
		errs = append(errs, domain.FieldError{Field: "unlock_at", Message: "required"})
	}

	if len(i.MediaRefs) > cfg.MaxMediaRefs {
		errs = append(errs, domain.FieldError{Field: "media_refs", Message: "too many"})
	}
	for idx, ref := range i.MediaRefs {
		if ref == "" {
			errs = append(errs, domain.FieldError{Field: "media_refs", Message: "empty ref at position " + strconv.Itoa(idx)})
			break
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// UpdateCapsuleInput holds the merge-patch for an update. Absent and empty
// both mean "leave unchanged"; only title, description and media refs are
// patchable.
type UpdateCapsuleInput struct {
	Title       *string
	Description *string
	MediaRefs   []string
}

// Normalize collapses empty supplied values to "not supplied".
func (i *UpdateCapsuleInput) Normalize() {
	if i.Title != nil && *i.Title == "" {
		i.Title = nil
	}
	if i.Description != nil && *i.Description == "" {
		i.Description = nil
	}
	if len(i.MediaRefs) == 0 {
		i.MediaRefs = nil
	}
}

// Validate checks the supplied fields against the configured limits.
// Call Normalize first.
func (i *UpdateCapsuleInput) Validate(cfg config.CapsuleConfig) error {
	var errs []domain.FieldError

	if i.Title != nil && len(*i.Title) > cfg.MaxTitleLength {
		errs = append(errs, domain.FieldError{Field: "title", Message: "too long"})
	}
	if i.Description != nil && len(*i.Description) > cfg.MaxDescriptionLength {
		errs = append(errs, domain.FieldError{Field: "description", Message: "too long"})
	}
	if len(i.MediaRefs) > cfg.MaxMediaRefs {
		errs = append(errs, domain.FieldError{Field: "media_refs", Message: "too many"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func (i *UpdateCapsuleInput) params() domain.CapsuleUpdateParams {
	return domain.CapsuleUpdateParams{
		Title:       i.Title,
		Description: i.Description,
		MediaRefs:   i.MediaRefs,
	}
}
