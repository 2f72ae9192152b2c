package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	"github.com/capsulevault/capsule-vault-backend/internal/service/capsule"
)

// unlockDateLayout is the wire format for capsule unlock dates.
const unlockDateLayout = "2006-01-02"

// capsuleService defines the minimal interface needed by CapsuleHandler.
type capsuleService interface {
	CreateCapsule(ctx context.Context, input capsule.CreateCapsuleInput) (*domain.Capsule, error)
	GetCapsule(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error)
	ListCapsules(ctx context.Context) ([]*domain.Capsule, error)
	UpdateCapsule(ctx context.Context, capsuleID uuid.UUID, input capsule.UpdateCapsuleInput) (*domain.Capsule, error)
	SealCapsule(ctx context.Context, capsuleID uuid.UUID, sealed bool) (*domain.Capsule, error)
}

// CapsuleHandler serves capsule REST endpoints.
type CapsuleHandler struct {
	svc capsuleService
	log *slog.Logger
}

// NewCapsuleHandler creates a CapsuleHandler.
func NewCapsuleHandler(svc capsuleService, logger *slog.Logger) *CapsuleHandler {
	return &CapsuleHandler{svc: svc, log: logger.With("handler", "capsule")}
}

type createCapsuleRequest struct {
	Title       *string  `json:"title"`
	Description string   `json:"description"`
	MediaRefs   []string `json:"mediaRefs"`
	UnlockAt    string   `json:"unlockAt"`
}

type updateCapsuleRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	MediaRefs   []string `json:"mediaRefs"`
}

type sealCapsuleRequest struct {
	Sealed *bool `json:"sealed"`
}

type capsuleResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Title        *string   `json:"title"`
	Description  string    `json:"description"`
	MediaRefs    []string  `json:"mediaRefs"`
	UnlockAt     string    `json:"unlockAt"`
	Locked       bool      `json:"locked"`
	ExplicitLock bool      `json:"explicitLock"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Create handles POST /v1/capsules.
func (h *CapsuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCapsuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	unlockAt, err := parseUnlockDate(req.UnlockAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unlockAt: must be a YYYY-MM-DD date")
		return
	}

	created, err := h.svc.CreateCapsule(r.Context(), capsule.CreateCapsuleInput{
		Title:       req.Title,
		Description: req.Description,
		MediaRefs:   req.MediaRefs,
		UnlockAt:    unlockAt,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, "capsule created", toCapsuleResponse(created))
}

// Get handles GET /v1/capsules/{id}.
func (h *CapsuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := capsuleIDFromPath(w, r)
	if !ok {
		return
	}

	c, err := h.svc.GetCapsule(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, "capsule fetched", toCapsuleResponse(c))
}

// List handles GET /v1/capsules.
func (h *CapsuleHandler) List(w http.ResponseWriter, r *http.Request) {
	capsules, err := h.svc.ListCapsules(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]capsuleResponse, 0, len(capsules))
	for _, c := range capsules {
		items = append(items, toCapsuleResponse(c))
	}

	writeData(w, http.StatusOK, "capsules fetched", items)
}

// Update handles PATCH /v1/capsules/{id}.
func (h *CapsuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := capsuleIDFromPath(w, r)
	if !ok {
		return
	}

	var req updateCapsuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.svc.UpdateCapsule(r.Context(), id, capsule.UpdateCapsuleInput{
		Title:       req.Title,
		Description: req.Description,
		MediaRefs:   req.MediaRefs,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, "capsule updated", toCapsuleResponse(updated))
}

// Seal handles POST /v1/capsules/{id}/seal. Admin only; an absent body or
// an absent "sealed" field defaults to sealing.
func (h *CapsuleHandler) Seal(w http.ResponseWriter, r *http.Request) {
	id, ok := capsuleIDFromPath(w, r)
	if !ok {
		return
	}

	sealed := true
	var req sealCapsuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Sealed != nil {
		sealed = *req.Sealed
	}

	c, err := h.svc.SealCapsule(r.Context(), id, sealed)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	message := "capsule sealed"
	if !sealed {
		message = "capsule unsealed"
	}
	writeData(w, http.StatusOK, message, toCapsuleResponse(c))
}

func (h *CapsuleHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCapsuleLocked):
		writeError(w, http.StatusBadRequest, "capsule is locked")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "capsule not found")
	default:
		// Never leak store internals to clients.
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func capsuleIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id: must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseUnlockDate(raw string) (time.Time, error) {
	if t, err := time.Parse(unlockDateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func toCapsuleResponse(c *domain.Capsule) capsuleResponse {
	refs := c.MediaRefs
	if refs == nil {
		refs = []string{}
	}
	return capsuleResponse{
		ID:           c.ID.String(),
		OwnerID:      c.OwnerID.String(),
		Title:        c.Title,
		Description:  c.Description,
		MediaRefs:    refs,
		UnlockAt:     c.UnlockAt.Format(unlockDateLayout),
		Locked:       c.LockedAt(time.Now().UTC()),
		ExplicitLock: c.ExplicitLock,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
