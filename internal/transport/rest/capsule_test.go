package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	"github.com/capsulevault/capsule-vault-backend/internal/service/capsule"
)

type capsuleServiceMock struct {
	CreateCapsuleFunc func(ctx context.Context, input capsule.CreateCapsuleInput) (*domain.Capsule, error)
	GetCapsuleFunc    func(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error)
	ListCapsulesFunc  func(ctx context.Context) ([]*domain.Capsule, error)
	UpdateCapsuleFunc func(ctx context.Context, capsuleID uuid.UUID, input capsule.UpdateCapsuleInput) (*domain.Capsule, error)
	SealCapsuleFunc   func(ctx context.Context, capsuleID uuid.UUID, sealed bool) (*domain.Capsule, error)
}

func (m *capsuleServiceMock) CreateCapsule(ctx context.Context, input capsule.CreateCapsuleInput) (*domain.Capsule, error) {
	return m.CreateCapsuleFunc(ctx, input)
}

func (m *capsuleServiceMock) GetCapsule(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
	return m.GetCapsuleFunc(ctx, capsuleID)
}

func (m *capsuleServiceMock) ListCapsules(ctx context.Context) ([]*domain.Capsule, error) {
	return m.ListCapsulesFunc(ctx)
}

func (m *capsuleServiceMock) UpdateCapsule(ctx context.Context, capsuleID uuid.UUID, input capsule.UpdateCapsuleInput) (*domain.Capsule, error) {
	return m.UpdateCapsuleFunc(ctx, capsuleID, input)
}

func (m *capsuleServiceMock) SealCapsule(ctx context.Context, capsuleID uuid.UUID, sealed bool) (*domain.Capsule, error) {
	return m.SealCapsuleFunc(ctx, capsuleID, sealed)
}

func newCapsuleHandler(svc *capsuleServiceMock) *CapsuleHandler {
	return NewCapsuleHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleCapsule(unlockAt time.Time) *domain.Capsule {
	title := "Sample"
	return &domain.Capsule{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       &title,
		Description: "A sample capsule.",
		MediaRefs:   []string{"media/a.jpg"},
		UnlockAt:    unlockAt,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func patchRequest(t *testing.T, h *CapsuleHandler, id string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/v1/capsules/"+id, strings.NewReader(body))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	return rec
}

func TestCapsuleHandler_Create(t *testing.T) {
	t.Parallel()

	var gotInput capsule.CreateCapsuleInput
	svc := &capsuleServiceMock{
		CreateCapsuleFunc: func(ctx context.Context, input capsule.CreateCapsuleInput) (*domain.Capsule, error) {
			gotInput = input
			c := sampleCapsule(input.UnlockAt)
			c.Description = input.Description
			return c, nil
		},
	}
	h := newCapsuleHandler(svc)

	body := `{"description":"hello","unlockAt":"2099-01-01","mediaRefs":["media/x.jpg"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/capsules", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Error("expected success envelope")
	}
	if got := gotInput.UnlockAt.Format("2006-01-02"); got != "2099-01-01" {
		t.Errorf("unlock date mismatch: got %s", got)
	}
}

func TestCapsuleHandler_Create_BadUnlockDate(t *testing.T) {
	t.Parallel()
	h := newCapsuleHandler(&capsuleServiceMock{})

	body := `{"description":"hello","unlockAt":"someday"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/capsules", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Error("expected error envelope")
	}
	if env.Error == "" {
		t.Error("expected error message in envelope")
	}
}

func TestCapsuleHandler_Get_DerivedLock(t *testing.T) {
	t.Parallel()

	future := time.Now().UTC().AddDate(1, 0, 0)
	c := sampleCapsule(future)
	svc := &capsuleServiceMock{
		GetCapsuleFunc: func(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
			return c, nil
		},
	}
	h := newCapsuleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/capsules/"+c.ID.String(), nil)
	req.SetPathValue("id", c.ID.String())
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var env struct {
		Success bool            `json:"success"`
		Data    capsuleResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Data.Locked {
		t.Error("capsule with future unlock date must render as locked")
	}
	if env.Data.ExplicitLock {
		t.Error("explicitLock must stay false; it is independent of the time lock")
	}
}

func TestCapsuleHandler_Get_BadID(t *testing.T) {
	t.Parallel()
	h := newCapsuleHandler(&capsuleServiceMock{})

	req := httptest.NewRequest(http.MethodGet, "/v1/capsules/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCapsuleHandler_Update_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"locked", domain.ErrCapsuleLocked, http.StatusBadRequest},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"validation", domain.NewValidationError("title", "too long"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &capsuleServiceMock{
				UpdateCapsuleFunc: func(ctx context.Context, capsuleID uuid.UUID, input capsule.UpdateCapsuleInput) (*domain.Capsule, error) {
					return nil, tt.err
				},
			}
			h := newCapsuleHandler(svc)

			rec := patchRequest(t, h, uuid.New().String(), `{"description":"x"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Success {
				t.Error("expected error envelope")
			}
		})
	}
}

func TestCapsuleHandler_Update_InternalErrorIsGeneric(t *testing.T) {
	t.Parallel()
	svc := &capsuleServiceMock{
		UpdateCapsuleFunc: func(ctx context.Context, capsuleID uuid.UUID, input capsule.UpdateCapsuleInput) (*domain.Capsule, error) {
			return nil, context.DeadlineExceeded
		},
	}
	h := newCapsuleHandler(svc)

	rec := patchRequest(t, h, uuid.New().String(), `{"description":"x"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error != "internal server error" {
		t.Errorf("store detail must not leak, got %q", env.Error)
	}
}

func TestCapsuleHandler_List(t *testing.T) {
	t.Parallel()
	svc := &capsuleServiceMock{
		ListCapsulesFunc: func(ctx context.Context) ([]*domain.Capsule, error) {
			return []*domain.Capsule{}, nil
		},
	}
	h := newCapsuleHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/capsules", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env struct {
		Success bool              `json:"success"`
		Data    []capsuleResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data == nil {
		t.Error("expected empty array, not null")
	}
}

func TestCapsuleHandler_Seal_DefaultsToSealing(t *testing.T) {
	t.Parallel()

	var gotSealed bool
	svc := &capsuleServiceMock{
		SealCapsuleFunc: func(ctx context.Context, capsuleID uuid.UUID, sealed bool) (*domain.Capsule, error) {
			gotSealed = sealed
			c := sampleCapsule(time.Now().UTC().AddDate(1, 0, 0))
			c.ExplicitLock = sealed
			return c, nil
		},
	}
	h := newCapsuleHandler(svc)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPost, "/v1/capsules/"+id+"/seal", strings.NewReader(""))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()

	h.Seal(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotSealed {
		t.Error("empty body must default to sealing")
	}
}
