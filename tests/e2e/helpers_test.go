//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres"
	auditrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/audit"
	authmethodrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/authmethod"
	capsulerepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/capsule"
	"github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/testhelper"
	tokenrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/token"
	userrepo "github.com/capsulevault/capsule-vault-backend/internal/adapter/postgres/user"
	authpkg "github.com/capsulevault/capsule-vault-backend/internal/auth"
	"github.com/capsulevault/capsule-vault-backend/internal/config"
	"github.com/capsulevault/capsule-vault-backend/internal/domain"
	authsvc "github.com/capsulevault/capsule-vault-backend/internal/service/auth"
	capsulesvc "github.com/capsulevault/capsule-vault-backend/internal/service/capsule"
	"github.com/capsulevault/capsule-vault-backend/internal/transport/middleware"
	"github.com/capsulevault/capsule-vault-backend/internal/transport/rest"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ---------------------------------------------------------------------------
// testServer wraps the full-stack HTTP server for E2E tests.
// ---------------------------------------------------------------------------

type testServer struct {
	URL    string
	Client *http.Client
	Pool   *pgxpool.Pool
	jwt    *authpkg.JWTManager
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// setupTestServer bootstraps the full application stack backed by a real
// PostgreSQL container (shared via testhelper).
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	pool := testhelper.SetupTestDB(t)

	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))
	txm := postgres.NewTxManager(pool)

	auditRepo := auditrepo.New(pool)
	authMethodRepo := authmethodrepo.New(pool)
	capsuleRepo := capsulerepo.New(pool)
	tokenRepo := tokenrepo.New(pool)
	userRepo := userrepo.New(pool)

	jwtSecret := "test-secret-at-least-32-chars-long!!"
	jwtIssuer := "test-issuer"
	accessTTL := 15 * time.Minute
	jwtMgr := authpkg.NewJWTManager(jwtSecret, jwtIssuer, accessTTL)

	authService := authsvc.NewService(
		logger, userRepo, tokenRepo, authMethodRepo, txm, jwtMgr,
		config.AuthConfig{
			JWTSecret:        jwtSecret,
			JWTIssuer:        jwtIssuer,
			AccessTokenTTL:   accessTTL,
			RefreshTokenTTL:  720 * time.Hour,
			PasswordHashCost: 4,
		},
	)

	capsuleService := capsulesvc.NewService(
		logger, capsuleRepo, auditRepo, txm,
		config.CapsuleConfig{
			MaxCapsulesPerUser:   1000,
			MaxMediaRefs:         50,
			MaxTitleLength:       200,
			MaxDescriptionLength: 20000,
		},
	)

	authHandler := rest.NewAuthHandler(authService, logger)
	capsuleHandler := rest.NewCapsuleHandler(capsuleService, logger)
	healthHandler := rest.NewHealthHandler(pool, "test-version")

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /v1/auth/logout", authHandler.Logout)

	mux.HandleFunc("POST /v1/capsules", capsuleHandler.Create)
	mux.HandleFunc("GET /v1/capsules", capsuleHandler.List)
	mux.HandleFunc("GET /v1/capsules/{id}", capsuleHandler.Get)
	mux.HandleFunc("PATCH /v1/capsules/{id}", capsuleHandler.Update)
	mux.HandleFunc("POST /v1/capsules/{id}/seal", capsuleHandler.Seal)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.CORS(config.CORSConfig{
			AllowedOrigins:   "*",
			AllowedMethods:   "GET,POST,PATCH,OPTIONS",
			AllowedHeaders:   "Authorization,Content-Type",
			AllowCredentials: true,
			MaxAge:           86400,
		}),
		middleware.Auth(authService),
	)(mux)

	srv := httptest.NewServer(handler)
	t.Cleanup(func() { srv.Close() })

	return &testServer{
		URL:    srv.URL,
		Client: srv.Client(),
		Pool:   pool,
		jwt:    jwtMgr,
	}
}

// ---------------------------------------------------------------------------
// HTTP helpers.
// ---------------------------------------------------------------------------

// apiResponse mirrors the standard response envelope.
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// doJSON sends a JSON request and decodes the response envelope. A nil body
// sends an empty request body.
func (ts *testServer) doJSON(t *testing.T, method, path string, body any, token string) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

// decodeData unmarshals the envelope data payload into out.
func decodeData(t *testing.T, envelope apiResponse, out any) {
	t.Helper()
	require.NotEmpty(t, envelope.Data, "expected data in response")
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// ---------------------------------------------------------------------------
// Domain payload shapes used by tests.
// ---------------------------------------------------------------------------

type authPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

type capsulePayload struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"ownerId"`
	Title        *string  `json:"title"`
	Description  string   `json:"description"`
	MediaRefs    []string `json:"mediaRefs"`
	UnlockAt     string   `json:"unlockAt"`
	Locked       bool     `json:"locked"`
	ExplicitLock bool     `json:"explicitLock"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

// ---------------------------------------------------------------------------
// Account helpers.
// ---------------------------------------------------------------------------

var accountSeq atomic.Int64

// registerUser registers a fresh account through the API and returns the
// auth payload with tokens.
func (ts *testServer) registerUser(t *testing.T) authPayload {
	t.Helper()

	n := accountSeq.Add(1)
	suffix := fmt.Sprintf("%d-%s", n, uuid.NewString()[:8])

	status, envelope := ts.doJSON(t, http.MethodPost, "/v1/auth/register", map[string]string{
		"email":    fmt.Sprintf("e2e-%s@example.com", suffix),
		"username": fmt.Sprintf("e2e-user-%s", suffix),
		"password": "sw0rdfish-pass",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	require.True(t, envelope.Success)

	var payload authPayload
	decodeData(t, envelope, &payload)
	require.NotEmpty(t, payload.AccessToken)
	require.NotEmpty(t, payload.RefreshToken)
	return payload
}

// adminToken seeds an admin user directly in the database and mints an
// access token for it. Registration always produces regular users, so admin
// accounts have to be provisioned out of band.
func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()

	admin := testhelper.SeedAdmin(t, ts.Pool)
	token, err := ts.jwt.GenerateAccessToken(admin.ID, domain.UserRoleAdmin)
	require.NoError(t, err)
	return token
}

// createCapsule creates a capsule through the API and returns its payload.
func (ts *testServer) createCapsule(t *testing.T, token, description, unlockAt string) capsulePayload {
	t.Helper()

	status, envelope := ts.doJSON(t, http.MethodPost, "/v1/capsules", map[string]any{
		"title":       "graduation letter",
		"description": description,
		"mediaRefs":   []string{"s3://bucket/photo.jpg"},
		"unlockAt":    unlockAt,
	}, token)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, envelope.Success)

	var payload capsulePayload
	decodeData(t, envelope, &payload)
	return payload
}
