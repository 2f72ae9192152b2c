package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capsulevault/capsule-vault-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user with the "user" role. Returns a filled domain.User.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	return seedUserWithRole(t, pool, domain.UserRoleUser)
}

// SeedAdmin creates a user with the "admin" role.
func SeedAdmin(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	return seedUserWithRole(t, pool, domain.UserRoleAdmin)
}

func seedUserWithRole(t *testing.T, pool *pgxpool.Pool, role domain.UserRole) domain.User {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:        uuid.New(),
		Email:     "testuser-" + suffix + "@example.com",
		Username:  "testuser-" + suffix,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, username, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Username, user.Role.String(), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}

	return user
}

// SeedCapsule creates a capsule for the given owner with the given unlock date.
// Returns the capsule as stored, with DB-assigned id and timestamps.
func SeedCapsule(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID, unlockAt time.Time) domain.Capsule {
	t.Helper()
	return seedCapsule(t, pool, ownerID, unlockAt, false)
}

// SeedLockedCapsule creates a capsule with explicit_lock set.
func SeedLockedCapsule(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID, unlockAt time.Time) domain.Capsule {
	t.Helper()
	return seedCapsule(t, pool, ownerID, unlockAt, true)
}

func seedCapsule(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID, unlockAt time.Time, explicitLock bool) domain.Capsule {
	t.Helper()
	ctx := context.Background()

	suffix := uniqueSuffix()
	title := "Test Capsule " + suffix
	c := domain.Capsule{
		OwnerID:      ownerID,
		Title:        &title,
		Description:  "Seeded capsule " + suffix,
		MediaRefs:    []string{"media/" + suffix + "-1.jpg", "media/" + suffix + "-2.jpg"},
		UnlockAt:     unlockAt,
		ExplicitLock: explicitLock,
	}

	err := pool.QueryRow(ctx,
		`INSERT INTO capsules (owner_id, title, description, media_refs, unlock_at, explicit_lock)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, unlock_at, created_at, updated_at`,
		c.OwnerID, c.Title, c.Description, c.MediaRefs, c.UnlockAt, c.ExplicitLock,
	).Scan(&c.ID, &c.UnlockAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		t.Fatalf("testhelper: SeedCapsule insert capsule: %v", err)
	}

	return c
}
