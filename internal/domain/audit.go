package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies the kind of domain entity (used in audit logs).
type EntityType string

const (
	EntityTypeCapsule EntityType = "CAPSULE"
	EntityTypeUser    EntityType = "USER"
)

func (e EntityType) String() string { return string(e) }

func (e EntityType) IsValid() bool {
	switch e {
	case EntityTypeCapsule, EntityTypeUser:
		return true
	}
	return false
}

// AuditAction represents the kind of mutation recorded in the audit log.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionSeal   AuditAction = "SEAL"
)

func (a AuditAction) String() string { return string(a) }

// AuditRecord is one immutable row in the audit log. Changes holds a
// field → {old, new} map for updates; only the new values for creates.
type AuditRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	EntityType EntityType
	EntityID   *uuid.UUID
	Action     AuditAction
	Changes    map[string]any
	CreatedAt  time.Time
}
