package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of who did what. Detail is free-form
// jsonb supplied by the calling service.
type AuditLog struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   uuid.UUID      `json:"actor_id"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type AuditLogFilter struct {
	ActorID  *uuid.UUID
	Entity   string
	Action   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}
