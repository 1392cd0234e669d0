package domain

import "time"

// AuditEntry is an append-only record of a successful state mutation.
type AuditEntry struct {
	ID          string
	ActorUserID *string
	TenantID    *string
	Action      string
	Metadata    map[string]any
	CreatedAt   time.Time
}
