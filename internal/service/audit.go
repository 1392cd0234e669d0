package service

import (
	"context"
	"time"

	"github.com/haven-collective/haven/internal/domain"
	"github.com/haven-collective/haven/internal/store"
	"github.com/haven-collective/haven/pkg/idx"
	"github.com/haven-collective/haven/pkg/slogx"
)

// AuditRecorder appends audit entries without ever blocking or failing the
// primary operation. Call it after a state mutation has committed.
type AuditRecorder struct {
	Store store.Store

	// Timeout bounds each background append. Zero means 5 seconds.
	Timeout time.Duration
}

// Record fires the append on a goroutine with its own timeout. Failures are
// logged and dropped.
func (a *AuditRecorder) Record(ctx context.Context, actorUserID, tenantID *string, action string, metadata map[string]any) {
	if a == nil || a.Store == nil {
		return
	}

	log := slogx.FromContext(ctx)
	entry := domain.AuditEntry{
		ID:          idx.New().String(),
		ActorUserID: actorUserID,
		TenantID:    tenantID,
		Action:      action,
		Metadata:    metadata,
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	go func() {
		// Detached from the request context so response completion doesn't
		// cancel the append.
		bg, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := a.Store.AuditLog().Append(bg, entry); err != nil {
			log.Warn("audit append failed", "action", action, "err", err)
		}
	}()
}

// strPtr is a small helper for optional audit fields.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
