package ports

import (
	"context"

	"leadline/pkg/platform/audit"
)

// AuditPort mirrors audit.Emitter so the route module owns its boundary.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
