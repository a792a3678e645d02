package audit

import (
	"context"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// Repository is the append-only store for audit records.
type Repository interface {
	Append(ctx context.Context, rec *models.AuditRecord) error
	ListByEntity(ctx context.Context, entityID string, limit int) ([]*models.AuditRecord, error)
}
