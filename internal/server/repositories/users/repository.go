package users

import (
	"context"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// Repository is the persistence collaborator for User rows. Implementations
// must provide a conditional update keyed on the expected version so the
// check-then-write sequence is a single atomic statement.
type Repository interface {
	Create(ctx context.Context, row *models.UserRow) (*models.UserRow, error)
	GetByID(ctx context.Context, id string) (*models.UserRow, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*models.UserRow, error)
	GetByExtIDHash(ctx context.Context, extIDHash string) (*models.UserRow, error)

	// UpdateVersioned writes row's mutable columns where the stored version
	// equals expectedVersion, setting version to expectedVersion+1.
	// A stale expectedVersion yields common.ErrVersionConflict and no write.
	UpdateVersioned(ctx context.Context, row *models.UserRow, expectedVersion int64) error
}
