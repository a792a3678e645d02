// Package audit provides the PostgreSQL-backed append-only audit log.
// Record IDs are ULIDs, so the primary key orders records by creation time.
package audit

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/dbx"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
	"github.com/oklog/ulid/v2"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append assigns the record a ULID and inserts it. The record is never
// updated or deleted afterwards.
func (r *PostgresRepository) Append(ctx context.Context, rec *models.AuditRecord) error {
	if rec.ID == "" {
		id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), rand.Reader)
		if err != nil {
			return fmt.Errorf("ulid error: %w", err)
		}
		rec.ID = id.String()
	}

	query := `
		INSERT INTO audit_log (id, actor_id, action, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.ActorID, rec.Action, rec.EntityID, rec.Detail,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByEntity returns up to limit records for entityID, newest first.
func (r *PostgresRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]*models.AuditRecord, error) {
	query := `
		SELECT id, actor_id, action, entity_id, detail, created_at
		FROM audit_log
		WHERE entity_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.EntityID, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
