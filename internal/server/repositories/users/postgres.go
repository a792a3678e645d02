// Package users provides the PostgreSQL-backed repository for user rows
// with encrypted sensitive columns and version-guarded updates.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/dbx"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email_ct, email_iv, email_tag, email_key_id, email_hash,
	display_name, role, ext_id_ct, ext_id_iv, ext_id_tag, ext_id_key_id, ext_id_hash,
	active, version, created_at, last_login_at`

func (r *PostgresRepository) Create(ctx context.Context, row *models.UserRow) (*models.UserRow, error) {
	query := `
		INSERT INTO users (id, email_ct, email_iv, email_tag, email_key_id, email_hash,
			display_name, role, ext_id_ct, ext_id_iv, ext_id_tag, ext_id_key_id, ext_id_hash,
			active, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		row.ID, row.EmailCT, row.EmailIV, row.EmailTag, row.EmailKeyID, row.EmailHash,
		row.DisplayName, row.Role, row.ExtIDCT, row.ExtIDIV, row.ExtIDTag, row.ExtIDKeyID, row.ExtIDHash,
		row.Active, row.Version,
	).Scan(&row.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return row, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.UserRow, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmailHash(ctx context.Context, emailHash string) (*models.UserRow, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, emailHash))
}

func (r *PostgresRepository) GetByExtIDHash(ctx context.Context, extIDHash string) (*models.UserRow, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ext_id_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, extIDHash))
}

// UpdateVersioned performs the compare-and-swap write: the WHERE clause pins
// both id and the expected version, so two racing callers with the same
// expectation resolve to exactly one winner. Zero rows affected means the
// stored version moved on and the caller gets ErrVersionConflict.
func (r *PostgresRepository) UpdateVersioned(ctx context.Context, row *models.UserRow, expectedVersion int64) error {
	query := `
		UPDATE users SET
			email_ct = $1, email_iv = $2, email_tag = $3, email_key_id = $4, email_hash = $5,
			display_name = $6, role = $7,
			ext_id_ct = $8, ext_id_iv = $9, ext_id_tag = $10, ext_id_key_id = $11, ext_id_hash = $12,
			active = $13, last_login_at = $14,
			version = version + 1
		WHERE id = $15 AND version = $16
	`
	res, err := r.db.ExecContext(ctx, query,
		row.EmailCT, row.EmailIV, row.EmailTag, row.EmailKeyID, row.EmailHash,
		row.DisplayName, row.Role,
		row.ExtIDCT, row.ExtIDIV, row.ExtIDTag, row.ExtIDKeyID, row.ExtIDHash,
		row.Active, row.LastLoginAt,
		row.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		row.Version = expectedVersion + 1
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) scanOne(sr *sql.Row) (*models.UserRow, error) {
	row := &models.UserRow{}
	err := sr.Scan(
		&row.ID, &row.EmailCT, &row.EmailIV, &row.EmailTag, &row.EmailKeyID, &row.EmailHash,
		&row.DisplayName, &row.Role, &row.ExtIDCT, &row.ExtIDIV, &row.ExtIDTag, &row.ExtIDKeyID, &row.ExtIDHash,
		&row.Active, &row.Version, &row.CreatedAt, &row.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return row, nil
}
