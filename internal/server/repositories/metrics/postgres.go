// Package metrics provides PostgreSQL-backed storage for company metric
// values and benchmark percentile statistics.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/dbx"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertCompanyMetric inserts or replaces the value for a
// (company, metric, period) triple.
func (r *PostgresRepository) UpsertCompanyMetric(ctx context.Context, m *models.CompanyMetric) error {
	query := `
		INSERT INTO company_metrics (company_id, metric_id, period, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (company_id, metric_id, period)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, m.CompanyID, m.MetricID, m.Period, m.Value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetCompanyMetrics(ctx context.Context, companyID, period string) ([]*models.CompanyMetric, error) {
	query := `
		SELECT company_id, metric_id, period, value, updated_at
		FROM company_metrics
		WHERE company_id = $1 AND period = $2
		ORDER BY metric_id
	`
	rows, err := r.db.QueryContext(ctx, query, companyID, period)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.CompanyMetric
	for rows.Next() {
		var m models.CompanyMetric
		if err := rows.Scan(&m.CompanyID, &m.MetricID, &m.Period, &m.Value, &m.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpsertBenchmarkStat(ctx context.Context, s *models.BenchmarkStat) error {
	query := `
		INSERT INTO benchmark_stats (metric_id, revenue_range, p10, p25, p50, p75, p90, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (metric_id, revenue_range)
		DO UPDATE SET p10 = EXCLUDED.p10, p25 = EXCLUDED.p25, p50 = EXCLUDED.p50,
			p75 = EXCLUDED.p75, p90 = EXCLUDED.p90, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, s.MetricID, s.RevenueRange, s.P10, s.P25, s.P50, s.P75, s.P90); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetBenchmarkStat(ctx context.Context, metricID, revenueRange string) (*models.BenchmarkStat, error) {
	query := `
		SELECT metric_id, revenue_range, p10, p25, p50, p75, p90, updated_at
		FROM benchmark_stats
		WHERE metric_id = $1 AND revenue_range = $2
	`
	s := &models.BenchmarkStat{}
	err := r.db.QueryRowContext(ctx, query, metricID, revenueRange).Scan(
		&s.MetricID, &s.RevenueRange, &s.P10, &s.P25, &s.P50, &s.P75, &s.P90, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
