package metrics

import (
	"context"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// Repository persists company metric values and benchmark percentile stats.
type Repository interface {
	UpsertCompanyMetric(ctx context.Context, m *models.CompanyMetric) error
	GetCompanyMetrics(ctx context.Context, companyID, period string) ([]*models.CompanyMetric, error)
	UpsertBenchmarkStat(ctx context.Context, s *models.BenchmarkStat) error
	GetBenchmarkStat(ctx context.Context, metricID, revenueRange string) (*models.BenchmarkStat, error)
}
