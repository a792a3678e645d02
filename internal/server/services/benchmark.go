package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/repomanager"
)

// BenchmarkService records company metric values and compares them against
// benchmark percentile stats for a revenue range.
type BenchmarkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewBenchmarkService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *BenchmarkService {
	return &BenchmarkService{db: db, repomanager: m, logger: logger}
}

// RecordCompanyMetric stores (or replaces) a company's value for a metric in
// a period.
func (s *BenchmarkService) RecordCompanyMetric(ctx context.Context, m *models.CompanyMetric) error {
	if m == nil {
		return common.ErrMissingParameter
	}
	if m.CompanyID == "" || m.MetricID == "" || m.Period == "" {
		return common.ErrMissingRequiredField
	}
	return s.repomanager.Metrics(s.db).UpsertCompanyMetric(ctx, m)
}

// GetCompanyMetrics lists a company's recorded values for a period.
func (s *BenchmarkService) GetCompanyMetrics(ctx context.Context, companyID, period string) ([]*models.CompanyMetric, error) {
	if companyID == "" || period == "" {
		return nil, common.ErrMissingRequiredField
	}
	return s.repomanager.Metrics(s.db).GetCompanyMetrics(ctx, companyID, period)
}

// UpsertBenchmarkStat stores percentile breakpoints for a metric within a
// revenue range. Breakpoints must be non-decreasing from P10 to P90.
func (s *BenchmarkService) UpsertBenchmarkStat(ctx context.Context, stat *models.BenchmarkStat) error {
	if stat == nil {
		return common.ErrMissingParameter
	}
	if stat.MetricID == "" || stat.RevenueRange == "" {
		return common.ErrMissingRequiredField
	}
	if stat.P10 > stat.P25 || stat.P25 > stat.P50 || stat.P50 > stat.P75 || stat.P75 > stat.P90 {
		return common.ErrInvalidParameter
	}
	return s.repomanager.Metrics(s.db).UpsertBenchmarkStat(ctx, stat)
}

// CompareToBenchmark places value into a percentile bracket against the
// stats stored for (metricID, revenueRange). A lower bound is inclusive, the
// upper bound exclusive, so a value exactly at P50 lands in P50_TO_P75.
func (s *BenchmarkService) CompareToBenchmark(ctx context.Context, metricID, revenueRange string, value float64) (models.PercentileBracket, error) {
	if metricID == "" || revenueRange == "" {
		return "", common.ErrMissingRequiredField
	}

	stat, err := s.repomanager.Metrics(s.db).GetBenchmarkStat(ctx, metricID, revenueRange)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", err
	}

	switch {
	case value < stat.P10:
		return models.BracketBelowP10, nil
	case value < stat.P25:
		return models.BracketP10ToP25, nil
	case value < stat.P50:
		return models.BracketP25ToP50, nil
	case value < stat.P75:
		return models.BracketP50ToP75, nil
	case value < stat.P90:
		return models.BracketP75ToP90, nil
	default:
		return models.BracketAboveP90, nil
	}
}
