package services

import (
	"context"
	"testing"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetricsRepo struct {
	companyMetrics []*models.CompanyMetric
	stats          map[string]*models.BenchmarkStat
}

func newFakeMetricsRepo() *fakeMetricsRepo {
	return &fakeMetricsRepo{stats: map[string]*models.BenchmarkStat{}}
}

func (f *fakeMetricsRepo) UpsertCompanyMetric(_ context.Context, m *models.CompanyMetric) error {
	for i, existing := range f.companyMetrics {
		if existing.CompanyID == m.CompanyID && existing.MetricID == m.MetricID && existing.Period == m.Period {
			f.companyMetrics[i] = m
			return nil
		}
	}
	f.companyMetrics = append(f.companyMetrics, m)
	return nil
}

func (f *fakeMetricsRepo) GetCompanyMetrics(_ context.Context, companyID, period string) ([]*models.CompanyMetric, error) {
	var out []*models.CompanyMetric
	for _, m := range f.companyMetrics {
		if m.CompanyID == companyID && m.Period == period {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMetricsRepo) UpsertBenchmarkStat(_ context.Context, s *models.BenchmarkStat) error {
	f.stats[s.MetricID+"|"+s.RevenueRange] = s
	return nil
}

func (f *fakeMetricsRepo) GetBenchmarkStat(_ context.Context, metricID, revenueRange string) (*models.BenchmarkStat, error) {
	s, ok := f.stats[metricID+"|"+revenueRange]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func newBenchmarkService(t *testing.T) (*BenchmarkService, *fakeMetricsRepo) {
	t.Helper()
	repo := newFakeMetricsRepo()
	m := &fakeManager{users: newFakeUserRepo(), audit: &fakeAuditRepo{}, metrics: repo}
	return NewBenchmarkService(nil, m, nopLogger{}), repo
}

func TestRecordAndGetCompanyMetrics(t *testing.T) {
	s, _ := newBenchmarkService(t)
	ctx := context.Background()

	require.NoError(t, s.RecordCompanyMetric(ctx, &models.CompanyMetric{
		CompanyID: "c1", MetricID: "arr_growth", Period: "2026-Q2", Value: 1.4,
	}))
	require.NoError(t, s.RecordCompanyMetric(ctx, &models.CompanyMetric{
		CompanyID: "c1", MetricID: "ndr", Period: "2026-Q2", Value: 1.12,
	}))
	// replacing an existing value must not add a row
	require.NoError(t, s.RecordCompanyMetric(ctx, &models.CompanyMetric{
		CompanyID: "c1", MetricID: "arr_growth", Period: "2026-Q2", Value: 1.5,
	}))

	got, err := s.GetCompanyMetrics(ctx, "c1", "2026-Q2")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecordCompanyMetric_Validation(t *testing.T) {
	s, _ := newBenchmarkService(t)
	ctx := context.Background()

	err := s.RecordCompanyMetric(ctx, nil)
	assert.ErrorIs(t, err, common.ErrMissingParameter)

	err = s.RecordCompanyMetric(ctx, &models.CompanyMetric{MetricID: "m", Period: "p"})
	assert.ErrorIs(t, err, common.ErrMissingRequiredField)
}

func TestUpsertBenchmarkStat_MonotonicPercentiles(t *testing.T) {
	s, _ := newBenchmarkService(t)
	ctx := context.Background()

	err := s.UpsertBenchmarkStat(ctx, &models.BenchmarkStat{
		MetricID: "arr_growth", RevenueRange: "1M-5M",
		P10: 0.5, P25: 0.4, P50: 0.9, P75: 1.2, P90: 1.8,
	})
	assert.ErrorIs(t, err, common.ErrInvalidParameter)

	err = s.UpsertBenchmarkStat(ctx, &models.BenchmarkStat{
		MetricID: "arr_growth", RevenueRange: "1M-5M",
		P10: 0.2, P25: 0.4, P50: 0.9, P75: 1.2, P90: 1.8,
	})
	assert.NoError(t, err)
}

func TestCompareToBenchmark(t *testing.T) {
	s, _ := newBenchmarkService(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertBenchmarkStat(ctx, &models.BenchmarkStat{
		MetricID: "arr_growth", RevenueRange: "1M-5M",
		P10: 0.2, P25: 0.4, P50: 0.9, P75: 1.2, P90: 1.8,
	}))

	cases := []struct {
		value float64
		want  models.PercentileBracket
	}{
		{0.1, models.BracketBelowP10},
		{0.2, models.BracketP10ToP25}, // lower bound inclusive
		{0.3, models.BracketP10ToP25},
		{0.9, models.BracketP50ToP75},
		{1.5, models.BracketP75ToP90},
		{1.8, models.BracketAboveP90},
		{5.0, models.BracketAboveP90},
	}
	for _, tc := range cases {
		got, err := s.CompareToBenchmark(ctx, "arr_growth", "1M-5M", tc.value)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "value %v", tc.value)
	}
}

func TestCompareToBenchmark_NoStats(t *testing.T) {
	s, _ := newBenchmarkService(t)

	_, err := s.CompareToBenchmark(context.Background(), "unknown", "1M-5M", 1.0)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
