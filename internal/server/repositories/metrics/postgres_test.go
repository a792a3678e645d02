package metrics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestUpsertCompanyMetric(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+company_metrics.*ON\s+CONFLICT`).
		WithArgs("c-1", "arr_growth", "2026-Q2", 1.42).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := &models.CompanyMetric{CompanyID: "c-1", MetricID: "arr_growth", Period: "2026-Q2", Value: 1.42}
	if err := repo.UpsertCompanyMetric(context.Background(), m); err != nil {
		t.Fatalf("UpsertCompanyMetric error: %v", err)
	}
}

func TestGetCompanyMetrics(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"company_id", "metric_id", "period", "value", "updated_at"}).
		AddRow("c-1", "arr_growth", "2026-Q2", 1.42, time.Now()).
		AddRow("c-1", "burn_multiple", "2026-Q2", 2.1, time.Now())

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*FROM\s+company_metrics`).
		WithArgs("c-1", "2026-Q2").
		WillReturnRows(rows)

	got, err := repo.GetCompanyMetrics(context.Background(), "c-1", "2026-Q2")
	if err != nil {
		t.Fatalf("GetCompanyMetrics error: %v", err)
	}
	if len(got) != 2 || got[0].MetricID != "arr_growth" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestGetBenchmarkStat_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*FROM\s+benchmark_stats`).
		WithArgs("ghost", "1M-5M").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBenchmarkStat(context.Background(), "ghost", "1M-5M")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetBenchmarkStat_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"metric_id", "revenue_range", "p10", "p25", "p50", "p75", "p90", "updated_at"}).
		AddRow("arr_growth", "1M-5M", 0.1, 0.25, 0.5, 0.75, 0.9, time.Now())

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*FROM\s+benchmark_stats`).
		WithArgs("arr_growth", "1M-5M").
		WillReturnRows(rows)

	s, err := repo.GetBenchmarkStat(context.Background(), "arr_growth", "1M-5M")
	if err != nil {
		t.Fatalf("GetBenchmarkStat error: %v", err)
	}
	if s.P50 != 0.5 {
		t.Fatalf("unexpected stat: %+v", s)
	}
}
