package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// BenchmarkService is the slice of the benchmark service the HTTP layer needs.
type BenchmarkService interface {
	RecordCompanyMetric(ctx context.Context, m *models.CompanyMetric) error
	GetCompanyMetrics(ctx context.Context, companyID, period string) ([]*models.CompanyMetric, error)
	UpsertBenchmarkStat(ctx context.Context, s *models.BenchmarkStat) error
	CompareToBenchmark(ctx context.Context, metricID, revenueRange string, value float64) (models.PercentileBracket, error)
}

// ReportService exports metric reports to object storage.
type ReportService interface {
	ExportMetricsReport(ctx context.Context, companyID, period string) (string, error)
}

type MetricsHandler struct {
	benchmarks BenchmarkService
	reports    ReportService
	validate   *validator.Validate
	logger     logging.Logger
}

func NewMetricsHandler(benchmarks BenchmarkService, reports ReportService, logger logging.Logger) *MetricsHandler {
	return &MetricsHandler{
		benchmarks: benchmarks,
		reports:    reports,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}
}

type recordMetricRequest struct {
	CompanyID string  `json:"company_id" validate:"required"`
	MetricID  string  `json:"metric_id" validate:"required"`
	Period    string  `json:"period" validate:"required"`
	Value     float64 `json:"value"`
}

func (h *MetricsHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordMetricRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	err := h.benchmarks.RecordCompanyMetric(r.Context(), &models.CompanyMetric{
		CompanyID: req.CompanyID,
		MetricID:  req.MetricID,
		Period:    req.Period,
		Value:     req.Value,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type companyMetricResponse struct {
	CompanyID string    `json:"company_id"`
	MetricID  string    `json:"metric_id"`
	Period    string    `json:"period"`
	Value     float64   `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *MetricsHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	period := r.URL.Query().Get("period")

	rows, err := h.benchmarks.GetCompanyMetrics(r.Context(), companyID, period)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]companyMetricResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, companyMetricResponse{
			CompanyID: m.CompanyID,
			MetricID:  m.MetricID,
			Period:    m.Period,
			Value:     m.Value,
			UpdatedAt: m.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type upsertBenchmarkRequest struct {
	MetricID     string  `json:"metric_id" validate:"required"`
	RevenueRange string  `json:"revenue_range" validate:"required"`
	P10          float64 `json:"p10"`
	P25          float64 `json:"p25"`
	P50          float64 `json:"p50"`
	P75          float64 `json:"p75"`
	P90          float64 `json:"p90"`
}

func (h *MetricsHandler) UpsertBenchmark(w http.ResponseWriter, r *http.Request) {
	var req upsertBenchmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	err := h.benchmarks.UpsertBenchmarkStat(r.Context(), &models.BenchmarkStat{
		MetricID:     req.MetricID,
		RevenueRange: req.RevenueRange,
		P10:          req.P10,
		P25:          req.P25,
		P50:          req.P50,
		P75:          req.P75,
		P90:          req.P90,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type compareResponse struct {
	MetricID     string  `json:"metric_id"`
	RevenueRange string  `json:"revenue_range"`
	Value        float64 `json:"value"`
	Bracket      string  `json:"bracket"`
}

func (h *MetricsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metricID := q.Get("metric_id")
	revenueRange := q.Get("revenue_range")

	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil {
		writeError(w, common.ErrInvalidParameter)
		return
	}

	bracket, err := h.benchmarks.CompareToBenchmark(r.Context(), metricID, revenueRange, value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, compareResponse{
		MetricID:     metricID,
		RevenueRange: revenueRange,
		Value:        value,
		Bracket:      string(bracket),
	})
}

type exportReportRequest struct {
	CompanyID string `json:"company_id" validate:"required"`
	Period    string `json:"period" validate:"required"`
}

type exportReportResponse struct {
	URL string `json:"url"`
}

func (h *MetricsHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	var req exportReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	url, err := h.reports.ExportMetricsReport(r.Context(), req.CompanyID, req.Period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportReportResponse{URL: url})
}
