package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/auth"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type stubUserService struct {
	users map[string]*models.User
}

func (s *stubUserService) CreateUser(_ context.Context, req services.CreateUserRequest) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == req.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u := &models.User{
		ID:         "u-new",
		Email:      req.Email,
		Role:       models.RoleUser,
		ExternalID: req.ExternalID,
		Active:     true,
		Version:    1,
		CreatedAt:  time.Now(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *stubUserService) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (s *stubUserService) UpdateUser(_ context.Context, id string, _ models.UserChanges, expectedVersion int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u.Version != expectedVersion {
		return nil, common.ErrVersionConflict
	}
	u.Version++
	return u, nil
}

func (s *stubUserService) DeactivateUser(ctx context.Context, id string, expectedVersion int64) (*models.User, error) {
	u, err := s.UpdateUser(ctx, id, models.UserChanges{}, expectedVersion)
	if err != nil {
		return nil, err
	}
	u.Active = false
	return u, nil
}

func (s *stubUserService) RotateUserEncryption(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Version++
	return u, nil
}

func (s *stubUserService) AuditTrail(_ context.Context, entityID string, _ int) ([]*models.AuditRecord, error) {
	if entityID == "" {
		return nil, common.ErrMissingRequiredField
	}
	return []*models.AuditRecord{{ID: "01ARZ", EntityID: entityID, Action: models.AuditUserCreated}}, nil
}

func (s *stubUserService) AuthenticateExternal(_ context.Context, externalID string) (*models.User, error) {
	for _, u := range s.users {
		if u.ExternalID == externalID && u.Active {
			return u, nil
		}
	}
	return nil, common.ErrInvalidOrInactiveUser
}

type stubBenchmarkService struct{}

func (stubBenchmarkService) RecordCompanyMetric(context.Context, *models.CompanyMetric) error {
	return nil
}

func (stubBenchmarkService) GetCompanyMetrics(_ context.Context, companyID, period string) ([]*models.CompanyMetric, error) {
	if companyID == "" || period == "" {
		return nil, common.ErrMissingRequiredField
	}
	return []*models.CompanyMetric{{CompanyID: companyID, MetricID: "arr_growth", Period: period, Value: 1.4}}, nil
}

func (stubBenchmarkService) UpsertBenchmarkStat(context.Context, *models.BenchmarkStat) error {
	return nil
}

func (stubBenchmarkService) CompareToBenchmark(_ context.Context, metricID, _ string, _ float64) (models.PercentileBracket, error) {
	if metricID == "unknown" {
		return "", common.ErrorNotFound
	}
	return models.BracketP50ToP75, nil
}

type stubReportService struct{}

func (stubReportService) ExportMetricsReport(context.Context, string, string) (string, error) {
	return "http://minio/get/reports/x.csv", nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	userSvc := &stubUserService{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "a@b.c", ExternalID: "ext-u1", Role: models.RoleUser, Active: true, Version: 3},
	}}

	return NewRouter(RouterConfig{
		AllowedOrigins: []string{"*"},
		AuthHandler:    NewAuthHandler(userSvc, testSecret, time.Hour, nopLogger{}),
		UserHandler:    NewUserHandler(userSvc, nopLogger{}),
		MetricsHandler: NewMetricsHandler(stubBenchmarkService{}, stubReportService{}, nopLogger{}),
		Auth:           NewAuthMiddleware(testSecret, nopLogger{}),
		RateLimiter:    NewRateLimiter(100, 200),
	})
}

func tokenFor(t *testing.T, role models.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken("caller", role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLivezIsPublic(t *testing.T) {
	h := newTestRouter(t)
	rec := doRequest(t, h, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenExchange(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/auth/token", "", map[string]any{"external_id": "ext-u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.User.ID)

	// minted token works against a protected route
	rec = doRequest(t, h, http.MethodGet, "/api/v1/users/u1", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/token", "", map[string]any{"external_id": "ghost"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/auth/token", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/users/u1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/users/u1", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUser_RoleGate(t *testing.T) {
	h := newTestRouter(t)
	body := map[string]any{"email": "new@x.y", "external_id": "ext-1"}

	rec := doRequest(t, h, http.MethodPost, "/api/v1/users", tokenFor(t, models.RoleAnalyst), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/users", tokenFor(t, models.RoleAdmin), body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new@x.y", resp.Email)
	assert.Equal(t, int64(1), resp.Version)
}

func TestCreateUser_Validation(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/users", tokenFor(t, models.RoleAdmin),
		map[string]any{"email": "not-an-email", "external_id": "ext"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/users", tokenFor(t, models.RoleAdmin),
		map[string]any{"email": "ok@x.y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/users/u1", tokenFor(t, models.RoleUser), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/users/ghost", tokenFor(t, models.RoleUser), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateUser_VersionConflictIs409(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodPut, "/api/v1/users/u1", tokenFor(t, models.RoleAdmin),
		map[string]any{"display_name": "x", "version": 999})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, h, http.MethodPut, "/api/v1/users/u1", tokenFor(t, models.RoleAdmin),
		map[string]any{"display_name": "x", "version": 3})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditTrail_AdminOnly(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/audit?entity_id=u1", tokenFor(t, models.RoleAnalyst), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/v1/audit?entity_id=u1", tokenFor(t, models.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompareBenchmark(t *testing.T) {
	h := newTestRouter(t)

	rec := doRequest(t, h, http.MethodGet,
		"/api/v1/benchmarks/compare?metric_id=arr_growth&revenue_range=1M-5M&value=1.0",
		tokenFor(t, models.RoleUser), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp compareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(models.BracketP50ToP75), resp.Bracket)

	rec = doRequest(t, h, http.MethodGet,
		"/api/v1/benchmarks/compare?metric_id=unknown&revenue_range=1M-5M&value=1.0",
		tokenFor(t, models.RoleUser), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodGet,
		"/api/v1/benchmarks/compare?metric_id=m&revenue_range=r&value=abc",
		tokenFor(t, models.RoleUser), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportReport_AnalystOnly(t *testing.T) {
	h := newTestRouter(t)
	body := map[string]any{"company_id": "c1", "period": "2026-Q2"}

	rec := doRequest(t, h, http.MethodPost, "/api/v1/reports/export", tokenFor(t, models.RoleUser), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/api/v1/reports/export", tokenFor(t, models.RoleAnalyst), body)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp exportReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.URL, "reports/")
}
