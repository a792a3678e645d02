package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/services"
)

// UserService is the slice of the user service the HTTP layer needs.
type UserService interface {
	CreateUser(ctx context.Context, req services.CreateUserRequest) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, changes models.UserChanges, expectedVersion int64) (*models.User, error)
	DeactivateUser(ctx context.Context, id string, expectedVersion int64) (*models.User, error)
	RotateUserEncryption(ctx context.Context, id string) (*models.User, error)
	AuditTrail(ctx context.Context, entityID string, limit int) ([]*models.AuditRecord, error)
}

type UserHandler struct {
	service  UserService
	validate *validator.Validate
	logger   logging.Logger
}

func NewUserHandler(service UserService, logger logging.Logger) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type createUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" validate:"omitempty,oneof=USER ANALYST ADMIN"`
	ExternalID  string `json:"external_id" validate:"required"`
}

type updateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role" validate:"omitempty,oneof=USER ANALYST ADMIN"`
	ExternalID  *string `json:"external_id"`
	Active      *bool   `json:"active"`
	Version     int64   `json:"version" validate:"required,min=1"`
}

type versionedRequest struct {
	Version int64 `json:"version" validate:"required,min=1"`
}

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	ExternalID  string     `json:"external_id"`
	Active      bool       `json:"active"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		ExternalID:  u.ExternalID,
		Active:      u.Active,
		Version:     u.Version,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.service.CreateUser(r.Context(), services.CreateUserRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        models.Role(req.Role),
		ExternalID:  req.ExternalID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	changes := models.UserChanges{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		ExternalID:  req.ExternalID,
		Active:      req.Active,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		changes.Role = &role
	}

	u, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), changes, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req versionedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.service.DeactivateUser(r.Context(), chi.URLParam(r, "id"), req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.RotateUserEncryption(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

type auditRecordResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	EntityID  string    `json:"entity_id"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *UserHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request"})
			return
		}
		limit = n
	}

	recs, err := h.service.AuditTrail(r.Context(), r.URL.Query().Get("entity_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]auditRecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, auditRecordResponse{
			ID:        rec.ID,
			ActorID:   rec.ActorID,
			Action:    rec.Action,
			EntityID:  rec.EntityID,
			Detail:    rec.Detail,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
