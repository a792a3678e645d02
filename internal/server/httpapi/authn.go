package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/auth"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/models"
)

// Authenticator maps a verified external identity token to a local account.
type Authenticator interface {
	AuthenticateExternal(ctx context.Context, externalID string) (*models.User, error)
}

// AuthHandler exchanges an external identity for an API bearer token. The
// identity provider's own flow is out of scope; by the time a request lands
// here the external token has been verified upstream.
type AuthHandler struct {
	service  Authenticator
	secret   []byte
	validity time.Duration
	validate *validator.Validate
	logger   logging.Logger
}

func NewAuthHandler(service Authenticator, secret []byte, validity time.Duration, logger logging.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		secret:   secret,
		validity: validity,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type tokenRequest struct {
	ExternalID string `json:"external_id" validate:"required"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.service.AuthenticateExternal(r.Context(), req.ExternalID)
	if err != nil {
		writeError(w, err)
		return
	}

	tok, err := auth.GenerateToken(u.ID, u.Role, h.secret, h.validity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: tok, User: toUserResponse(u)})
}
