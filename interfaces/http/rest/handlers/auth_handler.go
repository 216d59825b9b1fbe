package handlers

import (
	"net/http"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"
	apperrors "photopedia-backend/pkg/errors"
	"photopedia-backend/pkg/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// AuthHandler handles registration and identity resolution. Credential
// issuance lives with the external identity provider; this surface
// only binds provider identities to local accounts.
type AuthHandler struct {
	guard  *auth.Guard
	users  ports.UserRepository
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(guard *auth.Guard, users ports.UserRepository, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		guard:  guard,
		users:  users,
		logger: logger,
	}
}

// RegisterRequest represents the request body for registering an account
type RegisterRequest struct {
	Email          string `json:"email" validate:"required,email"`
	ExternalAuthID string `json:"externalAuthId" validate:"required"`
	Role           string `json:"role" validate:"required,oneof=photographer client guest"`
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Phone          string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	user := entities.NewUser(req.Email, req.ExternalAuthID, entities.Role(req.Role), req.FirstName, req.LastName, req.Phone)
	if err := h.users.Create(r.Context(), user); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("registered user",
		zap.String("userID", user.UserID),
		zap.String("role", string(user.Role)),
	)
	common.RespondJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login. The bearer token is exchanged for
// the resolved account record; token issuance itself happens at the
// identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	principal, err := h.guard.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), principal.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, user)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	user, err := h.users.GetByID(r.Context(), principal.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, user)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
