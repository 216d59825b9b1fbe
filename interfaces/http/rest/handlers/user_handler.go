package handlers

import (
	"net/http"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"
	apperrors "photopedia-backend/pkg/errors"
	"photopedia-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler handles user profile and administration requests
type UserHandler struct {
	users  ports.UserRepository
	logger *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users ports.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// UpdateProfileRequest represents the request body for a profile update
type UpdateProfileRequest struct {
	FirstName    *string                `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName     *string                `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Phone        *string                `json:"phone,omitempty" validate:"omitempty,max=30"`
	ProfilePhoto *string                `json:"profilePhoto,omitempty"`
	BusinessName *string                `json:"businessName,omitempty" validate:"omitempty,max=200"`
	BusinessLogo *string                `json:"businessLogo,omitempty"`
	Watermark    *WatermarkSettingsBody `json:"watermarkSettings,omitempty"`
}

// WatermarkSettingsBody mirrors the watermark preference fields
type WatermarkSettingsBody struct {
	Enabled     bool    `json:"enabled"`
	Opacity     float64 `json:"opacity" validate:"gte=0,lte=1"`
	Position    string  `json:"position" validate:"omitempty,oneof=top-left top-right bottom-left bottom-right center"`
	CustomImage string  `json:"customImage,omitempty"`
}

// UpdateProfile handles PATCH /users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	patch := entities.UserPatch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		ProfilePhoto: req.ProfilePhoto,
		BusinessName: req.BusinessName,
		BusinessLogo: req.BusinessLogo,
	}
	if req.Watermark != nil {
		patch.Watermark = &entities.WatermarkSettings{
			Enabled:     req.Watermark.Enabled,
			Opacity:     req.Watermark.Opacity,
			Position:    req.Watermark.Position,
			CustomImage: req.Watermark.CustomImage,
		}
	}

	user, err := h.users.UpdateProfile(r.Context(), principal.UserID, patch)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, user)
}

// UpdateUsageRequest replaces the named usage counters
type UpdateUsageRequest struct {
	TotalEvents     *int     `json:"totalEvents,omitempty" validate:"omitempty,gte=0"`
	TotalStorageGB  *float64 `json:"totalStorageGB,omitempty" validate:"omitempty,gte=0"`
	VideosThisMonth *int     `json:"videosThisMonth,omitempty" validate:"omitempty,gte=0"`
}

// UpdateUsage handles PUT /users/me/usage. Counters are stored data,
// not quota enforcement; writes above the plan ceiling are accepted.
func (h *UserHandler) UpdateUsage(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req UpdateUsageRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	err := h.users.UpdateUsage(r.Context(), principal.UserID, entities.UsagePatch{
		TotalEvents:     req.TotalEvents,
		TotalStorageGB:  req.TotalStorageGB,
		VideosThisMonth: req.VideosThisMonth,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "usage updated"})
}

// List handles GET /users (admin). An optional role query parameter
// narrows the listing through the role index; without it the unindexed
// slow path runs.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		users []*entities.User
		err   error
	)
	if role := r.URL.Query().Get("role"); role != "" {
		if !entities.Role(role).Valid() {
			common.RespondAppError(w, apperrors.NewValidationError("unknown role"))
			return
		}
		users, err = h.users.ListByRole(r.Context(), entities.Role(role))
	} else {
		users, err = h.users.ListAll(r.Context())
	}
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, users)
}

// UpdateSubscriptionRequest represents an admin tier change
type UpdateSubscriptionRequest struct {
	Tier   string `json:"tier" validate:"required,oneof=free starter professional enterprise"`
	Status string `json:"status" validate:"required,oneof=active past_due cancelled"`
}

// UpdateSubscription handles PUT /users/{userID}/subscription (admin)
func (h *UserHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req UpdateSubscriptionRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.UpdateSubscription(r.Context(), userID, entities.SubscriptionTier(req.Tier), req.Status)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("updated subscription",
		zap.String("userID", userID),
		zap.String("tier", req.Tier),
	)
	common.RespondJSON(w, http.StatusOK, user)
}

// Deactivate handles DELETE /users/{userID} (admin soft delete)
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.users.Deactivate(r.Context(), userID); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("deactivated user", zap.String("userID", userID))
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}
