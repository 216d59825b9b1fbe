package handlers

import (
	"net/http"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"
	apperrors "photopedia-backend/pkg/errors"
	"photopedia-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EventHandler handles event CRUD and lifecycle requests
type EventHandler struct {
	events ports.EventRepository
	users  ports.UserRepository
	logger *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(events ports.EventRepository, users ports.UserRepository, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		users:  users,
		logger: logger,
	}
}

// AccessSettingsBody mirrors the per-gallery access flags
type AccessSettingsBody struct {
	AllowDownload        bool `json:"allowDownload"`
	AllowFaceSearch      bool `json:"allowFaceSearch"`
	RequirePassword      bool `json:"requirePassword"`
	ShowPhotographerInfo bool `json:"showPhotographerInfo"`
}

// CreateEventRequest represents the request body for creating an event
type CreateEventRequest struct {
	EventName       string              `json:"eventName" validate:"required,max=100"`
	EventDate       string              `json:"eventDate" validate:"required"`
	EventTime       string              `json:"eventTime,omitempty"`
	Location        string              `json:"location,omitempty" validate:"omitempty,max=200"`
	Description     string              `json:"description,omitempty" validate:"omitempty,max=2000"`
	EventType       string              `json:"eventType,omitempty" validate:"omitempty,oneof=wedding corporate birthday graduation other"`
	ClientID        string              `json:"clientId,omitempty"`
	ClientName      string              `json:"clientName,omitempty" validate:"omitempty,max=200"`
	ClientEmail     string              `json:"clientEmail,omitempty" validate:"omitempty,email"`
	GalleryPassword string              `json:"galleryPassword,omitempty" validate:"omitempty,min=4,max=72"`
	GalleryExpiry   string              `json:"galleryExpiry,omitempty"`
	IsPublic        bool                `json:"isPublic"`
	AccessSettings  *AccessSettingsBody `json:"accessSettings,omitempty"`
}

// Create handles POST /events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req CreateEventRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	eventDate, err := parseDate(req.EventDate)
	if err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("eventDate must be an RFC3339 timestamp or YYYY-MM-DD date"))
		return
	}

	params := entities.NewEventParams{
		PhotographerID: principal.UserID,
		EventName:      req.EventName,
		EventDate:      eventDate,
		EventTime:      req.EventTime,
		Location:       req.Location,
		Description:    req.Description,
		EventType:      entities.EventType(req.EventType),
		ClientID:       req.ClientID,
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		IsPublic:       req.IsPublic,
	}
	if req.AccessSettings != nil {
		params.AccessSettings = entities.AccessSettings(*req.AccessSettings)
	}
	if req.GalleryExpiry != "" {
		expiry, err := parseDate(req.GalleryExpiry)
		if err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("galleryExpiry must be an RFC3339 timestamp or YYYY-MM-DD date"))
			return
		}
		params.GalleryExpiry = &expiry
	}
	if req.GalleryPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.GalleryPassword), bcrypt.DefaultCost)
		if err != nil {
			common.RespondAppError(w, apperrors.NewInternalError("failed to hash gallery password").WithCause(err))
			return
		}
		params.GalleryPasswordHash = string(hash)
		params.AccessSettings.RequirePassword = true
	}

	event := entities.NewEvent(params)
	if err := h.events.Create(r.Context(), event); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.bumpEventUsage(r, principal.UserID, 1)
	common.RespondJSON(w, http.StatusCreated, event)
}

// Get handles GET /events/{eventID}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	event, err := h.events.GetByID(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if !canViewEvent(principal, event) {
		common.RespondAppError(w, apperrors.NewForbiddenError("not your event"))
		return
	}
	common.RespondJSON(w, http.StatusOK, event)
}

// List handles GET /events. Photographers see their own events,
// clients the events shared with them, admins everything.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}
	page := common.ExtractPageParams(r)

	switch principal.Role {
	case entities.RoleAdmin:
		events, err := h.events.ListAll(r.Context())
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, common.PaginatedResult{Items: events})
	case entities.RoleClient:
		result, err := h.events.ListByClient(r.Context(), principal.UserID, page.Limit, page.Cursor)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, common.PaginatedResult{Items: result.Items, NextCursor: result.NextCursor})
	default:
		result, err := h.events.ListByPhotographer(r.Context(), principal.UserID, page.Limit, page.Cursor)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		common.RespondJSON(w, http.StatusOK, common.PaginatedResult{Items: result.Items, NextCursor: result.NextCursor})
	}
}

// UpdateEventRequest represents a partial event update
type UpdateEventRequest struct {
	EventName       *string             `json:"eventName,omitempty" validate:"omitempty,max=100"`
	EventDate       *string             `json:"eventDate,omitempty"`
	EventTime       *string             `json:"eventTime,omitempty"`
	Location        *string             `json:"location,omitempty" validate:"omitempty,max=200"`
	Description     *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	EventType       *string             `json:"eventType,omitempty" validate:"omitempty,oneof=wedding corporate birthday graduation other"`
	ClientID        *string             `json:"clientId,omitempty"`
	ClientName      *string             `json:"clientName,omitempty" validate:"omitempty,max=200"`
	ClientEmail     *string             `json:"clientEmail,omitempty" validate:"omitempty,email"`
	GalleryPassword *string             `json:"galleryPassword,omitempty" validate:"omitempty,min=4,max=72"`
	GalleryExpiry   *string             `json:"galleryExpiry,omitempty"`
	IsPublic        *bool               `json:"isPublic,omitempty"`
	AccessSettings  *AccessSettingsBody `json:"accessSettings,omitempty"`
	Status          *string             `json:"status,omitempty" validate:"omitempty,oneof=draft active completed archived expired"`
}

// Update handles PATCH /events/{eventID}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	patch := entities.EventPatch{
		EventName:   req.EventName,
		EventTime:   req.EventTime,
		Location:    req.Location,
		Description: req.Description,
		ClientID:    req.ClientID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		IsPublic:    req.IsPublic,
	}
	if req.EventDate != nil {
		date, err := parseDate(*req.EventDate)
		if err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("eventDate must be an RFC3339 timestamp or YYYY-MM-DD date"))
			return
		}
		patch.EventDate = &date
	}
	if req.EventType != nil {
		t := entities.EventType(*req.EventType)
		patch.EventType = &t
	}
	if req.GalleryExpiry != nil {
		expiry, err := parseDate(*req.GalleryExpiry)
		if err != nil {
			common.RespondAppError(w, apperrors.NewValidationError("galleryExpiry must be an RFC3339 timestamp or YYYY-MM-DD date"))
			return
		}
		patch.GalleryExpiry = &expiry
	}
	if req.GalleryPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.GalleryPassword), bcrypt.DefaultCost)
		if err != nil {
			common.RespondAppError(w, apperrors.NewInternalError("failed to hash gallery password").WithCause(err))
			return
		}
		s := string(hash)
		patch.GalleryPasswordHash = &s
	}
	if req.AccessSettings != nil {
		settings := entities.AccessSettings(*req.AccessSettings)
		patch.AccessSettings = &settings
	}
	if req.Status != nil {
		status := entities.EventStatus(*req.Status)
		patch.Status = &status
	}

	updated, err := h.events.Update(r.Context(), event.EventID, patch)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, updated)
}

// Publish handles POST /events/{eventID}/publish
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}

	published, err := h.events.Publish(r.Context(), event.EventID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.logger.Info("published event",
		zap.String("eventID", published.EventID),
		zap.String("galleryCode", published.GalleryCode),
	)
	common.RespondJSON(w, http.StatusOK, published)
}

// Delete handles DELETE /events/{eventID}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, event, ok := h.requireOwnership(w, r)
	if !ok {
		return
	}

	if err := h.events.Delete(r.Context(), event.EventID); err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.bumpEventUsage(r, principal.UserID, -1)
	h.logger.Info("deleted event", zap.String("eventID", event.EventID))
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

// requireOwnership loads the event and rejects principals that neither
// own it nor hold the admin role. The error response is already
// written when ok is false.
func (h *EventHandler) requireOwnership(w http.ResponseWriter, r *http.Request) (*auth.Principal, *entities.Event, bool) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return nil, nil, false
	}

	event, err := h.events.GetByID(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		common.RespondAppError(w, err)
		return nil, nil, false
	}
	if !canManageEvent(principal, event) {
		common.RespondAppError(w, apperrors.NewForbiddenError("not your event"))
		return nil, nil, false
	}
	return principal, event, true
}

// bumpEventUsage best-effort adjusts the owner's event counter after a
// successful write. Failures are logged and never surfaced: counters
// are stored data, not enforcement, and drift is reconcilable offline.
func (h *EventHandler) bumpEventUsage(r *http.Request, userID string, delta int) {
	ctx := r.Context()
	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.logger.Warn("usage counter read failed", zap.String("userID", userID), zap.Error(err))
		return
	}
	total := user.CurrentUsage.TotalEvents + delta
	if total < 0 {
		total = 0
	}
	if err := h.users.UpdateUsage(ctx, userID, entities.UsagePatch{TotalEvents: &total}); err != nil {
		h.logger.Warn("usage counter update failed", zap.String("userID", userID), zap.Error(err))
	}
}

func canManageEvent(p *auth.Principal, e *entities.Event) bool {
	return p.Role == entities.RoleAdmin || e.PhotographerID == p.UserID
}

func canViewEvent(p *auth.Principal, e *entities.Event) bool {
	return canManageEvent(p, e) || (e.ClientID != "" && e.ClientID == p.UserID)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
