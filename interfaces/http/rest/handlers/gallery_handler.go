package handlers

import (
	"net/http"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"
	apperrors "photopedia-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Header carrying the gallery password on guest requests.
const galleryPasswordHeader = "X-Gallery-Password"

// GalleryHandler handles the public gallery surface: unauthenticated
// guests reach events through their gallery code, subject to the
// event's access settings.
type GalleryHandler struct {
	events ports.EventRepository
	media  ports.MediaRepository
	logger *zap.Logger
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(events ports.EventRepository, media ports.MediaRepository, logger *zap.Logger) *GalleryHandler {
	return &GalleryHandler{
		events: events,
		media:  media,
		logger: logger,
	}
}

// GalleryView is the guest-visible projection of an event. Photographer
// and client identity fields appear only when the event allows it.
type GalleryView struct {
	EventID     string    `json:"eventId"`
	EventName   string    `json:"eventName"`
	EventDate   time.Time `json:"eventDate"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	GalleryCode string    `json:"galleryCode"`

	PhotographerID string `json:"photographerId,omitempty"`
	ClientName     string `json:"clientName,omitempty"`

	AllowDownload   bool `json:"allowDownload"`
	AllowFaceSearch bool `json:"allowFaceSearch"`

	Stats entities.EventStats `json:"stats"`
}

// Get handles GET /gallery/{code}
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.resolve(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	// Each successful gallery open counts as a view. Best-effort: a
	// failed bump never fails the read.
	if err := h.events.IncrementStat(r.Context(), event.EventID, entities.StatTotalViews, 1); err != nil {
		h.logger.Warn("view counter update failed",
			zap.String("eventID", event.EventID),
			zap.Error(err),
		)
	}

	common.RespondJSON(w, http.StatusOK, h.view(r, event))
}

// ListMedia handles GET /gallery/{code}/media
func (h *GalleryHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	event, err := h.resolve(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	page := common.ExtractPageParams(r)
	mediaType := entities.MediaType(r.URL.Query().Get("type"))

	result, err := h.media.ListByEvent(r.Context(), event.EventID, mediaType, page.Limit, page.Cursor)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, common.PaginatedResult{Items: result.Items, NextCursor: result.NextCursor})
}

// SearchByPerson handles GET /gallery/{code}/people/{personID}
func (h *GalleryHandler) SearchByPerson(w http.ResponseWriter, r *http.Request) {
	event, err := h.resolve(r)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if !event.AccessSettings.AllowFaceSearch && !isEventOperator(r, event) {
		common.RespondAppError(w, apperrors.NewForbiddenError("face search is disabled for this gallery"))
		return
	}

	media, err := h.media.ListByPerson(r.Context(), chi.URLParam(r, "personID"), event.EventID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, media)
}

// resolve looks up the event behind the gallery code and applies the
// access policy. Draft galleries are indistinguishable from missing
// ones; expiry is enforced here without mutating the stored status.
func (h *GalleryHandler) resolve(r *http.Request) (*entities.Event, error) {
	event, err := h.events.GetByGalleryCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		return nil, err
	}

	// The owner and admins see the gallery regardless of its state.
	if isEventOperator(r, event) {
		return event, nil
	}

	if event.Status != entities.EventStatusActive {
		if event.Status == entities.EventStatusExpired {
			return nil, apperrors.NewForbiddenError("gallery has expired")
		}
		return nil, apperrors.NewNotFoundError("event")
	}
	if event.GalleryExpired(time.Now().UTC()) {
		return nil, apperrors.NewForbiddenError("gallery has expired")
	}

	if event.AccessSettings.RequirePassword {
		password := r.Header.Get(galleryPasswordHeader)
		if password == "" {
			return nil, apperrors.NewUnauthorizedError("gallery password required")
		}
		if bcrypt.CompareHashAndPassword([]byte(event.GalleryPasswordHash), []byte(password)) != nil {
			return nil, apperrors.NewUnauthorizedError("incorrect gallery password")
		}
	}

	return event, nil
}

func (h *GalleryHandler) view(r *http.Request, event *entities.Event) GalleryView {
	view := GalleryView{
		EventID:         event.EventID,
		EventName:       event.EventName,
		EventDate:       event.EventDate,
		Location:        event.Location,
		Description:     event.Description,
		GalleryCode:     event.GalleryCode,
		AllowDownload:   event.AccessSettings.AllowDownload,
		AllowFaceSearch: event.AccessSettings.AllowFaceSearch,
		Stats:           event.Stats,
	}
	if event.AccessSettings.ShowPhotographerInfo || isEventOperator(r, event) {
		view.PhotographerID = event.PhotographerID
		view.ClientName = event.ClientName
	}
	return view
}

// isEventOperator reports whether an optional principal on the request
// owns the event or holds the admin role.
func isEventOperator(r *http.Request, event *entities.Event) bool {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		return false
	}
	return canManageEvent(principal, event)
}
