package handlers

import (
	"net/http"
	"path"
	"strings"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/infrastructure/storage"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"
	apperrors "photopedia-backend/pkg/errors"
	"photopedia-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bytesPerGB = float64(1 << 30)

// MediaHandler handles media lifecycle requests. Binaries move through
// presigned URLs; only metadata passes through these endpoints.
type MediaHandler struct {
	media  ports.MediaRepository
	events ports.EventRepository
	users  ports.UserRepository
	store  *storage.MediaStorage
	logger *zap.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(
	media ports.MediaRepository,
	events ports.EventRepository,
	users ports.UserRepository,
	store *storage.MediaStorage,
	logger *zap.Logger,
) *MediaHandler {
	return &MediaHandler{
		media:  media,
		events: events,
		users:  users,
		store:  store,
		logger: logger,
	}
}

// UploadIntentRequest represents the request body for an upload intent
type UploadIntentRequest struct {
	FileName  string `json:"fileName" validate:"required,max=255"`
	MediaType string `json:"mediaType" validate:"required,oneof=photo video"`
	MimeType  string `json:"mimeType" validate:"required,max=100"`
	FileSize  int64  `json:"fileSize" validate:"required,gt=0"`
}

// UploadIntentResponse carries the presigned PUT target
type UploadIntentResponse struct {
	MediaID   string `json:"mediaId"`
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

// UploadIntent handles POST /events/{eventID}/media/upload-intent. It
// allocates a media id and object key and presigns the upload; the
// record itself is created after the binary lands.
func (h *MediaHandler) UploadIntent(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireEventOwnership(w, r)
	if !ok {
		return
	}

	var req UploadIntentRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	mediaID := uuid.NewString()
	ext := strings.ToLower(path.Ext(req.FileName))
	var key string
	if entities.MediaType(req.MediaType) == entities.MediaTypeVideo {
		key = storage.VideoKey(event.EventID, mediaID, "original", ext)
	} else {
		key = storage.PhotoKey(event.EventID, mediaID, "original", ext)
	}

	url, err := h.store.PresignUpload(r.Context(), key, req.MimeType)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, UploadIntentResponse{
		MediaID:   mediaID,
		Key:       key,
		UploadURL: url,
	})
}

// RecordMediaRequest represents the request body finalizing an upload
type RecordMediaRequest struct {
	MediaID          string `json:"mediaId" validate:"required,uuid4"`
	MediaType        string `json:"mediaType" validate:"required,oneof=photo video"`
	FileName         string `json:"fileName" validate:"required,max=255"`
	OriginalFileName string `json:"originalFileName,omitempty" validate:"omitempty,max=255"`
	FileSize         int64  `json:"fileSize" validate:"required,gt=0"`
	MimeType         string `json:"mimeType" validate:"required,max=100"`
	Key              string `json:"key" validate:"required,max=1024"`
}

// Record handles POST /events/{eventID}/media
func (h *MediaHandler) Record(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireEventOwnership(w, r)
	if !ok {
		return
	}

	var req RecordMediaRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	originalName := req.OriginalFileName
	if originalName == "" {
		originalName = req.FileName
	}
	media := entities.NewMedia(entities.NewMediaParams{
		EventID:          event.EventID,
		PhotographerID:   event.PhotographerID,
		Type:             entities.MediaType(req.MediaType),
		FileName:         req.FileName,
		OriginalFileName: originalName,
		FileSize:         req.FileSize,
		MimeType:         req.MimeType,
		Object: entities.ObjectRef{
			Key:    req.Key,
			Bucket: h.store.Bucket(),
		},
	})
	media.MediaID = req.MediaID

	if err := h.media.Create(r.Context(), media); err != nil {
		common.RespondAppError(w, err)
		return
	}

	stat := entities.StatTotalPhotos
	if media.Type == entities.MediaTypeVideo {
		stat = entities.StatTotalVideos
	}
	if err := h.events.IncrementStat(r.Context(), event.EventID, stat, 1); err != nil {
		h.logger.Warn("media counter update failed",
			zap.String("eventID", event.EventID),
			zap.Error(err),
		)
	}
	h.bumpStorageUsage(r, event, float64(req.FileSize)/bytesPerGB)

	common.RespondJSON(w, http.StatusCreated, media)
}

// List handles GET /events/{eventID}/media
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireEventAccess(w, r)
	if !ok {
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

// ListMine handles GET /media: the authenticated photographer's media
// across all their events, most recent first.
func (h *MediaHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.GetPrincipal(r.Context())
	if !ok {
		common.RespondAppError(w, apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	page := common.ExtractPageParams(r)
	result, err := h.media.ListByPhotographer(r.Context(), principal.UserID, page.Limit, page.Cursor)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, common.PaginatedResult{Items: result.Items, NextCursor: result.NextCursor})
}

// UpdateMediaRequest carries processing-pipeline output
type UpdateMediaRequest struct {
	Versions         *entities.MediaVersions `json:"versions,omitempty"`
	PhotoMetadata    map[string]any          `json:"photoMetadata,omitempty"`
	VideoMetadata    map[string]any          `json:"videoMetadata,omitempty"`
	AIAnalysis       *entities.AIAnalysis    `json:"aiAnalysis,omitempty"`
	ProcessingStatus *string                 `json:"processingStatus,omitempty" validate:"omitempty,oneof=pending processing completed failed"`
	HasWatermark     *bool                   `json:"hasWatermark,omitempty"`
}

// Update handles PATCH /events/{eventID}/media/{mediaID}
func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireEventOwnership(w, r)
	if !ok {
		return
	}

	var req UpdateMediaRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, apperrors.NewValidationError(err.Error()))
		return
	}

	patch := entities.MediaPatch{
		Versions:      req.Versions,
		PhotoMetadata: req.PhotoMetadata,
		VideoMetadata: req.VideoMetadata,
		AIAnalysis:    req.AIAnalysis,
		HasWatermark:  req.HasWatermark,
	}
	if req.ProcessingStatus != nil {
		status := entities.ProcessingStatus(*req.ProcessingStatus)
		patch.ProcessingStatus = &status
	}

	media, err := h.media.Update(r.Context(), event.EventID, chi.URLParam(r, "mediaID"), patch)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, media)
}

// Download handles GET /events/{eventID}/media/{mediaID}/download
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	principal, event, ok := h.requireEventAccess(w, r)
	if !ok {
		return
	}
	if !event.AccessSettings.AllowDownload && !canManageEvent(principal, event) {
		common.RespondAppError(w, apperrors.NewForbiddenError("downloads are disabled for this gallery"))
		return
	}

	mediaID := chi.URLParam(r, "mediaID")
	media, err := h.media.GetByID(r.Context(), event.EventID, mediaID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	// Prefer the watermarked original when the pipeline produced one.
	key := media.Object.Key
	if media.Versions != nil && media.Versions.Original != "" {
		key = media.Versions.Original
	}
	url, err := h.store.PresignDownload(r.Context(), key)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	h.bumpEngagement(r, event.EventID, mediaID, entities.EngagementDownloads, entities.StatTotalDownloads)
	common.RespondJSON(w, http.StatusOK, map[string]string{"downloadUrl": url})
}

// Favorite handles POST /events/{eventID}/media/{mediaID}/favorite
func (h *MediaHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireEventAccess(w, r)
	if !ok {
		return
	}

	mediaID := chi.URLParam(r, "mediaID")
	if err := h.media.IncrementEngagement(r.Context(), event.EventID, mediaID, entities.EngagementFavorites, 1); err != nil {
		common.RespondAppError(w, err)
		return
	}
	if err := h.events.IncrementStat(r.Context(), event.EventID, entities.StatTotalFavorites, 1); err != nil {
		h.logger.Warn("favorite counter update failed",
			zap.String("eventID", event.EventID),
			zap.Error(err),
		)
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "favorited"})
}

// Delete handles DELETE /events/{eventID}/media/{mediaID}
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, event, ok := h.requireEventOwnership(w, r)
	if !ok {
		return
	}

	mediaID := chi.URLParam(r, "mediaID")
	media, err := h.media.GetByID(r.Context(), event.EventID, mediaID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.media.Delete(r.Context(), event.EventID, mediaID); err != nil {
		common.RespondAppError(w, err)
		return
	}

	// Object cleanup and counter adjustments are best-effort once the
	// record is gone.
	keys := []string{media.Object.Key}
	if media.Versions != nil {
		for _, k := range []string{media.Versions.Thumbnail, media.Versions.Medium, media.Versions.Large, media.Versions.Original, media.Versions.OriginalUnwatermarked} {
			if k != "" && k != media.Object.Key {
				keys = append(keys, k)
			}
		}
	}
	if err := h.store.DeleteAll(r.Context(), keys); err != nil {
		h.logger.Warn("object cleanup failed",
			zap.String("mediaID", mediaID),
			zap.Error(err),
		)
	}

	stat := entities.StatTotalPhotos
	if media.Type == entities.MediaTypeVideo {
		stat = entities.StatTotalVideos
	}
	if err := h.events.IncrementStat(r.Context(), event.EventID, stat, -1); err != nil {
		h.logger.Warn("media counter update failed",
			zap.String("eventID", event.EventID),
			zap.Error(err),
		)
	}
	h.bumpStorageUsage(r, event, -float64(media.FileSize)/bytesPerGB)

	common.RespondJSON(w, http.StatusOK, map[string]string{"message": "media deleted"})
}

func (h *MediaHandler) requireEventOwnership(w http.ResponseWriter, r *http.Request) (*auth.Principal, *entities.Event, bool) {
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

func (h *MediaHandler) requireEventAccess(w http.ResponseWriter, r *http.Request) (*auth.Principal, *entities.Event, bool) {
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
	if !canViewEvent(principal, event) {
		common.RespondAppError(w, apperrors.NewForbiddenError("not your event"))
		return nil, nil, false
	}
	return principal, event, true
}

// bumpEngagement pairs the per-media counter with the event aggregate,
// both best-effort after the download URL is already issued.
func (h *MediaHandler) bumpEngagement(r *http.Request, eventID, mediaID, counter, stat string) {
	ctx := r.Context()
	if err := h.media.IncrementEngagement(ctx, eventID, mediaID, counter, 1); err != nil {
		h.logger.Warn("engagement counter update failed",
			zap.String("mediaID", mediaID),
			zap.Error(err),
		)
	}
	if err := h.events.IncrementStat(ctx, eventID, stat, 1); err != nil {
		h.logger.Warn("event counter update failed",
			zap.String("eventID", eventID),
			zap.Error(err),
		)
	}
}

func (h *MediaHandler) bumpStorageUsage(r *http.Request, event *entities.Event, deltaGB float64) {
	ctx := r.Context()
	ownerID := event.PhotographerID
	user, err := h.users.GetByID(ctx, ownerID)
	if err != nil {
		h.logger.Warn("usage counter read failed", zap.String("userID", ownerID), zap.Error(err))
		return
	}
	total := user.CurrentUsage.TotalStorageGB + deltaGB
	if total < 0 {
		total = 0
	}
	if err := h.users.UpdateUsage(ctx, ownerID, entities.UsagePatch{TotalStorageGB: &total}); err != nil {
		h.logger.Warn("usage counter update failed", zap.String("userID", ownerID), zap.Error(err))
	}
}
