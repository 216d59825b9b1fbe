package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	apperrors "photopedia-backend/pkg/errors"
)

// InMemoryMediaRepository provides an in-memory implementation of
// ports.MediaRepository. Records are grouped under their owning event
// to mirror the storage layout.
type InMemoryMediaRepository struct {
	mu     sync.RWMutex
	events map[string]map[string]*entities.Media
}

// NewInMemoryMediaRepository creates a new in-memory media repository
func NewInMemoryMediaRepository() *InMemoryMediaRepository {
	return &InMemoryMediaRepository{
		events: make(map[string]map[string]*entities.Media),
	}
}

var _ ports.MediaRepository = (*InMemoryMediaRepository)(nil)

// Create persists a new media record.
func (r *InMemoryMediaRepository) Create(ctx context.Context, media *entities.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.events[media.EventID]
	if !ok {
		byID = make(map[string]*entities.Media)
		r.events[media.EventID] = byID
	}
	if _, taken := byID[media.MediaID]; taken {
		return apperrors.NewConflictError("media already exists")
	}
	byID[media.MediaID] = cloneMedia(media)
	return nil
}

// GetByID retrieves one media record.
func (r *InMemoryMediaRepository) GetByID(ctx context.Context, eventID, mediaID string) (*entities.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, ok := r.events[eventID][mediaID]
	if !ok {
		return nil, apperrors.NewNotFoundError("media")
	}
	return cloneMedia(media), nil
}

// ListByEvent returns an event's media in upload order, optionally
// narrowed to one type.
func (r *InMemoryMediaRepository) ListByEvent(ctx context.Context, eventID string, mediaType entities.MediaType, limit int, cursor string) (ports.Page[*entities.Media], error) {
	if mediaType != "" && !mediaType.Valid() {
		return ports.Page[*entities.Media]{}, apperrors.NewValidationError(fmt.Sprintf("unknown media type %q", mediaType))
	}

	r.mu.RLock()
	var media []*entities.Media
	for _, m := range r.events[eventID] {
		if mediaType == "" || m.Type == mediaType {
			media = append(media, cloneMedia(m))
		}
	}
	r.mu.RUnlock()

	sort.Slice(media, func(i, j int) bool {
		if !media[i].UploadedAt.Equal(media[j].UploadedAt) {
			return media[i].UploadedAt.Before(media[j].UploadedAt)
		}
		return media[i].MediaID < media[j].MediaID
	})
	return paginateMedia(media, limit, cursor), nil
}

// ListByPhotographer returns a photographer's media across events,
// most recent upload first.
func (r *InMemoryMediaRepository) ListByPhotographer(ctx context.Context, photographerID string, limit int, cursor string) (ports.Page[*entities.Media], error) {
	r.mu.RLock()
	var media []*entities.Media
	for _, byID := range r.events {
		for _, m := range byID {
			if m.PhotographerID == photographerID {
				media = append(media, cloneMedia(m))
			}
		}
	}
	r.mu.RUnlock()

	sort.Slice(media, func(i, j int) bool {
		if !media[i].UploadedAt.Equal(media[j].UploadedAt) {
			return media[i].UploadedAt.After(media[j].UploadedAt)
		}
		return media[i].MediaID < media[j].MediaID
	})
	return paginateMedia(media, limit, cursor), nil
}

// ListByPerson returns media whose labeled person matches personID,
// optionally scoped to one event.
func (r *InMemoryMediaRepository) ListByPerson(ctx context.Context, personID, eventID string) ([]*entities.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var media []*entities.Media
	for evID, byID := range r.events {
		if eventID != "" && evID != eventID {
			continue
		}
		for _, m := range byID {
			if m.AIAnalysis.LabeledPersonID() == personID {
				media = append(media, cloneMedia(m))
			}
		}
	}
	return media, nil
}

// Update applies processing-pipeline output onto a media record.
func (r *InMemoryMediaRepository) Update(ctx context.Context, eventID, mediaID string, patch entities.MediaPatch) (*entities.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	media, ok := r.events[eventID][mediaID]
	if !ok {
		return nil, apperrors.NewNotFoundError("media")
	}

	if patch.Versions != nil {
		v := *patch.Versions
		media.Versions = &v
	}
	if patch.PhotoMetadata != nil {
		media.PhotoMetadata = patch.PhotoMetadata
	}
	if patch.VideoMetadata != nil {
		media.VideoMetadata = patch.VideoMetadata
	}
	if patch.AIAnalysis != nil {
		a := *patch.AIAnalysis
		media.AIAnalysis = &a
	}
	if patch.HasWatermark != nil {
		media.HasWatermark = *patch.HasWatermark
	}
	if patch.ProcessingStatus != nil {
		media.ProcessingStatus = *patch.ProcessingStatus
		if *patch.ProcessingStatus == entities.ProcessingCompleted {
			now := time.Now().UTC()
			media.ProcessedAt = &now
		}
	}
	media.UpdatedAt = time.Now().UTC()
	return cloneMedia(media), nil
}

// IncrementEngagement atomically adds delta to one engagement counter.
func (r *InMemoryMediaRepository) IncrementEngagement(ctx context.Context, eventID, mediaID string, counter string, delta int64) error {
	if !entities.ValidEngagement(counter) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown engagement counter %q", counter))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	media, ok := r.events[eventID][mediaID]
	if !ok {
		return apperrors.NewNotFoundError("media")
	}
	switch counter {
	case entities.EngagementViews:
		media.Views += delta
	case entities.EngagementDownloads:
		media.Downloads += delta
	case entities.EngagementFavorites:
		media.Favorites += delta
	}
	media.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete hard-deletes the media record.
func (r *InMemoryMediaRepository) Delete(ctx context.Context, eventID, mediaID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[eventID][mediaID]; !ok {
		return apperrors.NewNotFoundError("media")
	}
	delete(r.events[eventID], mediaID)
	return nil
}

func paginateMedia(media []*entities.Media, limit int, cursor string) ports.Page[*entities.Media] {
	start := 0
	if cursor != "" {
		for i, m := range media {
			if m.MediaID == cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(media) {
		return ports.Page[*entities.Media]{}
	}
	media = media[start:]

	page := ports.Page[*entities.Media]{Items: media}
	if limit > 0 && len(media) > limit {
		page.Items = media[:limit]
		page.NextCursor = media[limit-1].MediaID
	}
	return page
}

func cloneMedia(m *entities.Media) *entities.Media {
	c := *m
	if m.Versions != nil {
		v := *m.Versions
		c.Versions = &v
	}
	if m.AIAnalysis != nil {
		a := *m.AIAnalysis
		a.Faces = append([]entities.Face(nil), m.AIAnalysis.Faces...)
		c.AIAnalysis = &a
	}
	if m.ProcessedAt != nil {
		t := *m.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}
