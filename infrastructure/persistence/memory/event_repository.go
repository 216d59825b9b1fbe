package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/domain/core/valueobjects"
	apperrors "photopedia-backend/pkg/errors"
)

// InMemoryEventRepository provides an in-memory implementation of
// ports.EventRepository.
type InMemoryEventRepository struct {
	mu     sync.RWMutex
	events map[string]*entities.Event
	byCode map[string]string
}

// NewInMemoryEventRepository creates a new in-memory event repository
func NewInMemoryEventRepository() *InMemoryEventRepository {
	return &InMemoryEventRepository{
		events: make(map[string]*entities.Event),
		byCode: make(map[string]string),
	}
}

var _ ports.EventRepository = (*InMemoryEventRepository)(nil)

// Create persists a new event, generating a unique gallery code when
// the event carries none.
func (r *InMemoryEventRepository) Create(ctx context.Context, event *entities.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.events[event.EventID]; taken {
		return apperrors.NewConflictError("event already exists")
	}

	if event.GalleryCode == "" {
		for attempt := 0; ; attempt++ {
			code := valueobjects.NewGalleryCode(event.EventName)
			if _, taken := r.byCode[code]; !taken {
				event.GalleryCode = code
				break
			}
			if attempt >= 4 {
				return apperrors.NewConflictError("could not allocate a unique gallery code")
			}
		}
	} else if _, taken := r.byCode[event.GalleryCode]; taken {
		return apperrors.NewConflictError("gallery code already in use")
	}

	r.events[event.EventID] = cloneEvent(event)
	r.byCode[event.GalleryCode] = event.EventID
	return nil
}

// GetByID retrieves an event by id.
func (r *InMemoryEventRepository) GetByID(ctx context.Context, eventID string) (*entities.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, apperrors.NewNotFoundError("event")
	}
	return cloneEvent(event), nil
}

// GetByGalleryCode resolves an event through the code index.
func (r *InMemoryEventRepository) GetByGalleryCode(ctx context.Context, code string) (*entities.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, apperrors.NewNotFoundError("event")
	}
	return cloneEvent(r.events[id]), nil
}

// ListByPhotographer lists a photographer's events, most recent first.
func (r *InMemoryEventRepository) ListByPhotographer(ctx context.Context, photographerID string, limit int, cursor string) (ports.Page[*entities.Event], error) {
	return r.list(func(e *entities.Event) bool { return e.PhotographerID == photographerID }, limit, cursor)
}

// ListByClient lists a client's events, most recent first.
func (r *InMemoryEventRepository) ListByClient(ctx context.Context, clientID string, limit int, cursor string) (ports.Page[*entities.Event], error) {
	if clientID == "" {
		return ports.Page[*entities.Event]{}, nil
	}
	return r.list(func(e *entities.Event) bool { return e.ClientID == clientID }, limit, cursor)
}

func (r *InMemoryEventRepository) list(match func(*entities.Event) bool, limit int, cursor string) (ports.Page[*entities.Event], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []*entities.Event
	for _, e := range r.events {
		if match(e) {
			events = append(events, cloneEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.After(events[j].EventDate)
		}
		return events[i].EventID < events[j].EventID
	})

	start := 0
	if cursor != "" {
		for i, e := range events {
			if e.EventID == cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(events) {
		return ports.Page[*entities.Event]{}, nil
	}
	events = events[start:]

	page := ports.Page[*entities.Event]{Items: events}
	if limit > 0 && len(events) > limit {
		page.Items = events[:limit]
		page.NextCursor = events[limit-1].EventID
	}
	return page, nil
}

// ListAll returns every event record.
func (r *InMemoryEventRepository) ListAll(ctx context.Context) ([]*entities.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*entities.Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, cloneEvent(e))
	}
	return events, nil
}

// Update applies a partial update, keeping the code index in sync.
func (r *InMemoryEventRepository) Update(ctx context.Context, eventID string, patch entities.EventPatch) (*entities.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, apperrors.NewNotFoundError("event")
	}

	if patch.EventName != nil {
		event.EventName = *patch.EventName
	}
	if patch.EventDate != nil {
		event.EventDate = *patch.EventDate
	}
	if patch.EventTime != nil {
		event.EventTime = *patch.EventTime
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.EventType != nil {
		event.EventType = *patch.EventType
	}
	if patch.ClientID != nil {
		event.ClientID = *patch.ClientID
	}
	if patch.ClientName != nil {
		event.ClientName = *patch.ClientName
	}
	if patch.ClientEmail != nil {
		event.ClientEmail = *patch.ClientEmail
	}
	if patch.GalleryPasswordHash != nil {
		event.GalleryPasswordHash = *patch.GalleryPasswordHash
	}
	if patch.GalleryExpiry != nil {
		t := *patch.GalleryExpiry
		event.GalleryExpiry = &t
	}
	if patch.IsPublic != nil {
		event.IsPublic = *patch.IsPublic
	}
	if patch.AccessSettings != nil {
		event.AccessSettings = *patch.AccessSettings
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown event status %q", *patch.Status))
		}
		event.Status = *patch.Status
	}
	event.UpdatedAt = time.Now().UTC()
	return cloneEvent(event), nil
}

// IncrementStat atomically adds delta to one named counter.
func (r *InMemoryEventRepository) IncrementStat(ctx context.Context, eventID string, stat string, delta int64) error {
	if !entities.ValidStat(stat) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown stat %q", stat))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return apperrors.NewNotFoundError("event")
	}

	switch stat {
	case entities.StatTotalPhotos:
		event.Stats.TotalPhotos += delta
	case entities.StatTotalVideos:
		event.Stats.TotalVideos += delta
	case entities.StatTotalViews:
		event.Stats.TotalViews += delta
	case entities.StatTotalDownloads:
		event.Stats.TotalDownloads += delta
	case entities.StatTotalFavorites:
		event.Stats.TotalFavorites += delta
	case entities.StatUniqueVisitors:
		event.Stats.UniqueVisitors += delta
	}
	event.UpdatedAt = time.Now().UTC()
	return nil
}

// Publish moves the event to active and stamps publishedAt; repeated
// publishes refresh the timestamp.
func (r *InMemoryEventRepository) Publish(ctx context.Context, eventID string) (*entities.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, apperrors.NewNotFoundError("event")
	}
	now := time.Now().UTC()
	event.Status = entities.EventStatusActive
	event.PublishedAt = &now
	event.UpdatedAt = now
	return cloneEvent(event), nil
}

// Delete hard-deletes the event record.
func (r *InMemoryEventRepository) Delete(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil
	}
	delete(r.byCode, event.GalleryCode)
	delete(r.events, eventID)
	return nil
}

func cloneEvent(e *entities.Event) *entities.Event {
	c := *e
	if e.GalleryExpiry != nil {
		t := *e.GalleryExpiry
		c.GalleryExpiry = &t
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
