package dynamodb

import (
	"context"
	"fmt"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/domain/core/valueobjects"
	apperrors "photopedia-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"
)

// Index names on the events table.
const (
	eventPhotographerIndex = "GSI1" // PHOTOGRAPHER#{id} -> EVENT#{eventDate}
	eventCodeIndex         = "GSI2" // CODE#{galleryCode} -> EVENT
	eventClientIndex       = "GSI3" // CLIENT#{id} -> EVENT#{eventDate}
)

const eventMetadataSK = "METADATA"

// Attempts at a non-colliding gallery code before giving up. Collisions
// are rare (4 random chars over a sanitized name), so a handful of
// retries is plenty.
const maxGalleryCodeAttempts = 5

// EventRepository implements ports.EventRepository on DynamoDB. The
// metadata record lives under EVENT#{eventId}/METADATA; photographer,
// gallery-code and client lookups go through index projections kept in
// sync inline on the same record.
type EventRepository struct {
	table  *Table
	logger *zap.Logger
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(table *Table, logger *zap.Logger) *EventRepository {
	return &EventRepository{
		table:  table,
		logger: logger,
	}
}

var _ ports.EventRepository = (*EventRepository)(nil)

// eventItem is the DynamoDB item structure for an event metadata record.
type eventItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	GSI2PK string `dynamodbav:"GSI2PK"`
	GSI2SK string `dynamodbav:"GSI2SK"`
	GSI3PK string `dynamodbav:"GSI3PK,omitempty"`
	GSI3SK string `dynamodbav:"GSI3SK,omitempty"`

	EntityType     string `dynamodbav:"EntityType"`
	EventID        string `dynamodbav:"eventId"`
	PhotographerID string `dynamodbav:"photographerId"`

	EventName   string `dynamodbav:"eventName"`
	EventDate   string `dynamodbav:"eventDate"`
	EventTime   string `dynamodbav:"eventTime,omitempty"`
	Location    string `dynamodbav:"location"`
	Description string `dynamodbav:"description"`
	EventType   string `dynamodbav:"eventType,omitempty"`

	ClientID    string `dynamodbav:"clientId,omitempty"`
	ClientName  string `dynamodbav:"clientName,omitempty"`
	ClientEmail string `dynamodbav:"clientEmail,omitempty"`

	GalleryCode         string `dynamodbav:"galleryCode"`
	GalleryPasswordHash string `dynamodbav:"galleryPassword,omitempty"`
	GalleryExpiry       string `dynamodbav:"galleryExpiry,omitempty"`
	IsPublic            bool   `dynamodbav:"isPublic"`
	QRCodeKey           string `dynamodbav:"qrCodeUrl,omitempty"`

	AccessSettings accessSettingsItem `dynamodbav:"accessSettings"`
	Stats          statsItem          `dynamodbav:"stats"`
	Status         string             `dynamodbav:"status"`

	CreatedAt   string `dynamodbav:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
	PublishedAt string `dynamodbav:"publishedAt,omitempty"`
}

type accessSettingsItem struct {
	AllowDownload        bool `dynamodbav:"allowDownload"`
	AllowFaceSearch      bool `dynamodbav:"allowFaceSearch"`
	RequirePassword      bool `dynamodbav:"requirePassword"`
	ShowPhotographerInfo bool `dynamodbav:"showPhotographerInfo"`
}

type statsItem struct {
	TotalPhotos    int64 `dynamodbav:"totalPhotos"`
	TotalVideos    int64 `dynamodbav:"totalVideos"`
	TotalViews     int64 `dynamodbav:"totalViews"`
	TotalDownloads int64 `dynamodbav:"totalDownloads"`
	TotalFavorites int64 `dynamodbav:"totalFavorites"`
	UniqueVisitors int64 `dynamodbav:"uniqueVisitors"`
}

func eventPK(eventID string) string { return "EVENT#" + eventID }

func eventDateSK(date time.Time) string {
	return "EVENT#" + date.UTC().Format(time.RFC3339)
}

// Create persists a new event. When no gallery code has been assigned
// yet, one is generated from the event name and re-checked through the
// code index until it does not collide; the final put still carries an
// attribute_not_exists condition.
func (r *EventRepository) Create(ctx context.Context, event *entities.Event) error {
	if event.GalleryCode == "" {
		code, err := r.uniqueGalleryCode(ctx, event.EventName)
		if err != nil {
			return err
		}
		event.GalleryCode = code
	}

	av, err := attributevalue.MarshalMap(r.toItem(event))
	if err != nil {
		return apperrors.NewStorageError("put", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK"))
	if err := r.table.Put(ctx, av, &cond); err != nil {
		return err
	}

	r.logger.Info("created event",
		zap.String("eventID", event.EventID),
		zap.String("photographerID", event.PhotographerID),
		zap.String("galleryCode", event.GalleryCode),
	)
	return nil
}

func (r *EventRepository) uniqueGalleryCode(ctx context.Context, eventName string) (string, error) {
	for attempt := 0; attempt < maxGalleryCodeAttempts; attempt++ {
		code := valueobjects.NewGalleryCode(eventName)
		_, err := r.GetByGalleryCode(ctx, code)
		if apperrors.IsNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		r.logger.Warn("gallery code collision, regenerating",
			zap.String("code", code),
			zap.Int("attempt", attempt+1),
		)
	}
	return "", apperrors.NewConflictError("could not allocate a unique gallery code")
}

// GetByID fetches an event by id.
func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*entities.Event, error) {
	item, err := r.table.Get(ctx, eventPK(eventID), eventMetadataSK)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("event")
	}
	return r.fromRaw(item)
}

// GetByGalleryCode resolves an event through the code index. This is
// the unauthenticated guest entry path.
func (r *EventRepository) GetByGalleryCode(ctx context.Context, code string) (*entities.Event, error) {
	items, _, err := r.table.Query(ctx, QueryInput{
		Index:          eventCodeIndex,
		PartitionName:  "GSI2PK",
		PartitionValue: "CODE#" + code,
		Limit:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewNotFoundError("event")
	}
	return r.fromRaw(items[0])
}

// ListByPhotographer lists a photographer's events, most recent first.
func (r *EventRepository) ListByPhotographer(ctx context.Context, photographerID string, limit int, cursor string) (ports.Page[*entities.Event], error) {
	return r.list(ctx, QueryInput{
		Index:          eventPhotographerIndex,
		PartitionName:  "GSI1PK",
		PartitionValue: "PHOTOGRAPHER#" + photographerID,
		Limit:          int32(limit),
		Cursor:         cursor,
		Reverse:        true,
	})
}

// ListByClient lists a client's events, most recent first.
func (r *EventRepository) ListByClient(ctx context.Context, clientID string, limit int, cursor string) (ports.Page[*entities.Event], error) {
	return r.list(ctx, QueryInput{
		Index:          eventClientIndex,
		PartitionName:  "GSI3PK",
		PartitionValue: "CLIENT#" + clientID,
		Limit:          int32(limit),
		Cursor:         cursor,
		Reverse:        true,
	})
}

func (r *EventRepository) list(ctx context.Context, in QueryInput) (ports.Page[*entities.Event], error) {
	items, next, err := r.table.Query(ctx, in)
	if err != nil {
		return ports.Page[*entities.Event]{}, err
	}
	events := make([]*entities.Event, 0, len(items))
	for _, it := range items {
		e, err := r.fromRaw(it)
		if err != nil {
			return ports.Page[*entities.Event]{}, err
		}
		events = append(events, e)
	}
	return ports.Page[*entities.Event]{Items: events, NextCursor: next}, nil
}

// ListAll scans the whole table. Admin listings only.
func (r *EventRepository) ListAll(ctx context.Context) ([]*entities.Event, error) {
	filter := expression.Equal(expression.Name("EntityType"), expression.Value("EVENT"))
	raw, err := r.table.ScanAll(ctx, &filter)
	if err != nil {
		return nil, err
	}
	events := make([]*entities.Event, 0, len(raw))
	for _, it := range raw {
		e, err := r.fromRaw(it)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Update applies a typed partial update. Index projections that depend
// on mutated fields (event date, client association) are rewritten in
// the same item write, so there is no separate propagation step.
func (r *EventRepository) Update(ctx context.Context, eventID string, patch entities.EventPatch) (*entities.Event, error) {
	u := Update{Set: map[string]any{"updatedAt": now()}}

	setString(u.Set, "eventName", patch.EventName)
	setString(u.Set, "eventTime", patch.EventTime)
	setString(u.Set, "location", patch.Location)
	setString(u.Set, "description", patch.Description)
	setString(u.Set, "clientName", patch.ClientName)
	setString(u.Set, "clientEmail", patch.ClientEmail)
	setString(u.Set, "galleryPassword", patch.GalleryPasswordHash)
	if patch.EventType != nil {
		u.Set["eventType"] = string(*patch.EventType)
	}
	if patch.IsPublic != nil {
		u.Set["isPublic"] = *patch.IsPublic
	}
	if patch.GalleryExpiry != nil {
		u.Set["galleryExpiry"] = patch.GalleryExpiry.UTC().Format(time.RFC3339)
	}
	if patch.AccessSettings != nil {
		u.Set["accessSettings"] = accessSettingsItem{
			AllowDownload:        patch.AccessSettings.AllowDownload,
			AllowFaceSearch:      patch.AccessSettings.AllowFaceSearch,
			RequirePassword:      patch.AccessSettings.RequirePassword,
			ShowPhotographerInfo: patch.AccessSettings.ShowPhotographerInfo,
		}
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown event status %q", *patch.Status))
		}
		u.Set["status"] = string(*patch.Status)
	}

	// Date and client changes must keep their index projections in sync.
	if patch.EventDate != nil || patch.ClientID != nil {
		current, err := r.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		date := current.EventDate
		if patch.EventDate != nil {
			date = *patch.EventDate
			u.Set["eventDate"] = date.UTC().Format(time.RFC3339)
			u.Set["GSI1SK"] = eventDateSK(date)
			if current.ClientID != "" {
				u.Set["GSI3SK"] = eventDateSK(date)
			}
		}
		if patch.ClientID != nil {
			if *patch.ClientID == "" {
				u.Set["clientId"] = ""
				u.Remove = append(u.Remove, "GSI3PK", "GSI3SK")
			} else {
				u.Set["clientId"] = *patch.ClientID
				u.Set["GSI3PK"] = "CLIENT#" + *patch.ClientID
				u.Set["GSI3SK"] = eventDateSK(date)
			}
		}
	}

	item, err := r.table.UpdateItem(ctx, eventPK(eventID), eventMetadataSK, u)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("event")
	}
	return r.fromRaw(item)
}

// IncrementStat atomically adds delta to one named counter. Two
// simultaneous viewers must both be counted, so this is an ADD at the
// storage layer, never a read-modify-write.
func (r *EventRepository) IncrementStat(ctx context.Context, eventID string, stat string, delta int64) error {
	if !entities.ValidStat(stat) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown stat %q", stat))
	}
	item, err := r.table.UpdateItem(ctx, eventPK(eventID), eventMetadataSK, Update{
		Set: map[string]any{"updatedAt": now()},
		Add: map[string]int64{"stats." + stat: delta},
	})
	if err != nil {
		return err
	}
	if item == nil {
		return apperrors.NewNotFoundError("event")
	}
	return nil
}

// Publish moves the event to active and stamps publishedAt. Repeated
// publishes are allowed and just refresh the timestamp.
func (r *EventRepository) Publish(ctx context.Context, eventID string) (*entities.Event, error) {
	item, err := r.table.UpdateItem(ctx, eventPK(eventID), eventMetadataSK, Update{
		Set: map[string]any{
			"status":      string(entities.EventStatusActive),
			"publishedAt": now(),
			"updatedAt":   now(),
		},
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("event")
	}
	return r.fromRaw(item)
}

// Delete hard-deletes the metadata record only.
func (r *EventRepository) Delete(ctx context.Context, eventID string) error {
	return r.table.Delete(ctx, eventPK(eventID), eventMetadataSK)
}

func (r *EventRepository) toItem(e *entities.Event) eventItem {
	item := eventItem{
		PK:     eventPK(e.EventID),
		SK:     eventMetadataSK,
		GSI1PK: "PHOTOGRAPHER#" + e.PhotographerID,
		GSI1SK: eventDateSK(e.EventDate),
		GSI2PK: "CODE#" + e.GalleryCode,
		GSI2SK: "EVENT",

		EntityType:     "EVENT",
		EventID:        e.EventID,
		PhotographerID: e.PhotographerID,
		EventName:      e.EventName,
		EventDate:      e.EventDate.UTC().Format(time.RFC3339),
		EventTime:      e.EventTime,
		Location:       e.Location,
		Description:    e.Description,
		EventType:      string(e.EventType),

		ClientID:    e.ClientID,
		ClientName:  e.ClientName,
		ClientEmail: e.ClientEmail,

		GalleryCode:         e.GalleryCode,
		GalleryPasswordHash: e.GalleryPasswordHash,
		IsPublic:            e.IsPublic,
		QRCodeKey:           e.QRCodeKey,

		AccessSettings: accessSettingsItem{
			AllowDownload:        e.AccessSettings.AllowDownload,
			AllowFaceSearch:      e.AccessSettings.AllowFaceSearch,
			RequirePassword:      e.AccessSettings.RequirePassword,
			ShowPhotographerInfo: e.AccessSettings.ShowPhotographerInfo,
		},
		Stats: statsItem{
			TotalPhotos:    e.Stats.TotalPhotos,
			TotalVideos:    e.Stats.TotalVideos,
			TotalViews:     e.Stats.TotalViews,
			TotalDownloads: e.Stats.TotalDownloads,
			TotalFavorites: e.Stats.TotalFavorites,
			UniqueVisitors: e.Stats.UniqueVisitors,
		},
		Status: string(e.Status),

		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}

	// The client index projection exists only for client-associated
	// events; no placeholder keys otherwise.
	if e.ClientID != "" {
		item.GSI3PK = "CLIENT#" + e.ClientID
		item.GSI3SK = eventDateSK(e.EventDate)
	}
	if e.GalleryExpiry != nil {
		item.GalleryExpiry = e.GalleryExpiry.UTC().Format(time.RFC3339)
	}
	if e.PublishedAt != nil {
		item.PublishedAt = e.PublishedAt.Format(time.RFC3339)
	}
	return item
}

func (r *EventRepository) fromRaw(raw Item) (*entities.Event, error) {
	var item eventItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}

	eventDate, err := parseTime(item.EventDate)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad eventDate on event %s: %w", item.EventID, err))
	}
	createdAt, err := parseTime(item.CreatedAt)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad createdAt on event %s: %w", item.EventID, err))
	}
	updatedAt, err := parseTime(item.UpdatedAt)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad updatedAt on event %s: %w", item.EventID, err))
	}

	e := &entities.Event{
		EventID:        item.EventID,
		PhotographerID: item.PhotographerID,
		EventName:      item.EventName,
		EventDate:      eventDate,
		EventTime:      item.EventTime,
		Location:       item.Location,
		Description:    item.Description,
		EventType:      entities.EventType(item.EventType),

		ClientID:    item.ClientID,
		ClientName:  item.ClientName,
		ClientEmail: item.ClientEmail,

		GalleryCode:         item.GalleryCode,
		GalleryPasswordHash: item.GalleryPasswordHash,
		IsPublic:            item.IsPublic,
		QRCodeKey:           item.QRCodeKey,

		AccessSettings: entities.AccessSettings{
			AllowDownload:        item.AccessSettings.AllowDownload,
			AllowFaceSearch:      item.AccessSettings.AllowFaceSearch,
			RequirePassword:      item.AccessSettings.RequirePassword,
			ShowPhotographerInfo: item.AccessSettings.ShowPhotographerInfo,
		},
		Stats: entities.EventStats{
			TotalPhotos:    item.Stats.TotalPhotos,
			TotalVideos:    item.Stats.TotalVideos,
			TotalViews:     item.Stats.TotalViews,
			TotalDownloads: item.Stats.TotalDownloads,
			TotalFavorites: item.Stats.TotalFavorites,
			UniqueVisitors: item.Stats.UniqueVisitors,
		},
		Status: entities.EventStatus(item.Status),

		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if item.GalleryExpiry != "" {
		if t, err := parseTime(item.GalleryExpiry); err == nil {
			e.GalleryExpiry = &t
		}
	}
	if item.PublishedAt != "" {
		if t, err := parseTime(item.PublishedAt); err == nil {
			e.PublishedAt = &t
		}
	}
	return e, nil
}
