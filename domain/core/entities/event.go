package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event gallery.
// Events start in draft and become active when published; the terminal
// states are set by explicit administrative updates, never by timers.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
	EventStatusArchived  EventStatus = "archived"
	EventStatusExpired   EventStatus = "expired"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusActive, EventStatusCompleted, EventStatusArchived, EventStatusExpired:
		return true
	}
	return false
}

// EventType is an optional category tag for an event.
type EventType string

const (
	EventTypeWedding    EventType = "wedding"
	EventTypeCorporate  EventType = "corporate"
	EventTypeBirthday   EventType = "birthday"
	EventTypeGraduation EventType = "graduation"
	EventTypeOther      EventType = "other"
)

// AccessSettings are plain flags copied onto the event record; they are
// read at gallery-access time and never derived.
type AccessSettings struct {
	AllowDownload        bool `json:"allowDownload"`
	AllowFaceSearch      bool `json:"allowFaceSearch"`
	RequirePassword      bool `json:"requirePassword"`
	ShowPhotographerInfo bool `json:"showPhotographerInfo"`
}

// EventStats is the denormalized aggregate kept on the event record.
// Every mutation goes through an atomic increment; the struct is never
// written back wholesale after creation.
type EventStats struct {
	TotalPhotos    int64 `json:"totalPhotos"`
	TotalVideos    int64 `json:"totalVideos"`
	TotalViews     int64 `json:"totalViews"`
	TotalDownloads int64 `json:"totalDownloads"`
	TotalFavorites int64 `json:"totalFavorites"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
}

// Stat names accepted by the increment operation.
const (
	StatTotalPhotos    = "totalPhotos"
	StatTotalVideos    = "totalVideos"
	StatTotalViews     = "totalViews"
	StatTotalDownloads = "totalDownloads"
	StatTotalFavorites = "totalFavorites"
	StatUniqueVisitors = "uniqueVisitors"
)

// ValidStat reports whether name is one of the incrementable counters.
func ValidStat(name string) bool {
	switch name {
	case StatTotalPhotos, StatTotalVideos, StatTotalViews, StatTotalDownloads, StatTotalFavorites, StatUniqueVisitors:
		return true
	}
	return false
}

// Event is the metadata record for a photo gallery. It is owned by
// exactly one photographer and optionally associated with one client.
type Event struct {
	EventID        string `json:"eventId"`
	PhotographerID string `json:"photographerId"`

	EventName   string    `json:"eventName"`
	EventDate   time.Time `json:"eventDate"`
	EventTime   string    `json:"eventTime,omitempty"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	EventType   EventType `json:"eventType,omitempty"`

	ClientID    string `json:"clientId,omitempty"`
	ClientName  string `json:"clientName,omitempty"`
	ClientEmail string `json:"clientEmail,omitempty"`

	GalleryCode         string     `json:"galleryCode"`
	GalleryPasswordHash string     `json:"-"`
	GalleryExpiry       *time.Time `json:"galleryExpiry,omitempty"`
	IsPublic            bool       `json:"isPublic"`
	QRCodeKey           string     `json:"qrCodeUrl,omitempty"`

	AccessSettings AccessSettings `json:"accessSettings"`
	Stats          EventStats     `json:"stats"`
	Status         EventStatus    `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// NewEventParams is the caller-supplied portion of a new event.
type NewEventParams struct {
	PhotographerID      string
	EventName           string
	EventDate           time.Time
	EventTime           string
	Location            string
	Description         string
	EventType           EventType
	ClientID            string
	ClientName          string
	ClientEmail         string
	GalleryPasswordHash string
	GalleryExpiry       *time.Time
	IsPublic            bool
	AccessSettings      AccessSettings
}

// NewEvent assembles an event with store-assigned defaults: a fresh id,
// zeroed stats, draft status. The gallery code is assigned by the store
// at insert time, once it is known to be unique.
func NewEvent(p NewEventParams) *Event {
	now := time.Now().UTC()
	return &Event{
		EventID:             uuid.NewString(),
		PhotographerID:      p.PhotographerID,
		EventName:           p.EventName,
		EventDate:           p.EventDate,
		EventTime:           p.EventTime,
		Location:            p.Location,
		Description:         p.Description,
		EventType:           p.EventType,
		ClientID:            p.ClientID,
		ClientName:          p.ClientName,
		ClientEmail:         p.ClientEmail,
		GalleryPasswordHash: p.GalleryPasswordHash,
		GalleryExpiry:       p.GalleryExpiry,
		IsPublic:            p.IsPublic,
		AccessSettings:      p.AccessSettings,
		Stats:               EventStats{},
		Status:              EventStatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// GalleryExpired reports whether the gallery has an expiry in the past.
// Expiry is enforced at access time; the stored status is not mutated.
func (e *Event) GalleryExpired(now time.Time) bool {
	return e.GalleryExpiry != nil && now.After(*e.GalleryExpiry)
}

// EventPatch is a partial update to an event's mutable fields.
// Nil fields are left untouched.
type EventPatch struct {
	EventName           *string
	EventDate           *time.Time
	EventTime           *string
	Location            *string
	Description         *string
	EventType           *EventType
	ClientID            *string
	ClientName          *string
	ClientEmail         *string
	GalleryPasswordHash *string
	GalleryExpiry       *time.Time
	IsPublic            *bool
	AccessSettings      *AccessSettings
	Status              *EventStatus
}
