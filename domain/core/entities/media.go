package entities

import (
	"time"

	"github.com/google/uuid"
)

// MediaType distinguishes photos from videos; it is part of the media
// sort key so a type prefix can narrow range queries.
type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypePhoto || t == MediaTypeVideo
}

// ProcessingStatus tracks the external processing pipeline for an upload.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingActive    ProcessingStatus = "processing"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// ObjectRef points at a stored binary. The core never reads or writes
// the bytes themselves.
type ObjectRef struct {
	Key    string `json:"key"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
}

// MediaVersions holds the storage keys of derived renditions produced
// by the processing pipeline.
type MediaVersions struct {
	Thumbnail             string `json:"thumbnail,omitempty"`
	Medium                string `json:"medium,omitempty"`
	Large                 string `json:"large,omitempty"`
	Original              string `json:"original,omitempty"`
	OriginalUnwatermarked string `json:"originalUnwatermarked,omitempty"`
}

// BoundingBox is a face location in relative image coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Face is one recognized face in a media item. PersonID is set once a
// face has been labeled; the first labeled face feeds the person index.
type Face struct {
	FaceID      string      `json:"faceId"`
	BoundingBox BoundingBox `json:"boundingBox"`
	Confidence  float64     `json:"confidence"`
	PersonID    string      `json:"personId,omitempty"`
	PersonName  string      `json:"personName,omitempty"`
}

// AIAnalysis is the recognition pipeline's output. The core stores it
// and indexes labeled persons; it does not interpret the rest.
type AIAnalysis struct {
	Faces        []Face   `json:"faces,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Scenes       []string `json:"scenes,omitempty"`
	Colors       []string `json:"colors,omitempty"`
	QualityScore float64  `json:"qualityScore,omitempty"`
}

// LabeledPersonID returns the first labeled person in the analysis, or
// the empty string when no face has been labeled yet.
func (a *AIAnalysis) LabeledPersonID() string {
	if a == nil {
		return ""
	}
	for _, f := range a.Faces {
		if f.PersonID != "" {
			return f.PersonID
		}
	}
	return ""
}

// Media is one uploaded photo or video, co-located under its owning
// event. Engagement counters follow the same atomic-increment rule as
// event stats.
type Media struct {
	MediaID        string    `json:"mediaId"`
	EventID        string    `json:"eventId"`
	PhotographerID string    `json:"photographerId"`
	Type           MediaType `json:"mediaType"`

	FileName         string `json:"fileName"`
	OriginalFileName string `json:"originalFileName"`
	FileSize         int64  `json:"fileSize"`
	MimeType         string `json:"mimeType"`

	Object   ObjectRef      `json:"object"`
	Versions *MediaVersions `json:"versions,omitempty"`

	// Opaque per-type metadata (EXIF, codec details). Stored verbatim.
	PhotoMetadata map[string]any `json:"photoMetadata,omitempty"`
	VideoMetadata map[string]any `json:"videoMetadata,omitempty"`

	AIAnalysis *AIAnalysis `json:"aiAnalysis,omitempty"`

	HasWatermark bool `json:"hasWatermark"`

	Views     int64 `json:"views"`
	Downloads int64 `json:"downloads"`
	Favorites int64 `json:"favorites"`

	ProcessingStatus ProcessingStatus `json:"processingStatus"`

	UploadedAt  time.Time  `json:"uploadedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Engagement counter names accepted by the increment operation.
const (
	EngagementViews     = "views"
	EngagementDownloads = "downloads"
	EngagementFavorites = "favorites"
)

// ValidEngagement reports whether name is an incrementable counter.
func ValidEngagement(name string) bool {
	switch name {
	case EngagementViews, EngagementDownloads, EngagementFavorites:
		return true
	}
	return false
}

// NewMediaParams is the caller-supplied portion of a new media record.
type NewMediaParams struct {
	EventID          string
	PhotographerID   string
	Type             MediaType
	FileName         string
	OriginalFileName string
	FileSize         int64
	MimeType         string
	Object           ObjectRef
}

// NewMedia assembles a media record with store-assigned defaults.
func NewMedia(p NewMediaParams) *Media {
	now := time.Now().UTC()
	return &Media{
		MediaID:          uuid.NewString(),
		EventID:          p.EventID,
		PhotographerID:   p.PhotographerID,
		Type:             p.Type,
		FileName:         p.FileName,
		OriginalFileName: p.OriginalFileName,
		FileSize:         p.FileSize,
		MimeType:         p.MimeType,
		Object:           p.Object,
		ProcessingStatus: ProcessingPending,
		UploadedAt:       now,
		UpdatedAt:        now,
	}
}

// MediaPatch carries processing-pipeline output onto a media record.
// Nil fields are left untouched.
type MediaPatch struct {
	Versions         *MediaVersions
	PhotoMetadata    map[string]any
	VideoMetadata    map[string]any
	AIAnalysis       *AIAnalysis
	ProcessingStatus *ProcessingStatus
	HasWatermark     *bool
}
