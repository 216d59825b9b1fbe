package dynamodb

import (
	"context"
	"fmt"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	apperrors "photopedia-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"
)

// Index names on the media table. Event-scoped listings go through the
// primary key; the sort key already embeds type and upload time.
const (
	mediaPhotographerIndex = "GSI1" // PHOTOGRAPHER#{id} -> MEDIA#{ts}#{mediaId}
	mediaPersonIndex       = "GSI2" // PERSON#{id} -> EVENT#{eventId}#MEDIA#{mediaId}
)

// MediaRepository implements ports.MediaRepository on DynamoDB. Media
// records share the owning event's partition; the sort key embeds type
// and upload time so range queries come back in upload order and a
// type prefix can narrow them.
type MediaRepository struct {
	table  *Table
	logger *zap.Logger
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(table *Table, logger *zap.Logger) *MediaRepository {
	return &MediaRepository{
		table:  table,
		logger: logger,
	}
}

var _ ports.MediaRepository = (*MediaRepository)(nil)

// mediaItem is the DynamoDB item structure for a media record.
type mediaItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	GSI2PK string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK string `dynamodbav:"GSI2SK,omitempty"`

	EntityType     string `dynamodbav:"EntityType"`
	MediaID        string `dynamodbav:"mediaId"`
	EventID        string `dynamodbav:"eventId"`
	PhotographerID string `dynamodbav:"photographerId"`
	MediaType      string `dynamodbav:"mediaType"`

	FileName         string `dynamodbav:"fileName"`
	OriginalFileName string `dynamodbav:"originalFileName"`
	FileSize         int64  `dynamodbav:"fileSize"`
	MimeType         string `dynamodbav:"mimeType"`

	ObjectKey    string `dynamodbav:"s3Key"`
	ObjectBucket string `dynamodbav:"s3Bucket"`
	ObjectRegion string `dynamodbav:"s3Region,omitempty"`

	Versions *versionsItem `dynamodbav:"versions,omitempty"`

	PhotoMetadata map[string]any `dynamodbav:"photoMetadata,omitempty"`
	VideoMetadata map[string]any `dynamodbav:"videoMetadata,omitempty"`

	AIAnalysis *aiAnalysisItem `dynamodbav:"aiAnalysis,omitempty"`

	HasWatermark bool `dynamodbav:"hasWatermark"`

	Views     int64 `dynamodbav:"views"`
	Downloads int64 `dynamodbav:"downloads"`
	Favorites int64 `dynamodbav:"favorites"`

	ProcessingStatus string `dynamodbav:"processingStatus"`

	UploadedAt  string `dynamodbav:"uploadedAt"`
	ProcessedAt string `dynamodbav:"processedAt,omitempty"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

type versionsItem struct {
	Thumbnail             string `dynamodbav:"thumbnail,omitempty"`
	Medium                string `dynamodbav:"medium,omitempty"`
	Large                 string `dynamodbav:"large,omitempty"`
	Original              string `dynamodbav:"original,omitempty"`
	OriginalUnwatermarked string `dynamodbav:"originalUnwatermarked,omitempty"`
}

type aiAnalysisItem struct {
	Faces        []faceItem `dynamodbav:"faces,omitempty"`
	Labels       []string   `dynamodbav:"labels,omitempty"`
	Scenes       []string   `dynamodbav:"scenes,omitempty"`
	Colors       []string   `dynamodbav:"colors,omitempty"`
	QualityScore float64    `dynamodbav:"qualityScore,omitempty"`
}

type faceItem struct {
	FaceID     string  `dynamodbav:"faceId"`
	BoxX       float64 `dynamodbav:"boundingBoxX"`
	BoxY       float64 `dynamodbav:"boundingBoxY"`
	BoxWidth   float64 `dynamodbav:"boundingBoxWidth"`
	BoxHeight  float64 `dynamodbav:"boundingBoxHeight"`
	Confidence float64 `dynamodbav:"confidence"`
	PersonID   string  `dynamodbav:"personId,omitempty"`
	PersonName string  `dynamodbav:"personName,omitempty"`
}

func mediaSK(t entities.MediaType, uploadedAt time.Time, mediaID string) string {
	return fmt.Sprintf("MEDIA#%s#%s#%s", t, uploadedAt.UTC().Format(time.RFC3339), mediaID)
}

// Create persists a new media record.
func (r *MediaRepository) Create(ctx context.Context, media *entities.Media) error {
	av, err := attributevalue.MarshalMap(r.toItem(media))
	if err != nil {
		return apperrors.NewStorageError("put", err)
	}

	cond := expression.AttributeNotExists(expression.Name("SK"))
	if err := r.table.Put(ctx, av, &cond); err != nil {
		return err
	}

	r.logger.Info("created media",
		zap.String("mediaID", media.MediaID),
		zap.String("eventID", media.EventID),
		zap.String("mediaType", string(media.Type)),
	)
	return nil
}

// GetByID fetches one media record. The full sort key embeds type and
// upload time, which the caller does not have, so the lookup is a
// prefix query over the event partition filtered on the media id.
func (r *MediaRepository) GetByID(ctx context.Context, eventID, mediaID string) (*entities.Media, error) {
	raw, err := r.locate(ctx, eventID, mediaID)
	if err != nil {
		return nil, err
	}
	return r.fromRaw(raw)
}

func (r *MediaRepository) locate(ctx context.Context, eventID, mediaID string) (Item, error) {
	filter := expression.Equal(expression.Name("mediaId"), expression.Value(mediaID))
	items, _, err := r.table.Query(ctx, QueryInput{
		PartitionName:  "PK",
		PartitionValue: eventPK(eventID),
		SortName:       "SK",
		SortPrefix:     "MEDIA#",
		Filter:         &filter,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewNotFoundError("media")
	}
	return items[0], nil
}

// ListByEvent returns an event's media in upload order. A valid media
// type narrows the range through the sort-key prefix; an empty type
// returns everything.
func (r *MediaRepository) ListByEvent(ctx context.Context, eventID string, mediaType entities.MediaType, limit int, cursor string) (ports.Page[*entities.Media], error) {
	prefix := "MEDIA#"
	if mediaType != "" {
		if !mediaType.Valid() {
			return ports.Page[*entities.Media]{}, apperrors.NewValidationError(fmt.Sprintf("unknown media type %q", mediaType))
		}
		prefix = "MEDIA#" + string(mediaType) + "#"
	}
	return r.list(ctx, QueryInput{
		PartitionName:  "PK",
		PartitionValue: eventPK(eventID),
		SortName:       "SK",
		SortPrefix:     prefix,
		Limit:          int32(limit),
		Cursor:         cursor,
	})
}

// ListByPhotographer returns a photographer's media across all their
// events, most recent upload first.
func (r *MediaRepository) ListByPhotographer(ctx context.Context, photographerID string, limit int, cursor string) (ports.Page[*entities.Media], error) {
	return r.list(ctx, QueryInput{
		Index:          mediaPhotographerIndex,
		PartitionName:  "GSI1PK",
		PartitionValue: "PHOTOGRAPHER#" + photographerID,
		Limit:          int32(limit),
		Cursor:         cursor,
		Reverse:        true,
	})
}

// ListByPerson returns media whose labeled person matches personID,
// optionally scoped to one event through the index sort prefix.
func (r *MediaRepository) ListByPerson(ctx context.Context, personID, eventID string) ([]*entities.Media, error) {
	in := QueryInput{
		Index:          mediaPersonIndex,
		PartitionName:  "GSI2PK",
		PartitionValue: "PERSON#" + personID,
	}
	if eventID != "" {
		in.SortName = "GSI2SK"
		in.SortPrefix = "EVENT#" + eventID + "#"
	}
	page, err := r.list(ctx, in)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (r *MediaRepository) list(ctx context.Context, in QueryInput) (ports.Page[*entities.Media], error) {
	items, next, err := r.table.Query(ctx, in)
	if err != nil {
		return ports.Page[*entities.Media]{}, err
	}
	media := make([]*entities.Media, 0, len(items))
	for _, it := range items {
		m, err := r.fromRaw(it)
		if err != nil {
			return ports.Page[*entities.Media]{}, err
		}
		media = append(media, m)
	}
	return ports.Page[*entities.Media]{Items: media, NextCursor: next}, nil
}

// Update applies processing-pipeline output onto a media record. When
// the analysis labels a person, the person index projection is written
// in the same update.
func (r *MediaRepository) Update(ctx context.Context, eventID, mediaID string, patch entities.MediaPatch) (*entities.Media, error) {
	raw, err := r.locate(ctx, eventID, mediaID)
	if err != nil {
		return nil, err
	}
	var current mediaItem
	if err := attributevalue.UnmarshalMap(raw, &current); err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}

	u := Update{Set: map[string]any{"updatedAt": now()}}

	if patch.Versions != nil {
		u.Set["versions"] = versionsItem{
			Thumbnail:             patch.Versions.Thumbnail,
			Medium:                patch.Versions.Medium,
			Large:                 patch.Versions.Large,
			Original:              patch.Versions.Original,
			OriginalUnwatermarked: patch.Versions.OriginalUnwatermarked,
		}
	}
	if patch.PhotoMetadata != nil {
		u.Set["photoMetadata"] = patch.PhotoMetadata
	}
	if patch.VideoMetadata != nil {
		u.Set["videoMetadata"] = patch.VideoMetadata
	}
	if patch.HasWatermark != nil {
		u.Set["hasWatermark"] = *patch.HasWatermark
	}
	if patch.ProcessingStatus != nil {
		u.Set["processingStatus"] = string(*patch.ProcessingStatus)
		if *patch.ProcessingStatus == entities.ProcessingCompleted {
			u.Set["processedAt"] = now()
		}
	}
	if patch.AIAnalysis != nil {
		u.Set["aiAnalysis"] = toAnalysisItem(patch.AIAnalysis)
		if personID := patch.AIAnalysis.LabeledPersonID(); personID != "" {
			u.Set["GSI2PK"] = "PERSON#" + personID
			u.Set["GSI2SK"] = "EVENT#" + eventID + "#MEDIA#" + mediaID
		}
	}

	item, err := r.table.UpdateItem(ctx, current.PK, current.SK, u)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("media")
	}
	return r.fromRaw(item)
}

// IncrementEngagement atomically adds delta to one engagement counter.
func (r *MediaRepository) IncrementEngagement(ctx context.Context, eventID, mediaID string, counter string, delta int64) error {
	if !entities.ValidEngagement(counter) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown engagement counter %q", counter))
	}
	raw, err := r.locate(ctx, eventID, mediaID)
	if err != nil {
		return err
	}
	var current mediaItem
	if err := attributevalue.UnmarshalMap(raw, &current); err != nil {
		return apperrors.NewStorageError("decode", err)
	}
	item, err := r.table.UpdateItem(ctx, current.PK, current.SK, Update{
		Set: map[string]any{"updatedAt": now()},
		Add: map[string]int64{counter: delta},
	})
	if err != nil {
		return err
	}
	if item == nil {
		return apperrors.NewNotFoundError("media")
	}
	return nil
}

// Delete hard-deletes the media record. The stored binary is cleaned
// up separately through the storage layer.
func (r *MediaRepository) Delete(ctx context.Context, eventID, mediaID string) error {
	raw, err := r.locate(ctx, eventID, mediaID)
	if err != nil {
		return err
	}
	var current mediaItem
	if err := attributevalue.UnmarshalMap(raw, &current); err != nil {
		return apperrors.NewStorageError("decode", err)
	}
	return r.table.Delete(ctx, current.PK, current.SK)
}

func (r *MediaRepository) toItem(m *entities.Media) mediaItem {
	item := mediaItem{
		PK:     eventPK(m.EventID),
		SK:     mediaSK(m.Type, m.UploadedAt, m.MediaID),
		GSI1PK: "PHOTOGRAPHER#" + m.PhotographerID,
		GSI1SK: fmt.Sprintf("MEDIA#%s#%s", m.UploadedAt.UTC().Format(time.RFC3339), m.MediaID),

		EntityType:     "MEDIA",
		MediaID:        m.MediaID,
		EventID:        m.EventID,
		PhotographerID: m.PhotographerID,
		MediaType:      string(m.Type),

		FileName:         m.FileName,
		OriginalFileName: m.OriginalFileName,
		FileSize:         m.FileSize,
		MimeType:         m.MimeType,

		ObjectKey:    m.Object.Key,
		ObjectBucket: m.Object.Bucket,
		ObjectRegion: m.Object.Region,

		PhotoMetadata: m.PhotoMetadata,
		VideoMetadata: m.VideoMetadata,

		HasWatermark: m.HasWatermark,

		Views:     m.Views,
		Downloads: m.Downloads,
		Favorites: m.Favorites,

		ProcessingStatus: string(m.ProcessingStatus),

		UploadedAt: m.UploadedAt.Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.Format(time.RFC3339),
	}
	if m.Versions != nil {
		item.Versions = &versionsItem{
			Thumbnail:             m.Versions.Thumbnail,
			Medium:                m.Versions.Medium,
			Large:                 m.Versions.Large,
			Original:              m.Versions.Original,
			OriginalUnwatermarked: m.Versions.OriginalUnwatermarked,
		}
	}
	if m.AIAnalysis != nil {
		ai := toAnalysisItem(m.AIAnalysis)
		item.AIAnalysis = &ai
		if personID := m.AIAnalysis.LabeledPersonID(); personID != "" {
			item.GSI2PK = "PERSON#" + personID
			item.GSI2SK = "EVENT#" + m.EventID + "#MEDIA#" + m.MediaID
		}
	}
	if m.ProcessedAt != nil {
		item.ProcessedAt = m.ProcessedAt.Format(time.RFC3339)
	}
	return item
}

func toAnalysisItem(a *entities.AIAnalysis) aiAnalysisItem {
	item := aiAnalysisItem{
		Labels:       a.Labels,
		Scenes:       a.Scenes,
		Colors:       a.Colors,
		QualityScore: a.QualityScore,
	}
	for _, f := range a.Faces {
		item.Faces = append(item.Faces, faceItem{
			FaceID:     f.FaceID,
			BoxX:       f.BoundingBox.X,
			BoxY:       f.BoundingBox.Y,
			BoxWidth:   f.BoundingBox.Width,
			BoxHeight:  f.BoundingBox.Height,
			Confidence: f.Confidence,
			PersonID:   f.PersonID,
			PersonName: f.PersonName,
		})
	}
	return item
}

func fromAnalysisItem(item *aiAnalysisItem) *entities.AIAnalysis {
	a := &entities.AIAnalysis{
		Labels:       item.Labels,
		Scenes:       item.Scenes,
		Colors:       item.Colors,
		QualityScore: item.QualityScore,
	}
	for _, f := range item.Faces {
		a.Faces = append(a.Faces, entities.Face{
			FaceID: f.FaceID,
			BoundingBox: entities.BoundingBox{
				X:      f.BoxX,
				Y:      f.BoxY,
				Width:  f.BoxWidth,
				Height: f.BoxHeight,
			},
			Confidence: f.Confidence,
			PersonID:   f.PersonID,
			PersonName: f.PersonName,
		})
	}
	return a
}

func (r *MediaRepository) fromRaw(raw Item) (*entities.Media, error) {
	var item mediaItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}

	uploadedAt, err := parseTime(item.UploadedAt)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad uploadedAt on media %s: %w", item.MediaID, err))
	}
	updatedAt, err := parseTime(item.UpdatedAt)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad updatedAt on media %s: %w", item.MediaID, err))
	}

	m := &entities.Media{
		MediaID:        item.MediaID,
		EventID:        item.EventID,
		PhotographerID: item.PhotographerID,
		Type:           entities.MediaType(item.MediaType),

		FileName:         item.FileName,
		OriginalFileName: item.OriginalFileName,
		FileSize:         item.FileSize,
		MimeType:         item.MimeType,

		Object: entities.ObjectRef{
			Key:    item.ObjectKey,
			Bucket: item.ObjectBucket,
			Region: item.ObjectRegion,
		},

		PhotoMetadata: item.PhotoMetadata,
		VideoMetadata: item.VideoMetadata,

		HasWatermark: item.HasWatermark,

		Views:     item.Views,
		Downloads: item.Downloads,
		Favorites: item.Favorites,

		ProcessingStatus: entities.ProcessingStatus(item.ProcessingStatus),

		UploadedAt: uploadedAt,
		UpdatedAt:  updatedAt,
	}
	if item.Versions != nil {
		m.Versions = &entities.MediaVersions{
			Thumbnail:             item.Versions.Thumbnail,
			Medium:                item.Versions.Medium,
			Large:                 item.Versions.Large,
			Original:              item.Versions.Original,
			OriginalUnwatermarked: item.Versions.OriginalUnwatermarked,
		}
	}
	if item.AIAnalysis != nil {
		m.AIAnalysis = fromAnalysisItem(item.AIAnalysis)
	}
	if item.ProcessedAt != "" {
		if t, err := parseTime(item.ProcessedAt); err == nil {
			m.ProcessedAt = &t
		}
	}
	return m, nil
}
