package dynamodb

import (
	"context"
	"testing"
	"time"

	"photopedia-backend/domain/core/entities"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMedia() *entities.Media {
	media := entities.NewMedia(entities.NewMediaParams{
		EventID:        "e1",
		PhotographerID: "p1",
		Type:           entities.MediaTypePhoto,
		FileName:       "img.jpg",
		MimeType:       "image/jpeg",
	})
	media.UploadedAt = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return media
}

func TestMediaCreateProjectsOnlyUsedIndexes(t *testing.T) {
	var captured *awsdynamodb.PutItemInput
	client := &stubClient{
		putFn: func(in *awsdynamodb.PutItemInput) (*awsdynamodb.PutItemOutput, error) {
			captured = in
			return &awsdynamodb.PutItemOutput{}, nil
		},
	}
	repo := NewMediaRepository(newTestTable(client), zap.NewNop())

	require.NoError(t, repo.Create(context.Background(), testMedia()))
	require.NotNil(t, captured)

	gsi1, ok := captured.Item["GSI1PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "PHOTOGRAPHER#p1", gsi1.Value)

	// The person index is written only once a face has been labeled.
	assert.NotContains(t, captured.Item, "GSI2PK")
	assert.NotContains(t, captured.Item, "GSI3PK")
}

func TestMediaListByEventQueriesPrimaryKey(t *testing.T) {
	var captured *awsdynamodb.QueryInput
	client := &stubClient{
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			captured = in
			return &awsdynamodb.QueryOutput{}, nil
		},
	}
	repo := NewMediaRepository(newTestTable(client), zap.NewNop())

	_, err := repo.ListByEvent(context.Background(), "e1", entities.MediaTypePhoto, 0, "")
	require.NoError(t, err)

	// Event-scoped listings stay on the table's own key; the sort prefix
	// carries the type filter.
	assert.Nil(t, captured.IndexName)
	var values []string
	for _, v := range captured.ExpressionAttributeValues {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			values = append(values, s.Value)
		}
	}
	assert.Contains(t, values, "EVENT#e1")
	assert.Contains(t, values, "MEDIA#photo#")
}

func TestMediaListByPhotographerQueriesIndex(t *testing.T) {
	var captured *awsdynamodb.QueryInput
	client := &stubClient{
		queryFn: func(in *awsdynamodb.QueryInput) (*awsdynamodb.QueryOutput, error) {
			captured = in
			return &awsdynamodb.QueryOutput{}, nil
		},
	}
	repo := NewMediaRepository(newTestTable(client), zap.NewNop())

	_, err := repo.ListByPhotographer(context.Background(), "p1", 0, "")
	require.NoError(t, err)

	require.NotNil(t, captured.IndexName)
	assert.Equal(t, mediaPhotographerIndex, *captured.IndexName)
	assert.False(t, *captured.ScanIndexForward)
}
