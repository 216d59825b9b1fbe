package memory

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"photopedia-backend/domain/core/entities"
	apperrors "photopedia-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, repo *InMemoryEventRepository, photographerID string, date time.Time) *entities.Event {
	t.Helper()
	event := entities.NewEvent(entities.NewEventParams{
		PhotographerID: photographerID,
		EventName:      "Smith Wedding",
		EventDate:      date,
	})
	require.NoError(t, repo.Create(context.Background(), event))
	return event
}

func TestEventCreateAssignsGalleryCode(t *testing.T) {
	repo := NewInMemoryEventRepository()
	event := newEvent(t, repo, "p1", time.Now())

	assert.Regexp(t, regexp.MustCompile(`^SMITH-WEDDING-[A-Z0-9]{4}$`), event.GalleryCode)

	resolved, err := repo.GetByGalleryCode(context.Background(), event.GalleryCode)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, resolved.EventID)
}

func TestEventCreateRejectsTakenCode(t *testing.T) {
	repo := NewInMemoryEventRepository()
	first := newEvent(t, repo, "p1", time.Now())

	dup := entities.NewEvent(entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Another Event",
		EventDate:      time.Now(),
	})
	dup.GalleryCode = first.GalleryCode

	err := repo.Create(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestEventGetByGalleryCodeMissing(t *testing.T) {
	repo := NewInMemoryEventRepository()

	_, err := repo.GetByGalleryCode(context.Background(), "NOPE-0000")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEventConcurrentStatIncrements(t *testing.T) {
	repo := NewInMemoryEventRepository()
	event := newEvent(t, repo, "p1", time.Now())

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = repo.IncrementStat(context.Background(), event.EventID, entities.StatTotalViews, 1)
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), got.Stats.TotalViews)
}

func TestEventIncrementStatRejectsUnknownName(t *testing.T) {
	repo := NewInMemoryEventRepository()
	event := newEvent(t, repo, "p1", time.Now())

	err := repo.IncrementStat(context.Background(), event.EventID, "totalLikes", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestEventListByPhotographerOrdering(t *testing.T) {
	repo := NewInMemoryEventRepository()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		newEvent(t, repo, "p1", base.AddDate(0, 0, i))
	}
	newEvent(t, repo, "p2", base)

	page, err := repo.ListByPhotographer(context.Background(), "p1", 0, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 5)

	for i := 1; i < len(page.Items); i++ {
		assert.False(t, page.Items[i].EventDate.After(page.Items[i-1].EventDate),
			"event dates must be non-increasing")
	}
}

func TestEventListPaginationWalksAllItems(t *testing.T) {
	repo := NewInMemoryEventRepository()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		newEvent(t, repo, "p1", base.AddDate(0, 0, i))
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := repo.ListByPhotographer(context.Background(), "p1", 3, cursor)
		require.NoError(t, err)
		for _, e := range page.Items {
			assert.False(t, seen[e.EventID], "no event may appear twice")
			seen[e.EventID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, 7)
}

func TestEventClientIndexFollowsAssociation(t *testing.T) {
	repo := NewInMemoryEventRepository()
	event := newEvent(t, repo, "p1", time.Now())

	page, err := repo.ListByClient(context.Background(), "c1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	clientID := "c1"
	_, err = repo.Update(context.Background(), event.EventID, entities.EventPatch{ClientID: &clientID})
	require.NoError(t, err)

	page, err = repo.ListByClient(context.Background(), "c1", 0, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, event.EventID, page.Items[0].EventID)

	// Clearing the association removes the event from the listing.
	empty := ""
	_, err = repo.Update(context.Background(), event.EventID, entities.EventPatch{ClientID: &empty})
	require.NoError(t, err)

	page, err = repo.ListByClient(context.Background(), "c1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestEventPublishIdempotent(t *testing.T) {
	repo := NewInMemoryEventRepository()
	event := newEvent(t, repo, "p1", time.Now())
	assert.Equal(t, entities.EventStatusDraft, event.Status)

	first, err := repo.Publish(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusActive, first.Status)
	require.NotNil(t, first.PublishedAt)

	time.Sleep(5 * time.Millisecond)

	second, err := repo.Publish(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusActive, second.Status)
	require.NotNil(t, second.PublishedAt)
	assert.True(t, second.PublishedAt.After(*first.PublishedAt))
}

func TestEventUpdateRejectsUnknownStatus(t *testing.T) {
	repo := NewInMemoryEventRepository()
	event := newEvent(t, repo, "p1", time.Now())

	bogus := entities.EventStatus("paused")
	_, err := repo.Update(context.Background(), event.EventID, entities.EventPatch{Status: &bogus})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestEventRoundTrip(t *testing.T) {
	repo := NewInMemoryEventRepository()
	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	event := entities.NewEvent(entities.NewEventParams{
		PhotographerID:      "p1",
		EventName:           "Corp Offsite",
		EventDate:           time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		EventTime:           "14:00",
		Location:            "Lisbon",
		Description:         "Annual offsite",
		EventType:           entities.EventTypeCorporate,
		ClientID:            "c9",
		ClientName:          "Acme",
		ClientEmail:         "events@acme.test",
		GalleryPasswordHash: "$2a$10$hash",
		GalleryExpiry:       &expiry,
		IsPublic:            true,
		AccessSettings: entities.AccessSettings{
			AllowDownload:   true,
			AllowFaceSearch: true,
		},
	})
	require.NoError(t, repo.Create(context.Background(), event))

	got, err := repo.GetByID(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.Equal(t, event.EventName, got.EventName)
	assert.Equal(t, event.ClientEmail, got.ClientEmail)
	assert.Equal(t, event.GalleryPasswordHash, got.GalleryPasswordHash)
	require.NotNil(t, got.GalleryExpiry)
	assert.True(t, got.GalleryExpiry.Equal(expiry))
	assert.True(t, got.AccessSettings.AllowFaceSearch)
}
