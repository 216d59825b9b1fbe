package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photopedia-backend/domain/core/entities"
	"photopedia-backend/infrastructure/persistence/memory"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type galleryFixture struct {
	events *memory.InMemoryEventRepository
	media  *memory.InMemoryMediaRepository
	router http.Handler
}

// newGalleryFixture wires the gallery handler behind the same routes the
// router exposes, with an optional principal standing in for the
// authentication middleware.
func newGalleryFixture(t *testing.T, principal *auth.Principal) *galleryFixture {
	t.Helper()

	events := memory.NewInMemoryEventRepository()
	media := memory.NewInMemoryMediaRepository()
	handler := NewGalleryHandler(events, media, zap.NewNop())

	r := chi.NewRouter()
	if principal != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.SetPrincipal(req.Context(), principal)))
			})
		})
	}
	r.Get("/gallery/{code}", handler.Get)
	r.Get("/gallery/{code}/media", handler.ListMedia)
	r.Get("/gallery/{code}/people/{personID}", handler.SearchByPerson)

	return &galleryFixture{events: events, media: media, router: r}
}

func (f *galleryFixture) createEvent(t *testing.T, params entities.NewEventParams, publish bool) *entities.Event {
	t.Helper()
	event := entities.NewEvent(params)
	require.NoError(t, f.events.Create(context.Background(), event))
	if publish {
		published, err := f.events.Publish(context.Background(), event.EventID)
		require.NoError(t, err)
		return published
	}
	return event
}

func (f *galleryFixture) get(t *testing.T, path string, headers map[string]string) (*httptest.ResponseRecorder, common.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope common.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return rec, envelope
}

func decodeGalleryView(t *testing.T, data interface{}) GalleryView {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var view GalleryView
	require.NoError(t, json.Unmarshal(raw, &view))
	return view
}

func TestGalleryDraftHiddenFromGuests(t *testing.T) {
	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
	}, false)

	rec, envelope := f.get(t, "/gallery/"+event.GalleryCode, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, envelope.Success)
}

func TestGalleryOwnerSeesDraft(t *testing.T) {
	owner := &auth.Principal{UserID: "p1", Role: entities.RolePhotographer}
	f := newGalleryFixture(t, owner)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
	}, false)

	rec, envelope := f.get(t, "/gallery/"+event.GalleryCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeGalleryView(t, envelope.Data)
	assert.Equal(t, event.EventID, view.EventID)
	// Operators always see the identity fields.
	assert.Equal(t, "p1", view.PhotographerID)
}

func TestGalleryAdminBypassesGates(t *testing.T) {
	admin := &auth.Principal{UserID: "a1", Role: entities.RoleAdmin}
	f := newGalleryFixture(t, admin)
	expiry := time.Now().Add(-time.Hour)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
		GalleryExpiry:  &expiry,
	}, false)

	rec, _ := f.get(t, "/gallery/"+event.GalleryCode, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGalleryPasswordFlow(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID:      "p1",
		EventName:           "Smith Wedding",
		EventDate:           time.Now(),
		GalleryPasswordHash: string(hash),
		AccessSettings:      entities.AccessSettings{RequirePassword: true},
	}, true)

	rec, _ := f.get(t, "/gallery/"+event.GalleryCode, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.get(t, "/gallery/"+event.GalleryCode, map[string]string{galleryPasswordHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, envelope := f.get(t, "/gallery/"+event.GalleryCode, map[string]string{galleryPasswordHeader: "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
}

func TestGalleryExpiryEnforcedAtRead(t *testing.T) {
	expiry := time.Now().Add(-time.Minute)
	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
		GalleryExpiry:  &expiry,
	}, true)

	rec, _ := f.get(t, "/gallery/"+event.GalleryCode, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Expiry is a read-time gate; the stored status stays active.
	stored, err := f.events.GetByID(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.Equal(t, entities.EventStatusActive, stored.Status)
}

func TestGalleryHidesIdentityUnlessAllowed(t *testing.T) {
	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
		ClientName:     "The Smiths",
	}, true)

	_, envelope := f.get(t, "/gallery/"+event.GalleryCode, nil)
	view := decodeGalleryView(t, envelope.Data)
	assert.Empty(t, view.PhotographerID)
	assert.Empty(t, view.ClientName)

	settings := entities.AccessSettings{ShowPhotographerInfo: true}
	_, err := f.events.Update(context.Background(), event.EventID, entities.EventPatch{AccessSettings: &settings})
	require.NoError(t, err)

	_, envelope = f.get(t, "/gallery/"+event.GalleryCode, nil)
	view = decodeGalleryView(t, envelope.Data)
	assert.Equal(t, "p1", view.PhotographerID)
	assert.Equal(t, "The Smiths", view.ClientName)
}

func TestGalleryOpenCountsAsView(t *testing.T) {
	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
	}, true)

	f.get(t, "/gallery/"+event.GalleryCode, nil)
	f.get(t, "/gallery/"+event.GalleryCode, nil)

	stored, err := f.events.GetByID(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Stats.TotalViews)
}

func TestGalleryListMedia(t *testing.T) {
	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
	}, true)

	for i := 0; i < 3; i++ {
		media := entities.NewMedia(entities.NewMediaParams{
			EventID:        event.EventID,
			PhotographerID: "p1",
			Type:           entities.MediaTypePhoto,
			FileName:       "img.jpg",
		})
		require.NoError(t, f.media.Create(context.Background(), media))
	}

	rec, envelope := f.get(t, "/gallery/"+event.GalleryCode+"/media", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var result common.PaginatedResult
	require.NoError(t, json.Unmarshal(raw, &result))

	items, ok := result.Items.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestGalleryFaceSearchGate(t *testing.T) {
	f := newGalleryFixture(t, nil)
	event := f.createEvent(t, entities.NewEventParams{
		PhotographerID: "p1",
		EventName:      "Smith Wedding",
		EventDate:      time.Now(),
	}, true)

	rec, _ := f.get(t, "/gallery/"+event.GalleryCode+"/people/person-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	settings := entities.AccessSettings{AllowFaceSearch: true}
	_, err := f.events.Update(context.Background(), event.EventID, entities.EventPatch{AccessSettings: &settings})
	require.NoError(t, err)

	rec, _ = f.get(t, "/gallery/"+event.GalleryCode+"/people/person-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGalleryUnknownCode(t *testing.T) {
	f := newGalleryFixture(t, nil)

	rec, _ := f.get(t, "/gallery/NOPE-0000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
