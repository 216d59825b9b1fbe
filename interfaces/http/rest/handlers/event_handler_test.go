package handlers

import (
	"bytes"
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

type eventFixture struct {
	events *memory.InMemoryEventRepository
	users  *memory.InMemoryUserRepository
	router http.Handler
	owner  *entities.User
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()

	events := memory.NewInMemoryEventRepository()
	users := memory.NewInMemoryUserRepository()
	owner := entities.NewUser("ana@example.com", "auth|ana", entities.RolePhotographer, "Ana", "Silva", "")
	require.NoError(t, users.Create(context.Background(), owner))

	handler := NewEventHandler(events, users, zap.NewNop())
	principal := &auth.Principal{UserID: owner.UserID, Email: owner.Email, Role: owner.Role}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.SetPrincipal(req.Context(), principal)))
		})
	})
	r.Post("/events", handler.Create)
	r.Patch("/events/{eventID}", handler.Update)

	return &eventFixture{events: events, users: users, router: r, owner: owner}
}

func (f *eventFixture) send(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, common.APIResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope common.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return rec, envelope
}

func TestEventCreateHashesGalleryPassword(t *testing.T) {
	f := newEventFixture(t)

	rec, envelope := f.send(t, http.MethodPost, "/events", CreateEventRequest{
		EventName:       "Smith Wedding",
		EventDate:       "2026-09-12",
		GalleryPassword: "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var created entities.Event
	require.NoError(t, json.Unmarshal(raw, &created))

	stored, err := f.events.GetByID(context.Background(), created.EventID)
	require.NoError(t, err)
	assert.True(t, stored.AccessSettings.RequirePassword)
	assert.NotEqual(t, "hunter2", stored.GalleryPasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.GalleryPasswordHash), []byte("hunter2")))
}

func TestEventCreateBumpsUsage(t *testing.T) {
	f := newEventFixture(t)

	rec, _ := f.send(t, http.MethodPost, "/events", CreateEventRequest{
		EventName: "Smith Wedding",
		EventDate: "2026-09-12",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	owner, err := f.users.GetByID(context.Background(), f.owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, owner.CurrentUsage.TotalEvents)
}

func TestEventUpdateRotatesGalleryPassword(t *testing.T) {
	f := newEventFixture(t)

	event := entities.NewEvent(entities.NewEventParams{
		PhotographerID: f.owner.UserID,
		EventName:      "Smith Wedding",
		EventDate:      time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, f.events.Create(context.Background(), event))

	password := "new-secret"
	rec, _ := f.send(t, http.MethodPatch, "/events/"+event.EventID, UpdateEventRequest{
		GalleryPassword: &password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.events.GetByID(context.Background(), event.EventID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.GalleryPasswordHash), []byte("new-secret")))
}

func TestEventCreateRejectsShortGalleryPassword(t *testing.T) {
	f := newEventFixture(t)

	rec, envelope := f.send(t, http.MethodPost, "/events", CreateEventRequest{
		EventName:       "Smith Wedding",
		EventDate:       "2026-09-12",
		GalleryPassword: "abc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
}
