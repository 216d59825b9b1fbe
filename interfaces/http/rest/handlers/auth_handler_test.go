package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"photopedia-backend/domain/core/entities"
	"photopedia-backend/infrastructure/persistence/memory"
	"photopedia-backend/pkg/auth"
	"photopedia-backend/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticVerifier struct {
	claims *auth.Claims
	err    error
}

func (s *staticVerifier) Verify(_ context.Context, _ string) (*auth.Claims, error) {
	return s.claims, s.err
}

func newAuthFixture(verifier auth.TokenVerifier) (*AuthHandler, *memory.InMemoryUserRepository) {
	users := memory.NewInMemoryUserRepository()
	guard := auth.NewGuard(verifier, users, zap.NewNop())
	return NewAuthHandler(guard, users, zap.NewNop()), users
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) (*httptest.ResponseRecorder, common.APIResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	var envelope common.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return rec, envelope
}

func TestRegisterCreatesAccount(t *testing.T) {
	handler, users := newAuthFixture(&staticVerifier{})

	rec, envelope := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Email:          "ana@example.com",
		ExternalAuthID: "auth|ana",
		Role:           "photographer",
		FirstName:      "Ana",
		LastName:       "Silva",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, envelope.Success)

	user, err := users.GetByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, entities.RolePhotographer, user.Role)
	assert.Equal(t, entities.TierFree, user.SubscriptionTier)
	assert.True(t, user.IsActive)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	handler, _ := newAuthFixture(&staticVerifier{})

	body := RegisterRequest{
		Email:          "ana@example.com",
		ExternalAuthID: "auth|ana",
		Role:           "photographer",
		FirstName:      "Ana",
		LastName:       "Silva",
	}
	rec, _ := postJSON(t, handler.Register, "/auth/register", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	body.ExternalAuthID = "auth|other"
	rec, envelope := postJSON(t, handler.Register, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, envelope.Success)
}

func TestRegisterValidation(t *testing.T) {
	handler, _ := newAuthFixture(&staticVerifier{})

	cases := []RegisterRequest{
		// Missing email, malformed email, self-served admin role, missing first name.
		{ExternalAuthID: "auth|x", Role: "photographer", FirstName: "A", LastName: "B"},
		{Email: "not-an-email", ExternalAuthID: "auth|x", Role: "photographer", FirstName: "A", LastName: "B"},
		{Email: "a@b.com", ExternalAuthID: "auth|x", Role: "admin", FirstName: "A", LastName: "B"},
		{Email: "a@b.com", ExternalAuthID: "auth|x", Role: "photographer", LastName: "B"},
	}
	for _, c := range cases {
		rec, _ := postJSON(t, handler.Register, "/auth/register", c)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestLoginResolvesAccount(t *testing.T) {
	handler, users := newAuthFixture(&staticVerifier{claims: &auth.Claims{AuthID: "auth|ana"}})
	user := entities.NewUser("ana@example.com", "auth|ana", entities.RolePhotographer, "Ana", "Silva", "")
	require.NoError(t, users.Create(context.Background(), user))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope common.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var got entities.User
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, user.UserID, got.UserID)
}

func TestLoginWithoutBearerToken(t *testing.T) {
	handler, _ := newAuthFixture(&staticVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresPrincipal(t *testing.T) {
	handler, users := newAuthFixture(&staticVerifier{})
	user := entities.NewUser("ana@example.com", "auth|ana", entities.RolePhotographer, "Ana", "Silva", "")
	require.NoError(t, users.Create(context.Background(), user))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ctx := auth.SetPrincipal(context.Background(), &auth.Principal{UserID: user.UserID, Role: user.Role})
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	handler.Me(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
