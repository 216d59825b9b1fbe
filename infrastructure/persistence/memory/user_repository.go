// Package memory provides in-memory implementations of the persistence
// ports. They keep the same error contracts as the DynamoDB
// implementations and back the test suites and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	apperrors "photopedia-backend/pkg/errors"
)

// InMemoryUserRepository provides an in-memory implementation of
// ports.UserRepository.
type InMemoryUserRepository struct {
	mu       sync.RWMutex
	users    map[string]*entities.User
	byEmail  map[string]string
	byAuthID map[string]string
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:    make(map[string]*entities.User),
		byEmail:  make(map[string]string),
		byAuthID: make(map[string]string),
	}
}

var _ ports.UserRepository = (*InMemoryUserRepository)(nil)

// Create persists a new user, enforcing email uniqueness.
func (r *InMemoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return apperrors.NewConflictError("account could not be created with the provided details")
	}
	if _, taken := r.users[user.UserID]; taken {
		return apperrors.NewConflictError("user already exists")
	}

	r.users[user.UserID] = cloneUser(user)
	r.byEmail[user.Email] = user.UserID
	if user.ExternalAuthID != "" {
		r.byAuthID[user.ExternalAuthID] = user.UserID
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *InMemoryUserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}
	return cloneUser(user), nil
}

// GetByEmail retrieves a user through the email index.
func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}
	return cloneUser(r.users[id]), nil
}

// GetByExternalAuthID retrieves a user through the external identity index.
func (r *InMemoryUserRepository) GetByExternalAuthID(ctx context.Context, externalAuthID string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byAuthID[externalAuthID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}
	return cloneUser(r.users[id]), nil
}

// ListByRole returns all users with the given role.
func (r *InMemoryUserRepository) ListByRole(ctx context.Context, role entities.Role) ([]*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []*entities.User
	for _, u := range r.users {
		if u.Role == role {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

// ListAll returns every user record.
func (r *InMemoryUserRepository) ListAll(ctx context.Context) ([]*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*entities.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, cloneUser(u))
	}
	return users, nil
}

// UpdateProfile applies a partial profile update.
func (r *InMemoryUserRepository) UpdateProfile(ctx context.Context, userID string, patch entities.UserPatch) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}

	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.ProfilePhoto != nil {
		user.ProfilePhoto = *patch.ProfilePhoto
	}
	if patch.BusinessName != nil {
		user.BusinessName = *patch.BusinessName
	}
	if patch.BusinessLogo != nil {
		user.BusinessLogo = *patch.BusinessLogo
	}
	if patch.Watermark != nil {
		w := *patch.Watermark
		user.Watermark = &w
	}
	user.UpdatedAt = time.Now().UTC()
	return cloneUser(user), nil
}

// UpdateSubscription changes the tier and recomputes plan limits.
func (r *InMemoryUserRepository) UpdateSubscription(ctx context.Context, userID string, tier entities.SubscriptionTier, status string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("user")
	}

	user.SubscriptionTier = tier
	user.SubscriptionStatus = status
	user.Limits = entities.LimitsForTier(tier)
	user.UpdatedAt = time.Now().UTC()
	return cloneUser(user), nil
}

// UpdateUsage replaces the named usage counters.
func (r *InMemoryUserRepository) UpdateUsage(ctx context.Context, userID string, patch entities.UsagePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.NewNotFoundError("user")
	}

	if patch.TotalEvents != nil {
		user.CurrentUsage.TotalEvents = *patch.TotalEvents
	}
	if patch.TotalStorageGB != nil {
		user.CurrentUsage.TotalStorageGB = *patch.TotalStorageGB
	}
	if patch.VideosThisMonth != nil {
		user.CurrentUsage.VideosThisMonth = *patch.VideosThisMonth
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordLogin stamps lastLoginAt.
func (r *InMemoryUserRepository) RecordLogin(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.NewNotFoundError("user")
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return nil
}

// Deactivate soft-deletes: the record and its index entries remain, so
// the email stays taken.
func (r *InMemoryUserRepository) Deactivate(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.NewNotFoundError("user")
	}
	user.IsActive = false
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneUser(u *entities.User) *entities.User {
	c := *u
	if u.Watermark != nil {
		w := *u.Watermark
		c.Watermark = &w
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
