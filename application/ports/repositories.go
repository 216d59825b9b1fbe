package ports

import (
	"context"

	"photopedia-backend/domain/core/entities"
)

// Page is one page of a cursor-paginated listing. An empty NextCursor
// means the listing is exhausted.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// UserRepository is the user store. Implementations enforce email
// uniqueness at insert time and surface typed errors from pkg/errors:
// Conflict on duplicate email, NotFound on missing records.
type UserRepository interface {
	// Create persists a new user. Fails with Conflict when the email
	// already resolves through the email index.
	Create(ctx context.Context, user *entities.User) error

	GetByID(ctx context.Context, userID string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByExternalAuthID(ctx context.Context, externalAuthID string) (*entities.User, error)
	ListByRole(ctx context.Context, role entities.Role) ([]*entities.User, error)

	// ListAll is the unindexed slow path, reserved for admin listings.
	ListAll(ctx context.Context) ([]*entities.User, error)

	// UpdateProfile applies a partial profile update. Identity, role and
	// subscription fields are not reachable through this operation.
	UpdateProfile(ctx context.Context, userID string, patch entities.UserPatch) (*entities.User, error)

	// UpdateSubscription is the privileged tier change; plan limits are
	// recomputed from the new tier.
	UpdateSubscription(ctx context.Context, userID string, tier entities.SubscriptionTier, status string) (*entities.User, error)

	// UpdateUsage replaces the named usage counters. Callers own the
	// read side; cross-store consistency is best-effort.
	UpdateUsage(ctx context.Context, userID string, patch entities.UsagePatch) error

	RecordLogin(ctx context.Context, userID string) error

	// Deactivate soft-deletes: the record and its index entries remain,
	// so the email stays taken, but authentication is refused.
	Deactivate(ctx context.Context, userID string) error
}

// EventRepository is the event store. Listings are ordered most recent
// first by event date.
type EventRepository interface {
	// Create persists a new event. When the event carries no gallery
	// code yet, one is generated and checked for collisions first.
	Create(ctx context.Context, event *entities.Event) error

	GetByID(ctx context.Context, eventID string) (*entities.Event, error)
	GetByGalleryCode(ctx context.Context, code string) (*entities.Event, error)
	ListByPhotographer(ctx context.Context, photographerID string, limit int, cursor string) (Page[*entities.Event], error)
	ListByClient(ctx context.Context, clientID string, limit int, cursor string) (Page[*entities.Event], error)

	// ListAll is the unindexed slow path, reserved for admin listings.
	ListAll(ctx context.Context) ([]*entities.Event, error)

	Update(ctx context.Context, eventID string, patch entities.EventPatch) (*entities.Event, error)

	// IncrementStat atomically adds delta to one named stats counter.
	// Never read-modify-write; concurrent increments must all count.
	IncrementStat(ctx context.Context, eventID string, stat string, delta int64) error

	// Publish moves the event to active and stamps publishedAt. Calling
	// it on an already-active event refreshes publishedAt (idempotent).
	Publish(ctx context.Context, eventID string) (*entities.Event, error)

	// Delete hard-deletes the metadata record only; cascading media
	// cleanup belongs to an external process.
	Delete(ctx context.Context, eventID string) error
}

// MediaRepository is the media store; records are co-located under
// their owning event.
type MediaRepository interface {
	Create(ctx context.Context, media *entities.Media) error

	GetByID(ctx context.Context, eventID, mediaID string) (*entities.Media, error)

	// ListByEvent returns media in upload order, optionally narrowed to
	// one type via the sort-key prefix.
	ListByEvent(ctx context.Context, eventID string, mediaType entities.MediaType, limit int, cursor string) (Page[*entities.Media], error)

	// ListByPhotographer returns a photographer's media across events,
	// most recent first.
	ListByPhotographer(ctx context.Context, photographerID string, limit int, cursor string) (Page[*entities.Media], error)

	// ListByPerson returns media in which the labeled person appears,
	// optionally scoped to one event.
	ListByPerson(ctx context.Context, personID, eventID string) ([]*entities.Media, error)

	Update(ctx context.Context, eventID, mediaID string, patch entities.MediaPatch) (*entities.Media, error)

	// IncrementEngagement atomically adds delta to views, downloads or
	// favorites.
	IncrementEngagement(ctx context.Context, eventID, mediaID string, counter string, delta int64) error

	Delete(ctx context.Context, eventID, mediaID string) error
}
