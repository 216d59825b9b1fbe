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

// Index names on the users table.
const (
	userEmailIndex = "GSI1" // EMAIL#{email} -> USER
	userRoleIndex  = "GSI2" // ROLE#{role} -> USER#{userId}
	userAuthIndex  = "GSI3" // AUTH#{externalAuthId} -> USER
)

const userProfileSK = "PROFILE"

// UserRepository implements ports.UserRepository on DynamoDB. One
// profile record per user lives under USER#{userId}/PROFILE; email,
// role and external-auth-id lookups go through index projections on the
// same record.
type UserRepository struct {
	table  *Table
	logger *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(table *Table, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		table:  table,
		logger: logger,
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

// userItem is the DynamoDB item structure for a user profile record.
type userItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	GSI2PK string `dynamodbav:"GSI2PK"`
	GSI2SK string `dynamodbav:"GSI2SK"`
	GSI3PK string `dynamodbav:"GSI3PK"`
	GSI3SK string `dynamodbav:"GSI3SK"`

	EntityType     string `dynamodbav:"EntityType"`
	UserID         string `dynamodbav:"userId"`
	Email          string `dynamodbav:"email"`
	ExternalAuthID string `dynamodbav:"externalAuthId"`
	Role           string `dynamodbav:"role"`

	FirstName    string `dynamodbav:"firstName"`
	LastName     string `dynamodbav:"lastName"`
	Phone        string `dynamodbav:"phone,omitempty"`
	ProfilePhoto string `dynamodbav:"profilePhoto,omitempty"`
	BusinessName string `dynamodbav:"businessName,omitempty"`
	BusinessLogo string `dynamodbav:"businessLogo,omitempty"`

	Watermark *watermarkItem `dynamodbav:"watermarkSettings,omitempty"`

	SubscriptionTier   string     `dynamodbav:"subscriptionTier"`
	SubscriptionStatus string     `dynamodbav:"subscriptionStatus"`
	Limits             limitsItem `dynamodbav:"limits"`
	CurrentUsage       usageItem  `dynamodbav:"currentUsage"`

	CreatedAt   string `dynamodbav:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
	LastLoginAt string `dynamodbav:"lastLoginAt,omitempty"`
	IsActive    bool   `dynamodbav:"isActive"`
}

type watermarkItem struct {
	Enabled     bool    `dynamodbav:"enabled"`
	Opacity     float64 `dynamodbav:"opacity"`
	Position    string  `dynamodbav:"position"`
	CustomImage string  `dynamodbav:"customImage,omitempty"`
}

type limitsItem struct {
	MaxEvents              int  `dynamodbav:"maxEvents"`
	MaxStorageGB           int  `dynamodbav:"maxStorageGB"`
	MaxVideosPerMonth      int  `dynamodbav:"maxVideosPerMonth"`
	FaceRecognitionEnabled bool `dynamodbav:"faceRecognitionEnabled"`
	WatermarkEnabled       bool `dynamodbav:"watermarkEnabled"`
	AIVideoEnabled         bool `dynamodbav:"aiVideoEnabled"`
}

type usageItem struct {
	TotalEvents     int     `dynamodbav:"totalEvents"`
	TotalStorageGB  float64 `dynamodbav:"totalStorageGB"`
	VideosThisMonth int     `dynamodbav:"videosThisMonth"`
}

func userPK(userID string) string { return "USER#" + userID }

func emailClaimPK(email string) string { return "EMAIL#" + email }

const emailClaimSK = "CLAIM"

// emailClaimItem pins an email address to its owning user. It is
// written in the same transaction as the profile record, so two racing
// registrations with the same email cannot both win: the loser's
// attribute_not_exists condition on this key fails the whole batch.
type emailClaimItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"userId"`
	Email      string `dynamodbav:"email"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

// Create persists a new user. Email uniqueness is checked through the
// email index first for a clean early conflict; the authoritative guard
// is the transactional write of the profile together with the email
// claim record, each under attribute_not_exists.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	existing, err := r.GetByEmail(ctx, user.Email)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	if existing != nil {
		return apperrors.NewConflictError("account could not be created with the provided details")
	}

	profile, err := attributevalue.MarshalMap(r.toItem(user))
	if err != nil {
		return apperrors.NewStorageError("put", err)
	}
	claim, err := attributevalue.MarshalMap(emailClaimItem{
		PK:         emailClaimPK(user.Email),
		SK:         emailClaimSK,
		EntityType: "EMAIL_CLAIM",
		UserID:     user.UserID,
		Email:      user.Email,
		CreatedAt:  now(),
	})
	if err != nil {
		return apperrors.NewStorageError("put", err)
	}

	profileCond := expression.AttributeNotExists(expression.Name("PK"))
	claimCond := expression.AttributeNotExists(expression.Name("PK"))
	err = r.table.PutAll(ctx,
		TransactPut{Item: profile, Condition: &profileCond},
		TransactPut{Item: claim, Condition: &claimCond},
	)
	if err != nil {
		if apperrors.IsConflict(err) {
			return apperrors.NewConflictError("account could not be created with the provided details")
		}
		return err
	}

	r.logger.Info("created user",
		zap.String("userID", user.UserID),
		zap.String("role", string(user.Role)),
	)
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	item, err := r.table.Get(ctx, userPK(userID), userProfileSK)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("user")
	}
	return r.fromRaw(item)
}

// GetByEmail resolves a user through the email index.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.getByIndex(ctx, userEmailIndex, "GSI1PK", "EMAIL#"+email)
}

// GetByExternalAuthID resolves a user through the external-auth index.
func (r *UserRepository) GetByExternalAuthID(ctx context.Context, externalAuthID string) (*entities.User, error) {
	return r.getByIndex(ctx, userAuthIndex, "GSI3PK", "AUTH#"+externalAuthID)
}

func (r *UserRepository) getByIndex(ctx context.Context, index, keyName, keyValue string) (*entities.User, error) {
	items, _, err := r.table.Query(ctx, QueryInput{
		Index:          index,
		PartitionName:  keyName,
		PartitionValue: keyValue,
		Limit:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewNotFoundError("user")
	}
	return r.fromRaw(items[0])
}

// ListByRole lists all users holding a role through the role index.
func (r *UserRepository) ListByRole(ctx context.Context, role entities.Role) ([]*entities.User, error) {
	items, _, err := r.table.Query(ctx, QueryInput{
		Index:          userRoleIndex,
		PartitionName:  "GSI2PK",
		PartitionValue: "ROLE#" + string(role),
	})
	if err != nil {
		return nil, err
	}
	return r.fromRawSlice(items)
}

// ListAll scans the whole table. Admin listings only.
func (r *UserRepository) ListAll(ctx context.Context) ([]*entities.User, error) {
	filter := expression.Equal(expression.Name("EntityType"), expression.Value("USER"))
	items, err := r.table.ScanAll(ctx, &filter)
	if err != nil {
		return nil, err
	}
	return r.fromRawSlice(items)
}

// UpdateProfile applies a typed partial update. Only profile fields are
// reachable here; identity and subscription stay immutable through this
// path.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, patch entities.UserPatch) (*entities.User, error) {
	set := map[string]any{
		"updatedAt": now(),
	}
	setString(set, "firstName", patch.FirstName)
	setString(set, "lastName", patch.LastName)
	setString(set, "phone", patch.Phone)
	setString(set, "profilePhoto", patch.ProfilePhoto)
	setString(set, "businessName", patch.BusinessName)
	setString(set, "businessLogo", patch.BusinessLogo)
	if patch.Watermark != nil {
		set["watermarkSettings"] = watermarkItem{
			Enabled:     patch.Watermark.Enabled,
			Opacity:     patch.Watermark.Opacity,
			Position:    patch.Watermark.Position,
			CustomImage: patch.Watermark.CustomImage,
		}
	}

	return r.update(ctx, userID, Update{Set: set})
}

// UpdateSubscription changes the tier and recomputes plan limits.
func (r *UserRepository) UpdateSubscription(ctx context.Context, userID string, tier entities.SubscriptionTier, status string) (*entities.User, error) {
	limits := entities.LimitsForTier(tier)
	return r.update(ctx, userID, Update{Set: map[string]any{
		"subscriptionTier":   string(tier),
		"subscriptionStatus": status,
		"limits": limitsItem{
			MaxEvents:              limits.MaxEvents,
			MaxStorageGB:           limits.MaxStorageGB,
			MaxVideosPerMonth:      limits.MaxVideosPerMonth,
			FaceRecognitionEnabled: limits.FaceRecognitionEnabled,
			WatermarkEnabled:       limits.WatermarkEnabled,
			AIVideoEnabled:         limits.AIVideoEnabled,
		},
		"updatedAt": now(),
	}})
}

// UpdateUsage replaces the named usage counters in place.
func (r *UserRepository) UpdateUsage(ctx context.Context, userID string, patch entities.UsagePatch) error {
	set := map[string]any{
		"updatedAt": now(),
	}
	if patch.TotalEvents != nil {
		set["currentUsage.totalEvents"] = *patch.TotalEvents
	}
	if patch.TotalStorageGB != nil {
		set["currentUsage.totalStorageGB"] = *patch.TotalStorageGB
	}
	if patch.VideosThisMonth != nil {
		set["currentUsage.videosThisMonth"] = *patch.VideosThisMonth
	}
	_, err := r.update(ctx, userID, Update{Set: set})
	return err
}

// RecordLogin stamps the last-login timestamp. No business validation.
func (r *UserRepository) RecordLogin(ctx context.Context, userID string) error {
	_, err := r.update(ctx, userID, Update{Set: map[string]any{
		"lastLoginAt": now(),
	}})
	return err
}

// Deactivate soft-deletes the account. Index entries stay in place so
// the email remains taken.
func (r *UserRepository) Deactivate(ctx context.Context, userID string) error {
	_, err := r.update(ctx, userID, Update{Set: map[string]any{
		"isActive":  false,
		"updatedAt": now(),
	}})
	return err
}

func (r *UserRepository) update(ctx context.Context, userID string, u Update) (*entities.User, error) {
	item, err := r.table.UpdateItem(ctx, userPK(userID), userProfileSK, u)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("user")
	}
	return r.fromRaw(item)
}

func (r *UserRepository) toItem(u *entities.User) userItem {
	item := userItem{
		PK:     userPK(u.UserID),
		SK:     userProfileSK,
		GSI1PK: "EMAIL#" + u.Email,
		GSI1SK: "USER",
		GSI2PK: "ROLE#" + string(u.Role),
		GSI2SK: "USER#" + u.UserID,
		GSI3PK: "AUTH#" + u.ExternalAuthID,
		GSI3SK: "USER",

		EntityType:     "USER",
		UserID:         u.UserID,
		Email:          u.Email,
		ExternalAuthID: u.ExternalAuthID,
		Role:           string(u.Role),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		ProfilePhoto:   u.ProfilePhoto,
		BusinessName:   u.BusinessName,
		BusinessLogo:   u.BusinessLogo,

		SubscriptionTier:   string(u.SubscriptionTier),
		SubscriptionStatus: u.SubscriptionStatus,
		Limits: limitsItem{
			MaxEvents:              u.Limits.MaxEvents,
			MaxStorageGB:           u.Limits.MaxStorageGB,
			MaxVideosPerMonth:      u.Limits.MaxVideosPerMonth,
			FaceRecognitionEnabled: u.Limits.FaceRecognitionEnabled,
			WatermarkEnabled:       u.Limits.WatermarkEnabled,
			AIVideoEnabled:         u.Limits.AIVideoEnabled,
		},
		CurrentUsage: usageItem{
			TotalEvents:     u.CurrentUsage.TotalEvents,
			TotalStorageGB:  u.CurrentUsage.TotalStorageGB,
			VideosThisMonth: u.CurrentUsage.VideosThisMonth,
		},

		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
		IsActive:  u.IsActive,
	}
	if u.Watermark != nil {
		item.Watermark = &watermarkItem{
			Enabled:     u.Watermark.Enabled,
			Opacity:     u.Watermark.Opacity,
			Position:    u.Watermark.Position,
			CustomImage: u.Watermark.CustomImage,
		}
	}
	if u.LastLoginAt != nil {
		item.LastLoginAt = u.LastLoginAt.Format(time.RFC3339)
	}
	return item
}

func (r *UserRepository) fromRaw(raw Item) (*entities.User, error) {
	var item userItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, apperrors.NewStorageError("decode", err)
	}
	return r.fromItem(item)
}

func (r *UserRepository) fromRawSlice(raw []Item) ([]*entities.User, error) {
	users := make([]*entities.User, 0, len(raw))
	for _, it := range raw {
		u, err := r.fromRaw(it)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepository) fromItem(item userItem) (*entities.User, error) {
	createdAt, err := parseTime(item.CreatedAt)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad createdAt on user %s: %w", item.UserID, err))
	}
	updatedAt, err := parseTime(item.UpdatedAt)
	if err != nil {
		return nil, apperrors.NewStorageError("decode", fmt.Errorf("bad updatedAt on user %s: %w", item.UserID, err))
	}

	u := &entities.User{
		UserID:         item.UserID,
		Email:          item.Email,
		ExternalAuthID: item.ExternalAuthID,
		Role:           entities.Role(item.Role),
		FirstName:      item.FirstName,
		LastName:       item.LastName,
		Phone:          item.Phone,
		ProfilePhoto:   item.ProfilePhoto,
		BusinessName:   item.BusinessName,
		BusinessLogo:   item.BusinessLogo,

		SubscriptionTier:   entities.SubscriptionTier(item.SubscriptionTier),
		SubscriptionStatus: item.SubscriptionStatus,
		Limits: entities.PlanLimits{
			MaxEvents:              item.Limits.MaxEvents,
			MaxStorageGB:           item.Limits.MaxStorageGB,
			MaxVideosPerMonth:      item.Limits.MaxVideosPerMonth,
			FaceRecognitionEnabled: item.Limits.FaceRecognitionEnabled,
			WatermarkEnabled:       item.Limits.WatermarkEnabled,
			AIVideoEnabled:         item.Limits.AIVideoEnabled,
		},
		CurrentUsage: entities.UsageCounters{
			TotalEvents:     item.CurrentUsage.TotalEvents,
			TotalStorageGB:  item.CurrentUsage.TotalStorageGB,
			VideosThisMonth: item.CurrentUsage.VideosThisMonth,
		},

		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		IsActive:  item.IsActive,
	}
	if item.Watermark != nil {
		u.Watermark = &entities.WatermarkSettings{
			Enabled:     item.Watermark.Enabled,
			Opacity:     item.Watermark.Opacity,
			Position:    item.Watermark.Position,
			CustomImage: item.Watermark.CustomImage,
		}
	}
	if item.LastLoginAt != "" {
		if t, err := parseTime(item.LastLoginAt); err == nil {
			u.LastLoginAt = &t
		}
	}
	return u, nil
}

func setString(set map[string]any, path string, value *string) {
	if value != nil {
		set[path] = *value
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
