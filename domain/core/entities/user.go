package entities

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies what a user can do in the system. It is fixed at
// registration time; changing roles requires a new account.
type Role string

const (
	RolePhotographer Role = "photographer"
	RoleClient       Role = "client"
	RoleGuest        Role = "guest"
	RoleAdmin        Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePhotographer, RoleClient, RoleGuest, RoleAdmin:
		return true
	}
	return false
}

// SubscriptionTier identifies a billing plan. The tier string is stored
// as-is; billing itself is handled outside this service.
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "free"
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// Unlimited marks a plan limit with no ceiling.
const Unlimited = -1

// PlanLimits captures the ceilings derived from a subscription tier.
// The stores only persist these values; enforcement is a caller concern.
type PlanLimits struct {
	MaxEvents              int  `json:"maxEvents"`
	MaxStorageGB           int  `json:"maxStorageGB"`
	MaxVideosPerMonth      int  `json:"maxVideosPerMonth"`
	FaceRecognitionEnabled bool `json:"faceRecognitionEnabled"`
	WatermarkEnabled       bool `json:"watermarkEnabled"`
	AIVideoEnabled         bool `json:"aiVideoEnabled"`
}

var planLimits = map[SubscriptionTier]PlanLimits{
	TierFree:         {MaxEvents: 3, MaxStorageGB: 5, MaxVideosPerMonth: 0},
	TierStarter:      {MaxEvents: 15, MaxStorageGB: 50, MaxVideosPerMonth: 3, FaceRecognitionEnabled: true, WatermarkEnabled: true, AIVideoEnabled: true},
	TierProfessional: {MaxEvents: Unlimited, MaxStorageGB: 200, MaxVideosPerMonth: 20, FaceRecognitionEnabled: true, WatermarkEnabled: true, AIVideoEnabled: true},
	TierEnterprise:   {MaxEvents: Unlimited, MaxStorageGB: 500, MaxVideosPerMonth: Unlimited, FaceRecognitionEnabled: true, WatermarkEnabled: true, AIVideoEnabled: true},
}

// LimitsForTier returns the fixed plan limits for a tier. Unknown tiers
// fall back to the free plan.
func LimitsForTier(tier SubscriptionTier) PlanLimits {
	if limits, ok := planLimits[tier]; ok {
		return limits
	}
	return planLimits[TierFree]
}

// UsageCounters tracks a user's current consumption against plan limits.
type UsageCounters struct {
	TotalEvents     int     `json:"totalEvents"`
	TotalStorageGB  float64 `json:"totalStorageGB"`
	VideosThisMonth int     `json:"videosThisMonth"`
}

// WatermarkSettings is a photographer's branding preference for exports.
type WatermarkSettings struct {
	Enabled     bool    `json:"enabled"`
	Opacity     float64 `json:"opacity"`
	Position    string  `json:"position"`
	CustomImage string  `json:"customImage,omitempty"`
}

// User is the profile record for an account. Identity fields (UserID,
// Email, ExternalAuthID, Role) are immutable after creation.
type User struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	ExternalAuthID string `json:"externalAuthId"`
	Role           Role   `json:"role"`

	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone,omitempty"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`

	BusinessName string             `json:"businessName,omitempty"`
	BusinessLogo string             `json:"businessLogo,omitempty"`
	Watermark    *WatermarkSettings `json:"watermarkSettings,omitempty"`

	SubscriptionTier   SubscriptionTier `json:"subscriptionTier"`
	SubscriptionStatus string           `json:"subscriptionStatus"`
	Limits             PlanLimits       `json:"limits"`
	CurrentUsage       UsageCounters    `json:"currentUsage"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	IsActive    bool       `json:"isActive"`
}

// NewUser assembles a user record with store-assigned defaults: a fresh
// id, the free tier with its limits, zeroed usage and active status.
func NewUser(email, externalAuthID string, role Role, firstName, lastName, phone string) *User {
	now := time.Now().UTC()
	return &User{
		UserID:             uuid.NewString(),
		Email:              email,
		ExternalAuthID:     externalAuthID,
		Role:               role,
		FirstName:          firstName,
		LastName:           lastName,
		Phone:              phone,
		SubscriptionTier:   TierFree,
		SubscriptionStatus: "active",
		Limits:             LimitsForTier(TierFree),
		CurrentUsage:       UsageCounters{},
		CreatedAt:          now,
		UpdatedAt:          now,
		IsActive:           true,
	}
}

// UserPatch is a partial profile update. Nil fields are left untouched.
// Identity, role and subscription fields are deliberately absent; those
// change only through their dedicated privileged operations.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	ProfilePhoto *string
	BusinessName *string
	BusinessLogo *string
	Watermark    *WatermarkSettings
}

// UsagePatch replaces the named usage counters. Nil fields are untouched.
type UsagePatch struct {
	TotalEvents     *int
	TotalStorageGB  *float64
	VideosThisMonth *int
}
