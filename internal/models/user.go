package models

import (
	"strings"
	"time"
)

// Tier is a caller's subscription level
type Tier string

const (
	TierFree     Tier = "free"
	TierPremium  Tier = "premium"
	TierLifetime Tier = "lifetime"
)

// ParseTier maps a stored subscription_tier value onto the closed Tier set.
// Empty and unknown values resolve to TierFree.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPremium:
		return TierPremium
	case TierLifetime:
		return TierLifetime
	default:
		return TierFree
	}
}

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierLifetime:
		return true
	}
	return false
}

// CanAccessPremium reports whether the tier may see premium questions.
// This is the only place tier semantics are decided.
func (t Tier) CanAccessPremium() bool {
	return t == TierPremium || t == TierLifetime
}

// AuthenticatedUser is the identity resolved for a single request
type AuthenticatedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Tier  Tier   `json:"tier"`
}

// UserProfile mirrors a row of user_profiles. Only SubscriptionTier is consulted.
type UserProfile struct {
	ID                    string     `json:"id"`
	SubscriptionTier      string     `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	PreferredLanguage     string     `json:"preferred_language"`
	TargetExamLevel       *string    `json:"target_exam_level,omitempty"`
}
