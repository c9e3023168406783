package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/examprep/question-api/internal/models"
	"github.com/examprep/question-api/internal/storage"
)

// ProfilePolicy decides what a failed profile lookup means for the request
type ProfilePolicy string

const (
	// FailOpen downgrades the caller to the free tier and carries on
	FailOpen ProfilePolicy = "fail-open"
	// Strict fails the request so a store outage does not silently
	// downgrade paying users
	Strict ProfilePolicy = "strict"
)

// ResolverConfig configures a Resolver
type ResolverConfig struct {
	ProfilePolicy ProfilePolicy
	// Timeout bounds each external call separately
	Timeout time.Duration
}

// Resolver authenticates a bearer credential and resolves the caller's tier
type Resolver struct {
	verifier Verifier
	profiles storage.ProfileStore
	policy   ProfilePolicy
	timeout  time.Duration
}

// NewResolver creates a new Resolver
func NewResolver(verifier Verifier, profiles storage.ProfileStore, cfg ResolverConfig) *Resolver {
	if cfg.ProfilePolicy == "" {
		cfg.ProfilePolicy = FailOpen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Resolver{
		verifier: verifier,
		profiles: profiles,
		policy:   cfg.ProfilePolicy,
		timeout:  cfg.Timeout,
	}
}

// Resolve returns the authenticated user for an Authorization header value.
// Errors wrap ErrMissingCredential, ErrInvalidCredential or ErrProfileLookup;
// anything else is an internal failure (possibly context.DeadlineExceeded).
// On error no partial identity is returned.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*models.AuthenticatedUser, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil, ErrMissingCredential
	}

	ident, err := r.verify(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			slog.Debug("rejected credential", "token_prefix", maskToken(token), "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("identity verification failed: %w", err)
	}

	tier, err := r.resolveTier(ctx, ident.UserID)
	if err != nil {
		return nil, err
	}

	return &models.AuthenticatedUser{
		ID:    ident.UserID,
		Email: ident.Email,
		Tier:  tier,
	}, nil
}

func (r *Resolver) verify(ctx context.Context, token string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ident, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.UserID == "" {
		return nil, fmt.Errorf("%w: no identity for token", ErrInvalidCredential)
	}
	return ident, nil
}

// resolveTier reads the caller's subscription tier. A missing profile or an
// empty tier is the free tier.
func (r *Resolver) resolveTier(ctx context.Context, userID string) (models.Tier, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	profile, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		if r.policy == Strict {
			return "", fmt.Errorf("%w: %w", ErrProfileLookup, err)
		}
		slog.Warn("profile lookup failed, defaulting to free tier", "user_id", userID, "error", err)
		return models.TierFree, nil
	}

	if profile == nil {
		slog.Debug("no profile for user, defaulting to free tier", "user_id", userID)
		return models.TierFree, nil
	}

	tier := models.ParseTier(profile.SubscriptionTier)
	if raw := strings.ToLower(strings.TrimSpace(profile.SubscriptionTier)); raw != "" && raw != string(tier) {
		slog.Warn("unrecognised subscription tier, defaulting to free tier",
			"user_id", userID,
			"subscription_tier", profile.SubscriptionTier,
		)
	}
	return tier, nil
}
