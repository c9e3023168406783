package identity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/examprep/question-api/internal/models"
)

type fakeVerifier struct {
	ident *Identity
	err   error
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	f.calls++
	return f.ident, f.err
}

type fakeProfiles struct {
	profile *models.UserProfile
	err     error
	calls   int
}

func (f *fakeProfiles) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	f.calls++
	return f.profile, f.err
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Bearer    ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"bearer abc", "", false},
		{"abc.def.ghi", "", false},
		{"Bearer abc def", "", false},
	}

	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestResolveMissingCredentialSkipsVerifier(t *testing.T) {
	verifier := &fakeVerifier{ident: &Identity{UserID: "u1"}}
	profiles := &fakeProfiles{}
	r := NewResolver(verifier, profiles, ResolverConfig{})

	for _, header := range []string{"", "Bearer ", "Token abc"} {
		user, err := r.Resolve(context.Background(), header)
		if !errors.Is(err, ErrMissingCredential) {
			t.Errorf("header %q: expected ErrMissingCredential, got %v", header, err)
		}
		if user != nil {
			t.Errorf("header %q: expected no user, got %+v", header, user)
		}
	}

	if verifier.calls != 0 || profiles.calls != 0 {
		t.Errorf("external services must not be called, verifier=%d profiles=%d", verifier.calls, profiles.calls)
	}
}

func TestResolveInvalidCredential(t *testing.T) {
	tests := []struct {
		name     string
		verifier *fakeVerifier
	}{
		{"verifier rejects", &fakeVerifier{err: ErrInvalidCredential}},
		{"no identity", &fakeVerifier{}},
		{"identity without id", &fakeVerifier{ident: &Identity{Email: "a@b.c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &fakeProfiles{}
			r := NewResolver(tt.verifier, profiles, ResolverConfig{})

			user, err := r.Resolve(context.Background(), "Bearer token-123")
			if !errors.Is(err, ErrInvalidCredential) {
				t.Fatalf("expected ErrInvalidCredential, got %v", err)
			}
			if user != nil {
				t.Fatalf("expected no user, got %+v", user)
			}
			if profiles.calls != 0 {
				t.Error("profile store must not be consulted for invalid credentials")
			}
		})
	}
}

func TestResolveVerifierInternalError(t *testing.T) {
	r := NewResolver(&fakeVerifier{err: errors.New("dial tcp: connection refused")}, &fakeProfiles{}, ResolverConfig{})

	user, err := r.Resolve(context.Background(), "Bearer token-123")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrMissingCredential) {
		t.Fatalf("transport failure must not look like a credential error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected no partial identity, got %+v", user)
	}
}

func TestResolveTier(t *testing.T) {
	lookupErr := errors.New("connection reset")

	tests := []struct {
		name     string
		profiles *fakeProfiles
		policy   ProfilePolicy
		want     models.Tier
		wantErr  error
	}{
		{"premium profile", &fakeProfiles{profile: &models.UserProfile{SubscriptionTier: "premium"}}, FailOpen, models.TierPremium, nil},
		{"lifetime profile", &fakeProfiles{profile: &models.UserProfile{SubscriptionTier: "lifetime"}}, FailOpen, models.TierLifetime, nil},
		{"empty tier", &fakeProfiles{profile: &models.UserProfile{}}, FailOpen, models.TierFree, nil},
		{"unknown tier", &fakeProfiles{profile: &models.UserProfile{SubscriptionTier: "gold"}}, FailOpen, models.TierFree, nil},
		{"profile not found", &fakeProfiles{}, FailOpen, models.TierFree, nil},
		{"not found under strict", &fakeProfiles{}, Strict, models.TierFree, nil},
		{"lookup error fails open", &fakeProfiles{err: lookupErr}, FailOpen, models.TierFree, nil},
		{"lookup error under strict", &fakeProfiles{err: lookupErr}, Strict, "", ErrProfileLookup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{ident: &Identity{UserID: "user-1", Email: "user@example.com"}}
			r := NewResolver(verifier, tt.profiles, ResolverConfig{ProfilePolicy: tt.policy, Timeout: time.Second})

			user, err := r.Resolve(context.Background(), "Bearer token-123")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !errors.Is(err, lookupErr) {
					t.Errorf("expected cause to be preserved, got %v", err)
				}
				if user != nil {
					t.Errorf("expected no user, got %+v", user)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Tier != tt.want {
				t.Errorf("tier = %q, want %q", user.Tier, tt.want)
			}
			if user.ID != "user-1" || user.Email != "user@example.com" {
				t.Errorf("unexpected identity: %+v", user)
			}
			if tt.profiles.calls != 1 {
				t.Errorf("expected exactly one profile lookup, got %d", tt.profiles.calls)
			}
		})
	}
}

func TestResolveTierNormalisesBeforeWarning(t *testing.T) {
	tests := []struct {
		raw      string
		want     models.Tier
		wantWarn bool
	}{
		{" Premium ", models.TierPremium, false},
		{"LIFETIME", models.TierLifetime, false},
		{"free", models.TierFree, false},
		{"", models.TierFree, false},
		{"gold", models.TierFree, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
			t.Cleanup(func() { slog.SetDefault(prev) })

			verifier := &fakeVerifier{ident: &Identity{UserID: "user-1"}}
			profiles := &fakeProfiles{profile: &models.UserProfile{SubscriptionTier: tt.raw}}
			r := NewResolver(verifier, profiles, ResolverConfig{Timeout: time.Second})

			user, err := r.Resolve(context.Background(), "Bearer token-123")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Tier != tt.want {
				t.Errorf("tier = %q, want %q", user.Tier, tt.want)
			}
			warned := strings.Contains(buf.String(), "unrecognised subscription tier")
			if warned != tt.wantWarn {
				t.Errorf("warned = %v, want %v (log: %q)", warned, tt.wantWarn, buf.String())
			}
		})
	}
}

type deadlineVerifier struct{}

func (deadlineVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolveAppliesTimeout(t *testing.T) {
	r := NewResolver(deadlineVerifier{}, &fakeProfiles{}, ResolverConfig{Timeout: 10 * time.Millisecond})

	_, err := r.Resolve(context.Background(), "Bearer token-123")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
