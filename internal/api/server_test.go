package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/examprep/question-api/internal/config"
	"github.com/examprep/question-api/internal/identity"
	"github.com/examprep/question-api/internal/models"
	"github.com/examprep/question-api/internal/questions"
	"github.com/examprep/question-api/internal/ratelimit"
)

type tokenVerifier map[string]string

func (v tokenVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	id, ok := v[token]
	if !ok {
		return nil, identity.ErrInvalidCredential
	}
	return &identity.Identity{UserID: id}, nil
}

type memoryProfiles map[string]string

func (m memoryProfiles) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	tier, ok := m[userID]
	if !ok {
		return nil, nil
	}
	return &models.UserProfile{ID: userID, SubscriptionTier: tier}, nil
}

type memoryQuestions []models.Question

func (m memoryQuestions) ListQuestions(_ context.Context, f models.QuestionFilters) ([]models.Question, error) {
	out := make([]models.Question, 0)
	for _, q := range m {
		if f.Level != "" && string(q.Level) != f.Level {
			continue
		}
		if f.Theme != "" && q.Theme != f.Theme {
			continue
		}
		if f.ExcludePremium && q.IsPremium {
			continue
		}
		if len(out) >= f.Limit {
			break
		}
		out = append(out, q)
	}
	return out, nil
}

func newPipelineServer(rows memoryQuestions) http.Handler {
	resolver := identity.NewResolver(
		tokenVerifier{"free-token": "u-free", "premium-token": "u-premium"},
		memoryProfiles{"u-premium": "premium"},
		identity.ResolverConfig{Timeout: time.Second},
	)
	service := questions.NewService(rows, questions.Config{Timeout: time.Second})

	return NewServer(config.ServerConfig{}, Dependencies{
		Store:     fakeProber{},
		Resolver:  resolver,
		Questions: service,
	}).Router()
}

func TestQuestionPipeline(t *testing.T) {
	onlyPremium := memoryQuestions{{
		ID:        "p1",
		Level:     models.LevelCSP,
		Theme:     "valeurs",
		Content:   models.QuestionContent{"fr": {Question: "P?", Options: []string{"a"}}},
		IsPremium: true,
	}}
	h := newPipelineServer(onlyPremium)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusUnauthorized, `{"error":"Missing authentication token"}`},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, `{"error":"Missing authentication token"}`},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, `{"error":"Invalid or expired token"}`},
		{"free caller", "Bearer free-token", http.StatusOK, `{"questions":[],"count":0,"userTier":"free"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/questions?level=CSP", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got, want := compactJSON(t, rec.Body.Bytes()), compactJSON(t, []byte(tt.wantBody)); got != want {
				t.Errorf("body = %s, want %s", got, want)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/questions?level=CSP", nil)
	req.Header.Set("Authorization", "Bearer premium-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body questions.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || body.Count != 1 || body.UserTier != models.TierPremium {
		t.Errorf("premium caller: status %d, body %+v", rec.Code, body)
	}
}

// compactJSON re-encodes body so field order and whitespace do not matter
func compactJSON(t *testing.T, body []byte) string {
	t.Helper()
	var v map[string]interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(out)
}

func TestRateLimitIgnoresForwardedHeadersByDefault(t *testing.T) {
	tests := []struct {
		name         string
		trustProxy   bool
		wantLastCode int
	}{
		{"untrusted headers", false, http.StatusTooManyRequests},
		{"trusted proxy", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(config.ServerConfig{TrustProxyHeaders: tt.trustProxy}, Dependencies{
				Store:     fakeProber{},
				Resolver:  &fakeResolver{user: &models.AuthenticatedUser{ID: "u1", Tier: models.TierFree}},
				Questions: &fakeLister{result: &questions.Result{Questions: []models.QuestionView{}}},
				Limiter:   ratelimit.NewInMemory(time.Minute),
				RateLimit: 2,
			}).Router()

			var last int
			for i := 0; i < 3; i++ {
				req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
				req.RemoteAddr = "192.0.2.10:40000"
				req.Header.Set("Authorization", "Bearer abc")
				req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				last = rec.Code
			}

			if last != tt.wantLastCode {
				t.Errorf("third request status = %d, want %d", last, tt.wantLastCode)
			}
		})
	}
}

func TestCanceledRequestIsNotAServerError(t *testing.T) {
	resolver := &fakeResolver{err: context.Canceled}
	h := newTestServer(Dependencies{Resolver: resolver})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code == http.StatusInternalServerError || rec.Body.Len() != 0 {
		t.Errorf("canceled request got status %d, body %q", rec.Code, rec.Body.String())
	}
}
