// Package questions implements tier-gated question retrieval: it turns the
// caller's filters and tier into a store query and shapes the rows into
// single-language views.
package questions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/examprep/question-api/internal/models"
	"github.com/examprep/question-api/internal/storage"
)

// ErrStoreQueryFailed wraps any content store failure
var ErrStoreQueryFailed = errors.New("question store query failed")

// Defaults
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Config configures a Service
type Config struct {
	DefaultLimit     int
	MaxLimit         int
	FallbackLanguage string
	Timeout          time.Duration
}

// Result is the payload of a successful listing
type Result struct {
	Questions []models.QuestionView `json:"questions"`
	Count     int                   `json:"count"`
	UserTier  models.Tier           `json:"userTier"`
}

// Service lists questions visible to a caller
type Service struct {
	store     storage.QuestionStore
	localizer Localizer
	cfg       Config
}

// NewService creates a new Service
func NewService(store storage.QuestionStore, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.FallbackLanguage == "" {
		cfg.FallbackLanguage = DefaultFallbackLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Service{
		store:     store,
		localizer: Localizer{Fallback: cfg.FallbackLanguage},
		cfg:       cfg,
	}
}

// ParseLimit turns the raw limit parameter into a row count. Absent or
// unusable values give the default; large values are clamped to the max.
func (s *Service) ParseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.cfg.DefaultLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

// BuildFilters derives store filters from the request and the caller's tier.
// Premium gating is decided here and nowhere else.
func (s *Service) BuildFilters(q models.QuestionQuery, tier models.Tier) models.QuestionFilters {
	return models.QuestionFilters{
		Level:          q.Level,
		Theme:          q.Theme,
		ExcludePremium: !tier.CanAccessPremium(),
		Limit:          s.ParseLimit(q.Limit),
	}
}

// List fetches the questions user may see and resolves them to q.Language
func (s *Service) List(ctx context.Context, user *models.AuthenticatedUser, q models.QuestionQuery) (*Result, error) {
	if user == nil {
		return nil, errors.New("questions: nil user")
	}

	filters := s.BuildFilters(q, user.Tier)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	rows, err := s.store.ListQuestions(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreQueryFailed, err)
	}

	lang := strings.TrimSpace(q.Language)
	if lang == "" {
		lang = s.cfg.FallbackLanguage
	}

	views := s.localizer.Shape(rows, lang)
	return &Result{
		Questions: views,
		Count:     len(views),
		UserTier:  user.Tier,
	}, nil
}
