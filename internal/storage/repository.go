package storage

import (
	"context"

	"github.com/examprep/question-api/internal/models"
)

// ProfileStore reads subscription data for authenticated users
type ProfileStore interface {
	// GetProfile returns nil, nil when no profile row exists for userID
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// QuestionStore reads exam questions
type QuestionStore interface {
	ListQuestions(ctx context.Context, filters models.QuestionFilters) ([]models.Question, error)
}

// Prober checks connectivity to the content store
type Prober interface {
	Probe(ctx context.Context) error
}

// Repository is the full read surface used by the API plus the write
// path used by the seeding tool
type Repository interface {
	ProfileStore
	QuestionStore
	Prober

	UpsertQuestions(ctx context.Context, questions []models.Question) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
