package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examprep/question-api/internal/models"
)

// SQLSTATE 42P01: relation does not exist
const pgUndefinedTable = "42P01"

// probeTable is deliberately absent from the schema. Reaching the planner
// and getting "undefined table" back proves the store is reachable.
const probeTable = "_health_probe"

// questionColumns is the fixed projection served to callers
const questionColumns = "id, level, theme, question_type, content, correct_answer, is_premium"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN         string
	MaxConns    int32
	MinConns    int32
	MaxLifetime time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// NewPostgresRepositoryFromPool wraps an existing pool
func NewPostgresRepositoryFromPool(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Probe runs a bounded read against a table that is not expected to exist.
// An undefined-table error means the store answered, so it counts as healthy.
func (r *PostgresRepository) Probe(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "SELECT * FROM "+probeTable+" LIMIT 1")
	if err == nil || IsUndefinedTable(err) {
		return nil
	}
	return fmt.Errorf("store probe failed: %w", err)
}

// IsUndefinedTable reports whether err carries SQLSTATE 42P01
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

// GetProfile reads the subscription tier of a user. Only subscription_tier is
// selected; the rest of the profile belongs to other services.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	// user_profiles.id is a uuid; anything else can never match a row
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}

	query := `
		SELECT subscription_tier
		FROM user_profiles
		WHERE id = $1
	`

	var tier *string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile := &models.UserProfile{ID: userID}
	if tier != nil {
		profile.SubscriptionTier = *tier
	}
	return profile, nil
}

// ListQuestions returns questions matching filters in store order
func (r *PostgresRepository) ListQuestions(ctx context.Context, filters models.QuestionFilters) ([]models.Question, error) {
	query, args := buildQuestionQuery(filters)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]models.Question, 0)
	for rows.Next() {
		var q models.Question
		var level, questionType string
		var contentJSON []byte

		if err := rows.Scan(
			&q.ID,
			&level,
			&q.Theme,
			&questionType,
			&contentJSON,
			&q.CorrectAnswer,
			&q.IsPremium,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		q.Level = models.Level(level)
		q.QuestionType = models.QuestionType(questionType)

		if len(contentJSON) > 0 {
			if err := json.Unmarshal(contentJSON, &q.Content); err != nil {
				return nil, fmt.Errorf("failed to unmarshal content of question %s: %w", q.ID, err)
			}
		}

		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// buildQuestionQuery renders the SELECT for filters with positional args
func buildQuestionQuery(filters models.QuestionFilters) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT " + questionColumns + " FROM questions WHERE 1=1")

	args := make([]interface{}, 0, 4)
	argNum := 1

	if filters.Level != "" {
		fmt.Fprintf(&sb, " AND level = $%d", argNum)
		args = append(args, filters.Level)
		argNum++
	}

	if filters.Theme != "" {
		fmt.Fprintf(&sb, " AND theme = $%d", argNum)
		args = append(args, filters.Theme)
		argNum++
	}

	if filters.ExcludePremium {
		sb.WriteString(" AND is_premium = false")
	}

	if filters.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", argNum)
		args = append(args, filters.Limit)
	}

	return sb.String(), args
}

// UpsertQuestions inserts or replaces questions by id in one batch
func (r *PostgresRepository) UpsertQuestions(ctx context.Context, questions []models.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO questions (id, level, theme, question_type, content, correct_answer, is_premium)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET level = EXCLUDED.level,
		    theme = EXCLUDED.theme,
		    question_type = EXCLUDED.question_type,
		    content = EXCLUDED.content,
		    correct_answer = EXCLUDED.correct_answer,
		    is_premium = EXCLUDED.is_premium
	`

	batch := &pgx.Batch{}
	for _, q := range questions {
		contentJSON, err := json.Marshal(q.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal content of question %s: %w", q.ID, err)
		}
		batch.Queue(query,
			q.ID,
			string(q.Level),
			q.Theme,
			string(q.QuestionType),
			contentJSON,
			q.CorrectAnswer,
			q.IsPremium,
		)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for _, q := range questions {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to upsert question %s: %w", q.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return len(questions), nil
}
