package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/examprep/question-api/internal/models"
)

// ServiceRoleStore reads the content store with the service role, which
// bypasses row-level security. Only diagnostic routes may use it.
type ServiceRoleStore struct {
	db *sql.DB
}

// NewServiceRoleStore opens a database/sql pool on the service-role DSN
func NewServiceRoleStore(ctx context.Context, dsn string) (*ServiceRoleStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open service-role connection: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping service-role connection: %w", err)
	}

	return NewServiceRoleStoreFromDB(db), nil
}

// NewServiceRoleStoreFromDB wraps an existing *sql.DB
func NewServiceRoleStoreFromDB(db *sql.DB) *ServiceRoleStore {
	return &ServiceRoleStore{db: db}
}

// Name implements Checker
func (s *ServiceRoleStore) Name() string {
	return "service_role_store"
}

// HealthCheck implements Checker
func (s *ServiceRoleStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CountByLevel counts every question per exam level, premium included.
// Known levels are always present in the breakdown, zero when empty.
func (s *ServiceRoleStore) CountByLevel(ctx context.Context) (*models.LevelBreakdown, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level, COUNT(*) FROM questions GROUP BY level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	defer rows.Close()

	breakdown := &models.LevelBreakdown{Counts: make(map[models.Level]int, len(models.Levels))}
	for _, level := range models.Levels {
		breakdown.Counts[level] = 0
	}

	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan level count: %w", err)
		}
		breakdown.Counts[models.Level(level)] = count
		breakdown.Total += count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating level counts: %w", err)
	}

	return breakdown, nil
}

// Close closes the connection pool
func (s *ServiceRoleStore) Close() error {
	return s.db.Close()
}
