package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/examprep/question-api/internal/models"
)

func TestBuildQuestionQuery(t *testing.T) {
	tests := []struct {
		name      string
		filters   models.QuestionFilters
		wantWhere []string
		wantArgs  []interface{}
		notWant   []string
	}{
		{
			name:     "no filters",
			filters:  models.QuestionFilters{Limit: 10},
			wantArgs: []interface{}{10},
			notWant:  []string{"level =", "theme =", "is_premium"},
		},
		{
			name:      "level and theme",
			filters:   models.QuestionFilters{Level: "CSP", Theme: "laicite", Limit: 5},
			wantWhere: []string{"AND level = $1", "AND theme = $2", "LIMIT $3"},
			wantArgs:  []interface{}{"CSP", "laicite", 5},
			notWant:   []string{"is_premium"},
		},
		{
			name:      "free tier gating",
			filters:   models.QuestionFilters{Theme: "histoire", ExcludePremium: true, Limit: 10},
			wantWhere: []string{"AND theme = $1", "AND is_premium = false", "LIMIT $2"},
			wantArgs:  []interface{}{"histoire", 10},
			notWant:   []string{"level ="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildQuestionQuery(tt.filters)

			if !strings.HasPrefix(query, "SELECT "+questionColumns+" FROM questions") {
				t.Errorf("unexpected projection: %s", query)
			}
			for _, frag := range tt.wantWhere {
				if !strings.Contains(query, frag) {
					t.Errorf("query %q missing %q", query, frag)
				}
			}
			for _, frag := range tt.notWant {
				if strings.Contains(query, frag) {
					t.Errorf("query %q should not contain %q", query, frag)
				}
			}
			if strings.Contains(query, "ORDER BY") {
				t.Errorf("query should keep store order: %s", query)
			}
			if fmt.Sprint(args) != fmt.Sprint(tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestIsUndefinedTable(t *testing.T) {
	undefined := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "42P01"})
	if !IsUndefinedTable(undefined) {
		t.Error("expected 42P01 to be recognised")
	}
	if IsUndefinedTable(&pgconn.PgError{Code: "28P01"}) {
		t.Error("auth failure must not be treated as undefined table")
	}
	if IsUndefinedTable(errors.New("connection refused")) {
		t.Error("plain error must not be treated as undefined table")
	}
}

func TestGetProfileRejectsNonUUID(t *testing.T) {
	repo := &PostgresRepository{}

	profile, err := repo.GetProfile(context.Background(), "not-a-uuid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected no profile, got %+v", profile)
	}
}
