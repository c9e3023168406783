// Command question-seed imports YAML question bank files into the questions table.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/examprep/question-api/internal/catalog"
	"github.com/examprep/question-api/internal/storage"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("DATABASE_DSN"), "PostgreSQL DSN (defaults to $DATABASE_DSN)")
	dir := flag.String("dir", "data/questions", "question bank directory")
	migrations := flag.String("migrations", os.Getenv("MIGRATIONS_DIR"), "apply migrations from this dir first")
	language := flag.String("language", "fr", "language every question must provide")
	dryRun := flag.Bool("dry-run", false, "validate files without writing")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	loader := catalog.NewLoader(*language)
	if err := loader.LoadFromDir(*dir); err != nil {
		slog.Error("failed to load question bank", "dir", *dir, "error", err)
		os.Exit(1)
	}

	qs := loader.Questions()
	if len(qs) == 0 {
		slog.Warn("no questions found", "dir", *dir)
		return
	}
	if *dryRun {
		slog.Info("dry run complete", "questions", len(qs))
		return
	}

	if *dsn == "" {
		slog.Error("database DSN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *migrations != "" {
		if err := storage.MigrateFromDSN(ctx, *dsn, *migrations); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: *dsn, MaxConns: 2})
	if err != nil {
		slog.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	n, err := repo.UpsertQuestions(ctx, qs)
	if err != nil {
		slog.Error("failed to upsert questions", "error", err)
		os.Exit(1)
	}

	slog.Info("question bank imported", "questions", n)
}
